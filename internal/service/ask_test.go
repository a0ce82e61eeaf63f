package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sailor-labs/sailor/internal/domain"
)

func newAskFixture() (*AskService, *mockEmbedder, *mockVectorStore, *mockAnswerGenerator) {
	embedder := new(mockEmbedder)
	store := new(mockVectorStore)
	generator := new(mockAnswerGenerator)
	retrieval := NewRetrievalService(embedder, store, RetrievalConfig{ScoreThreshold: 0.7, NeighborChunks: 3})
	return NewAskService(retrieval, generator), embedder, store, generator
}

func TestAsk_GeneratesAnswerWithNumberedSources(t *testing.T) {
	svc, embedder, store, generator := newAskFixture()

	hits := []*domain.RetrievedResult{
		{ChunkID: "c-1", DocumentID: "doc-1", Content: "Go has goroutines.", Score: 0.9, PageNumber: 2},
		{ChunkID: "c-2", DocumentID: "doc-1", Content: "Channels synchronize them.", Score: 0.8, PageNumber: 3},
	}

	embedder.On("EmbedQuery", mock.Anything, "how does Go do concurrency?").Return(queryPair(), nil)
	store.On("Search", mock.Anything, testUserID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(hits, nil)

	var capturedContext string
	generator.On("GenerateAnswer", mock.Anything, "how does Go do concurrency?", mock.Anything).
		Run(func(args mock.Arguments) { capturedContext = args.String(2) }).
		Return("Goroutines with channels [Source 1].", nil)

	result, err := svc.Ask(context.Background(), testUserID, QueryInput{Query: "how does Go do concurrency?"})
	require.NoError(t, err)

	assert.Equal(t, "Goroutines with channels [Source 1].", result.Answer)
	assert.Len(t, result.Sources, 2)
	assert.Contains(t, capturedContext, "[Source 1: page 2]\nGo has goroutines.")
	assert.Contains(t, capturedContext, "[Source 2: page 3]\nChannels synchronize them.")
}

func TestAsk_NoResultsSkipsModel(t *testing.T) {
	svc, embedder, store, generator := newAskFixture()

	embedder.On("EmbedQuery", mock.Anything, "anything?").Return(queryPair(), nil)
	store.On("Search", mock.Anything, testUserID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.RetrievedResult{}, nil)

	result, err := svc.Ask(context.Background(), testUserID, QueryInput{Query: "anything?"})
	require.NoError(t, err)

	assert.Contains(t, result.Answer, "could not find relevant information")
	assert.Empty(t, result.Sources)
	generator.AssertNotCalled(t, "GenerateAnswer", mock.Anything, mock.Anything, mock.Anything)
}

func TestAsk_GenerationFailurePropagates(t *testing.T) {
	svc, embedder, store, generator := newAskFixture()

	embedder.On("EmbedQuery", mock.Anything, "q").Return(queryPair(), nil)
	store.On("Search", mock.Anything, testUserID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.RetrievedResult{{ChunkID: "c-1", Content: "text", Score: 0.9}}, nil)
	generator.On("GenerateAnswer", mock.Anything, mock.Anything, mock.Anything).
		Return("", domain.NewExternalAPIError("llm", "rate limited", nil))

	_, err := svc.Ask(context.Background(), testUserID, QueryInput{Query: "q"})
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeExternalAPI, derr.Code)
}
