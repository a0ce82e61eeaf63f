package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sailor-labs/sailor/internal/domain"
)

// AnswerGenerator produces an answer from a question and retrieval context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, retrievalContext string) (string, error)
}

// AskResult carries the generated answer with the evidence behind it.
type AskResult struct {
	Answer  string
	Sources []*domain.RetrievedResult
}

// AskService answers questions over the user's indexed documents.
type AskService struct {
	retrieval *RetrievalService
	generator AnswerGenerator
}

func NewAskService(retrieval *RetrievalService, generator AnswerGenerator) *AskService {
	return &AskService{retrieval: retrieval, generator: generator}
}

// Ask retrieves relevant chunks and generates a grounded answer. When
// nothing clears the score threshold, a fixed no-context answer is returned
// without calling the model.
func (s *AskService) Ask(ctx context.Context, userID string, input QueryInput) (*AskResult, error) {
	results, err := s.retrieval.Query(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &AskResult{
			Answer:  "I could not find relevant information in your documents to answer this question.",
			Sources: nil,
		}, nil
	}

	if s.generator == nil {
		return nil, domain.NewExternalAPIError("llm", "answer generation is not configured", nil)
	}

	answer, err := s.generator.GenerateAnswer(ctx, input.Query, buildContext(results))
	if err != nil {
		return nil, err
	}

	return &AskResult{Answer: answer, Sources: results}, nil
}

// buildContext formats retrieved chunks as numbered source entries matching
// the [Source N] citations the model is instructed to emit.
func buildContext(results []*domain.RetrievedResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d: page %d]\n%s", i+1, r.PageNumber, r.Content)
	}
	return b.String()
}
