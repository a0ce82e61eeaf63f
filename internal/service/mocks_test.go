package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sailor-labs/sailor/internal/domain"
	"github.com/sailor-labs/sailor/internal/extract"
)

func testNow() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

type mockDocumentRepo struct {
	mock.Mock
}

func (m *mockDocumentRepo) Create(ctx context.Context, d *domain.Document) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, userID, id string) (*domain.Document, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *mockDocumentRepo) GetByHash(ctx context.Context, userID, fileHash string) (*domain.Document, error) {
	args := m.Called(ctx, userID, fileHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *mockDocumentRepo) Update(ctx context.Context, d *domain.Document) error {
	return m.Called(ctx, d).Error(0)
}

func (m *mockDocumentRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Document, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *mockDocumentRepo) ListPending(ctx context.Context, limit int) ([]*domain.Document, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *mockDocumentRepo) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *mockBlobStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockBlobStore) DeleteObject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ExtractPages(ctx context.Context, filename string, data []byte) (int, []extract.Page, error) {
	args := m.Called(ctx, filename, data)
	if args.Get(1) == nil {
		return args.Int(0), nil, args.Error(2)
	}
	return args.Int(0), args.Get(1).([]extract.Page), args.Error(2)
}

type mockChunker struct {
	mock.Mock
}

func (m *mockChunker) ChunkPage(ctx context.Context, documentID string, pageNumber int, text string) ([]*domain.Chunk, error) {
	args := m.Called(ctx, documentID, pageNumber, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([]domain.EmbeddingPair, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EmbeddingPair), args.Error(1)
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, query string) (domain.EmbeddingPair, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(domain.EmbeddingPair), args.Error(1)
}

type mockVectorStore struct {
	mock.Mock
}

func (m *mockVectorStore) StoreChunks(ctx context.Context, ownerID string, chunks []*domain.Chunk, embeddings []domain.EmbeddingPair) error {
	return m.Called(ctx, ownerID, chunks, embeddings).Error(0)
}

func (m *mockVectorStore) Search(ctx context.Context, ownerID string, query domain.EmbeddingPair, topK int, alpha float64, documentIDs []string) ([]*domain.RetrievedResult, error) {
	args := m.Called(ctx, ownerID, query, topK, alpha, documentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RetrievedResult), args.Error(1)
}

func (m *mockVectorStore) FetchNeighbors(ctx context.Context, ownerID, documentID string, afterSeq, n int) ([]*domain.RetrievedResult, error) {
	args := m.Called(ctx, ownerID, documentID, afterSeq, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RetrievedResult), args.Error(1)
}

func (m *mockVectorStore) DeleteDocumentChunks(ctx context.Context, ownerID, documentID string) error {
	return m.Called(ctx, ownerID, documentID).Error(0)
}

type mockAnswerGenerator struct {
	mock.Mock
}

func (m *mockAnswerGenerator) GenerateAnswer(ctx context.Context, question, retrievalContext string) (string, error) {
	args := m.Called(ctx, question, retrievalContext)
	return args.String(0), args.Error(1)
}

type fixedUUIDGen struct {
	ids []string
	pos int
}

func (g *fixedUUIDGen) NewString() string {
	if g.pos >= len(g.ids) {
		return "overflow-uuid"
	}
	id := g.ids[g.pos]
	g.pos++
	return id
}
