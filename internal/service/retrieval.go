package service

import (
	"context"
	"log"
	"strings"

	"github.com/sailor-labs/sailor/internal/domain"
)

const (
	DefaultTopK        = 5
	MaxTopK            = 20
	DefaultHybridAlpha = 0.7
)

// RetrievalConfig tunes query-time behavior.
type RetrievalConfig struct {
	ScoreThreshold float64
	NeighborChunks int
}

// QueryInput is a normalized retrieval request. DocumentIDs, when set,
// restricts search to those documents.
type QueryInput struct {
	Query          string
	TopK           int
	HybridAlpha    float64
	ExpandContext  bool
	ScoreThreshold float64
	DocumentIDs    []string
}

// RetrievalService runs hybrid search with optional neighbor expansion.
type RetrievalService struct {
	embedder EmbeddingGenerator
	store    VectorStore
	cfg      RetrievalConfig
}

func NewRetrievalService(embedder EmbeddingGenerator, store VectorStore, cfg RetrievalConfig) *RetrievalService {
	if cfg.NeighborChunks <= 0 {
		cfg.NeighborChunks = 3
	}
	return &RetrievalService{embedder: embedder, store: store, cfg: cfg}
}

// Query embeds the query, fuses dense and sparse rankings, and expands
// high-confidence hits with the chunks that follow them in the document.
// Results come back best first, one entry per chunk.
func (s *RetrievalService) Query(ctx context.Context, userID string, input QueryInput) ([]*domain.RetrievedResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query cannot be empty")
	}

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	alpha := input.HybridAlpha
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultHybridAlpha
	}

	threshold := input.ScoreThreshold
	if threshold <= 0 {
		threshold = s.cfg.ScoreThreshold
	}

	pair, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.store.Search(ctx, userID, pair, topK, alpha, input.DocumentIDs)
	if err != nil {
		return nil, err
	}

	if input.ExpandContext {
		s.expandResults(ctx, userID, results, threshold)
	}

	return results, nil
}

// expandResults appends the next few chunks of the same document to each
// result that cleared the threshold, giving the answer model continuous
// surrounding text to work with.
func (s *RetrievalService) expandResults(ctx context.Context, userID string, results []*domain.RetrievedResult, threshold float64) {
	for _, r := range results {
		if r.Score < threshold {
			continue
		}

		neighbors, err := s.store.FetchNeighbors(ctx, userID, r.DocumentID, r.SeqIndex, s.cfg.NeighborChunks)
		if err != nil {
			log.Printf("neighbor expansion failed for chunk %s: %v", r.ChunkID, err)
			continue
		}

		parts := []string{r.Content}
		for _, n := range neighbors {
			parts = append(parts, n.Content)
		}
		r.Content = strings.Join(parts, "\n\n")
	}
}
