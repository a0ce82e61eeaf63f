package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sailor-labs/sailor/internal/domain"
)

// DualGenerator embeds texts with both the dense and sparse backends.
// The two calls for each batch run concurrently; either failing fails the
// whole batch.
type DualGenerator struct {
	dense     *BackendClient
	sparse    *BackendClient
	batchSize int
}

func NewDualGenerator(dense, sparse *BackendClient, batchSize int) *DualGenerator {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &DualGenerator{dense: dense, sparse: sparse, batchSize: batchSize}
}

// Embed returns one embedding pair per input text, in input order. Inputs
// are sent to the backends in fixed-size batches.
func (g *DualGenerator) Embed(ctx context.Context, texts []string) ([]domain.EmbeddingPair, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	pairs := make([]domain.EmbeddingPair, len(texts))

	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var denseRows, sparseRows []embedRow

		group, gctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			rows, err := g.dense.embed(gctx, batch)
			if err != nil {
				return err
			}
			denseRows = rows
			return nil
		})
		group.Go(func() error {
			rows, err := g.sparse.embed(gctx, batch)
			if err != nil {
				return err
			}
			sparseRows = rows
			return nil
		})
		if err := group.Wait(); err != nil {
			return nil, err
		}

		for i := range batch {
			if len(denseRows[i].Embedding) == 0 {
				return nil, domain.NewEmbeddingError(fmt.Sprintf("dense backend returned empty vector at index %d", start+i), nil)
			}
			pairs[start+i] = domain.EmbeddingPair{
				Dense: denseRows[i].Embedding,
				Sparse: domain.SparseVector{
					Indices: sparseRows[i].Indices,
					Values:  sparseRows[i].Values,
				},
			}
		}
	}

	return pairs, nil
}

// EmbedQuery embeds a single query string.
func (g *DualGenerator) EmbedQuery(ctx context.Context, query string) (domain.EmbeddingPair, error) {
	pairs, err := g.Embed(ctx, []string{query})
	if err != nil {
		return domain.EmbeddingPair{}, err
	}
	return pairs[0], nil
}
