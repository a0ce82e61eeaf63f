// Package vectorstore persists chunk embeddings in Postgres with pgvector
// and serves hybrid dense plus sparse retrieval over them.
package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/sailor-labs/sailor/internal/domain"
)

// candidateMultiplier oversizes the per-ranking candidate fetch so fusion
// has headroom beyond the requested top-k.
const candidateMultiplier = 2

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store keeps every user's chunks in one table, scoped by owner_id. A user
// with no rows simply gets empty search results and no-op deletes.
type Store struct {
	db        dbtx
	sparseDim int
}

func NewStore(pool *pgxpool.Pool, sparseDim int) *Store {
	return &Store{db: pool, sparseDim: sparseDim}
}

// EnsureReady checks the chunk table is reachable. Schema is owned by the
// migrations; this is a startup readiness probe only.
func (s *Store) EnsureReady(ctx context.Context) error {
	var present bool
	err := s.db.QueryRow(ctx, `SELECT to_regclass('document_chunks') IS NOT NULL`).Scan(&present)
	if err != nil {
		return domain.NewVectorStoreError("readiness check failed", err)
	}
	if !present {
		return domain.NewVectorStoreError("document_chunks table missing, run migrations", nil)
	}
	return nil
}

// StoreChunks upserts chunks with their embedding pairs in one shot. Re-sent
// chunk IDs overwrite the stored row instead of duplicating it.
func (s *Store) StoreChunks(ctx context.Context, ownerID string, chunks []*domain.Chunk, embeddings []domain.EmbeddingPair) error {
	if len(chunks) != len(embeddings) {
		return domain.NewVectorStoreError(
			fmt.Sprintf("got %d chunks but %d embedding pairs", len(chunks), len(embeddings)), nil)
	}

	batch := &pgx.Batch{}
	for i, c := range chunks {
		batch.Queue(
			`INSERT INTO document_chunks
				(id, owner_id, document_id, content, seq_index, page_number, token_count, chunk_type, metadata, embedding, sparse_embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				seq_index = EXCLUDED.seq_index,
				page_number = EXCLUDED.page_number,
				token_count = EXCLUDED.token_count,
				chunk_type = EXCLUDED.chunk_type,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding,
				sparse_embedding = EXCLUDED.sparse_embedding`,
			c.ID,
			ownerID,
			c.DocumentID,
			c.Content,
			c.SeqIndex,
			c.PageNumber,
			c.TokenCount,
			string(c.Type),
			c.Metadata,
			pgvector.NewVector(embeddings[i].Dense),
			s.sparseVector(embeddings[i].Sparse),
			c.CreatedAt,
		)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return domain.NewVectorStoreError("chunk upsert failed", err)
		}
	}

	return nil
}

// Search runs dense and sparse rankings over the owner's chunks, fuses them,
// and returns the topK fused results, best first. Low-scoring results are
// kept; score gating belongs to the retrieval layer. A non-empty documentIDs
// slice restricts candidates to those documents. A zero sparse query vector
// degrades to dense-only ranking.
func (s *Store) Search(ctx context.Context, ownerID string, query domain.EmbeddingPair, topK int, alpha float64, documentIDs []string) ([]*domain.RetrievedResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	candidateLimit := topK * candidateMultiplier

	// nil encodes as SQL NULL, disabling the document filter.
	var docFilter []string
	if len(documentIDs) > 0 {
		docFilter = documentIDs
	}

	denseRows, err := s.rankedCandidates(ctx,
		`SELECT id, document_id, content, seq_index, page_number, token_count, chunk_type, COALESCE(metadata, '{}'::jsonb)
		 FROM document_chunks
		 WHERE owner_id = $1 AND ($2::uuid[] IS NULL OR document_id = ANY($2::uuid[]))
		 ORDER BY embedding <=> $3
		 LIMIT $4`,
		ownerID, docFilter, pgvector.NewVector(query.Dense), candidateLimit)
	if err != nil {
		return nil, domain.NewVectorStoreError("dense search failed", err)
	}

	var sparseRows []*domain.RetrievedResult
	if !query.Sparse.IsZero() {
		sparseRows, err = s.rankedCandidates(ctx,
			`SELECT id, document_id, content, seq_index, page_number, token_count, chunk_type, COALESCE(metadata, '{}'::jsonb)
			 FROM document_chunks
			 WHERE owner_id = $1 AND ($2::uuid[] IS NULL OR document_id = ANY($2::uuid[]))
			 ORDER BY sparse_embedding <#> $3
			 LIMIT $4`,
			ownerID, docFilter, s.sparseVector(query.Sparse), candidateLimit)
		if err != nil {
			return nil, domain.NewVectorStoreError("sparse search failed", err)
		}
	}

	return fuseCandidates(denseRows, sparseRows, alpha, topK), nil
}

// fuseCandidates merges the two ranked candidate lists into the final topK
// result list, best fused score first with chunk ID as tiebreak. Every fused
// candidate stays eligible, including sparse-only hits.
func fuseCandidates(denseRows, sparseRows []*domain.RetrievedResult, alpha float64, topK int) []*domain.RetrievedResult {
	byID := make(map[string]*domain.RetrievedResult, len(denseRows)+len(sparseRows))
	denseRanked := make([]string, len(denseRows))
	for i, r := range denseRows {
		denseRanked[i] = r.ChunkID
		byID[r.ChunkID] = r
	}
	sparseRanked := make([]string, len(sparseRows))
	for i, r := range sparseRows {
		sparseRanked[i] = r.ChunkID
		if _, ok := byID[r.ChunkID]; !ok {
			byID[r.ChunkID] = r
		}
	}

	scores := fuseRankings(denseRanked, sparseRanked, alpha)

	out := make([]*domain.RetrievedResult, 0, len(scores))
	for id, score := range scores {
		result := byID[id]
		result.Score = score
		out = append(out, result)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})

	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// FetchNeighbors returns up to n chunks of the same document that follow
// afterSeq, in sequence order.
func (s *Store) FetchNeighbors(ctx context.Context, ownerID, documentID string, afterSeq, n int) ([]*domain.RetrievedResult, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.rankedCandidates(ctx,
		`SELECT id, document_id, content, seq_index, page_number, token_count, chunk_type, COALESCE(metadata, '{}'::jsonb)
		 FROM document_chunks
		 WHERE owner_id = $1 AND document_id = $2 AND seq_index > $3
		 ORDER BY seq_index
		 LIMIT $4`,
		ownerID, documentID, afterSeq, n)
	if err != nil {
		return nil, domain.NewVectorStoreError("neighbor fetch failed", err)
	}
	return rows, nil
}

// DeleteDocumentChunks removes every chunk of a document. Deleting a
// document with no indexed chunks is a no-op.
func (s *Store) DeleteDocumentChunks(ctx context.Context, ownerID, documentID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM document_chunks WHERE owner_id = $1 AND document_id = $2`,
		ownerID, documentID)
	if err != nil {
		return domain.NewVectorStoreError("chunk deletion failed", err)
	}
	return nil
}

// CountDocumentChunks reports how many chunks a document has indexed.
func (s *Store) CountDocumentChunks(ctx context.Context, ownerID, documentID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE owner_id = $1 AND document_id = $2`,
		ownerID, documentID).Scan(&count)
	if err != nil {
		return 0, domain.NewVectorStoreError("chunk count failed", err)
	}
	return count, nil
}

func (s *Store) rankedCandidates(ctx context.Context, sql string, args ...any) ([]*domain.RetrievedResult, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RetrievedResult
	for rows.Next() {
		var r domain.RetrievedResult
		var chunkType string
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &r.SeqIndex, &r.PageNumber, &r.TokenCount, &chunkType, &r.Metadata); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Store) sparseVector(v domain.SparseVector) pgvector.SparseVector {
	elements := make(map[int32]float32, len(v.Indices))
	for i, idx := range v.Indices {
		elements[idx] = v.Values[i]
	}
	return pgvector.NewSparseVectorFromMap(elements, int32(s.sparseDim))
}
