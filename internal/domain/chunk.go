package domain

import "time"

// ChunkType tags how a chunk's content was produced
type ChunkType string

const (
	ChunkTypeText             ChunkType = "text"
	ChunkTypeCodeWithSummary  ChunkType = "code_with_summary"
	ChunkTypeTableWithSummary ChunkType = "table_with_summary"
)

// Chunk is the unit of embedding and retrieval. Content is immutable once
// created; embeddings are attached in the vector store, never here.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	SeqIndex   int
	PageNumber int
	TokenCount int
	Type       ChunkType
	Metadata   map[string]string
	CreatedAt  time.Time
}

// SparseVector holds variable-length (index, weight) pairs capturing lexical
// term importance. Indices and Values are parallel slices.
type SparseVector struct {
	Indices []int32
	Values  []float32
}

// IsZero reports whether the sparse vector carries no terms.
func (v SparseVector) IsZero() bool {
	return len(v.Indices) == 0
}

// EmbeddingPair couples the dense and sparse vectors for one chunk. A chunk
// is indexed with both vectors or not at all.
type EmbeddingPair struct {
	ChunkID string
	Dense   []float32
	Sparse  SparseVector
}

// RetrievedResult is a query-scoped search hit, possibly with neighboring
// chunks' text appended to Content. Not persisted.
type RetrievedResult struct {
	ChunkID    string
	DocumentID string
	Content    string
	Score      float64
	PageNumber int
	SeqIndex   int
	TokenCount int
	Metadata   map[string]string
}

// isValidChunkType checks if a ChunkType is valid
func isValidChunkType(t ChunkType) bool {
	switch t {
	case ChunkTypeText, ChunkTypeCodeWithSummary, ChunkTypeTableWithSummary:
		return true
	}
	return false
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return ErrMissingRequiredField
	}
	if c.ID == "" || c.DocumentID == "" || c.Content == "" {
		return ErrMissingRequiredField
	}
	if c.SeqIndex < 0 {
		return NewDomainError(ErrCodeValidation, "chunk SeqIndex cannot be negative")
	}
	if !isValidChunkType(c.Type) {
		return ErrInvalidChunkType
	}
	return nil
}
