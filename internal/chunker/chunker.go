package chunker

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sailor-labs/sailor/internal/domain"
)

// fallbackSummaryChars bounds the raw-content excerpt used when the
// summarization service fails.
const fallbackSummaryChars = 500

// Summarizer produces natural-language summaries of structural blocks so
// they embed well alongside prose.
type Summarizer interface {
	SummarizeCode(ctx context.Context, code, language string) (string, error)
	SummarizeTable(ctx context.Context, table string) (string, error)
}

// Chunker turns page markdown into ordered chunks. Prose is size-split,
// code blocks and tables stay atomic and carry a summary. A nil summarizer
// disables summarization; blocks then carry a raw excerpt instead.
type Chunker struct {
	summarizer Summarizer
	maxTokens  int
}

func NewChunker(summarizer Summarizer, maxTokens int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Chunker{summarizer: summarizer, maxTokens: maxTokens}
}

// ChunkPage chunks one page of markdown. Returned chunks are ordered by
// their position in the page text and carry page-local sequence indexes
// starting at 0; callers re-index across pages.
func (c *Chunker) ChunkPage(ctx context.Context, documentID string, pageNumber int, text string) ([]*domain.Chunk, error) {
	blocks := ParseBlocks(text)
	if len(blocks) == 0 {
		return nil, nil
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].StartOffset < blocks[j].StartOffset
	})

	now := time.Now().UTC()
	var chunks []*domain.Chunk

	appendChunk := func(content string, chunkType domain.ChunkType, metadata map[string]string) {
		chunks = append(chunks, &domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Content:    content,
			SeqIndex:   len(chunks),
			PageNumber: pageNumber,
			TokenCount: CountTokens(content),
			Type:       chunkType,
			Metadata:   metadata,
			CreatedAt:  now,
		})
	}

	for _, block := range blocks {
		switch block.Kind {
		case BlockProse:
			for _, piece := range SplitText(block.Content, c.maxTokens) {
				appendChunk(piece, domain.ChunkTypeText, nil)
			}
		case BlockCode:
			content := c.summarizeCode(ctx, block)
			metadata := map[string]string{"block": "code"}
			if block.Language != "" {
				metadata["language"] = block.Language
			}
			appendChunk(content, domain.ChunkTypeCodeWithSummary, metadata)
		case BlockTable:
			content := c.summarizeTable(ctx, block)
			appendChunk(content, domain.ChunkTypeTableWithSummary, map[string]string{"block": "table"})
		}
	}

	return chunks, nil
}

// summarizeCode builds the embeddable representation of a code block: the
// summary followed by the original code, so both semantic and literal
// matches work.
func (c *Chunker) summarizeCode(ctx context.Context, block Block) string {
	summary := c.codeSummary(ctx, block)
	return fmt.Sprintf("Summary of the following code:\n%s\n---\n\nOriginal Code:\n```%s\n%s\n```",
		summary, block.Language, block.Content)
}

func (c *Chunker) codeSummary(ctx context.Context, block Block) string {
	if c.summarizer != nil {
		summary, err := c.summarizer.SummarizeCode(ctx, block.Content, block.Language)
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			log.Printf("code summarization failed, using raw excerpt: %v", err)
		}
	}
	return truncate(block.Content, fallbackSummaryChars)
}

func (c *Chunker) summarizeTable(ctx context.Context, block Block) string {
	summary := c.tableSummary(ctx, block)
	return fmt.Sprintf("Summary of the following table:\n%s\n---\n\nOriginal Table:\n%s",
		summary, block.Content)
}

func (c *Chunker) tableSummary(ctx context.Context, block Block) string {
	if c.summarizer != nil {
		summary, err := c.summarizer.SummarizeTable(ctx, block.Content)
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			log.Printf("table summarization failed, using raw excerpt: %v", err)
		}
	}
	return truncate(block.Content, fallbackSummaryChars)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
