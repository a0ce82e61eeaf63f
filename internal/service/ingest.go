// Package service holds the ingestion, retrieval, and answering pipelines.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sailor-labs/sailor/internal/domain"
	"github.com/sailor-labs/sailor/internal/extract"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, userID, id string) (*domain.Document, error)
	GetByHash(ctx context.Context, userID, fileHash string) (*domain.Document, error)
	Update(ctx context.Context, d *domain.Document) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Document, error)
	ListPending(ctx context.Context, limit int) ([]*domain.Document, error)
	Delete(ctx context.Context, userID, id string) error
}

// BlobStore persists original uploaded files.
type BlobStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// PageExtractor turns PDF bytes into ordered page text.
type PageExtractor interface {
	ExtractPages(ctx context.Context, filename string, data []byte) (int, []extract.Page, error)
}

// PageChunker splits one page of text into ordered chunks.
type PageChunker interface {
	ChunkPage(ctx context.Context, documentID string, pageNumber int, text string) ([]*domain.Chunk, error)
}

// EmbeddingGenerator produces dense and sparse vectors for texts.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, texts []string) ([]domain.EmbeddingPair, error)
	EmbedQuery(ctx context.Context, query string) (domain.EmbeddingPair, error)
}

// VectorStore persists and searches embedded chunks.
type VectorStore interface {
	StoreChunks(ctx context.Context, ownerID string, chunks []*domain.Chunk, embeddings []domain.EmbeddingPair) error
	Search(ctx context.Context, ownerID string, query domain.EmbeddingPair, topK int, alpha float64, documentIDs []string) ([]*domain.RetrievedResult, error)
	FetchNeighbors(ctx context.Context, ownerID, documentID string, afterSeq, n int) ([]*domain.RetrievedResult, error)
	DeleteDocumentChunks(ctx context.Context, ownerID, documentID string) error
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	MaxUploadBytes     int64
	PagesPerBatch      int
	MaxParallelBatches int
	SyncIngest         bool
}

// IngestService owns the document lifecycle from upload to indexed chunks.
type IngestService struct {
	docs      DocumentRepositoryInterface
	blobs     BlobStore
	extractor PageExtractor
	chunker   PageChunker
	embedder  EmbeddingGenerator
	store     VectorStore
	uuidGen   UUIDGenerator
	cfg       IngestConfig
}

func NewIngestService(
	docs DocumentRepositoryInterface,
	blobs BlobStore,
	extractor PageExtractor,
	chunker PageChunker,
	embedder EmbeddingGenerator,
	store VectorStore,
	cfg IngestConfig,
) *IngestService {
	if cfg.PagesPerBatch <= 0 {
		cfg.PagesPerBatch = 6
	}
	if cfg.MaxParallelBatches <= 0 {
		cfg.MaxParallelBatches = 6
	}
	return &IngestService{
		docs:      docs,
		blobs:     blobs,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		uuidGen:   &DefaultUUIDGenerator{},
		cfg:       cfg,
	}
}

// WithUUIDGen swaps the UUID generator, used in tests.
func (s *IngestService) WithUUIDGen(gen UUIDGenerator) *IngestService {
	s.uuidGen = gen
	return s
}

// Upload validates and registers a new document. Identical content already
// uploaded by the same user is rejected before any processing starts. The
// document is processed inline when SyncIngest is set, otherwise it stays
// pending for the background worker.
func (s *IngestService) Upload(ctx context.Context, userID, courseID string, upload *domain.FileUpload) (*domain.Document, error) {
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}

	hash := sha256.Sum256(upload.Content)
	fileHash := hex.EncodeToString(hash[:])

	if existing, err := s.docs.GetByHash(ctx, userID, fileHash); err == nil && existing != nil {
		return nil, domain.NewDuplicateDocumentError(existing.ID)
	} else if err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	docID := s.uuidGen.NewString()
	filename := sanitizeFilename(upload.Filename)
	storageKey := fmt.Sprintf("users/%s/%s/%s", userID, docID, filename)

	doc := domain.NewDocument(docID, userID, courseID, filename, fileHash, int64(len(upload.Content)), storageKey, now)

	if s.blobs != nil {
		if err := s.blobs.PutObject(ctx, storageKey, upload.Content, upload.ContentType); err != nil {
			return nil, domain.NewProcessingError("file storage failed", err)
		}
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		if s.blobs != nil {
			if delErr := s.blobs.DeleteObject(ctx, storageKey); delErr != nil {
				log.Printf("orphaned blob %s after failed create: %v", storageKey, delErr)
			}
		}
		return nil, err
	}

	if s.cfg.SyncIngest {
		if err := s.processData(ctx, doc, upload.Content); err != nil {
			return doc, err
		}
	}

	return doc, nil
}

// Process runs the full ingestion pipeline for a stored document, fetching
// the original file from blob storage.
func (s *IngestService) Process(ctx context.Context, doc *domain.Document) error {
	if s.blobs == nil {
		return s.fail(ctx, doc, domain.NewProcessingError("no blob storage configured", nil))
	}

	data, err := s.blobs.GetObject(ctx, doc.StorageKey)
	if err != nil {
		return s.fail(ctx, doc, domain.NewProcessingError("file retrieval failed", err))
	}

	return s.processData(ctx, doc, data)
}

// processData extracts, chunks, embeds, and indexes the document. Page
// batches run in parallel and fail independently; a failed batch contributes
// zero chunks while the rest of the document still completes.
func (s *IngestService) processData(ctx context.Context, doc *domain.Document, data []byte) error {
	now := time.Now().UTC()
	doc.MarkProcessing(now)
	if err := s.docs.Update(ctx, doc); err != nil {
		return err
	}

	totalPages, pages, err := s.extractor.ExtractPages(ctx, doc.Filename, data)
	if err != nil {
		return s.fail(ctx, doc, err)
	}

	batches := batchPages(pages, s.cfg.PagesPerBatch)
	results := make([]*batchResult, len(batches))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.MaxParallelBatches)
	for i, batch := range batches {
		i, batch := i, batch
		group.Go(func() error {
			results[i] = s.processBatch(gctx, doc, i, batch)
			return nil
		})
	}
	_ = group.Wait()

	// global re-index: surviving chunks get contiguous sequence numbers in
	// original page order
	var chunks []*domain.Chunk
	var embeddings []domain.EmbeddingPair
	failedBatches := 0
	for i, result := range results {
		if result == nil {
			log.Printf("document %s: batch %d produced no chunks, skipping", doc.ID, i)
			failedBatches++
			continue
		}
		chunks = append(chunks, result.chunks...)
		embeddings = append(embeddings, result.embeddings...)
	}
	for i, c := range chunks {
		c.SeqIndex = i
	}

	if len(chunks) > 0 {
		if err := s.store.StoreChunks(ctx, doc.UserID, chunks, embeddings); err != nil {
			return s.fail(ctx, doc, err)
		}
	}

	doc.MarkCompleted(totalPages, len(chunks), failedBatches, time.Now().UTC())
	return s.docs.Update(ctx, doc)
}

type batchResult struct {
	chunks     []*domain.Chunk
	embeddings []domain.EmbeddingPair
}

// processBatch chunks and embeds one group of pages. Any failure discards
// the whole batch; nil signals the caller to count it as failed.
func (s *IngestService) processBatch(ctx context.Context, doc *domain.Document, batchIdx int, pages []extract.Page) *batchResult {
	var chunks []*domain.Chunk
	for _, page := range pages {
		pageChunks, err := s.chunker.ChunkPage(ctx, doc.ID, page.Number, page.Text)
		if err != nil {
			log.Printf("document %s: batch %d chunking failed on page %d: %v", doc.ID, batchIdx, page.Number, err)
			return nil
		}
		chunks = append(chunks, pageChunks...)
	}

	if len(chunks) == 0 {
		return &batchResult{}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		log.Printf("document %s: batch %d embedding failed: %v", doc.ID, batchIdx, err)
		return nil
	}
	for i := range embeddings {
		embeddings[i].ChunkID = chunks[i].ID
	}

	return &batchResult{chunks: chunks, embeddings: embeddings}
}

func (s *IngestService) fail(ctx context.Context, doc *domain.Document, cause error) error {
	doc.MarkFailed(cause.Error(), time.Now().UTC())
	if err := s.docs.Update(ctx, doc); err != nil {
		log.Printf("document %s: failed to record error state: %v", doc.ID, err)
	}
	return cause
}

// Get returns one of the user's documents.
func (s *IngestService) Get(ctx context.Context, userID, docID string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, userID, docID)
}

// List returns the user's documents, newest first.
func (s *IngestService) List(ctx context.Context, userID string) ([]*domain.Document, error) {
	return s.docs.ListByUser(ctx, userID)
}

// Delete removes a document together with its indexed chunks and stored file.
func (s *IngestService) Delete(ctx context.Context, userID, docID string) error {
	doc, err := s.docs.GetByID(ctx, userID, docID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteDocumentChunks(ctx, userID, doc.ID); err != nil {
		return err
	}

	if s.blobs != nil && doc.StorageKey != "" {
		if err := s.blobs.DeleteObject(ctx, doc.StorageKey); err != nil {
			log.Printf("document %s: blob deletion failed for %s: %v", doc.ID, doc.StorageKey, err)
		}
	}

	return s.docs.Delete(ctx, userID, doc.ID)
}

func (s *IngestService) validateUpload(upload *domain.FileUpload) error {
	if upload == nil || len(upload.Content) == 0 {
		return domain.ErrEmptyFile
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(upload.Content)) > s.cfg.MaxUploadBytes {
		return domain.ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if ext != ".pdf" && upload.ContentType != "application/pdf" {
		return domain.ErrUnsupportedFileType
	}
	return nil
}

func batchPages(pages []extract.Page, size int) [][]extract.Page {
	var batches [][]extract.Page
	for start := 0; start < len(pages); start += size {
		end := start + size
		if end > len(pages) {
			end = len(pages)
		}
		batches = append(batches, pages[start:end])
	}
	return batches
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFilename strips path components and characters unsafe for storage
// keys.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "document.pdf"
	}
	return name
}
