// Package jobs runs the background loop that drains queued documents
// through the ingestion pipeline.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sailor-labs/sailor/internal/domain"
	"github.com/sailor-labs/sailor/internal/telemetry"
)

// pendingBatchLimit caps how many queued documents one poll picks up.
const pendingBatchLimit = 10

// PendingDocumentSource lists documents waiting for ingestion.
type PendingDocumentSource interface {
	ListPending(ctx context.Context, limit int) ([]*domain.Document, error)
}

// DocumentProcessor runs the ingestion pipeline for one document.
type DocumentProcessor interface {
	Process(ctx context.Context, doc *domain.Document) error
}

// Worker polls the pending queue on a fixed interval and pushes each
// picked-up document through the processor. One instance runs per process.
type Worker struct {
	docs         PendingDocumentSource
	processor    DocumentProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(docs PendingDocumentSource, processor DocumentProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		docs:         docs,
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start blocks in the polling loop until Stop is called or ctx ends. A
// failed poll is logged and retried on the next tick.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("ingest worker polling every %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("ingest worker exiting: context done")
			return
		case <-w.stopChan:
			log.Println("ingest worker exiting: stop requested")
			return
		case <-ticker.C:
			if err := w.drainPending(ctx); err != nil {
				log.Printf("ingest poll failed: %v", err)
			}
		}
	}
}

// Stop signals the loop and waits for the in-flight poll to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("ingest worker stopped")
}

// drainPending processes one batch of queued documents in order. A document
// whose pipeline fails is marked failed by the processor itself; the worker
// records the error and moves on to the next one.
func (w *Worker) drainPending(ctx context.Context) error {
	docs, err := w.docs.ListPending(ctx, pendingBatchLimit)
	if err != nil {
		return fmt.Errorf("listing pending documents: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}

	log.Printf("ingesting %d pending documents", len(docs))

	for _, doc := range docs {
		if err := w.processor.Process(ctx, doc); err != nil {
			log.Printf("ingestion of document %s failed: %v", doc.ID, err)
			telemetry.CaptureError(ctx, err)
			continue
		}
		log.Printf("document %s ingested: %d chunks across %d pages", doc.ID, doc.ChunkCount, doc.TotalPages)
	}

	return nil
}
