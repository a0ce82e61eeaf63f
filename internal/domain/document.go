package domain

import (
	"fmt"
	"time"
)

// DefaultUserID identifies unauthenticated uploads until auth exists.
const DefaultUserID = "00000000-0000-0000-0000-000000000000"

// DocumentStatus represents the lifecycle status of an uploaded document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents one uploaded PDF and its ingestion state
type Document struct {
	ID            string
	UserID        string
	CourseID      string
	Filename      string
	FileHash      string
	FileSize      int64
	TotalPages    int
	StorageKey    string
	Status        DocumentStatus
	ChunkCount    int
	FailedBatches int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewDocument creates a pending Document for a fresh upload
func NewDocument(id, userID, courseID, filename, fileHash string, fileSize int64, storageKey string, now time.Time) *Document {
	return &Document{
		ID:         id,
		UserID:     userID,
		CourseID:   courseID,
		Filename:   filename,
		FileHash:   fileHash,
		FileSize:   fileSize,
		StorageKey: storageKey,
		Status:     DocumentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkProcessing transitions the document into the processing state.
func (d *Document) MarkProcessing(now time.Time) {
	d.Status = DocumentStatusProcessing
	d.UpdatedAt = now
}

// MarkCompleted records the final page/chunk counts. A non-zero failedBatches
// means some page batches were skipped; the document still completes.
func (d *Document) MarkCompleted(totalPages, chunkCount, failedBatches int, now time.Time) {
	d.Status = DocumentStatusCompleted
	d.TotalPages = totalPages
	d.ChunkCount = chunkCount
	d.FailedBatches = failedBatches
	d.UpdatedAt = now
}

// MarkFailed records an unrecoverable ingestion error.
func (d *Document) MarkFailed(errMsg string, now time.Time) {
	d.Status = DocumentStatusFailed
	d.ErrorMessage = errMsg
	d.UpdatedAt = now
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.UserID == "" {
		return fmt.Errorf("document UserID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if d.FileHash == "" {
		return fmt.Errorf("document FileHash is required")
	}

	if d.FileSize <= 0 {
		return fmt.Errorf("document FileSize must be positive")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

// isValidDocumentStatus checks if a DocumentStatus is valid
func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing,
		DocumentStatusCompleted, DocumentStatusFailed:
		return true
	}
	return false
}

// FileUpload is a validated upload passed from the presentation layer.
type FileUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}
