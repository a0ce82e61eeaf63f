package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeProcessing    = "PROCESSING_ERROR"
	ErrCodeChunking      = "CHUNKING_ERROR"
	ErrCodeEmbedding     = "EMBEDDING_ERROR"
	ErrCodeVectorStore   = "VECTOR_STORE_ERROR"
	ErrCodeExternalAPI   = "EXTERNAL_API_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
	ErrUnsupportedFileType   = NewDomainError(ErrCodeValidation, "unsupported file type, only PDF is accepted")
	ErrFileTooLarge          = NewDomainError(ErrCodeValidation, "file exceeds the maximum upload size")
	ErrEmptyFile             = NewDomainError(ErrCodeValidation, "uploaded file is empty")
	ErrInvalidDocumentStatus = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidChunkType      = NewDomainError(ErrCodeValidation, "invalid chunk type")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)

// NewDuplicateDocumentError reports a content-hash collision, naming the
// document that already holds the same content so clients can find it.
func NewDuplicateDocumentError(existingID string) *DomainError {
	return NewDomainError(ErrCodeAlreadyExists,
		fmt.Sprintf("a document with identical content already exists for this user: %s", existingID))
}

// NewProcessingError wraps a fatal extraction failure for a document.
func NewProcessingError(reason string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeProcessing, "document processing failed: "+reason, err)
}

// NewChunkingError wraps a fatal chunking-pipeline failure.
func NewChunkingError(reason string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeChunking, "chunking failed: "+reason, err)
}

// NewEmbeddingError wraps an embedding backend failure after retry exhaustion.
func NewEmbeddingError(reason string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbedding, "embedding failed: "+reason, err)
}

// NewVectorStoreError wraps a vector storage or search failure.
func NewVectorStoreError(reason string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeVectorStore, "vector store operation failed: "+reason, err)
}

// NewExternalAPIError wraps a text-generation service failure.
func NewExternalAPIError(service, reason string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExternalAPI, service+" API error: "+reason, err)
}
