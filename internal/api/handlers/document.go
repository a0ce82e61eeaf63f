package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sailor-labs/sailor/internal/api"
	"github.com/sailor-labs/sailor/internal/api/middleware"
	"github.com/sailor-labs/sailor/internal/domain"
)

// multipartMemoryLimit is the in-memory buffer for multipart parsing; larger
// parts spill to temp files.
const multipartMemoryLimit = 10 << 20

type DocumentService interface {
	Upload(ctx context.Context, userID, courseID string, upload *domain.FileUpload) (*domain.Document, error)
	Get(ctx context.Context, userID, docID string) (*domain.Document, error)
	List(ctx context.Context, userID string) ([]*domain.Document, error)
	Delete(ctx context.Context, userID, docID string) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID            string `json:"id"`
	CourseID      string `json:"course_id,omitempty"`
	Filename      string `json:"filename"`
	FileSize      int64  `json:"file_size"`
	TotalPages    int    `json:"total_pages"`
	Status        string `json:"status"`
	ChunkCount    int    `json:"chunk_count"`
	FailedBatches int    `json:"failed_batches"`
	ErrorMessage  string `json:"error_message,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:            d.ID,
		CourseID:      d.CourseID,
		Filename:      d.Filename,
		FileSize:      d.FileSize,
		TotalPages:    d.TotalPages,
		Status:        string(d.Status),
		ChunkCount:    d.ChunkCount,
		FailedBatches: d.FailedBatches,
		ErrorMessage:  d.ErrorMessage,
		CreatedAt:     d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Upload accepts a multipart PDF upload under the "file" field with an
// optional "course_id" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	upload := &domain.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}

	doc, err := h.svc.Upload(r.Context(), userID, r.FormValue("course_id"), upload)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	docID := chi.URLParam(r, "id")

	doc, err := h.svc.Get(r.Context(), userID, docID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	docs, err := h.svc.List(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(docs))
	for i, d := range docs {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	docID := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), userID, docID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
