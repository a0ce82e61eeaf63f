package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sailor-labs/sailor/internal/api/middleware"
	"github.com/sailor-labs/sailor/internal/domain"
)

type mockDocumentService struct {
	mock.Mock
}

func (m *mockDocumentService) Upload(ctx context.Context, userID, courseID string, upload *domain.FileUpload) (*domain.Document, error) {
	args := m.Called(ctx, userID, courseID, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *mockDocumentService) Get(ctx context.Context, userID, docID string) (*domain.Document, error) {
	args := m.Called(ctx, userID, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *mockDocumentService) List(ctx context.Context, userID string) ([]*domain.Document, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *mockDocumentService) Delete(ctx context.Context, userID, docID string) error {
	return m.Called(ctx, userID, docID).Error(0)
}

func withUser(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
	return r.WithContext(ctx)
}

func multipartUpload(t *testing.T, filename, courseID string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	if courseID != "" {
		require.NoError(t, writer.WriteField("course_id", courseID))
	}
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func TestDocumentUpload(t *testing.T) {
	svc := new(mockDocumentService)
	handler := NewDocumentHandler(svc)

	doc := &domain.Document{ID: "doc-1", Filename: "notes.pdf", Status: domain.DocumentStatusPending}
	svc.On("Upload", mock.Anything, "user-1", "course-3", mock.MatchedBy(func(u *domain.FileUpload) bool {
		return u.Filename == "notes.pdf" && string(u.Content) == "pdf bytes"
	})).Return(doc, nil)

	body, contentType := multipartUpload(t, "notes.pdf", "course-3", []byte("pdf bytes"))
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, withUser(req, "user-1"))

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Data DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "doc-1", resp.Data.ID)
	assert.Equal(t, "pending", resp.Data.Status)
}

func TestDocumentUpload_MissingFile(t *testing.T) {
	handler := NewDocumentHandler(new(mockDocumentService))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("course_id", "c"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.Upload(rec, withUser(req, "user-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentUpload_Duplicate(t *testing.T) {
	svc := new(mockDocumentService)
	handler := NewDocumentHandler(svc)

	svc.On("Upload", mock.Anything, "user-1", "", mock.Anything).Return(nil, domain.NewDuplicateDocumentError("doc-existing"))

	body, contentType := multipartUpload(t, "notes.pdf", "", []byte("pdf bytes"))
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, withUser(req, "user-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDocumentToResponse_TimestampsInUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	doc := &domain.Document{
		ID:        "doc-1",
		CreatedAt: time.Date(2026, 8, 1, 14, 30, 0, 0, loc),
		UpdatedAt: time.Date(2026, 8, 1, 16, 45, 10, 0, loc),
	}

	resp := documentToResponse(doc)
	assert.Equal(t, "2026-08-01T12:30:00Z", resp.CreatedAt)
	assert.Equal(t, "2026-08-01T14:45:10Z", resp.UpdatedAt)
}

func TestDocumentGet_NotFound(t *testing.T) {
	svc := new(mockDocumentService)
	handler := NewDocumentHandler(svc)

	svc.On("Get", mock.Anything, "user-1", "missing").Return(nil, domain.ErrDocumentNotFound)

	router := chi.NewRouter()
	router.Get("/documents/{id}", handler.Get)

	req := httptest.NewRequest(http.MethodGet, "/documents/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withUser(req, "user-1"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentList(t *testing.T) {
	svc := new(mockDocumentService)
	handler := NewDocumentHandler(svc)

	svc.On("List", mock.Anything, "user-1").Return([]*domain.Document{
		{ID: "doc-1", Status: domain.DocumentStatusCompleted},
		{ID: "doc-2", Status: domain.DocumentStatusPending},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, withUser(req, "user-1"))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestDocumentDelete(t *testing.T) {
	svc := new(mockDocumentService)
	handler := NewDocumentHandler(svc)

	svc.On("Delete", mock.Anything, "user-1", "doc-1").Return(nil)

	router := chi.NewRouter()
	router.Delete("/documents/{id}", handler.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/documents/doc-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withUser(req, "user-1"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
