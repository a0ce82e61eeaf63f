package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sailor-labs/sailor/internal/api"
	"github.com/sailor-labs/sailor/internal/api/middleware"
	"github.com/sailor-labs/sailor/internal/domain"
	"github.com/sailor-labs/sailor/internal/service"
)

type RetrievalQueryService interface {
	Query(ctx context.Context, userID string, input service.QueryInput) ([]*domain.RetrievedResult, error)
}

type AskQueryService interface {
	Ask(ctx context.Context, userID string, input service.QueryInput) (*service.AskResult, error)
}

type ChatHandler struct {
	retrieval RetrievalQueryService
	ask       AskQueryService
}

func NewChatHandler(retrieval RetrievalQueryService, ask AskQueryService) *ChatHandler {
	return &ChatHandler{retrieval: retrieval, ask: ask}
}

type QueryRequest struct {
	Query          string   `json:"query"`
	TopK           int      `json:"top_k"`
	DocumentIDs    []string `json:"document_ids"`
	HybridAlpha    *float64 `json:"hybrid_alpha"`
	ExpandContext  *bool    `json:"expand_context"`
	ScoreThreshold *float64 `json:"score_threshold"`
}

type RetrievedChunkResponse struct {
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	Score      float64           `json:"score"`
	PageNumber int               `json:"page_number"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type QueryResponse struct {
	Results []*RetrievedChunkResponse `json:"results"`
}

type AskResponse struct {
	Answer  string                    `json:"answer"`
	Sources []*RetrievedChunkResponse `json:"sources"`
}

func resultToResponse(r *domain.RetrievedResult) *RetrievedChunkResponse {
	return &RetrievedChunkResponse{
		ChunkID:    r.ChunkID,
		DocumentID: r.DocumentID,
		Content:    r.Content,
		Score:      r.Score,
		PageNumber: r.PageNumber,
		Metadata:   r.Metadata,
	}
}

func resultsToResponse(results []*domain.RetrievedResult) []*RetrievedChunkResponse {
	out := make([]*RetrievedChunkResponse, len(results))
	for i, r := range results {
		out[i] = resultToResponse(r)
	}
	return out
}

// parseQueryRequest validates a query/ask body and applies defaults.
func parseQueryRequest(r *http.Request) (service.QueryInput, string) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return service.QueryInput{}, "invalid request body"
	}

	if req.Query == "" {
		return service.QueryInput{}, "query is required"
	}
	if req.TopK < 0 || req.TopK > service.MaxTopK {
		return service.QueryInput{}, "top_k must be between 1 and 20"
	}
	if req.HybridAlpha != nil && (*req.HybridAlpha < 0 || *req.HybridAlpha > 1) {
		return service.QueryInput{}, "hybrid_alpha must be between 0 and 1"
	}
	if req.ScoreThreshold != nil && (*req.ScoreThreshold < 0 || *req.ScoreThreshold > 1) {
		return service.QueryInput{}, "score_threshold must be between 0 and 1"
	}

	input := service.QueryInput{
		Query:         req.Query,
		TopK:          req.TopK,
		DocumentIDs:   req.DocumentIDs,
		ExpandContext: true,
	}
	if req.HybridAlpha != nil {
		input.HybridAlpha = *req.HybridAlpha
	}
	if req.ExpandContext != nil {
		input.ExpandContext = *req.ExpandContext
	}
	if req.ScoreThreshold != nil {
		input.ScoreThreshold = *req.ScoreThreshold
	}

	return input, ""
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	input, errMsg := parseQueryRequest(r)
	if errMsg != "" {
		api.Error(w, http.StatusBadRequest, errMsg)
		return
	}

	results, err := h.retrieval.Query(r.Context(), userID, input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, QueryResponse{Results: resultsToResponse(results)})
}

func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	input, errMsg := parseQueryRequest(r)
	if errMsg != "" {
		api.Error(w, http.StatusBadRequest, errMsg)
		return
	}

	result, err := h.ask.Ask(r.Context(), userID, input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AskResponse{
		Answer:  result.Answer,
		Sources: resultsToResponse(result.Sources),
	})
}
