// Package embedding produces dense and sparse vectors by calling the
// embedding backend services.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sailor-labs/sailor/internal/domain"
)

// embedItem is one input text in a backend request. The index ties the
// response row back to its input position.
type embedItem struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type embedRequest struct {
	Inputs []embedItem `json:"inputs"`
}

// embedRow is one response row. Dense backends fill Embedding, sparse
// backends fill Indices and Values.
type embedRow struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding,omitempty"`
	Indices   []int32   `json:"indices,omitempty"`
	Values    []float32 `json:"values,omitempty"`
}

type embedResponse struct {
	Embeddings []embedRow `json:"embeddings"`
}

// BackendClient talks to one embedding service. Transient failures are
// retried with exponential backoff before giving up.
type BackendClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

func NewBackendClient(name, baseURL string, timeout time.Duration, maxRetries int, retryDelay time.Duration) *BackendClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &BackendClient{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Health probes the backend's health endpoint once, without retries.
func (c *BackendClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s backend unreachable: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s backend health returned %d", c.name, resp.StatusCode)
	}
	return nil
}

// embed sends the texts and returns response rows sorted back into input
// order. Backends may answer out of order.
func (c *BackendClient) embed(ctx context.Context, texts []string) ([]embedRow, error) {
	items := make([]embedItem, len(texts))
	for i, text := range texts {
		items[i] = embedItem{Index: i, Text: text}
	}

	payload, err := json.Marshal(embedRequest{Inputs: items})
	if err != nil {
		return nil, domain.NewEmbeddingError(c.name+" request encoding", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, domain.NewEmbeddingError(c.name+" request canceled", ctx.Err())
			case <-time.After(delay):
			}
		}

		rows, err := c.doRequest(ctx, payload)
		if err == nil {
			rows, err = sortRows(rows, len(texts))
			if err == nil {
				return rows, nil
			}
		}
		lastErr = err
	}

	return nil, domain.NewEmbeddingError(fmt.Sprintf("%s backend failed after %d attempts", c.name, c.maxRetries+1), lastErr)
}

func (c *BackendClient) doRequest(ctx context.Context, payload []byte) ([]embedRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s returned %d: %s", c.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%s response decoding failed: %w", c.name, err)
	}

	return decoded.Embeddings, nil
}

// sortRows restores input order by index and checks the backend returned
// exactly one row per input.
func sortRows(rows []embedRow, want int) ([]embedRow, error) {
	if len(rows) != want {
		return nil, fmt.Errorf("backend returned %d embeddings for %d inputs", len(rows), want)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })

	for i, row := range rows {
		if row.Index != i {
			return nil, fmt.Errorf("backend response missing index %d", i)
		}
	}

	return rows, nil
}
