package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ConvertedPage is one page of markdown returned by the conversion service.
type ConvertedPage struct {
	Page     int    `json:"page"`
	Markdown string `json:"markdown"`
}

// ConvertResult is the conversion service response.
type ConvertResult struct {
	TotalPages int             `json:"total_pages"`
	Pages      []ConvertedPage `json:"pages"`
}

// MarkdownConverter converts raw PDF bytes into per-page markdown.
type MarkdownConverter interface {
	Convert(ctx context.Context, filename string, data []byte) (*ConvertResult, error)
}

// ConverterClient calls the remote markdown conversion service. Conversion is
// slow for large documents, so the client carries a long timeout.
type ConverterClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewConverterClient(baseURL string, timeout time.Duration) *ConverterClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ConverterClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Convert uploads the PDF as multipart form data and decodes the page list.
func (c *ConverterClient) Convert(ctx context.Context, filename string, data []byte) (*ConvertResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("conversion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("conversion service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result ConvertResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode conversion response: %w", err)
	}

	return &result, nil
}
