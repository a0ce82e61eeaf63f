// Package llm wraps the OpenAI-compatible chat completion API used for
// block summarization and answer generation.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sailor-labs/sailor/internal/domain"
)

const (
	// DefaultModel is served by Groq's OpenAI-compatible endpoint.
	DefaultModel = "llama-3.3-70b-versatile"

	summaryTemperature = 0.2
	codeSummaryTokens  = 512
	tableSummaryTokens = 256

	answerTemperature = 0.3
	answerMaxTokens   = 1024
	answerTopP        = 0.9
)

const codeSummaryPrompt = `You are a technical writer. Summarize the following code block in 2-4 sentences. Describe what the code does, its inputs and outputs, and any notable logic. Do not repeat the code.`

const tableSummaryPrompt = `You are a technical writer. Summarize the following table in 1-3 sentences. Describe what the table shows and any notable values or trends. Do not repeat the table.`

const answerSystemPrompt = `You are a helpful assistant that answers questions based solely on the provided context. Rules:
1. Answer using only information from the context below.
2. Cite sources inline as [Source N] where N matches the context entries.
3. If the context does not contain enough information to answer, say so plainly instead of guessing.`

// ChatAPI is the subset of the OpenAI client the service uses.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client talks to an OpenAI-compatible chat endpoint.
type Client struct {
	api   ChatAPI
	model string
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient.Timeout = cfg.Timeout
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		api:   openai.NewClientWithConfig(clientCfg),
		model: model,
	}
}

// NewClientWithAPI wires a custom ChatAPI, used in tests.
func NewClientWithAPI(api ChatAPI, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{api: api, model: model}
}

// SummarizeCode produces a short natural-language summary of a code block.
func (c *Client) SummarizeCode(ctx context.Context, code, language string) (string, error) {
	content := code
	if language != "" {
		content = "Language: " + language + "\n\n" + code
	}
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: summaryTemperature,
		MaxTokens:   codeSummaryTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: codeSummaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
}

// SummarizeTable produces a short natural-language summary of a markdown table.
func (c *Client) SummarizeTable(ctx context.Context, table string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: summaryTemperature,
		MaxTokens:   tableSummaryTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: tableSummaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: table},
		},
	})
}

// GenerateAnswer answers a question from the supplied retrieval context.
func (c *Client) GenerateAnswer(ctx context.Context, question, retrievalContext string) (string, error) {
	userMessage := "Context:\n" + retrievalContext + "\n\nQuestion: " + question
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
		TopP:        answerTopP,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: answerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	})
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.NewExternalAPIError("llm", "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewExternalAPIError("llm", "no completion choices returned", errors.New("empty response"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
