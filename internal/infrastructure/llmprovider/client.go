// Package llmprovider is the HTTP client for the OpenAI-compatible
// chat-completion backend.
package llmprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"mashup-server/internal/domain/llm"
	"mashup-server/internal/infrastructure/metrics"
)

// Client implements the llm.Provider interface.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// NewClient creates a Resty-backed client. apiKey may be empty for backends
// that do not require authentication.
func NewClient(baseURL, apiKey string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(75 * time.Second)
	if apiKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// CreateChatCompletion calls the backend's /v1/chat/completions.
func (c *Client) CreateChatCompletion(ctx context.Context, req llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	started := time.Now()
	var completion llm.ChatCompletionResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&completion).
		Post("/v1/chat/completions")
	if err != nil {
		metrics.RecordLLMCall(req.Model, "error", time.Since(started).Seconds())
		return nil, err
	}
	if resp.IsError() {
		metrics.RecordLLMCall(req.Model, "error", time.Since(started).Seconds())
		return nil, fmt.Errorf("llm api error: %s", resp.String())
	}
	metrics.RecordLLMCall(req.Model, "ok", time.Since(started).Seconds())
	return &completion, nil
}

// Ensure interface compliance.
var _ llm.Provider = (*Client)(nil)
