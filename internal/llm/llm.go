package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const anthropicBaseURL = "https://api.anthropic.com"

// Request is a single completion request.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response carries the model's text plus output-token usage for cost tracking.
type Response struct {
	Text         string
	OutputTokens int
}

// Provider is the interface for LLM backends.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
	IsConfigured() bool
}

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	ModelID string
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewAnthropicClient creates a client reading the API key from apiKeyEnv.
func NewAnthropicClient(model, apiKeyEnv string) *AnthropicClient {
	return &AnthropicClient{
		ModelID: model,
		APIKey:  os.Getenv(apiKeyEnv),
		BaseURL: anthropicBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Model returns the model identifier used for requests.
func (a *AnthropicClient) Model() string {
	return a.ModelID
}

// IsConfigured checks if the API key is set.
func (a *AnthropicClient) IsConfigured() bool {
	return a.APIKey != ""
}

// Complete sends a single-turn message and returns the response text with
// output-token usage.
func (a *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if a.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured")
	}

	body := map[string]any{
		"model":       a.ModelID,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.BaseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("anthropic API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Content) == 0 {
		return nil, fmt.Errorf("no content blocks in anthropic response")
	}

	return &Response{
		Text:         result.Content[0].Text,
		OutputTokens: result.Usage.OutputTokens,
	}, nil
}
