package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AnthropicConfig configures the Anthropic text generation provider.
// Anthropic has no embedding API, so this provider only generates text.
type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// AnthropicProvider generates completions with the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	httpClient *http.Client
}

// NewAnthropicProvider creates a provider from configuration.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	return &AnthropicProvider{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SupportsTextGeneration returns true.
func (p *AnthropicProvider) SupportsTextGeneration() bool { return true }

// SupportsEmbedding returns false.
func (p *AnthropicProvider) SupportsEmbedding() bool { return false }

// Close is a no-op.
func (p *AnthropicProvider) Close() error { return nil }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ChatCompletion generates a completion. The system message, if any, moves
// to the API's dedicated system field. Failures after retries are wrapped
// in ErrGeneratorUnavailable.
func (p *AnthropicProvider) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	messages := req.Messages()
	if len(messages) == 0 {
		return ChatCompletionResponse{}, fmt.Errorf("%w: no messages provided", ErrGeneratorUnavailable)
	}

	var system string
	apiMessages := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role() == "system" {
			system = m.Content()
			continue
		}
		apiMessages = append(apiMessages, anthropicMessage{Role: m.Role(), Content: m.Content()})
	}

	maxTokens := req.MaxTokens()
	if maxTokens == 0 {
		maxTokens = 4096
	}

	apiReq := anthropicRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages:  apiMessages,
		System:    system,
	}

	var resp anthropicResponse
	var lastErr error
	delay := defaultInitialDelay
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		resp, lastErr = p.doRequest(ctx, apiReq)
		if lastErr == nil {
			break
		}
		if !anthropicRetryable(lastErr) || attempt == p.maxRetries {
			generateFailuresTotal.Inc()
			return ChatCompletionResponse{}, fmt.Errorf("%w: %w", ErrGeneratorUnavailable, lastErr)
		}
		select {
		case <-ctx.Done():
			return ChatCompletionResponse{}, ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	usage := NewUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.InputTokens+resp.Usage.OutputTokens)
	return NewChatCompletionResponse(content, resp.StopReason, usage), nil
}

func (p *AnthropicProvider) doRequest(ctx context.Context, req anthropicRequest) (anthropicResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return anthropicResponse{}, NewProviderError("chat_completion", 0, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return anthropicResponse{}, NewProviderError("chat_completion", 0, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return anthropicResponse{}, NewProviderError("chat_completion", 0, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return anthropicResponse{}, NewProviderError("chat_completion", resp.StatusCode, "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return anthropicResponse{}, NewProviderError("chat_completion", resp.StatusCode, apiErr.Error.Message, nil)
		}
		return anthropicResponse{}, NewProviderError("chat_completion", resp.StatusCode, string(respBody), nil)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return anthropicResponse{}, NewProviderError("chat_completion", 0, "unmarshal response", err)
	}
	return apiResp, nil
}

func anthropicRetryable(err error) bool {
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		return false
	}
	switch provErr.StatusCode() {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

var (
	_ TextGenerator = (*AnthropicProvider)(nil)
	_ Provider      = (*AnthropicProvider)(nil)
)
