package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Embedding API defaults.
const (
	// DefaultEmbedBatchSize caps the number of texts per embedding call.
	DefaultEmbedBatchSize = 64

	// defaultMaxRetries bounds retries for one API call.
	defaultMaxRetries = 3

	// defaultRateLimitDelay is the base backoff for 429 responses without
	// a Retry-After header.
	defaultRateLimitDelay = 20 * time.Second

	// defaultInitialDelay is the base backoff for other transient failures.
	defaultInitialDelay = 2 * time.Second

	// requestsPerMinute is the client-side request budget.
	requestsPerMinute = 10
)

// errEmbeddingCountMismatch indicates the API returned fewer vectors than
// texts. Retryable: some upstreams return partial responses under load.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// retryAfterTransport records the Retry-After header of the most recent 429
// so the retry loop can honor the server's requested delay. The go-openai
// error types do not expose response headers.
type retryAfterTransport struct {
	inner      http.RoundTripper
	retryAfter atomic.Int64 // seconds
}

func newRetryAfterTransport(inner http.RoundTripper) *retryAfterTransport {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &retryAfterTransport{inner: inner}
}

func (t *retryAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, parseErr := strconv.Atoi(resp.Header.Get("Retry-After")); parseErr == nil && secs > 0 {
			t.retryAfter.Store(int64(secs))
		} else {
			t.retryAfter.Store(0)
		}
	}
	return resp, err
}

// takeRetryAfter returns and clears the last recorded Retry-After delay.
func (t *retryAfterTransport) takeRetryAfter() time.Duration {
	return time.Duration(t.retryAfter.Swap(0)) * time.Second
}

// OpenAIConfig configures an OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
	MaxRetries     int
	BatchSize      int
}

// OpenAIProvider speaks the OpenAI-compatible API for both embeddings and
// chat completions. A client-side token bucket keeps request volume under
// the provider's rate limit; 429 responses honor Retry-After.
type OpenAIProvider struct {
	client         *openai.Client
	transport      *retryAfterTransport
	limiter        *rate.Limiter
	chatModel      string
	embeddingModel string
	maxRetries     int
	batchSize      int
}

// NewOpenAIProvider creates a provider from configuration.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	transport := newRetryAfterTransport(nil)

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout, Transport: transport}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > DefaultEmbedBatchSize {
		batchSize = DefaultEmbedBatchSize
	}

	return &OpenAIProvider{
		client:         openai.NewClientWithConfig(clientConfig),
		transport:      transport,
		limiter:        rate.NewLimiter(rate.Every(time.Minute/requestsPerMinute), requestsPerMinute),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		maxRetries:     maxRetries,
		batchSize:      batchSize,
	}
}

// SupportsTextGeneration returns true.
func (p *OpenAIProvider) SupportsTextGeneration() bool { return true }

// SupportsEmbedding returns true.
func (p *OpenAIProvider) SupportsEmbedding() bool { return true }

// Close is a no-op.
func (p *OpenAIProvider) Close() error { return nil }

// Model returns the embedding model name.
func (p *OpenAIProvider) Model() string { return p.embeddingModel }

// Capacity returns the maximum texts per embedding call.
func (p *OpenAIProvider) Capacity() int { return p.batchSize }

// ChatCompletion generates a completion. Failures after retries are wrapped
// in ErrGeneratorUnavailable so callers can fall back to retrieval-only
// answers.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages()))
	for i, m := range req.Messages() {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role(), Content: m.Content()}
	}

	apiReq := openai.ChatCompletionRequest{
		Model:    p.chatModel,
		Messages: messages,
	}
	if req.MaxTokens() > 0 {
		apiReq.MaxTokens = req.MaxTokens()
	}
	if req.Temperature() > 0 {
		apiReq.Temperature = float32(req.Temperature())
	}

	var resp openai.ChatCompletionResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateChatCompletion(ctx, apiReq)
		return callErr
	})
	if err != nil {
		generateFailuresTotal.Inc()
		return ChatCompletionResponse{}, fmt.Errorf("%w: %w", ErrGeneratorUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		generateFailuresTotal.Inc()
		return ChatCompletionResponse{}, fmt.Errorf("%w: no choices in response", ErrGeneratorUnavailable)
	}

	usage := NewUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	return NewChatCompletionResponse(resp.Choices[0].Message.Content, string(resp.Choices[0].FinishReason), usage), nil
}

// Embed generates embeddings for one batch of texts. The batch must not
// exceed Capacity. Exhausted retries surface as ErrEmbedRateLimited when
// the provider kept answering 429, ErrEmbedFailed otherwise.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	texts := req.Texts()
	if len(texts) == 0 {
		return NewEmbeddingResponse([][]float64{}, NewUsage(0, 0, 0)), nil
	}
	if len(texts) > p.batchSize {
		return EmbeddingResponse{}, fmt.Errorf("%w: %d texts exceeds batch size %d", ErrEmbedFailed, len(texts), p.batchSize)
	}

	apiReq := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: texts,
	}

	var resp openai.EmbeddingResponse
	err := p.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = p.client.CreateEmbeddings(ctx, apiReq)
		if callErr != nil {
			return callErr
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), len(texts))
		}
		return nil
	})
	if err != nil {
		embedFailuresTotal.Inc()
		if isRateLimitErr(err) {
			return EmbeddingResponse{}, fmt.Errorf("%w: %w", ErrEmbedRateLimited, err)
		}
		return EmbeddingResponse{}, fmt.Errorf("%w: %w", ErrEmbedFailed, err)
	}

	embeddings := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			embeddings[i][j] = float64(v)
		}
	}

	return NewEmbeddingResponse(embeddings, NewUsage(resp.Usage.PromptTokens, 0, resp.Usage.TotalTokens)), nil
}

// withRetry runs fn under the rate limiter with bounded retries. Rate
// limited calls wait Retry-After when the server sent one, otherwise an
// exponential delay starting at defaultRateLimitDelay. Other transient
// failures back off from defaultInitialDelay.
func (p *OpenAIProvider) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		providerRequestsTotal.Inc()
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !isRetryableErr(lastErr) {
			return lastErr
		}
		if attempt == p.maxRetries {
			break
		}

		var delay time.Duration
		if isRateLimitErr(lastErr) {
			providerRateLimitedTotal.Inc()
			delay = p.transport.takeRetryAfter()
			if delay <= 0 {
				delay = defaultRateLimitDelay << attempt
			}
		} else {
			delay = defaultInitialDelay << attempt
		}

		providerRetriesTotal.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRateLimitErr(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests
}

func isRetryableErr(err error) bool {
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

var (
	_ TextGenerator = (*OpenAIProvider)(nil)
	_ Embedder      = (*OpenAIProvider)(nil)
	_ Provider      = (*OpenAIProvider)(nil)
)
