package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingHandler(t *testing.T, fail *atomic.Int32) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() > 0 {
			fail.Add(-1)
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{0.1, 0.2, 0.3},
			}
		}
		resp := map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": len(req.Input), "total_tokens": len(req.Input)},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func newTestProvider(baseURL string) *OpenAIProvider {
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
	})
}

func TestEmbedSuccess(t *testing.T) {
	var fail atomic.Int32
	server := httptest.NewServer(embeddingHandler(t, &fail))
	defer server.Close()

	p := newTestProvider(server.URL + "/v1")
	resp, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"hello", "world"}))
	require.NoError(t, err)

	embeddings := resp.Embeddings()
	require.Len(t, embeddings, 2)
	assert.InDelta(t, 0.1, embeddings[0][0], 1e-6)
}

func TestEmbedRetriesAfterRateLimit(t *testing.T) {
	var fail atomic.Int32
	fail.Store(1)
	server := httptest.NewServer(embeddingHandler(t, &fail))
	defer server.Close()

	p := newTestProvider(server.URL + "/v1")

	start := time.Now()
	resp, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"hello"}))
	require.NoError(t, err)
	require.Len(t, resp.Embeddings(), 1)

	// The Retry-After header requested a one second pause.
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestEmbedRateLimitedAfterRetries(t *testing.T) {
	var fail atomic.Int32
	fail.Store(100)
	server := httptest.NewServer(embeddingHandler(t, &fail))
	defer server.Close()

	p := newTestProvider(server.URL + "/v1")
	p.maxRetries = 1

	_, err := p.Embed(context.Background(), NewEmbeddingRequest([]string{"hello"}))
	assert.True(t, errors.Is(err, ErrEmbedRateLimited))
}

func TestEmbedBatchSizeLimit(t *testing.T) {
	p := newTestProvider("http://localhost:0/v1")

	texts := make([]string, DefaultEmbedBatchSize+1)
	for i := range texts {
		texts[i] = "text"
	}

	_, err := p.Embed(context.Background(), NewEmbeddingRequest(texts))
	assert.True(t, errors.Is(err, ErrEmbedFailed))
}

func TestEmbedEmptyInput(t *testing.T) {
	p := newTestProvider("http://localhost:0/v1")

	resp, err := p.Embed(context.Background(), NewEmbeddingRequest(nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Embeddings())
}

func TestChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "login is defined in auth.py"},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 8, "total_tokens": 18},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := newTestProvider(server.URL + "/v1")
	resp, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest([]Message{
		SystemMessage("You answer questions about code."),
		UserMessage("Where is login defined?"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "login is defined in auth.py", resp.Content())
	assert.Equal(t, 18, resp.Usage().TotalTokens())
}

func TestChatCompletionUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	p := newTestProvider(server.URL + "/v1")
	p.maxRetries = 0

	_, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest([]Message{UserMessage("hi")}))
	assert.True(t, errors.Is(err, ErrGeneratorUnavailable))
}

func TestAnthropicChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "You answer questions about code.", req.System)
		require.Len(t, req.Messages, 1)

		resp := map[string]any{
			"content":     []map[string]string{{"type": "text", "text": "handle calls login"}},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 12, "output_tokens": 4},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL})
	resp, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest([]Message{
		SystemMessage("You answer questions about code."),
		UserMessage("Who calls login?"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "handle calls login", resp.Content())
	assert.Equal(t, 16, resp.Usage().TotalTokens())
}

func TestAnthropicUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider(AnthropicConfig{APIKey: "bad-key", BaseURL: server.URL})
	_, err := p.ChatCompletion(context.Background(), NewChatCompletionRequest([]Message{UserMessage("hi")}))
	assert.True(t, errors.Is(err, ErrGeneratorUnavailable))
}
