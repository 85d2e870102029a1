// Package provider implements embedding and text generation clients.
// Remote providers speak the OpenAI-compatible API; a local ONNX model
// serves as an embedding fallback when no API key is configured.
package provider

import (
	"context"
	"errors"
)

// Sentinel errors surfaced to callers.
var (
	// ErrUnsupportedOperation indicates the provider does not implement the
	// requested capability.
	ErrUnsupportedOperation = errors.New("operation not supported by this provider")

	// ErrEmbedRateLimited indicates the embedding provider kept rate
	// limiting after all retries.
	ErrEmbedRateLimited = errors.New("embedding provider rate limited")

	// ErrEmbedFailed indicates embedding generation failed after retries.
	ErrEmbedFailed = errors.New("embedding generation failed")

	// ErrGeneratorUnavailable indicates the text generation provider could
	// not be reached or returned an unrecoverable error.
	ErrGeneratorUnavailable = errors.New("text generation provider unavailable")
)

// Message is one chat message.
type Message struct {
	role    string
	content string
}

// NewMessage creates a Message.
func NewMessage(role, content string) Message {
	return Message{role: role, content: content}
}

// SystemMessage creates a message with the system role.
func SystemMessage(content string) Message { return NewMessage("system", content) }

// UserMessage creates a message with the user role.
func UserMessage(content string) Message { return NewMessage("user", content) }

// Role returns the message role.
func (m Message) Role() string { return m.role }

// Content returns the message content.
func (m Message) Content() string { return m.content }

// ChatCompletionRequest is a text generation request.
type ChatCompletionRequest struct {
	messages    []Message
	maxTokens   int
	temperature float64
}

// NewChatCompletionRequest creates a request with provider-default limits.
func NewChatCompletionRequest(messages []Message) ChatCompletionRequest {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	return ChatCompletionRequest{messages: msgs}
}

// WithMaxTokens returns a copy with the token limit set.
func (r ChatCompletionRequest) WithMaxTokens(n int) ChatCompletionRequest {
	r.maxTokens = n
	return r
}

// WithTemperature returns a copy with the sampling temperature set.
func (r ChatCompletionRequest) WithTemperature(t float64) ChatCompletionRequest {
	r.temperature = t
	return r
}

// Messages returns a copy of the messages.
func (r ChatCompletionRequest) Messages() []Message {
	msgs := make([]Message, len(r.messages))
	copy(msgs, r.messages)
	return msgs
}

// MaxTokens returns the token limit, 0 for provider default.
func (r ChatCompletionRequest) MaxTokens() int { return r.maxTokens }

// Temperature returns the sampling temperature, 0 for provider default.
func (r ChatCompletionRequest) Temperature() float64 { return r.temperature }

// ChatCompletionResponse is a text generation result.
type ChatCompletionResponse struct {
	content      string
	finishReason string
	usage        Usage
}

// NewChatCompletionResponse creates a ChatCompletionResponse.
func NewChatCompletionResponse(content, finishReason string, usage Usage) ChatCompletionResponse {
	return ChatCompletionResponse{content: content, finishReason: finishReason, usage: usage}
}

// Content returns the generated text.
func (r ChatCompletionResponse) Content() string { return r.content }

// FinishReason returns why generation stopped.
func (r ChatCompletionResponse) FinishReason() string { return r.finishReason }

// Usage returns token usage.
func (r ChatCompletionResponse) Usage() Usage { return r.usage }

// Usage is token accounting for one provider call.
type Usage struct {
	promptTokens     int
	completionTokens int
	totalTokens      int
}

// NewUsage creates a Usage.
func NewUsage(prompt, completion, total int) Usage {
	return Usage{promptTokens: prompt, completionTokens: completion, totalTokens: total}
}

// PromptTokens returns the prompt token count.
func (u Usage) PromptTokens() int { return u.promptTokens }

// CompletionTokens returns the completion token count.
func (u Usage) CompletionTokens() int { return u.completionTokens }

// TotalTokens returns the total token count.
func (u Usage) TotalTokens() int { return u.totalTokens }

// EmbeddingRequest is a batch embedding request.
type EmbeddingRequest struct {
	texts []string
}

// NewEmbeddingRequest creates an EmbeddingRequest.
func NewEmbeddingRequest(texts []string) EmbeddingRequest {
	t := make([]string, len(texts))
	copy(t, texts)
	return EmbeddingRequest{texts: t}
}

// Texts returns a copy of the texts to embed.
func (r EmbeddingRequest) Texts() []string {
	t := make([]string, len(r.texts))
	copy(t, r.texts)
	return t
}

// EmbeddingResponse is a batch embedding result, one vector per input text
// in input order.
type EmbeddingResponse struct {
	embeddings [][]float64
	usage      Usage
}

// NewEmbeddingResponse creates an EmbeddingResponse.
func NewEmbeddingResponse(embeddings [][]float64, usage Usage) EmbeddingResponse {
	embs := make([][]float64, len(embeddings))
	for i, e := range embeddings {
		embs[i] = make([]float64, len(e))
		copy(embs[i], e)
	}
	return EmbeddingResponse{embeddings: embs, usage: usage}
}

// Embeddings returns a copy of the embedding vectors.
func (r EmbeddingResponse) Embeddings() [][]float64 {
	embs := make([][]float64, len(r.embeddings))
	for i, e := range r.embeddings {
		embs[i] = make([]float64, len(e))
		copy(embs[i], e)
	}
	return embs
}

// Usage returns token usage.
func (r EmbeddingResponse) Usage() Usage { return r.usage }

// TextGenerator generates chat completions.
type TextGenerator interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error)
}

// Embedder generates embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, req EmbeddingRequest) (EmbeddingResponse, error)
	// Model identifies the embedding model, used for cache keys.
	Model() string
	// Capacity returns the maximum number of texts per Embed call.
	Capacity() int
}

// Provider describes a configured provider's capabilities.
type Provider interface {
	SupportsTextGeneration() bool
	SupportsEmbedding() bool
	Close() error
}

// ProviderError carries operation and HTTP status context for a failed
// provider call.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{operation: operation, statusCode: statusCode, message: message, cause: cause}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.cause }

// Operation returns the operation that failed.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the HTTP status code if known.
func (e *ProviderError) StatusCode() int { return e.statusCode }

// IsRateLimited reports whether the failure was a 429.
func (e *ProviderError) IsRateLimited() bool { return e.statusCode == 429 }
