package provider

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns deterministic vectors derived from text length.
type fakeEmbedder struct {
	capacity int
	failOn   string
	mu       sync.Mutex
	calls    int
	maxBatch int
}

func (f *fakeEmbedder) Model() string { return "fake-model" }

func (f *fakeEmbedder) Capacity() int { return f.capacity }

func (f *fakeEmbedder) Embed(_ context.Context, req EmbeddingRequest) (EmbeddingResponse, error) {
	texts := req.Texts()

	f.mu.Lock()
	f.calls++
	if len(texts) > f.maxBatch {
		f.maxBatch = len(texts)
	}
	f.mu.Unlock()

	embeddings := make([][]float64, len(texts))
	for i, text := range texts {
		if f.failOn != "" && strings.Contains(text, f.failOn) {
			return EmbeddingResponse{}, ErrEmbedFailed
		}
		embeddings[i] = []float64{float64(len(text)), 1}
	}
	return NewEmbeddingResponse(embeddings, NewUsage(0, 0, 0)), nil
}

// fakeCache is an in-memory EmbeddingCache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]float32
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]float32{}}
}

func (c *fakeCache) GetEmbedding(_ context.Context, model, text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.entries[model+"|"+text]
	return vec, ok
}

func (c *fakeCache) PutEmbedding(_ context.Context, model, text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[model+"|"+text] = vec
}

func TestEmbedAllPreservesOrder(t *testing.T) {
	embedder := &fakeEmbedder{capacity: 2}
	batch := NewBatchEmbedder(embedder, nil, nil)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	result, err := batch.EmbedAll(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, result.Vectors(), 5)
	assert.Zero(t, result.Failed())
	for i, text := range texts {
		require.NotNil(t, result.Vectors()[i])
		assert.Equal(t, float64(len(text)), result.Vectors()[i][0])
	}
	assert.LessOrEqual(t, embedder.maxBatch, 2)
}

func TestEmbedAllCountsBatchFailures(t *testing.T) {
	embedder := &fakeEmbedder{capacity: 2, failOn: "bad"}
	batch := NewBatchEmbedder(embedder, nil, nil)

	result, err := batch.EmbedAll(context.Background(), []string{"ok-1", "ok-2", "bad-1", "bad-2"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Failed())
	assert.NotNil(t, result.Vectors()[0])
	assert.NotNil(t, result.Vectors()[1])
	assert.Nil(t, result.Vectors()[2])
	assert.Nil(t, result.Vectors()[3])
}

func TestEmbedAllUsesCache(t *testing.T) {
	embedder := &fakeEmbedder{capacity: 10}
	cache := newFakeCache()
	batch := NewBatchEmbedder(embedder, cache, nil)

	_, err := batch.EmbedAll(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	firstCalls := embedder.calls

	// Second run is served entirely from cache.
	result, err := batch.EmbedAll(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, firstCalls, embedder.calls)
	assert.Zero(t, result.Failed())
	require.NotNil(t, result.Vectors()[0])
	assert.Equal(t, float64(5), result.Vectors()[0][0])
}

func TestEmbedQuery(t *testing.T) {
	embedder := &fakeEmbedder{capacity: 10}
	cache := newFakeCache()
	batch := NewBatchEmbedder(embedder, cache, nil)

	vec, err := batch.EmbedQuery(context.Background(), "query text")
	require.NoError(t, err)
	assert.Equal(t, float64(10), vec[0])

	// Cached on the second call.
	_, err = batch.EmbedQuery(context.Background(), "query text")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
}

func TestEmbedQueryPropagatesFailure(t *testing.T) {
	embedder := &fakeEmbedder{capacity: 10, failOn: "bad"}
	batch := NewBatchEmbedder(embedder, nil, nil)

	_, err := batch.EmbedQuery(context.Background(), "bad input")
	assert.True(t, errors.Is(err, ErrEmbedFailed))
}
