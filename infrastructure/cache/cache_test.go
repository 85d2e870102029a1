package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, nil), mr
}

func TestEmbeddingRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := c.GetEmbedding(ctx, "model-a", "hello")
	assert.False(t, ok)

	c.PutEmbedding(ctx, "model-a", "hello", []float32{0.1, 0.2, 0.3})

	vec, ok := c.GetEmbedding(ctx, "model-a", "hello")
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)

	// Same text under a different model is a distinct entry.
	_, ok = c.GetEmbedding(ctx, "model-b", "hello")
	assert.False(t, ok)
}

func TestQueryResultRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	type answer struct {
		Text string `json:"text"`
	}

	var out answer
	assert.False(t, c.GetQueryResult(ctx, "who calls login", "repo-1", "abc", &out))

	c.PutQueryResult(ctx, "who calls login", "repo-1", "abc", answer{Text: "login is called by handle"})

	require.True(t, c.GetQueryResult(ctx, "who calls login", "repo-1", "abc", &out))
	assert.Equal(t, "login is called by handle", out.Text)

	// A different commit misses.
	assert.False(t, c.GetQueryResult(ctx, "who calls login", "repo-1", "def", &out))
}

func TestRedisDownIsNotFatal(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	mr.Close()

	c.PutEmbedding(ctx, "m", "text", []float32{1})
	_, ok := c.GetEmbedding(ctx, "m", "text")
	assert.False(t, ok)
}

func TestNilClientIsNoop(t *testing.T) {
	c, err := New("", nil)
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	ctx := context.Background()
	c.PutEmbedding(ctx, "m", "text", []float32{1})
	_, ok := c.GetEmbedding(ctx, "m", "text")
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not-a-url://%", nil)
	assert.Error(t, err)
}
