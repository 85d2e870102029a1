// Package cache provides Redis-backed caches for embeddings and query
// results. A missing or unreachable Redis never fails an operation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default TTLs.
const (
	DefaultEmbeddingTTL = 24 * time.Hour
	DefaultQueryTTL     = time.Hour
)

// Cache wraps a Redis client. A nil client turns every operation into
// a no-op miss.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// New creates a Cache. redisURL may be empty, which disables caching.
func New(redisURL string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if redisURL == "" {
		return &Cache{logger: logger}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Cache{client: redis.NewClient(opts), logger: logger}, nil
}

// NewWithClient wraps an existing client; used by tests.
func NewWithClient(client *redis.Client, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, logger: logger}
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool { return c.client != nil }

// Close releases the underlying client.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	if c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache get failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return nil, false
	}
	return data, true
}

func (c *Cache) set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Debug("cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// EmbeddingKey derives the cache key for one (model, text) pair.
func EmbeddingKey(model, text string) string {
	return "emb:" + digest(model+"|"+text)
}

// QueryKey derives the cache key for one (query, repo, commit) triple.
func QueryKey(query, repoID, commitSHA string) string {
	return "qry:" + digest(query+"|"+repoID+"|"+commitSHA)
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// GetEmbedding returns a cached vector for one (model, text) pair.
func (c *Cache) GetEmbedding(ctx context.Context, model, text string) ([]float32, bool) {
	data, ok := c.get(ctx, EmbeddingKey(model, text))
	if !ok {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

// PutEmbedding caches a vector with the embedding TTL.
func (c *Cache) PutEmbedding(ctx context.Context, model, text string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	c.set(ctx, EmbeddingKey(model, text), data, DefaultEmbeddingTTL)
}

// GetQueryResult returns a cached answer payload for a query.
func (c *Cache) GetQueryResult(ctx context.Context, query, repoID, commitSHA string, out any) bool {
	data, ok := c.get(ctx, QueryKey(query, repoID, commitSHA))
	if !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// PutQueryResult caches an answer payload with the query TTL.
func (c *Cache) PutQueryResult(ctx context.Context, query, repoID, commitSHA string, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.set(ctx, QueryKey(query, repoID, commitSHA), data, DefaultQueryTTL)
}
