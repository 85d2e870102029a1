package provider

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentEmbedCalls bounds in-flight embedding API calls.
const maxConcurrentEmbedCalls = 2

// EmbeddingCache caches vectors per (model, text). Satisfied by the Redis
// cache; a nil cache disables lookups.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, model, text string) ([]float32, bool)
	PutEmbedding(ctx context.Context, model, text string, vec []float32)
}

// BatchResult reports one EmbedAll run. Vectors holds one entry per input
// text in input order; failed texts have a nil vector.
type BatchResult struct {
	vectors [][]float64
	failed  int
}

// Vectors returns the per-text vectors, nil where embedding failed.
func (r BatchResult) Vectors() [][]float64 { return r.vectors }

// Failed returns the number of texts that could not be embedded.
func (r BatchResult) Failed() int { return r.failed }

// BatchEmbedder splits large text sets into provider-sized batches and
// embeds them with bounded concurrency. Individual batch failures are
// recorded rather than aborting the run; the caller decides whether the
// failure rate makes the result unusable.
type BatchEmbedder struct {
	embedder Embedder
	cache    EmbeddingCache
	logger   *slog.Logger
}

// NewBatchEmbedder creates a BatchEmbedder. cache may be nil.
func NewBatchEmbedder(embedder Embedder, cache EmbeddingCache, logger *slog.Logger) *BatchEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchEmbedder{embedder: embedder, cache: cache, logger: logger}
}

// Model returns the underlying embedder's model name.
func (b *BatchEmbedder) Model() string { return b.embedder.Model() }

// EmbedQuery embeds a single text, consulting the cache first.
func (b *BatchEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	if vec, ok := b.cachedVector(ctx, text); ok {
		return vec, nil
	}

	resp, err := b.embedder.Embed(ctx, NewEmbeddingRequest([]string{text}))
	if err != nil {
		return nil, err
	}
	embeddings := resp.Embeddings()
	if len(embeddings) == 0 {
		return nil, ErrEmbedFailed
	}

	b.storeVector(ctx, text, embeddings[0])
	return embeddings[0], nil
}

// EmbedAll embeds every text, preserving input order. Cached vectors skip
// the provider entirely.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, texts []string) (BatchResult, error) {
	vectors := make([][]float64, len(texts))

	// Resolve cache hits up front so only misses consume API budget.
	var missing []int
	for i, text := range texts {
		if vec, ok := b.cachedVector(ctx, text); ok {
			vectors[i] = vec
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return BatchResult{vectors: vectors}, nil
	}

	capacity := b.embedder.Capacity()
	if capacity <= 0 {
		capacity = DefaultEmbedBatchSize
	}

	var mu sync.Mutex
	failed := 0

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentEmbedCalls)

	for start := 0; start < len(missing); start += capacity {
		end := min(start+capacity, len(missing))
		indices := missing[start:end]

		group.Go(func() error {
			batch := make([]string, len(indices))
			for i, idx := range indices {
				batch[i] = texts[idx]
			}

			resp, err := b.embedder.Embed(groupCtx, NewEmbeddingRequest(batch))
			if err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				b.logger.Warn("embedding batch failed",
					slog.Int("batch_size", len(batch)),
					slog.String("error", err.Error()))
				mu.Lock()
				failed += len(indices)
				mu.Unlock()
				return nil
			}

			embeddings := resp.Embeddings()
			mu.Lock()
			for i, idx := range indices {
				if i < len(embeddings) {
					vectors[idx] = embeddings[i]
				} else {
					failed++
				}
			}
			mu.Unlock()

			for i, idx := range indices {
				if i < len(embeddings) {
					b.storeVector(ctx, texts[idx], embeddings[i])
				}
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return BatchResult{}, err
	}
	return BatchResult{vectors: vectors, failed: failed}, nil
}

func (b *BatchEmbedder) cachedVector(ctx context.Context, text string) ([]float64, bool) {
	if b.cache == nil {
		return nil, false
	}
	vec32, ok := b.cache.GetEmbedding(ctx, b.embedder.Model(), text)
	if !ok {
		return nil, false
	}
	vec := make([]float64, len(vec32))
	for i, v := range vec32 {
		vec[i] = float64(v)
	}
	return vec, true
}

func (b *BatchEmbedder) storeVector(ctx context.Context, text string, vec []float64) {
	if b.cache == nil {
		return
	}
	vec32 := make([]float32, len(vec))
	for i, v := range vec {
		vec32[i] = float32(v)
	}
	b.cache.PutEmbedding(ctx, b.embedder.Model(), text, vec32)
}
