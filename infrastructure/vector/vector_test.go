package vector

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/codesense/internal/testdb"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{name: "identical vectors", a: []float64{1, 0, 0}, b: []float64{1, 0, 0}, expected: 1},
		{name: "orthogonal vectors", a: []float64{1, 0}, b: []float64{0, 1}, expected: 0},
		{name: "opposite vectors", a: []float64{1, 0}, b: []float64{-1, 0}, expected: -1},
		{name: "length mismatch", a: []float64{1, 0}, b: []float64{1, 0, 0}, expected: 0},
		{name: "zero magnitude", a: []float64{0, 0}, b: []float64{1, 1}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTopKSimilarOrdersAndFilters(t *testing.T) {
	query := []float64{1, 0, 0}
	vectors := []StoredVector{
		NewStoredVector("exact", []float64{1, 0, 0}),
		NewStoredVector("close", []float64{0.9, 0.1, 0}),
		NewStoredVector("orthogonal", []float64{0, 1, 0}),
	}

	matches := TopKSimilar(query, vectors, 5, DefaultMinScore)
	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].ChunkID())
	assert.Equal(t, "close", matches[1].ChunkID())
	assert.Greater(t, matches[0].Score(), matches[1].Score())
}

func TestTopKSimilarLimit(t *testing.T) {
	query := []float64{1, 0}
	vectors := []StoredVector{
		NewStoredVector("a", []float64{1, 0}),
		NewStoredVector("b", []float64{0.9, 0.1}),
		NewStoredVector("c", []float64{0.8, 0.2}),
	}

	matches := TopKSimilar(query, vectors, 2, 0)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ChunkID())
}

func TestSQLiteStoreSearch(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(testdb.NewPlain(t), nil)
	repoID := uuid.New()

	embeddings := []Embedding{
		NewEmbedding("chunk-exact", repoID, "abc123", []float64{1, 0, 0}),
		NewEmbedding("chunk-close", repoID, "abc123", []float64{0.9, 0.1, 0}),
		NewEmbedding("chunk-far", repoID, "abc123", []float64{0, 1, 0}),
		NewEmbedding("chunk-other-commit", repoID, "def456", []float64{1, 0, 0}),
	}
	require.NoError(t, store.Upsert(ctx, embeddings))

	matches, err := store.Search(ctx, repoID, "abc123", []float64{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "chunk-exact", matches[0].ChunkID())
	assert.Equal(t, "chunk-close", matches[1].ChunkID())
}

func TestSQLiteStoreUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(testdb.NewPlain(t), nil)
	repoID := uuid.New()

	first := []Embedding{NewEmbedding("chunk-1", repoID, "abc123", []float64{1, 0})}
	require.NoError(t, store.Upsert(ctx, first))

	// Re-writing the same chunk replaces its vector instead of duplicating.
	second := []Embedding{NewEmbedding("chunk-1", repoID, "abc123", []float64{0, 1})}
	require.NoError(t, store.Upsert(ctx, second))

	matches, err := store.Search(ctx, repoID, "abc123", []float64{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "chunk-1", matches[0].ChunkID())
	assert.InDelta(t, 1.0, matches[0].Score(), 1e-9)
}

func TestSQLiteStoreDeleteByRepo(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(testdb.NewPlain(t), nil)
	repoA := uuid.New()
	repoB := uuid.New()

	require.NoError(t, store.Upsert(ctx, []Embedding{
		NewEmbedding("chunk-a", repoA, "abc123", []float64{1, 0}),
		NewEmbedding("chunk-b", repoB, "abc123", []float64{1, 0}),
	}))

	require.NoError(t, store.DeleteByRepo(ctx, repoA))

	matches, err := store.Search(ctx, repoA, "abc123", []float64{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = store.Search(ctx, repoB, "abc123", []float64{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSQLiteStoreEmptyQuery(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(testdb.NewPlain(t), nil)

	matches, err := store.Search(ctx, uuid.New(), "abc123", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
