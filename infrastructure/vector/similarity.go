package vector

import (
	"math"
	"sort"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 if the vectors differ in length or either has zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Match is one similarity search hit.
type Match struct {
	chunkID string
	score   float64
}

// NewMatch creates a Match.
func NewMatch(chunkID string, score float64) Match {
	return Match{chunkID: chunkID, score: score}
}

// ChunkID returns the matched chunk identifier.
func (m Match) ChunkID() string { return m.chunkID }

// Score returns the cosine similarity score.
func (m Match) Score() float64 { return m.score }

// StoredVector pairs a chunk ID with its embedding.
type StoredVector struct {
	chunkID   string
	embedding []float64
}

// NewStoredVector creates a StoredVector, copying the embedding.
func NewStoredVector(chunkID string, embedding []float64) StoredVector {
	cp := make([]float64, len(embedding))
	copy(cp, embedding)
	return StoredVector{chunkID: chunkID, embedding: cp}
}

// ChunkID returns the chunk identifier.
func (v StoredVector) ChunkID() string { return v.chunkID }

// Embedding returns a copy of the embedding vector.
func (v StoredVector) Embedding() []float64 {
	cp := make([]float64, len(v.embedding))
	copy(cp, v.embedding)
	return cp
}

// TopKSimilar scores every stored vector against the query, drops scores
// below minScore and returns at most k matches sorted by score descending.
func TopKSimilar(query []float64, vectors []StoredVector, k int, minScore float64) []Match {
	if len(vectors) == 0 || k <= 0 {
		return []Match{}
	}

	matches := make([]Match, 0, len(vectors))
	for _, v := range vectors {
		score := CosineSimilarity(query, v.embedding)
		if score < minScore {
			continue
		}
		matches = append(matches, NewMatch(v.chunkID, score))
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}
