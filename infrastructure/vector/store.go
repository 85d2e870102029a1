// Package vector stores chunk embeddings and performs similarity search.
// SQLite deployments keep vectors as JSON and score in memory; PostgreSQL
// deployments use the pgvector extension.
package vector

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/codesense-ai/codesense/internal/database"
)

// Search defaults.
const (
	DefaultTopK     = 5
	DefaultMinScore = 0.35
)

// Embedding pairs a chunk with its vector and snapshot coordinates.
type Embedding struct {
	chunkID   string
	repoID    uuid.UUID
	commitSHA string
	vector    []float64
}

// NewEmbedding creates an Embedding, copying the vector.
func NewEmbedding(chunkID string, repoID uuid.UUID, commitSHA string, vec []float64) Embedding {
	cp := make([]float64, len(vec))
	copy(cp, vec)
	return Embedding{chunkID: chunkID, repoID: repoID, commitSHA: commitSHA, vector: cp}
}

// ChunkID returns the chunk identifier.
func (e Embedding) ChunkID() string { return e.chunkID }

// RepoID returns the owning repository ID.
func (e Embedding) RepoID() uuid.UUID { return e.repoID }

// CommitSHA returns the snapshot commit.
func (e Embedding) CommitSHA() string { return e.commitSHA }

// Vector returns a copy of the embedding vector.
func (e Embedding) Vector() []float64 {
	cp := make([]float64, len(e.vector))
	copy(cp, e.vector)
	return cp
}

// Store persists and searches chunk embeddings. Upsert is idempotent on
// chunk ID; Search scopes to one (repo, commit) snapshot.
type Store interface {
	Upsert(ctx context.Context, embeddings []Embedding) error
	Search(ctx context.Context, repoID uuid.UUID, commitSHA string, query []float64, topK int) ([]Match, error)
	DeleteByRepo(ctx context.Context, repoID uuid.UUID) error
}

// NewStore selects the store implementation for the connected database.
func NewStore(db database.Database, logger *slog.Logger) Store {
	if db.IsPostgres() {
		return NewPgvectorStore(db, logger)
	}
	return NewSQLiteStore(db, logger)
}

// Float64Slice serializes a []float64 as JSON for SQLite storage.
type Float64Slice []float64

// Scan implements sql.Scanner.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

func normalizeTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	return topK
}
