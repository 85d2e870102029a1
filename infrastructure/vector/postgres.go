package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/codesense-ai/codesense/internal/database"
)

// ErrPgvectorInitializationFailed indicates the pgvector extension or table
// could not be created.
var ErrPgvectorInitializationFailed = errors.New("failed to initialize pgvector store")

// ErrDimensionMismatch indicates stored vectors use a different dimension
// than the configured embedder.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

const (
	pgvCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgvCreateTableTemplate = `
CREATE TABLE IF NOT EXISTS chunk_embeddings (
    chunk_id VARCHAR(64) PRIMARY KEY,
    repo_id VARCHAR(36) NOT NULL,
    commit_sha VARCHAR(64) NOT NULL,
    embedding VECTOR(%d) NOT NULL
)`

	pgvCreateSnapshotIndex = `
CREATE INDEX IF NOT EXISTS chunk_embeddings_snapshot_idx
ON chunk_embeddings (repo_id, commit_sha)`

	pgvCreateVectorIndex = `
CREATE INDEX IF NOT EXISTS chunk_embeddings_vec_idx
ON chunk_embeddings
USING ivfflat (embedding vector_cosine_ops)
WITH (lists = 100)`

	pgvSearchQuery = `
SELECT chunk_id, 1 - (embedding <=> ?::vector) AS score
FROM chunk_embeddings
WHERE repo_id = ? AND commit_sha = ?
ORDER BY embedding <=> ?::vector
LIMIT ?`
)

type pgEmbeddingEntity struct {
	ChunkID   string            `gorm:"column:chunk_id;primaryKey"`
	RepoID    string            `gorm:"column:repo_id"`
	CommitSHA string            `gorm:"column:commit_sha"`
	Embedding database.PgVector `gorm:"column:embedding"`
}

func (pgEmbeddingEntity) TableName() string { return "chunk_embeddings" }

// PgvectorStore stores embeddings in a pgvector column and lets PostgreSQL
// rank by cosine distance.
type PgvectorStore struct {
	db          database.Database
	logger      *slog.Logger
	initialized bool
	dimension   int
	mu          sync.Mutex
}

// NewPgvectorStore creates a PgvectorStore. The table is created lazily on
// first use; its vector dimension follows the first batch written.
func NewPgvectorStore(db database.Database, logger *slog.Logger) *PgvectorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PgvectorStore{db: db, logger: logger}
}

func (s *PgvectorStore) initialize(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		if dimension > 0 && s.dimension > 0 && dimension != s.dimension {
			return fmt.Errorf("%w: table has %d, got %d", ErrDimensionMismatch, s.dimension, dimension)
		}
		return nil
	}
	if dimension <= 0 {
		// Nothing written yet and no dimension to create the table with.
		return nil
	}

	db := s.db.Session(ctx)
	if err := db.Exec(pgvCreateExtension).Error; err != nil {
		return errors.Join(ErrPgvectorInitializationFailed, err)
	}
	if err := db.Exec(fmt.Sprintf(pgvCreateTableTemplate, dimension)).Error; err != nil {
		return errors.Join(ErrPgvectorInitializationFailed, err)
	}
	if err := db.Exec(pgvCreateSnapshotIndex).Error; err != nil {
		return errors.Join(ErrPgvectorInitializationFailed, err)
	}
	if err := db.Exec(pgvCreateVectorIndex).Error; err != nil {
		s.logger.Warn("failed to create vector index", slog.String("error", err.Error()))
	}

	s.initialized = true
	s.dimension = dimension
	return nil
}

// Upsert inserts or replaces embeddings keyed by chunk ID.
func (s *PgvectorStore) Upsert(ctx context.Context, embeddings []Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	if err := s.initialize(ctx, len(embeddings[0].vector)); err != nil {
		return err
	}

	entities := make([]pgEmbeddingEntity, len(embeddings))
	for i, e := range embeddings {
		entities[i] = pgEmbeddingEntity{
			ChunkID:   e.chunkID,
			RepoID:    e.repoID.String(),
			CommitSHA: e.commitSHA,
			Embedding: database.NewPgVector(e.vector),
		}
	}

	return s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chunk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"repo_id", "commit_sha", "embedding"}),
	}).Create(&entities).Error
}

// Search ranks the snapshot's embeddings by cosine distance in PostgreSQL
// and applies the score floor on the returned rows.
func (s *PgvectorStore) Search(ctx context.Context, repoID uuid.UUID, commitSHA string, query []float64, topK int) ([]Match, error) {
	if err := s.initialize(ctx, len(query)); err != nil {
		return nil, err
	}
	if len(query) == 0 || !s.initialized {
		return []Match{}, nil
	}

	queryVec := database.NewPgVector(query).String()
	limit := normalizeTopK(topK)

	var rows []struct {
		ChunkID string  `gorm:"column:chunk_id"`
		Score   float64 `gorm:"column:score"`
	}
	err := s.db.Session(ctx).
		Raw(pgvSearchQuery, queryVec, repoID.String(), commitSHA, queryVec, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(rows))
	for _, r := range rows {
		if r.Score < DefaultMinScore {
			continue
		}
		matches = append(matches, NewMatch(r.ChunkID, r.Score))
	}
	return matches, nil
}

// DeleteByRepo removes every embedding belonging to a repository.
func (s *PgvectorStore) DeleteByRepo(ctx context.Context, repoID uuid.UUID) error {
	if !s.initialized {
		return nil
	}
	return s.db.Session(ctx).
		Where("repo_id = ?", repoID.String()).
		Delete(&pgEmbeddingEntity{}).Error
}
