package vector

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/codesense-ai/codesense/internal/database"
)

// ErrSQLiteVectorInitializationFailed indicates the SQLite embedding table
// could not be created.
var ErrSQLiteVectorInitializationFailed = errors.New("failed to initialize sqlite vector store")

const sqliteCreateTable = `
CREATE TABLE IF NOT EXISTS chunk_embeddings (
    chunk_id VARCHAR(64) PRIMARY KEY,
    repo_id VARCHAR(36) NOT NULL,
    commit_sha VARCHAR(64) NOT NULL,
    embedding JSON NOT NULL
)`

const sqliteCreateIndex = `
CREATE INDEX IF NOT EXISTS chunk_embeddings_snapshot_idx
ON chunk_embeddings (repo_id, commit_sha)`

type sqliteEmbeddingEntity struct {
	ChunkID   string       `gorm:"column:chunk_id;primaryKey"`
	RepoID    string       `gorm:"column:repo_id;index"`
	CommitSHA string       `gorm:"column:commit_sha"`
	Embedding Float64Slice `gorm:"column:embedding;type:json"`
}

func (sqliteEmbeddingEntity) TableName() string { return "chunk_embeddings" }

// SQLiteStore stores embeddings as JSON and scores cosine similarity in
// memory. Suitable for single-node deployments and tests.
type SQLiteStore struct {
	db          database.Database
	logger      *slog.Logger
	initialized bool
	mu          sync.Mutex
}

// NewSQLiteStore creates a SQLiteStore.
func NewSQLiteStore(db database.Database, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{db: db, logger: logger}
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	db := s.db.Session(ctx)
	if err := db.Exec(sqliteCreateTable).Error; err != nil {
		return errors.Join(ErrSQLiteVectorInitializationFailed, err)
	}
	if err := db.Exec(sqliteCreateIndex).Error; err != nil {
		return errors.Join(ErrSQLiteVectorInitializationFailed, err)
	}

	s.initialized = true
	return nil
}

// Upsert inserts or replaces embeddings keyed by chunk ID.
func (s *SQLiteStore) Upsert(ctx context.Context, embeddings []Embedding) error {
	if err := s.initialize(ctx); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return nil
	}

	entities := make([]sqliteEmbeddingEntity, len(embeddings))
	for i, e := range embeddings {
		entities[i] = sqliteEmbeddingEntity{
			ChunkID:   e.chunkID,
			RepoID:    e.repoID.String(),
			CommitSHA: e.commitSHA,
			Embedding: Float64Slice(e.Vector()),
		}
	}

	return s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chunk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"repo_id", "commit_sha", "embedding"}),
	}).Create(&entities).Error
}

// Search loads the snapshot's vectors and scores them in memory.
func (s *SQLiteStore) Search(ctx context.Context, repoID uuid.UUID, commitSHA string, query []float64, topK int) ([]Match, error) {
	if err := s.initialize(ctx); err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return []Match{}, nil
	}

	var entities []sqliteEmbeddingEntity
	err := s.db.Session(ctx).
		Where("repo_id = ? AND commit_sha = ?", repoID.String(), commitSHA).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}

	vectors := make([]StoredVector, 0, len(entities))
	for _, e := range entities {
		if len(e.Embedding) == 0 {
			s.logger.Warn("skipping empty embedding", slog.String("chunk_id", e.ChunkID))
			continue
		}
		vectors = append(vectors, NewStoredVector(e.ChunkID, e.Embedding))
	}

	return TopKSimilar(query, vectors, normalizeTopK(topK), DefaultMinScore), nil
}

// DeleteByRepo removes every embedding belonging to a repository.
func (s *SQLiteStore) DeleteByRepo(ctx context.Context, repoID uuid.UUID) error {
	if err := s.initialize(ctx); err != nil {
		return err
	}
	return s.db.Session(ctx).
		Where("repo_id = ?", repoID.String()).
		Delete(&sqliteEmbeddingEntity{}).Error
}
