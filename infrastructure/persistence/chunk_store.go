package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/codesense-ai/codesense/domain/chunk"
	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/internal/database"
)

const chunkBatchSize = 500

// ChunkStore persists chunks.
type ChunkStore struct {
	db   database.Database
	repo database.Repository[chunk.Chunk, ChunkModel]
}

// NewChunkStore creates a new ChunkStore.
func NewChunkStore(db database.Database) *ChunkStore {
	return &ChunkStore{
		db:   db,
		repo: database.NewRepository[chunk.Chunk, ChunkModel](db, ChunkMapper{}, "chunk"),
	}
}

// SaveBatch upserts chunks by ID in batches. Re-ingesting the same commit
// replaces chunk contents in place.
func (s *ChunkStore) SaveBatch(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	models := make([]ChunkModel, len(chunks))
	for i, c := range chunks {
		models[i] = ChunkMapper{}.ToModel(c)
	}

	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(models, chunkBatchSize)
	if result.Error != nil {
		return fmt.Errorf("save chunks: %w", result.Error)
	}
	return nil
}

// Get retrieves a chunk by ID.
func (s *ChunkStore) Get(ctx context.Context, id string) (chunk.Chunk, error) {
	return s.repo.FindOne(ctx, domainrepo.WithCondition("id", id))
}

// FindByIDs retrieves the chunks with the given IDs. Missing IDs are
// silently skipped.
func (s *ChunkStore) FindByIDs(ctx context.Context, ids []string) ([]chunk.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.repo.Find(ctx, domainrepo.WithConditionIn("id", ids))
}

// CountBySnapshot returns the number of chunks in the snapshot.
func (s *ChunkStore) CountBySnapshot(ctx context.Context, repoID uuid.UUID, commitSHA string) (int64, error) {
	return s.repo.Count(ctx,
		domainrepo.WithRepoID(repoID),
		domainrepo.WithCommitSHA(commitSHA),
	)
}

// DeleteByRepo removes all chunks for the repository.
func (s *ChunkStore) DeleteByRepo(ctx context.Context, repoID uuid.UUID) error {
	return s.repo.DeleteBy(ctx, domainrepo.WithRepoID(repoID))
}
