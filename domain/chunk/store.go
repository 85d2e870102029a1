package chunk

import (
	"context"

	"github.com/google/uuid"
)

// Store persists chunks. SaveBatch is idempotent on chunk ID.
type Store interface {
	SaveBatch(ctx context.Context, chunks []Chunk) error
	Get(ctx context.Context, id string) (Chunk, error)
	FindByIDs(ctx context.Context, ids []string) ([]Chunk, error)
	CountBySnapshot(ctx context.Context, repoID uuid.UUID, commitSHA string) (int64, error)
	DeleteByRepo(ctx context.Context, repoID uuid.UUID) error
}
