package repository

import (
	"context"

	"github.com/google/uuid"
)

// Store persists repositories.
type Store interface {
	Save(ctx context.Context, repo Repository) error
	Get(ctx context.Context, id uuid.UUID) (Repository, error)
	Find(ctx context.Context, options ...Option) ([]Repository, error)
	FindOne(ctx context.Context, options ...Option) (Repository, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RunStore persists ingestion runs.
type RunStore interface {
	Save(ctx context.Context, run IngestionRun) error
	Get(ctx context.Context, id uuid.UUID) (IngestionRun, error)
	Find(ctx context.Context, options ...Option) ([]IngestionRun, error)

	// TryStart atomically transitions the run from PENDING to RUNNING,
	// provided no other run for the same (repo, commit) is RUNNING.
	// Returns false when another run holds the slot.
	TryStart(ctx context.Context, id uuid.UUID) (IngestionRun, bool, error)

	DeleteByRepo(ctx context.Context, repoID uuid.UUID) error
}
