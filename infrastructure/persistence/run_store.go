package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/internal/database"
)

// RunStore persists ingestion runs.
type RunStore struct {
	db   database.Database
	repo database.Repository[domainrepo.IngestionRun, IngestionRunModel]
}

// NewRunStore creates a new RunStore.
func NewRunStore(db database.Database) *RunStore {
	return &RunStore{
		db:   db,
		repo: database.NewRepository[domainrepo.IngestionRun, IngestionRunModel](db, RunMapper{}, "ingestion run"),
	}
}

// Save upserts the run by ID.
func (s *RunStore) Save(ctx context.Context, run domainrepo.IngestionRun) error {
	model := RunMapper{}.ToModel(run)
	result := s.db.Session(ctx).Save(&model)
	if result.Error != nil {
		return fmt.Errorf("save ingestion run: %w", result.Error)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (domainrepo.IngestionRun, error) {
	return s.repo.FindOne(ctx, domainrepo.WithID(id))
}

// Find retrieves runs matching the given options.
func (s *RunStore) Find(ctx context.Context, options ...domainrepo.Option) ([]domainrepo.IngestionRun, error) {
	return s.repo.Find(ctx, options...)
}

// TryStart atomically transitions the run from PENDING to RUNNING. The
// whole check runs in one transaction so two workers racing on the same
// (repo, commit) cannot both claim it.
func (s *RunStore) TryStart(ctx context.Context, id uuid.UUID) (domainrepo.IngestionRun, bool, error) {
	type claim struct {
		run     domainrepo.IngestionRun
		started bool
	}

	result, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) (claim, error) {
		var model IngestionRunModel
		if err := tx.Where("id = ?", id.String()).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return claim{}, fmt.Errorf("%w: ingestion run", database.ErrNotFound)
			}
			return claim{}, fmt.Errorf("load ingestion run: %w", err)
		}

		run := RunMapper{}.ToDomain(model)
		if run.Status() != domainrepo.RunPending {
			return claim{run: run}, nil
		}

		var running int64
		err := tx.Model(&IngestionRunModel{}).
			Where("repo_id = ? AND commit_sha = ? AND status = ? AND id <> ?",
				model.RepoID, model.CommitSHA, string(domainrepo.RunRunning), model.ID).
			Count(&running).Error
		if err != nil {
			return claim{}, fmt.Errorf("count running ingestion runs: %w", err)
		}
		if running > 0 {
			return claim{run: run}, nil
		}

		started := run.Start()
		now := time.Now().UTC()
		update := tx.Model(&IngestionRunModel{}).
			Where("id = ? AND status = ?", model.ID, string(domainrepo.RunPending)).
			Updates(map[string]any{
				"status":     string(domainrepo.RunRunning),
				"started_at": now,
			})
		if update.Error != nil {
			return claim{}, fmt.Errorf("start ingestion run: %w", update.Error)
		}
		if update.RowsAffected == 0 {
			return claim{run: run}, nil
		}
		return claim{run: started, started: true}, nil
	})
	if err != nil {
		return domainrepo.IngestionRun{}, false, err
	}
	return result.run, result.started, nil
}

// DeleteByRepo removes all runs for the repository.
func (s *RunStore) DeleteByRepo(ctx context.Context, repoID uuid.UUID) error {
	return s.repo.DeleteBy(ctx, domainrepo.WithRepoID(repoID))
}
