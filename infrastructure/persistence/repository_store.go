package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/internal/database"
)

// RepositoryStore persists repositories in the relational database.
type RepositoryStore struct {
	db   database.Database
	repo database.Repository[domainrepo.Repository, RepositoryModel]
}

// NewRepositoryStore creates a new RepositoryStore.
func NewRepositoryStore(db database.Database) *RepositoryStore {
	return &RepositoryStore{
		db:   db,
		repo: database.NewRepository[domainrepo.Repository, RepositoryModel](db, RepositoryMapper{}, "repository"),
	}
}

// Save upserts the repository by ID.
func (s *RepositoryStore) Save(ctx context.Context, repo domainrepo.Repository) error {
	model := RepositoryMapper{}.ToModel(repo)
	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"default_branch", "latest_commit_sha", "last_indexed_at", "updated_at",
		}),
	}).Create(&model)
	if result.Error != nil {
		return fmt.Errorf("save repository: %w", result.Error)
	}
	return nil
}

// Get retrieves a repository by ID.
func (s *RepositoryStore) Get(ctx context.Context, id uuid.UUID) (domainrepo.Repository, error) {
	return s.repo.FindOne(ctx, domainrepo.WithID(id))
}

// Find retrieves repositories matching the given options.
func (s *RepositoryStore) Find(ctx context.Context, options ...domainrepo.Option) ([]domainrepo.Repository, error) {
	return s.repo.Find(ctx, options...)
}

// FindOne retrieves a single repository matching the given options.
func (s *RepositoryStore) FindOne(ctx context.Context, options ...domainrepo.Option) (domainrepo.Repository, error) {
	return s.repo.FindOne(ctx, options...)
}

// Delete removes a repository by ID.
func (s *RepositoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteBy(ctx, domainrepo.WithID(id))
}
