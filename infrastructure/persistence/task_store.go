package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/domain/task"
	"github.com/codesense-ai/codesense/internal/database"
)

// TaskStore persists queued tasks.
type TaskStore struct {
	db   database.Database
	repo database.Repository[task.Task, TaskModel]
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db database.Database) *TaskStore {
	return &TaskStore{
		db:   db,
		repo: database.NewRepository[task.Task, TaskModel](db, TaskMapper{}, "task"),
	}
}

// Save upserts the task on its dedup key. Re-enqueueing pending work bumps
// the priority instead of creating a duplicate row.
func (s *TaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	model := TaskMapper{}.ToModel(t)
	result := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		return task.Task{}, fmt.Errorf("save task: %w", result.Error)
	}

	// On conflict the returned ID is the insert attempt's, not the winning
	// row's, so reload by dedup key.
	var saved TaskModel
	if err := s.db.Session(ctx).Where("dedup_key = ?", model.DedupKey).First(&saved).Error; err != nil {
		return task.Task{}, fmt.Errorf("reload task: %w", err)
	}
	return TaskMapper{}.ToDomain(saved), nil
}

// Get retrieves a task by ID.
func (s *TaskStore) Get(ctx context.Context, id int64) (task.Task, error) {
	return s.repo.FindOne(ctx, domainrepo.WithCondition("id", id))
}

// FindPending retrieves pending tasks, highest priority first.
func (s *TaskStore) FindPending(ctx context.Context, options ...domainrepo.Option) ([]task.Task, error) {
	ordered := append([]domainrepo.Option{
		domainrepo.WithOrderDesc("priority"),
		domainrepo.WithOrderAsc("created_at"),
	}, options...)
	return s.repo.Find(ctx, ordered...)
}

// FindAll retrieves every queued task.
func (s *TaskStore) FindAll(ctx context.Context) ([]task.Task, error) {
	return s.repo.Find(ctx)
}

// CountPending returns the number of queued tasks.
func (s *TaskStore) CountPending(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Dequeue returns the highest-priority task without removing it. The
// worker acknowledges with Delete after execution, so a crash between
// claim and execution redelivers the task on the next start.
func (s *TaskStore) Dequeue(ctx context.Context) (task.Task, bool, error) {
	var model TaskModel
	err := s.db.Session(ctx).Order("priority DESC, created_at ASC, id ASC").First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return task.Task{}, false, nil
		}
		return task.Task{}, false, fmt.Errorf("dequeue task: %w", err)
	}
	return TaskMapper{}.ToDomain(model), true, nil
}

// Delete removes the task.
func (s *TaskStore) Delete(ctx context.Context, t task.Task) error {
	return s.repo.DeleteBy(ctx, domainrepo.WithCondition("id", t.ID()))
}
