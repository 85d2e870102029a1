// Package service wires domain operations into application workflows.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/domain/task"
)

// Queue provides the main interface for enqueuing and managing tasks.
type Queue struct {
	store  task.Store
	logger *slog.Logger
}

// NewQueue creates a new queue service.
func NewQueue(store task.Store, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:  store,
		logger: logger,
	}
}

// Enqueue adds a task to the queue. A task with the same dedup key
// already waiting has its priority updated instead.
func (s *Queue) Enqueue(ctx context.Context, t task.Task) (task.Task, error) {
	saved, err := s.store.Save(ctx, t)
	if err != nil {
		return task.Task{}, err
	}

	s.logger.Debug("task enqueued",
		slog.String("dedup_key", saved.DedupKey()),
		slog.String("operation", saved.Operation().String()),
		slog.Int("priority", saved.Priority()),
	)
	return saved, nil
}

// List returns pending tasks, highest priority first.
func (s *Queue) List(ctx context.Context, options ...repository.Option) ([]task.Task, error) {
	return s.store.FindPending(ctx, options...)
}

// Count returns the total number of pending tasks.
func (s *Queue) Count(ctx context.Context) (int64, error) {
	return s.store.CountPending(ctx)
}

// Get retrieves a task by ID.
func (s *Queue) Get(ctx context.Context, id int64) (task.Task, error) {
	return s.store.Get(ctx, id)
}

// DrainForRepository removes all pending tasks whose payload references
// the given repository, so stale work cannot race a deletion.
func (s *Queue) DrainForRepository(ctx context.Context, repoID uuid.UUID) (int, error) {
	tasks, err := s.store.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("find pending tasks: %w", err)
	}

	removed := 0
	for _, t := range tasks {
		if t.PayloadString("repo_id") != repoID.String() {
			continue
		}
		if err := s.store.Delete(ctx, t); err != nil {
			return removed, fmt.Errorf("delete task %d: %w", t.ID(), err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("drained pending tasks for repository",
			slog.String("repo_id", repoID.String()),
			slog.Int("removed", removed),
		)
	}
	return removed, nil
}
