package task

import (
	"context"

	"github.com/codesense-ai/codesense/domain/repository"
)

// Store persists queued tasks. Save upserts on the dedup key; Dequeue
// returns the highest-priority pending task, which stays queued until
// the consumer acknowledges it with Delete.
type Store interface {
	Save(ctx context.Context, t Task) (Task, error)
	Get(ctx context.Context, id int64) (Task, error)
	FindPending(ctx context.Context, options ...repository.Option) ([]Task, error)
	FindAll(ctx context.Context) ([]Task, error)
	CountPending(ctx context.Context) (int64, error)
	Dequeue(ctx context.Context) (Task, bool, error)
	Delete(ctx context.Context, t Task) error
}
