package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/codesense/application/handler"
	"github.com/codesense-ai/codesense/application/service"
	"github.com/codesense-ai/codesense/domain/task"
	"github.com/codesense-ai/codesense/infrastructure/persistence"
	"github.com/codesense-ai/codesense/internal/testdb"
)

type recordingHandler struct {
	calls atomic.Int64
	err   error
	panic bool
}

func (h *recordingHandler) Execute(context.Context, map[string]any) error {
	h.calls.Add(1)
	if h.panic {
		panic("handler exploded")
	}
	return h.err
}

func TestWorker_ProcessNext(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewTaskStore(testdb.New(t))

	h := &recordingHandler{}
	registry := handler.NewRegistry()
	registry.Register(task.OperationIngestRepository, h)
	worker := service.NewWorker(store, registry, nil)

	_, err := store.Save(ctx, task.NewTask(task.OperationIngestRepository, task.PriorityNormal, map[string]any{"repo_id": "a"}))
	require.NoError(t, err)

	processed, err := worker.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, int64(1), h.calls.Load())

	// The executed task was acknowledged; the queue is drained.
	processed, err = worker.ProcessNext(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
}

type handlerFunc func(ctx context.Context, payload map[string]any) error

func (f handlerFunc) Execute(ctx context.Context, payload map[string]any) error {
	return f(ctx, payload)
}

func TestWorker_TaskAckedAfterExecution(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewTaskStore(testdb.New(t))

	// The task row must still exist while the handler runs. A crash
	// before the acknowledgement then redelivers on restart.
	var duringExecution int64
	h := handlerFunc(func(ctx context.Context, _ map[string]any) error {
		count, err := store.CountPending(ctx)
		require.NoError(t, err)
		duringExecution = count
		return nil
	})
	registry := handler.NewRegistry()
	registry.Register(task.OperationIngestRepository, h)
	worker := service.NewWorker(store, registry, nil)

	_, err := store.Save(ctx, task.NewTask(task.OperationIngestRepository, task.PriorityNormal, map[string]any{"repo_id": "a"}))
	require.NoError(t, err)

	processed, err := worker.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, int64(1), duringExecution)

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestWorker_FailedTaskNotRetried(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewTaskStore(testdb.New(t))

	h := &recordingHandler{err: errors.New("boom")}
	registry := handler.NewRegistry()
	registry.Register(task.OperationIngestRepository, h)
	worker := service.NewWorker(store, registry, nil)

	_, err := store.Save(ctx, task.NewTask(task.OperationIngestRepository, task.PriorityNormal, map[string]any{"repo_id": "a"}))
	require.NoError(t, err)

	processed, err := worker.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestWorker_RecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewTaskStore(testdb.New(t))

	h := &recordingHandler{panic: true}
	registry := handler.NewRegistry()
	registry.Register(task.OperationIngestRepository, h)
	worker := service.NewWorker(store, registry, nil)

	_, err := store.Save(ctx, task.NewTask(task.OperationIngestRepository, task.PriorityNormal, map[string]any{"repo_id": "a"}))
	require.NoError(t, err)

	processed, err := worker.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, int64(1), h.calls.Load())
}

func TestWorker_UnknownOperationDropped(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewTaskStore(testdb.New(t))
	worker := service.NewWorker(store, handler.NewRegistry(), nil)

	_, err := store.Save(ctx, task.NewTask(task.OperationDeleteRepository, task.PriorityNormal, map[string]any{"repo_id": "a"}))
	require.NoError(t, err)

	processed, err := worker.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
