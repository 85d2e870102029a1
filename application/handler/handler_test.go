package handler_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/codesense/application/handler"
	"github.com/codesense-ai/codesense/domain/task"
)

type noopHandler struct{}

func (noopHandler) Execute(context.Context, map[string]any) error { return nil }

func TestRegistry(t *testing.T) {
	registry := handler.NewRegistry()
	assert.False(t, registry.HasHandler(task.OperationIngestRepository))

	_, err := registry.Handler(task.OperationIngestRepository)
	assert.ErrorIs(t, err, handler.ErrNoHandler)

	registry.Register(task.OperationIngestRepository, noopHandler{})
	assert.True(t, registry.HasHandler(task.OperationIngestRepository))

	h, err := registry.Handler(task.OperationIngestRepository)
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Len(t, registry.Operations(), 1)
}

func TestExtractUUID(t *testing.T) {
	id := uuid.New()

	got, err := handler.ExtractUUID(map[string]any{"repo_id": id.String()}, "repo_id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = handler.ExtractUUID(map[string]any{}, "repo_id")
	assert.Error(t, err)

	_, err = handler.ExtractUUID(map[string]any{"repo_id": "not-a-uuid"}, "repo_id")
	assert.Error(t, err)

	_, err = handler.ExtractUUID(map[string]any{"repo_id": 7}, "repo_id")
	assert.Error(t, err)
}
