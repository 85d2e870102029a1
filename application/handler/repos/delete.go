// Package repos implements repository management task handlers.
package repos

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codesense-ai/codesense/application/handler"
	"github.com/codesense-ai/codesense/domain/chunk"
	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/objectstore"
	"github.com/codesense-ai/codesense/infrastructure/vector"
)

// Delete removes a repository and everything derived from it: symbols,
// relationships, chunks, vector points, runs, artifacts, and finally the
// repository row itself.
type Delete struct {
	repositories  domainrepo.Store
	runs          domainrepo.RunStore
	symbols       symbol.Store
	relationships symbol.RelationshipStore
	chunks        chunk.Store
	vectors       vector.Store
	objects       objectstore.Store
	logger        *slog.Logger
}

// NewDelete creates the repository deletion handler.
func NewDelete(
	repositories domainrepo.Store,
	runs domainrepo.RunStore,
	symbols symbol.Store,
	relationships symbol.RelationshipStore,
	chunks chunk.Store,
	vectors vector.Store,
	objects objectstore.Store,
	logger *slog.Logger,
) *Delete {
	if logger == nil {
		logger = slog.Default()
	}
	return &Delete{
		repositories:  repositories,
		runs:          runs,
		symbols:       symbols,
		relationships: relationships,
		chunks:        chunks,
		vectors:       vectors,
		objects:       objects,
		logger:        logger,
	}
}

// Execute processes a repository deletion task.
func (h *Delete) Execute(ctx context.Context, payload map[string]any) error {
	repoID, err := handler.ExtractUUID(payload, "repo_id")
	if err != nil {
		return err
	}

	repo, err := h.repositories.Get(ctx, repoID)
	if err != nil {
		return fmt.Errorf("load repository: %w", err)
	}

	if err := h.relationships.DeleteByRepo(ctx, repoID); err != nil {
		return fmt.Errorf("delete relationships: %w", err)
	}
	if err := h.symbols.DeleteByRepo(ctx, repoID); err != nil {
		return fmt.Errorf("delete symbols: %w", err)
	}
	if err := h.chunks.DeleteByRepo(ctx, repoID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := h.vectors.DeleteByRepo(ctx, repoID); err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	if err := h.runs.DeleteByRepo(ctx, repoID); err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}

	prefix := objectstore.Prefix(string(repo.Provider()), repo.Owner(), repo.Name())
	if err := h.objects.DeletePrefix(prefix); err != nil {
		return fmt.Errorf("delete artifacts: %w", err)
	}

	if err := h.repositories.Delete(ctx, repoID); err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}

	h.logger.Info("repository deleted",
		slog.String("repo", repo.FullName()),
		slog.String("repo_id", repoID.String()),
	)
	return nil
}
