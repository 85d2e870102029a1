package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/domain/task"
	"github.com/codesense-ai/codesense/infrastructure/git"
	"github.com/codesense-ai/codesense/internal/database"
)

// HeadResolver resolves a branch to a commit SHA without a full clone.
type HeadResolver interface {
	ResolveHead(ctx context.Context, remoteURL string, branch string) (string, error)
}

// Ingestion accepts repositories for indexing and answers run status
// queries. The heavy pipeline work runs on the task queue.
type Ingestion struct {
	repositories domainrepo.Store
	runs         domainrepo.RunStore
	queue        *Queue
	resolver     HeadResolver
	logger       *slog.Logger
}

// NewIngestion creates the ingestion service.
func NewIngestion(
	repositories domainrepo.Store,
	runs domainrepo.RunStore,
	queue *Queue,
	resolver HeadResolver,
	logger *slog.Logger,
) *Ingestion {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestion{
		repositories: repositories,
		runs:         runs,
		queue:        queue,
		resolver:     resolver,
		logger:       logger,
	}
}

// Ingest registers a repository and queues an ingestion of the current
// tip of the given branch (empty branch means the remote default). A
// commit that is already ingested, or currently being ingested, returns
// the existing run instead of queuing duplicate work.
func (s *Ingestion) Ingest(ctx context.Context, remoteURL string, branch string) (domainrepo.IngestionRun, error) {
	info, err := git.ParseRemoteURL(remoteURL)
	if err != nil {
		return domainrepo.IngestionRun{}, err
	}

	repo, err := s.findOrCreateRepository(ctx, info, remoteURL)
	if err != nil {
		return domainrepo.IngestionRun{}, err
	}

	commitSHA, err := s.resolver.ResolveHead(ctx, remoteURL, branch)
	if err != nil {
		return domainrepo.IngestionRun{}, fmt.Errorf("resolve %s: %w", remoteURL, err)
	}

	if branch != "" && repo.DefaultBranch() == "" {
		repo = repo.WithDefaultBranch(branch)
		if err := s.repositories.Save(ctx, repo); err != nil {
			return domainrepo.IngestionRun{}, fmt.Errorf("save repository: %w", err)
		}
	}

	if run, ok, err := s.existingRun(ctx, repo.ID(), commitSHA); err != nil {
		return domainrepo.IngestionRun{}, err
	} else if ok {
		s.logger.Info("commit already ingested or in flight, reusing run",
			slog.String("repo", repo.FullName()),
			slog.String("commit", commitSHA),
			slog.String("status", string(run.Status())),
		)
		return run, nil
	}

	run := domainrepo.NewIngestionRun(repo.ID(), branch, commitSHA)
	if err := s.runs.Save(ctx, run); err != nil {
		return domainrepo.IngestionRun{}, fmt.Errorf("save run: %w", err)
	}

	_, err = s.queue.Enqueue(ctx, task.NewTask(task.OperationIngestRepository, task.PriorityUserInitiated, map[string]any{
		"repo_id": repo.ID().String(),
		"run_id":  run.ID().String(),
	}))
	if err != nil {
		return domainrepo.IngestionRun{}, fmt.Errorf("enqueue ingestion: %w", err)
	}

	s.logger.Info("ingestion queued",
		slog.String("repo", repo.FullName()),
		slog.String("commit", commitSHA),
		slog.String("run_id", run.ID().String()),
	)
	return run, nil
}

// Status retrieves a run by ID.
func (s *Ingestion) Status(ctx context.Context, runID uuid.UUID) (domainrepo.IngestionRun, error) {
	return s.runs.Get(ctx, runID)
}

// Runs lists every run recorded for a repository.
func (s *Ingestion) Runs(ctx context.Context, repoID uuid.UUID) ([]domainrepo.IngestionRun, error) {
	return s.runs.Find(ctx, domainrepo.WithRepoID(repoID))
}

// Cancel marks a non-terminal run as failed with the error "cancelled".
// The pipeline observes the state change through context cancellation at
// stage boundaries.
func (s *Ingestion) Cancel(ctx context.Context, runID uuid.UUID) (domainrepo.IngestionRun, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return domainrepo.IngestionRun{}, err
	}
	if run.Status().IsTerminal() {
		return run, nil
	}

	cancelled := run.Cancel()
	if err := s.runs.Save(ctx, cancelled); err != nil {
		return domainrepo.IngestionRun{}, fmt.Errorf("cancel run: %w", err)
	}
	return cancelled, nil
}

// Repositories lists all registered repositories.
func (s *Ingestion) Repositories(ctx context.Context) ([]domainrepo.Repository, error) {
	return s.repositories.Find(ctx)
}

// Resolve finds a repository by "owner/name" reference or remote URL.
func (s *Ingestion) Resolve(ctx context.Context, ref string) (domainrepo.Repository, error) {
	if info, err := git.ParseRemoteURL(ref); err == nil {
		return s.repositories.FindOne(ctx,
			domainrepo.WithProviderOwnerName(info.Provider, info.Owner, info.Name))
	}

	repos, err := s.repositories.Find(ctx)
	if err != nil {
		return domainrepo.Repository{}, err
	}
	for _, repo := range repos {
		if repo.FullName() == ref || repo.Name() == ref {
			return repo, nil
		}
	}
	return domainrepo.Repository{}, fmt.Errorf("%w: repository %q", database.ErrNotFound, ref)
}

// Delete queues removal of a repository and drains its pending work.
func (s *Ingestion) Delete(ctx context.Context, repoID uuid.UUID) error {
	if _, err := s.repositories.Get(ctx, repoID); err != nil {
		return err
	}

	if _, err := s.queue.DrainForRepository(ctx, repoID); err != nil {
		return err
	}

	_, err := s.queue.Enqueue(ctx, task.NewTask(task.OperationDeleteRepository, task.PriorityUserInitiated, map[string]any{
		"repo_id": repoID.String(),
	}))
	return err
}

func (s *Ingestion) findOrCreateRepository(ctx context.Context, info git.RemoteInfo, remoteURL string) (domainrepo.Repository, error) {
	repo, err := s.repositories.FindOne(ctx,
		domainrepo.WithProviderOwnerName(info.Provider, info.Owner, info.Name))
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return domainrepo.Repository{}, err
	}

	repo = domainrepo.NewRepository(info.Provider, info.Owner, info.Name, remoteURL)
	if err := s.repositories.Save(ctx, repo); err != nil {
		return domainrepo.Repository{}, fmt.Errorf("save repository: %w", err)
	}
	return repo, nil
}

// existingRun finds a run for the snapshot that makes a new one
// redundant: COMPLETED means already ingested, PENDING or RUNNING means
// in flight. FAILED runs do not block a retry.
func (s *Ingestion) existingRun(ctx context.Context, repoID uuid.UUID, commitSHA string) (domainrepo.IngestionRun, bool, error) {
	runs, err := s.runs.Find(ctx,
		domainrepo.WithRepoID(repoID),
		domainrepo.WithCommitSHA(commitSHA),
	)
	if err != nil {
		return domainrepo.IngestionRun{}, false, err
	}

	for _, run := range runs {
		switch run.Status() {
		case domainrepo.RunCompleted, domainrepo.RunPending, domainrepo.RunRunning:
			return run, true, nil
		}
	}
	return domainrepo.IngestionRun{}, false, nil
}
