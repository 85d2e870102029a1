package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/codesense/application/service"
	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/infrastructure/git"
	"github.com/codesense-ai/codesense/infrastructure/persistence"
	"github.com/codesense-ai/codesense/internal/database"
	"github.com/codesense-ai/codesense/internal/testdb"
)

type stubResolver struct {
	sha string
	err error
}

func (r *stubResolver) ResolveHead(context.Context, string, string) (string, error) {
	return r.sha, r.err
}

type ingestionFixture struct {
	service *service.Ingestion
	repos   *persistence.RepositoryStore
	runs    *persistence.RunStore
	queue   *service.Queue
}

func newIngestionFixture(t *testing.T, resolver service.HeadResolver) ingestionFixture {
	t.Helper()
	db := testdb.New(t)
	repos := persistence.NewRepositoryStore(db)
	runs := persistence.NewRunStore(db)
	queue := service.NewQueue(persistence.NewTaskStore(db), nil)
	return ingestionFixture{
		service: service.NewIngestion(repos, runs, queue, resolver, nil),
		repos:   repos,
		runs:    runs,
		queue:   queue,
	}
}

func TestIngestion_Ingest(t *testing.T) {
	ctx := context.Background()
	fx := newIngestionFixture(t, &stubResolver{sha: "abc123"})

	run, err := fx.service.Ingest(ctx, "https://github.com/acme/widgets", "main")
	require.NoError(t, err)
	assert.Equal(t, domainrepo.RunPending, run.Status())
	assert.Equal(t, "abc123", run.CommitSHA())
	assert.Equal(t, "main", run.Branch())

	repo, err := fx.repos.Get(ctx, run.RepoID())
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", repo.FullName())
	assert.Equal(t, "main", repo.DefaultBranch())

	count, err := fx.queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngestion_IngestSameCommitReusesRun(t *testing.T) {
	ctx := context.Background()
	fx := newIngestionFixture(t, &stubResolver{sha: "abc123"})

	first, err := fx.service.Ingest(ctx, "https://github.com/acme/widgets", "main")
	require.NoError(t, err)
	second, err := fx.service.Ingest(ctx, "https://github.com/acme/widgets", "main")
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())

	runs, err := fx.service.Runs(ctx, first.RepoID())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestIngestion_IngestNewCommitAfterFailure(t *testing.T) {
	ctx := context.Background()
	resolver := &stubResolver{sha: "abc123"}
	fx := newIngestionFixture(t, resolver)

	first, err := fx.service.Ingest(ctx, "https://github.com/acme/widgets", "main")
	require.NoError(t, err)
	require.NoError(t, fx.runs.Save(ctx, first.Start().Fail("clone timeout")))

	second, err := fx.service.Ingest(ctx, "https://github.com/acme/widgets", "main")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, domainrepo.RunPending, second.Status())
}

func TestIngestion_IngestInvalidURL(t *testing.T) {
	ctx := context.Background()
	fx := newIngestionFixture(t, &stubResolver{sha: "abc123"})

	_, err := fx.service.Ingest(ctx, "not a url", "")
	assert.ErrorIs(t, err, git.ErrInvalidRemoteURL)
}

func TestIngestion_IngestRemoteUnavailable(t *testing.T) {
	ctx := context.Background()
	fx := newIngestionFixture(t, &stubResolver{err: git.ErrRemoteUnavailable})

	_, err := fx.service.Ingest(ctx, "https://github.com/acme/widgets", "")
	assert.ErrorIs(t, err, git.ErrRemoteUnavailable)
}

func TestIngestion_Cancel(t *testing.T) {
	ctx := context.Background()
	fx := newIngestionFixture(t, &stubResolver{sha: "abc123"})

	run, err := fx.service.Ingest(ctx, "https://github.com/acme/widgets", "main")
	require.NoError(t, err)

	cancelled, err := fx.service.Cancel(ctx, run.ID())
	require.NoError(t, err)
	assert.Equal(t, domainrepo.RunFailed, cancelled.Status())
	assert.Equal(t, "cancelled", cancelled.ErrorMessage())

	// Cancelling a terminal run is a no-op.
	again, err := fx.service.Cancel(ctx, run.ID())
	require.NoError(t, err)
	assert.Equal(t, cancelled.Status(), again.Status())
}

func TestIngestion_Resolve(t *testing.T) {
	ctx := context.Background()
	fx := newIngestionFixture(t, &stubResolver{sha: "abc123"})

	run, err := fx.service.Ingest(ctx, "https://github.com/acme/widgets", "main")
	require.NoError(t, err)

	byURL, err := fx.service.Resolve(ctx, "https://github.com/acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, run.RepoID(), byURL.ID())

	byFullName, err := fx.service.Resolve(ctx, "acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, run.RepoID(), byFullName.ID())

	byName, err := fx.service.Resolve(ctx, "widgets")
	require.NoError(t, err)
	assert.Equal(t, run.RepoID(), byName.ID())

	_, err = fx.service.Resolve(ctx, "nobody/nothing")
	assert.True(t, errors.Is(err, database.ErrNotFound))
}

func TestIngestion_DeleteDrainsQueue(t *testing.T) {
	ctx := context.Background()
	fx := newIngestionFixture(t, &stubResolver{sha: "abc123"})

	run, err := fx.service.Ingest(ctx, "https://github.com/acme/widgets", "main")
	require.NoError(t, err)

	require.NoError(t, fx.service.Delete(ctx, run.RepoID()))

	tasks, err := fx.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "codesense.repository.delete", string(tasks[0].Operation()))
}
