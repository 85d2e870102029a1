package codesense_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	codesense "github.com/codesense-ai/codesense"
	"github.com/codesense-ai/codesense/infrastructure/provider"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	vecs := make([][]float64, len(req.Texts()))
	for i := range vecs {
		vecs[i] = []float64{1, 0, 0}
	}
	return provider.NewEmbeddingResponse(vecs, provider.Usage{}), nil
}

func (fakeEmbedder) Model() string { return "fake-embedder" }

func (fakeEmbedder) Capacity() int { return 16 }

func newTestClient(t *testing.T) *codesense.Client {
	t.Helper()
	dir := t.TempDir()
	client, err := codesense.New(
		codesense.WithDataDir(dir),
		codesense.WithSQLite(filepath.Join(dir, "test.db")),
		codesense.WithEmbedder(fakeEmbedder{}),
		codesense.WithWorkerPollPeriod(10*time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew_RequiresEmbedder(t *testing.T) {
	dir := t.TempDir()
	_, err := codesense.New(
		codesense.WithDataDir(dir),
		codesense.WithSQLite(filepath.Join(dir, "test.db")),
	)
	assert.ErrorIs(t, err, codesense.ErrNoEmbedder)
}

func TestClient_IngestInvalidURL(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Ingest(context.Background(), "not a url", "")
	assert.ErrorIs(t, err, codesense.ErrInvalidRepoURL)
}

func TestClient_QueryUnknownRepository(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Query(context.Background(), "nobody/nothing", "who calls main")
	assert.ErrorIs(t, err, codesense.ErrNotFound)
}

func TestClient_RepositoriesEmpty(t *testing.T) {
	client := newTestClient(t)

	repos, err := client.Repositories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, repos)
}

func TestClient_CloseTwice(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Close(), codesense.ErrClientClosed)

	_, err := client.Ingest(context.Background(), "https://github.com/acme/widgets", "")
	assert.ErrorIs(t, err, codesense.ErrClientClosed)
}
