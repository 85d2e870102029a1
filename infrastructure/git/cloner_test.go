package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	headSHA  string
	headErr  error
	cloneErr error
	waitCtx  bool
}

func (f *fakeAdapter) ResolveHead(ctx context.Context, remoteURL string, branch string) (string, error) {
	if f.waitCtx {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.headSHA, f.headErr
}

func (f *fakeAdapter) ShallowClone(ctx context.Context, remoteURL string, commitSHA string, localPath string) error {
	if f.waitCtx {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.cloneErr != nil {
		return f.cloneErr
	}
	return os.WriteFile(filepath.Join(localPath, "main.py"), []byte("print('hi')\n"), 0o644)
}

func TestClonerClone(t *testing.T) {
	dir := t.TempDir()
	cloner := NewCloner(&fakeAdapter{headSHA: "abc123"}, dir, time.Minute, nil)

	path, cleanup, err := cloner.Clone(context.Background(), "https://github.com/a/b", "abc123def")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, dir), "scratch dir must live under the clone root")
	_, err = os.Stat(filepath.Join(path, "main.py"))
	require.NoError(t, err)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "cleanup must remove the scratch dir")
}

func TestClonerCloneFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	cloner := NewCloner(&fakeAdapter{cloneErr: ErrRemoteUnavailable}, dir, time.Minute, nil)

	_, _, err := cloner.Clone(context.Background(), "https://github.com/a/b", "abc123def")
	require.ErrorIs(t, err, ErrRemoteUnavailable)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed clone must not leave scratch dirs behind")
}

func TestClonerTimeout(t *testing.T) {
	dir := t.TempDir()
	cloner := NewCloner(&fakeAdapter{waitCtx: true}, dir, 10*time.Millisecond, nil)

	_, _, err := cloner.Clone(context.Background(), "https://github.com/a/b", "abc123def")
	assert.ErrorIs(t, err, ErrCloneTimeout)

	_, err = cloner.ResolveHead(context.Background(), "https://github.com/a/b", "")
	assert.Error(t, err)
}

func TestClonerResolveHead(t *testing.T) {
	cloner := NewCloner(&fakeAdapter{headSHA: "deadbeef"}, t.TempDir(), time.Minute, nil)

	sha, err := cloner.ResolveHead(context.Background(), "https://github.com/a/b", "main")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", sha)
}

func TestClonerResolveHeadError(t *testing.T) {
	cloner := NewCloner(&fakeAdapter{headErr: errors.New("boom")}, t.TempDir(), time.Minute, nil)

	_, err := cloner.ResolveHead(context.Background(), "https://github.com/a/b", "")
	assert.Error(t, err)
}

func TestWalkSourceSkipsDependencyDirs(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	mustWrite("app/main.py")
	mustWrite("app/util.py")
	mustWrite("node_modules/lib/index.js")
	mustWrite(".git/config")
	mustWrite("venv/lib/site.py")
	mustWrite("__pycache__/main.cpython-312.pyc")
	mustWrite(".hidden/secret.py")

	files, err := WalkSource(root)
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"app/main.py", "app/util.py"}, paths)
}
