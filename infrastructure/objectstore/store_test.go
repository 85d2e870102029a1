package objectstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/git"
)

func testKey(kind string) Key {
	return Key{
		Provider:  "github",
		Owner:     "acme",
		Name:      "widgets",
		CommitSHA: "abc123",
		Kind:      kind,
	}
}

func TestFilesystemStoreRoundTrip(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), nil)
	require.NoError(t, err)

	key := testKey(KindManifest)
	require.NoError(t, store.Put(key, []byte(`{"commit":"abc123"}`)))

	data, err := store.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"commit":"abc123"}`, string(data))

	exists, err := store.Exists(key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFilesystemStorePutIfAbsent(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), nil)
	require.NoError(t, err)

	key := testKey(KindGraphData)
	require.NoError(t, store.PutIfAbsent(key, []byte("first")))
	require.NoError(t, store.PutIfAbsent(key, []byte("second")))

	data, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "existing object must win")
}

func TestFilesystemStoreGetMissing(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Get(testKey(KindASTData))
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFilesystemStoreListAndDelete(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, store.Put(testKey(KindManifest), []byte("m")))
	require.NoError(t, store.Put(testKey(KindGraphData), []byte("g")))

	other := testKey(KindManifest)
	other.Name = "gadgets"
	require.NoError(t, store.Put(other, []byte("o")))

	keys, err := store.List(Prefix("github", "acme", "widgets"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"github/acme/widgets/abc123/graph_data",
		"github/acme/widgets/abc123/manifest",
	}, keys)

	require.NoError(t, store.DeletePrefix(Prefix("github", "acme", "widgets")))

	keys, err = store.List(Prefix("github", "acme", "widgets"))
	require.NoError(t, err)
	assert.Empty(t, keys)

	// other repo untouched
	exists, err := store.Exists(other)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Get(Key{Provider: "..", Owner: "..", Name: "x", CommitSHA: "y", Kind: "z"})
	assert.Error(t, err)
}

func TestManifestRoundTrip(t *testing.T) {
	data, err := EncodeManifest(Manifest{Commit: "abc", NodesCount: 42, Version: ManifestVersion})
	require.NoError(t, err)

	m, err := DecodeManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "abc", m.Commit)
	assert.Equal(t, 42, m.NodesCount)
	assert.Equal(t, "v2", m.Version)
}

func TestGraphDataRoundTrip(t *testing.T) {
	repoID := uuid.New()
	login := symbol.NewSymbol(repoID, "sha", "login", symbol.TypeFunction, "auth.py", 1, 5)
	check := symbol.NewSymbol(repoID, "sha", "check", symbol.TypeFunction, "auth.py", 7, 9)
	rel := symbol.NewRelationship(repoID, "sha", login.ID(), check.ID(), symbol.RelCalls, "auth.py", 2)

	data, err := EncodeGraphData("sha", []symbol.Symbol{login, check}, []symbol.Relationship{rel})
	require.NoError(t, err)

	var decoded struct {
		Commit  string `json:"commit"`
		Symbols []struct {
			Name string `json:"name"`
		} `json:"symbols"`
		Relationships []struct {
			Type string `json:"type"`
		} `json:"relationships"`
	}
	require.NoError(t, GunzipJSON(data, &decoded))
	assert.Equal(t, "sha", decoded.Commit)
	require.Len(t, decoded.Symbols, 2)
	require.Len(t, decoded.Relationships, 1)
	assert.Equal(t, "calls", decoded.Relationships[0].Type)
}

func TestPackSourceTreeAndExtract(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "app", "main.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("print('hi')\n"), 0o644))

	files := []git.SourceFile{{Path: "app/main.py", AbsPath: path, Size: 12}}
	archive, err := PackSourceTree(root, files)
	require.NoError(t, err)

	content, err := ExtractFile(archive, "app/main.py")
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(content))

	_, err = ExtractFile(archive, "missing.py")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
