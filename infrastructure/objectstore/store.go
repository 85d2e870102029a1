// Package objectstore persists ingestion artifacts under a filesystem
// root, keyed by provider/owner/name/commit.
package objectstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Artifact kinds stored per ingested commit.
const (
	KindSourceTree = "source_tree"
	KindGraphData  = "graph_data"
	KindASTData    = "ast_data"
	KindManifest   = "manifest"
)

// ErrObjectNotFound indicates the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Key addresses one artifact of one ingested commit.
type Key struct {
	Provider  string
	Owner     string
	Name      string
	CommitSHA string
	Kind      string
}

// String renders the object key as a slash path.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", k.Provider, k.Owner, k.Name, k.CommitSHA, k.Kind)
}

// Prefix addresses everything stored for one repository.
func Prefix(provider, owner, name string) string {
	return fmt.Sprintf("%s/%s/%s", provider, owner, name)
}

// Store is the artifact storage contract.
type Store interface {
	// Put writes an object, replacing any existing one.
	Put(key Key, data []byte) error
	// PutIfAbsent writes an object only when it does not exist yet;
	// an existing object wins silently.
	PutIfAbsent(key Key, data []byte) error
	Get(key Key) ([]byte, error)
	Exists(key Key) (bool, error)
	// List returns the keys under a slash-path prefix, sorted.
	List(prefix string) ([]string, error)
	// DeletePrefix removes every object under a prefix.
	DeletePrefix(prefix string) error
}

// FilesystemStore implements Store under a local root directory using
// atomic temp-and-rename writes.
type FilesystemStore struct {
	root   string
	logger *slog.Logger
}

// NewFilesystemStore creates the store, making the root directory.
func NewFilesystemStore(root string, logger *slog.Logger) (*FilesystemStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &FilesystemStore{root: root, logger: logger}, nil
}

// Put writes an object, replacing any existing one.
func (s *FilesystemStore) Put(key Key, data []byte) error {
	return s.write(key, data, true)
}

// PutIfAbsent writes an object unless it already exists.
func (s *FilesystemStore) PutIfAbsent(key Key, data []byte) error {
	return s.write(key, data, false)
}

func (s *FilesystemStore) write(key Key, data []byte, overwrite bool) error {
	path, err := s.path(key.String())
	if err != nil {
		return err
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			s.logger.Debug("artifact exists, keeping existing object", slog.String("key", key.String()))
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}

	if !overwrite {
		// Rename is atomic but not create-only; re-check before the
		// swap so a concurrent writer's object wins.
		if _, err := os.Stat(path); err == nil {
			return nil
		}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("publish object: %w", err)
	}
	return nil
}

// Get returns an object's content.
func (s *FilesystemStore) Get(key Key) ([]byte, error) {
	path, err := s.path(key.String())
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Exists reports whether an object is stored.
func (s *FilesystemStore) Exists(key Key) (bool, error) {
	path, err := s.path(key.String())
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns all keys under a prefix, sorted.
func (s *FilesystemStore) List(prefix string) ([]string, error) {
	base, err := s.path(prefix)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

// DeletePrefix removes every object under a prefix.
func (s *FilesystemStore) DeletePrefix(prefix string) error {
	path, err := s.path(prefix)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete prefix %s: %w", prefix, err)
	}
	return nil
}

// path maps a key to a filesystem path, refusing traversal outside the
// root.
func (s *FilesystemStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

var _ Store = (*FilesystemStore)(nil)
