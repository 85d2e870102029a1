package git

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Directories never descended into during a source walk. These hold
// dependencies or build output, not first-party code.
var skippedDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	"venv":         {},
	".venv":        {},
	"__pycache__":  {},
	"dist":         {},
	"build":        {},
}

// SourceFile is one file discovered in a checkout.
type SourceFile struct {
	// Path relative to the checkout root, with forward slashes.
	Path string
	// AbsPath on the local filesystem.
	AbsPath string
	Size    int64
}

// WalkSource lists every regular file under root, skipping dependency
// and build directories and hidden directories. Results are ordered by
// path, which makes downstream artifacts reproducible.
func WalkSource(root string) ([]SourceFile, error) {
	var files []SourceFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if _, skip := skippedDirs[name]; skip {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		files = append(files, SourceFile{
			Path:    filepath.ToSlash(rel),
			AbsPath: path,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
