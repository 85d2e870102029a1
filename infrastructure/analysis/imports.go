// Package analysis builds cross-file relationships: import resolution,
// call graph edges and inheritance edges.
package analysis

import (
	"log/slog"
	"path"
	"strings"

	"github.com/codesense-ai/codesense/domain/symbol"
)

// ImportResolver maps imported names in each file to the symbols that
// define them in other files of the same snapshot.
type ImportResolver struct {
	logger *slog.Logger
}

// NewImportResolver creates an ImportResolver.
func NewImportResolver(logger *slog.Logger) *ImportResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportResolver{logger: logger}
}

// ImportGraph is the resolution result: file path → local name →
// defining symbol.
type ImportGraph map[string]map[string]symbol.Symbol

// Resolve builds the import graph and the imports relationships for a
// snapshot's symbols.
func (r *ImportResolver) Resolve(symbols []symbol.Symbol) (ImportGraph, []symbol.Relationship) {
	byFile := make(map[string][]symbol.Symbol)
	fileExists := make(map[string]struct{})
	for _, s := range symbols {
		byFile[s.FilePath()] = append(byFile[s.FilePath()], s)
		fileExists[s.FilePath()] = struct{}{}
	}

	graph := make(ImportGraph, len(byFile))
	var relationships []symbol.Relationship

	for filePath, fileSymbols := range byFile {
		resolved := make(map[string]symbol.Symbol)

		for _, imp := range fileSymbols {
			if imp.SymbolType() != symbol.TypeImport {
				continue
			}

			targetFile := r.moduleToFile(imp.ImportModule(), filePath, imp.Language(), fileExists)
			if targetFile == "" {
				continue
			}
			targetSymbols, ok := byFile[targetFile]
			if !ok {
				continue
			}

			names := imp.ImportedNames()
			if !imp.IsFromImport() || len(names) == 0 {
				// Bare module import: record the file-level dependency
				// against the module's first symbol.
				if len(targetSymbols) > 0 {
					relationships = append(relationships, symbol.NewRelationship(
						imp.RepoID(), imp.CommitSHA(),
						imp.ID(), targetSymbols[0].ID(),
						symbol.RelImports, filePath, imp.StartLine(),
					))
				}
				continue
			}

			for _, name := range names {
				target, found := findSymbolByName(name, targetSymbols)
				if !found {
					r.logger.Debug("imported name not found",
						slog.String("name", name),
						slog.String("target", targetFile),
					)
					continue
				}
				resolved[name] = target
				relationships = append(relationships, symbol.NewRelationship(
					imp.RepoID(), imp.CommitSHA(),
					imp.ID(), target.ID(),
					symbol.RelImports, filePath, imp.StartLine(),
				))
			}
		}

		graph[filePath] = resolved
	}

	return graph, relationships
}

// moduleToFile resolves a module specifier to a repo-relative file path,
// or "" for externals and misses.
func (r *ImportResolver) moduleToFile(module, currentFile, language string, fileExists map[string]struct{}) string {
	switch language {
	case "python":
		return resolvePythonModule(module, currentFile, fileExists)
	case "javascript", "typescript", "tsx":
		return resolveJSModule(module, currentFile, fileExists)
	default:
		return ""
	}
}

func resolvePythonModule(module, currentFile string, fileExists map[string]struct{}) string {
	if strings.HasPrefix(module, ".") {
		return resolvePythonRelative(module, currentFile, fileExists)
	}

	base := strings.ReplaceAll(module, ".", "/")
	for _, candidate := range []string{base + ".py", base + "/__init__.py"} {
		if _, ok := fileExists[candidate]; ok {
			return candidate
		}
	}
	return ""
}

// resolvePythonRelative handles "from ..utils import x": one dot is the
// current package, each further dot ascends one directory.
func resolvePythonRelative(module, currentFile string, fileExists map[string]struct{}) string {
	dir := path.Dir(currentFile)

	level := 0
	for level < len(module) && module[level] == '.' {
		level++
	}
	for i := 0; i < level-1; i++ {
		dir = path.Dir(dir)
	}
	if dir == "." {
		dir = ""
	}

	remaining := module[level:]
	if remaining == "" {
		candidate := path.Join(dir, "__init__.py")
		if _, ok := fileExists[candidate]; ok {
			return candidate
		}
		return ""
	}

	base := path.Join(dir, strings.ReplaceAll(remaining, ".", "/"))
	for _, candidate := range []string{base + ".py", base + "/__init__.py"} {
		if _, ok := fileExists[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func resolveJSModule(module, currentFile string, fileExists map[string]struct{}) string {
	// Non-relative specifiers are external packages.
	if !strings.HasPrefix(module, ".") {
		return ""
	}

	base := path.Clean(path.Join(path.Dir(currentFile), module))
	for _, ext := range []string{".js", ".ts", ".tsx", ".jsx", "/index.js", "/index.ts"} {
		candidate := base + ext
		if _, ok := fileExists[candidate]; ok {
			return candidate
		}
	}
	return ""
}

// findSymbolByName tries exact name match first, then a qualified-name
// suffix match for class members.
func findSymbolByName(name string, symbols []symbol.Symbol) (symbol.Symbol, bool) {
	for _, s := range symbols {
		if s.Name() == name {
			return s, true
		}
	}
	for _, s := range symbols {
		if strings.HasSuffix(s.QualifiedName(), "."+name) {
			return s, true
		}
	}
	return symbol.Symbol{}, false
}
