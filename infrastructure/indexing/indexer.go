// Package indexing turns parsed files into symbol records.
package indexing

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/parsing"
)

// Indexer converts parse results into symbols. Classes are indexed
// first so methods can resolve their parent symbol.
type Indexer struct {
	logger *slog.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{logger: logger}
}

// IndexFile builds the symbols for one parsed file.
func (i *Indexer) IndexFile(repoID uuid.UUID, commitSHA string, parse parsing.FileParse) []symbol.Symbol {
	symbols := make([]symbol.Symbol, 0,
		len(parse.Classes)+len(parse.Functions)+len(parse.Imports)+len(parse.Variables))

	classIDs := make(map[string]uuid.UUID, len(parse.Classes))

	for _, class := range parse.Classes {
		s := symbol.NewSymbol(repoID, commitSHA, class.Name, symbol.TypeClass,
			parse.Path, class.StartLine, class.EndLine).
			WithScope("global").
			WithMetadata(map[string]any{
				"language":     parse.Language,
				"base_classes": orEmpty(class.BaseClasses),
				"decorators":   orEmpty(class.Decorators),
			})
		// First declaration wins the parent lookup slot.
		if _, ok := classIDs[class.Name]; !ok {
			classIDs[class.Name] = s.ID()
		}
		symbols = append(symbols, s)
	}

	for _, fn := range parse.Functions {
		symbolType := symbol.TypeFunction
		scope := "global"
		qualifiedName := fn.Name
		if fn.IsMethod {
			symbolType = symbol.TypeMethod
			scope = "class"
		}

		s := symbol.NewSymbol(repoID, commitSHA, fn.Name, symbolType,
			parse.Path, fn.StartLine, fn.EndLine).
			WithScope(scope)

		if fn.ParentClass != "" {
			qualifiedName = fn.ParentClass + "." + fn.Name
			if parentID, ok := classIDs[fn.ParentClass]; ok {
				s = s.WithParent(parentID)
			}
		}
		s = s.WithQualifiedName(qualifiedName)

		if len(fn.Parameters) > 0 {
			s = s.WithSignature(renderSignature(fn))
		}

		s = s.WithMetadata(map[string]any{
			"language":   parse.Language,
			"is_async":   fn.IsAsync,
			"is_method":  fn.IsMethod,
			"parameters": orEmpty(fn.Parameters),
			"decorators": orEmpty(fn.Decorators),
		})
		symbols = append(symbols, s)
	}

	for _, imp := range parse.Imports {
		s := symbol.NewSymbol(repoID, commitSHA, imp.Module, symbol.TypeImport,
			parse.Path, imp.Line, imp.Line).
			WithScope("global").
			WithMetadata(map[string]any{
				"language":       parse.Language,
				"module":         imp.Module,
				"imported_names": orEmpty(imp.Names),
				"alias":          imp.Alias,
				"is_from_import": imp.FromImport,
			})
		symbols = append(symbols, s)
	}

	for _, v := range parse.Variables {
		s := symbol.NewSymbol(repoID, commitSHA, v.Name, symbol.TypeVariable,
			parse.Path, v.Line, v.Line).
			WithScope(v.Scope).
			WithMetadata(map[string]any{
				"language":    parse.Language,
				"is_constant": v.IsConstant,
			})
		symbols = append(symbols, s)
	}

	i.logger.Debug("indexed file",
		slog.String("path", parse.Path),
		slog.Int("symbols", len(symbols)),
	)

	return symbols
}

func renderSignature(fn parsing.FunctionDef) string {
	prefix := ""
	if fn.IsAsync {
		prefix = "async "
	}
	return fmt.Sprintf("%s%s(%s)", prefix, fn.Name, strings.Join(fn.Parameters, ", "))
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
