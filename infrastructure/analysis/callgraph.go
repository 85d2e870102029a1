package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/parsing"
)

// FileReader loads a file's content by repo-relative path.
type FileReader func(path string) ([]byte, error)

// CallGraphBuilder re-parses each file and turns call expressions and
// class bases into calls / inherits relationships.
type CallGraphBuilder struct {
	parser *parsing.Parser
	walker parsing.Walker
	logger *slog.Logger
}

// NewCallGraphBuilder creates a CallGraphBuilder sharing the ingestion
// parser.
func NewCallGraphBuilder(parser *parsing.Parser, logger *slog.Logger) *CallGraphBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallGraphBuilder{
		parser: parser,
		walker: parsing.NewWalker(),
		logger: logger,
	}
}

// Stats summarises the edges produced by one build.
type Stats struct {
	Calls    int
	Inherits int
	Files    int
}

// Build produces call and inheritance relationships for a snapshot.
func (b *CallGraphBuilder) Build(
	ctx context.Context,
	symbols []symbol.Symbol,
	imports ImportGraph,
	readFile FileReader,
) ([]symbol.Relationship, Stats, error) {
	byFile := make(map[string][]symbol.Symbol)
	for _, s := range symbols {
		byFile[s.FilePath()] = append(byFile[s.FilePath()], s)
	}

	resolver := newSymbolResolver(symbols, imports)

	var relationships []symbol.Relationship
	var stats Stats

	for filePath, fileSymbols := range byFile {
		select {
		case <-ctx.Done():
			return nil, stats, ctx.Err()
		default:
		}

		fileEdges, err := b.analyzeFile(ctx, filePath, fileSymbols, resolver, readFile)
		if err != nil {
			b.logger.Debug("call analysis skipped file",
				slog.String("path", filePath),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, rel := range fileEdges {
			switch rel.RelType() {
			case symbol.RelCalls:
				stats.Calls++
			case symbol.RelInherits:
				stats.Inherits++
			}
		}
		relationships = append(relationships, fileEdges...)
		stats.Files++
	}

	return relationships, stats, nil
}

func (b *CallGraphBuilder) analyzeFile(
	ctx context.Context,
	filePath string,
	fileSymbols []symbol.Symbol,
	resolver *symbolResolver,
	readFile FileReader,
) ([]symbol.Relationship, error) {
	var relationships []symbol.Relationship

	// Inheritance needs no AST: bases were captured at parse time.
	for _, s := range fileSymbols {
		if s.SymbolType() != symbol.TypeClass {
			continue
		}
		for _, base := range s.BaseClasses() {
			target, ok := resolver.resolve(base, filePath)
			if !ok {
				continue
			}
			relationships = append(relationships, symbol.NewRelationship(
				s.RepoID(), s.CommitSHA(),
				s.ID(), target.ID(),
				symbol.RelInherits, filePath, s.StartLine(),
			))
		}
	}

	callables := make([]symbol.Symbol, 0, len(fileSymbols))
	for _, s := range fileSymbols {
		if s.SymbolType() == symbol.TypeFunction || s.SymbolType() == symbol.TypeMethod {
			callables = append(callables, s)
		}
	}
	if len(callables) == 0 {
		return relationships, nil
	}

	langName := b.parser.DetectLanguage(filePath)
	lang, ok := b.parser.LanguageByName(langName)
	if !ok {
		return relationships, nil
	}

	content, err := readFile(filePath)
	if err != nil {
		return relationships, fmt.Errorf("read %s: %w", filePath, err)
	}

	tree, err := b.parser.ParseTree(ctx, lang, content)
	if err != nil {
		return relationships, fmt.Errorf("parse %s: %w", filePath, err)
	}
	defer tree.Close()

	defTypes := append(append([]string{}, lang.Nodes().FunctionNodes()...), lang.Nodes().MethodNodes()...)

	for _, fn := range callables {
		node := b.findDefinitionNode(tree.RootNode(), defTypes, fn.StartLine(), fn.EndLine())
		if node == nil {
			continue
		}

		for _, callNode := range b.walker.CollectDescendants(node, lang.Nodes().CallNode()) {
			callee := b.calleeName(callNode, content)
			if callee == "" {
				continue
			}
			target, ok := resolver.resolve(callee, filePath)
			if !ok {
				continue
			}
			// Recursive calls stay out of the graph.
			if target.ID() == fn.ID() {
				continue
			}
			relationships = append(relationships, symbol.NewRelationship(
				fn.RepoID(), fn.CommitSHA(),
				fn.ID(), target.ID(),
				symbol.RelCalls, filePath, b.walker.StartLine(callNode),
			))
		}
	}

	return relationships, nil
}

// findDefinitionNode locates the definition whose line span matches the
// symbol exactly.
func (b *CallGraphBuilder) findDefinitionNode(root *sitter.Node, defTypes []string, startLine, endLine int) *sitter.Node {
	var found *sitter.Node
	typeSet := make(map[string]struct{}, len(defTypes))
	for _, t := range defTypes {
		typeSet[t] = struct{}{}
	}

	b.walker.Walk(root, func(node *sitter.Node) bool {
		if found != nil {
			return false
		}
		if _, ok := typeSet[node.Type()]; ok {
			if b.walker.StartLine(node) == startLine && b.walker.EndLine(node) == endLine {
				found = node
				return false
			}
		}
		return true
	})

	return found
}

// calleeName extracts the called name; obj.method() resolves to the
// bare method name.
func (b *CallGraphBuilder) calleeName(callNode *sitter.Node, source []byte) string {
	fnNode := callNode.ChildByFieldName("function")
	if fnNode == nil {
		fnNode = callNode.ChildByFieldName("name")
	}
	if fnNode == nil {
		return ""
	}
	name := b.walker.NodeText(fnNode, source)
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

// symbolResolver answers "which definition does this name refer to from
// this file": same file first, then resolved imports, then a global
// name match.
type symbolResolver struct {
	byFileAndName map[string]symbol.Symbol
	imports       ImportGraph
	global        []symbol.Symbol
}

func newSymbolResolver(symbols []symbol.Symbol, imports ImportGraph) *symbolResolver {
	r := &symbolResolver{
		byFileAndName: make(map[string]symbol.Symbol, len(symbols)),
		imports:       imports,
		global:        symbols,
	}
	for _, s := range symbols {
		if s.SymbolType() == symbol.TypeImport {
			continue
		}
		key := s.FilePath() + "::" + s.QualifiedName()
		r.byFileAndName[key] = s
		simple := s.FilePath() + "::" + s.Name()
		if _, ok := r.byFileAndName[simple]; !ok {
			r.byFileAndName[simple] = s
		}
	}
	return r
}

func (r *symbolResolver) resolve(name, currentFile string) (symbol.Symbol, bool) {
	if s, ok := r.byFileAndName[currentFile+"::"+name]; ok {
		return s, true
	}
	if fileImports, ok := r.imports[currentFile]; ok {
		if s, ok := fileImports[name]; ok {
			return s, true
		}
	}
	for _, s := range r.global {
		if s.SymbolType() == symbol.TypeImport {
			continue
		}
		if s.Name() == name || s.QualifiedName() == name {
			return s, true
		}
	}
	return symbol.Symbol{}, false
}
