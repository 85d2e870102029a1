package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/codesense-ai/codesense/domain/query"
	"github.com/codesense-ai/codesense/domain/symbol"
)

// Traversal depth limits. Depth is a hard stop, not a minimality
// guarantee.
const (
	callersDepth   = 2
	calleesDepth   = 1
	reachableDepth = 10
	callPathDepth  = 10
)

const (
	maxSymbolResults = 10
	maxListedLines   = 50
)

// StaticEngine answers structural queries from the symbol graph,
// deterministically and without any model involvement.
type StaticEngine struct {
	symbols       symbol.Store
	relationships symbol.RelationshipStore
	logger        *slog.Logger
}

// NewStaticEngine creates the static query engine.
func NewStaticEngine(symbols symbol.Store, relationships symbol.RelationshipStore, logger *slog.Logger) *StaticEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticEngine{
		symbols:       symbols,
		relationships: relationships,
		logger:        logger,
	}
}

// Execute runs the classified intent against the snapshot. Unknown
// symbols produce success with an empty result and a textual "not
// found"; only store failures return an error.
func (e *StaticEngine) Execute(ctx context.Context, snap symbol.Snapshot, c query.Classification) (query.StaticResult, error) {
	switch c.Intent() {
	case query.IntentFindSymbol:
		return e.findSymbol(ctx, snap, c)
	case query.IntentListSymbols:
		return e.listSymbols(ctx, snap, c)
	case query.IntentFindCallers:
		return e.findCallers(ctx, snap, c)
	case query.IntentFindCallees:
		return e.findCallees(ctx, snap, c)
	case query.IntentFindCallPath:
		return e.findCallPath(ctx, snap, c)
	case query.IntentFindReachable:
		return e.findReachable(ctx, snap, c)
	case query.IntentFindImports:
		return e.findImports(ctx, snap, c)
	case query.IntentFindDependencies:
		return e.findDependencies(ctx, snap, c)
	case query.IntentFindImporters:
		return e.findImporters(ctx, snap, c)
	case query.IntentListEndpoints:
		return query.NewStaticResult(false, c.Intent(),
			"Endpoint detection is not supported", nil, 0), nil
	default:
		return query.NewStaticResult(false, c.Intent(),
			fmt.Sprintf("No handler for query type: %s", c.Intent()), nil, 0), nil
	}
}

func (e *StaticEngine) findSymbol(ctx context.Context, snap symbol.Snapshot, c query.Classification) (query.StaticResult, error) {
	name, ok := firstEntity(c)
	if !ok {
		return query.NewStaticResult(false, c.Intent(), "No symbol name provided", nil, 0), nil
	}

	symbols, err := e.symbols.FindByName(ctx, snap, name)
	if err != nil {
		return query.StaticResult{}, err
	}
	if len(symbols) == 0 {
		return query.NewStaticResult(true, c.Intent(),
			fmt.Sprintf("No symbol found matching '%s'", name), nil, 0), nil
	}
	if len(symbols) > maxSymbolResults {
		symbols = symbols[:maxSymbolResults]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d symbol(s) matching '%s':", len(symbols), name)
	for _, s := range symbols {
		fmt.Fprintf(&b, "\n  - %s `%s` at %s:%d", s.SymbolType(), s.QualifiedName(), s.FilePath(), s.StartLine())
	}
	return query.NewStaticResult(true, c.Intent(), b.String(), citations(symbols), len(symbols)), nil
}

func (e *StaticEngine) listSymbols(ctx context.Context, snap symbol.Snapshot, c query.Classification) (query.StaticResult, error) {
	symbolType := symbol.TypeFunction
	if name, ok := firstEntity(c); ok {
		switch strings.ToLower(strings.TrimSuffix(name, "s")) {
		case "class":
			symbolType = symbol.TypeClass
		case "method":
			symbolType = symbol.TypeMethod
		}
	}

	symbols, err := e.symbols.FindByType(ctx, snap, symbolType)
	if err != nil {
		return query.StaticResult{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s(s):", len(symbols), symbolType)
	for i, s := range symbols {
		if i == maxListedLines {
			fmt.Fprintf(&b, "\n  ... and %d more", len(symbols)-maxListedLines)
			break
		}
		fmt.Fprintf(&b, "\n  - `%s` (%s:%d)", s.QualifiedName(), s.FilePath(), s.StartLine())
	}
	return query.NewStaticResult(true, c.Intent(), b.String(), citations(symbols), len(symbols)), nil
}

func (e *StaticEngine) findCallers(ctx context.Context, snap symbol.Snapshot, c query.Classification) (query.StaticResult, error) {
	target, result, err := e.resolveEntity(ctx, snap, c, "function")
	if err != nil || result != nil {
		return deref(result), err
	}

	hops, err := e.relationships.Callers(ctx, snap, target.ID(), callersDepth)
	if err != nil {
		return query.StaticResult{}, err
	}
	if len(hops) == 0 {
		return query.NewStaticResult(true, c.Intent(),
			fmt.Sprintf("No callers found for `%s`", target.QualifiedName()), nil, 0), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d caller(s) of `%s`:", len(hops), target.QualifiedName())
	for _, hop := range hops {
		fmt.Fprintf(&b, "\n  - `%s` (%s:%d)", hop.Symbol.QualifiedName(), hop.Symbol.FilePath(), hop.Symbol.StartLine())
	}
	return query.NewStaticResult(true, c.Intent(), b.String(), hopCitations(hops), len(hops)), nil
}

func (e *StaticEngine) findCallees(ctx context.Context, snap symbol.Snapshot, c query.Classification) (query.StaticResult, error) {
	source, result, err := e.resolveEntity(ctx, snap, c, "function")
	if err != nil || result != nil {
		return deref(result), err
	}

	hops, err := e.relationships.Callees(ctx, snap, source.ID(), calleesDepth)
	if err != nil {
		return query.StaticResult{}, err
	}
	if len(hops) == 0 {
		return query.NewStaticResult(true, c.Intent(),
			fmt.Sprintf("`%s` does not call any indexed functions", source.QualifiedName()), nil, 0), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "`%s` calls %d function(s):", source.QualifiedName(), len(hops))
	for _, hop := range hops {
		fmt.Fprintf(&b, "\n  - `%s` (%s:%d)", hop.Symbol.QualifiedName(), hop.Symbol.FilePath(), hop.Symbol.StartLine())
	}
	return query.NewStaticResult(true, c.Intent(), b.String(), hopCitations(hops), len(hops)), nil
}

func (e *StaticEngine) findCallPath(ctx context.Context, snap symbol.Snapshot, c query.Classification) (query.StaticResult, error) {
	entities := c.Entities()
	if len(entities) < 2 {
		return query.NewStaticResult(false, c.Intent(),
			"Need both source and target function names", nil, 0), nil
	}

	from, err := e.lookupOne(ctx, snap, entities[0])
	if err != nil {
		return query.StaticResult{}, err
	}
	to, err := e.lookupOne(ctx, snap, entities[1])
	if err != nil {
		return query.StaticResult{}, err
	}
	if from == nil || to == nil {
		return query.NewStaticResult(true, c.Intent(),
			fmt.Sprintf("One or both functions not found: '%s', '%s'", entities[0], entities[1]), nil, 0), nil
	}

	path, err := e.relationships.CallPath(ctx, snap, from.ID(), to.ID(), callPathDepth)
	if err != nil {
		return query.StaticResult{}, err
	}
	if len(path) == 0 {
		return query.NewStaticResult(true, c.Intent(),
			fmt.Sprintf("No call path found between '%s' and '%s'", from.QualifiedName(), to.QualifiedName()), nil, 0), nil
	}

	names := make([]string, len(path))
	for i, s := range path {
		names[i] = s.QualifiedName()
	}
	answer := fmt.Sprintf("Call path (%d steps):\n  %s", len(path), strings.Join(names, " -> "))
	return query.NewStaticResult(true, c.Intent(), answer, citations(path), len(path)), nil
}

func (e *StaticEngine) findReachable(ctx context.Context, snap symbol.Snapshot, c query.Classification) (query.StaticResult, error) {
	source, result, err := e.resolveEntity(ctx, snap, c, "function")
	if err != nil || result != nil {
		return deref(result), err
	}

	hops, err := e.relationships.Reachable(ctx, snap, source.ID(), reachableDepth)
	if err != nil {
		return query.StaticResult{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Functions reachable from `%s`: %d", source.QualifiedName(), len(hops))
	for i, hop := range hops {
		if i == maxListedLines {
			fmt.Fprintf(&b, "\n  ... and %d more", len(hops)-maxListedLines)
			break
		}
		fmt.Fprintf(&b, "\n  - `%s` (%s)", hop.Symbol.QualifiedName(), hop.Symbol.FilePath())
	}
	return query.NewStaticResult(true, c.Intent(), b.String(), hopCitations(hops), len(hops)), nil
}

// findImports lists the import declarations of a file.
func (e *StaticEngine) findImports(ctx context.Context, snap symbol.Snapshot, c query.Classification) (query.StaticResult, error) {
	file, ok := firstEntity(c)
	if !ok {
		return query.NewStaticResult(false, c.Intent(), "No file path provided", nil, 0), nil
	}

	symbols, err := e.symbols.FindInFile(ctx, snap, file)
	if err != nil {
		return query.StaticResult{}, err
	}

	var imports []symbol.Symbol
	for _, s := range symbols {
		if s.SymbolType() == symbol.TypeImport {
			imports = append(imports, s)
		}
	}
	if len(imports) == 0 {
		return query.NewStaticResult(true, c.Intent(),
			fmt.Sprintf("No imports found in '%s'", file), nil, 0), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "'%s' imports %d module(s):", file, len(imports))
	for _, s := range imports {
		module := s.ImportModule()
		if module == "" {
			module = s.Name()
		}
		fmt.Fprintf(&b, "\n  - %s (line %d)", module, s.StartLine())
	}
	return query.NewStaticResult(true, c.Intent(), b.String(), citations(imports), len(imports)), nil
}

// findDependencies lists the files a file's imports resolve to.
func (e *StaticEngine) findDependencies(ctx context.Context, snap symbol.Snapshot, c query.Classification) (query.StaticResult, error) {
	file, ok := firstEntity(c)
	if !ok {
		return query.NewStaticResult(false, c.Intent(), "No file path provided", nil, 0), nil
	}

	edges, err := e.relationships.FindByType(ctx, snap, symbol.RelImports)
	if err != nil {
		return query.StaticResult{}, err
	}

	files := make(map[string]struct{})
	for _, edge := range edges {
		if edge.FilePath() != file {
			continue
		}
		target, err := e.symbols.Get(ctx, edge.TargetID())
		if err != nil {
			continue
		}
		files[target.FilePath()] = struct{}{}
	}
	if len(files) == 0 {
		return query.NewStaticResult(true, c.Intent(),
			fmt.Sprintf("No resolved dependencies found for '%s'", file), nil, 0), nil
	}

	answer := fmt.Sprintf("'%s' depends on %d file(s):", file, len(files))
	for _, dep := range sortedKeys(files) {
		answer += "\n  - " + dep
	}
	return query.NewStaticResult(true, c.Intent(), answer, nil, len(files)), nil
}

// findImporters lists the files whose imports resolve into a file.
func (e *StaticEngine) findImporters(ctx context.Context, snap symbol.Snapshot, c query.Classification) (query.StaticResult, error) {
	file, ok := firstEntity(c)
	if !ok {
		return query.NewStaticResult(false, c.Intent(), "No file path provided", nil, 0), nil
	}

	edges, err := e.relationships.FindByType(ctx, snap, symbol.RelImports)
	if err != nil {
		return query.StaticResult{}, err
	}

	files := make(map[string]struct{})
	for _, edge := range edges {
		target, err := e.symbols.Get(ctx, edge.TargetID())
		if err != nil || target.FilePath() != file {
			continue
		}
		files[edge.FilePath()] = struct{}{}
	}
	if len(files) == 0 {
		return query.NewStaticResult(true, c.Intent(),
			fmt.Sprintf("No files import '%s'", file), nil, 0), nil
	}

	answer := fmt.Sprintf("%d file(s) import '%s':", len(files), file)
	for _, importer := range sortedKeys(files) {
		answer += "\n  - " + importer
	}
	return query.NewStaticResult(true, c.Intent(), answer, nil, len(files)), nil
}

// resolveEntity looks up the first entity as a symbol. When the lookup
// resolves nothing, the returned result carries the "not found" answer.
func (e *StaticEngine) resolveEntity(ctx context.Context, snap symbol.Snapshot, c query.Classification, kind string) (symbol.Symbol, *query.StaticResult, error) {
	name, ok := firstEntity(c)
	if !ok {
		r := query.NewStaticResult(false, c.Intent(), fmt.Sprintf("No %s name provided", kind), nil, 0)
		return symbol.Symbol{}, &r, nil
	}

	found, err := e.lookupOne(ctx, snap, name)
	if err != nil {
		return symbol.Symbol{}, nil, err
	}
	if found == nil {
		r := query.NewStaticResult(true, c.Intent(),
			fmt.Sprintf("Function '%s' not found", name), nil, 0)
		return symbol.Symbol{}, &r, nil
	}
	return *found, nil, nil
}

func (e *StaticEngine) lookupOne(ctx context.Context, snap symbol.Snapshot, name string) (*symbol.Symbol, error) {
	symbols, err := e.symbols.FindByName(ctx, snap, name)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, nil
	}
	return &symbols[0], nil
}

func firstEntity(c query.Classification) (string, bool) {
	entities := c.Entities()
	if len(entities) == 0 {
		return "", false
	}
	return entities[0], true
}

func deref(r *query.StaticResult) query.StaticResult {
	if r == nil {
		return query.StaticResult{}
	}
	return *r
}

func citations(symbols []symbol.Symbol) []query.Citation {
	cites := make([]query.Citation, len(symbols))
	for i, s := range symbols {
		cites[i] = query.Citation{
			FilePath:  s.FilePath(),
			StartLine: s.StartLine(),
			EndLine:   s.EndLine(),
		}
	}
	return cites
}

func hopCitations(hops []symbol.Hop) []query.Citation {
	cites := make([]query.Citation, len(hops))
	for i, hop := range hops {
		cites[i] = query.Citation{
			FilePath:  hop.Symbol.FilePath(),
			StartLine: hop.Symbol.StartLine(),
			EndLine:   hop.Symbol.EndLine(),
		}
	}
	return cites
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
