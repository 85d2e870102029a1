package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/codesense/application/service"
	"github.com/codesense-ai/codesense/domain/query"
	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/persistence"
	"github.com/codesense-ai/codesense/internal/testdb"
)

type staticFixture struct {
	engine *service.StaticEngine
	snap   symbol.Snapshot
}

// seedStaticGraph indexes a small project:
//
//	app.py:   main -> process; imports utils
//	utils.py: process -> log_line
func seedStaticGraph(t *testing.T) staticFixture {
	t.Helper()
	ctx := context.Background()
	db := testdb.New(t)
	symbols := persistence.NewSymbolStore(db)
	relationships := persistence.NewRelationshipStore(db)

	repoID := uuid.New()
	commit := "abc123"
	snap := symbol.Snapshot{RepoID: repoID, CommitSHA: commit}

	mainFn := symbol.NewSymbol(repoID, commit, "main", symbol.TypeFunction, "app.py", 10, 20).
		WithQualifiedName("app.main")
	process := symbol.NewSymbol(repoID, commit, "process", symbol.TypeFunction, "utils.py", 5, 15).
		WithQualifiedName("utils.process")
	logLine := symbol.NewSymbol(repoID, commit, "log_line", symbol.TypeFunction, "utils.py", 20, 25).
		WithQualifiedName("utils.log_line")
	utilsImport := symbol.NewSymbol(repoID, commit, "utils", symbol.TypeImport, "app.py", 1, 1).
		WithQualifiedName("utils").
		WithMetadata(map[string]any{"module": "utils"})

	require.NoError(t, symbols.SaveBatch(ctx, []symbol.Symbol{mainFn, process, logLine, utilsImport}))
	require.NoError(t, relationships.SaveBatch(ctx, []symbol.Relationship{
		symbol.NewRelationship(repoID, commit, mainFn.ID(), process.ID(), symbol.RelCalls, "app.py", 12),
		symbol.NewRelationship(repoID, commit, process.ID(), logLine.ID(), symbol.RelCalls, "utils.py", 8),
		symbol.NewRelationship(repoID, commit, utilsImport.ID(), process.ID(), symbol.RelImports, "app.py", 1),
	}))

	return staticFixture{
		engine: service.NewStaticEngine(symbols, relationships, nil),
		snap:   snap,
	}
}

func classify(intent query.Intent, entities ...string) query.Classification {
	return query.NewClassification(query.TypeStatic, intent, entities, 0.9)
}

func TestStaticEngine_FindSymbol(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindSymbol, "process"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 1, result.Count())
	assert.Contains(t, result.Answer(), "Found 1 symbol(s) matching 'process':")
	assert.Contains(t, result.Answer(), "`utils.process` at utils.py:5")
	require.Len(t, result.Citations(), 1)
	assert.Equal(t, "utils.py", result.Citations()[0].FilePath)
}

func TestStaticEngine_FindSymbolNotFound(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindSymbol, "nonexistent_thing"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "No symbol found matching 'nonexistent_thing'", result.Answer())
	assert.Equal(t, 0, result.Count())
}

func TestStaticEngine_ListSymbols(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentListSymbols, "functions"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 3, result.Count())
	assert.Contains(t, result.Answer(), "Found 3 function(s):")
}

func TestStaticEngine_FindCallers(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindCallers, "log_line"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 2, result.Count())
	assert.Contains(t, result.Answer(), "Found 2 caller(s) of `utils.log_line`:")
	assert.Contains(t, result.Answer(), "`utils.process`")
	assert.Contains(t, result.Answer(), "`app.main`")
}

func TestStaticEngine_FindCallersOfRoot(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindCallers, "main"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "No callers found for `app.main`", result.Answer())
}

func TestStaticEngine_FindCallees(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindCallees, "main"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 1, result.Count())
	assert.Contains(t, result.Answer(), "`app.main` calls 1 function(s):")
	assert.Contains(t, result.Answer(), "`utils.process`")
	// Depth one: the transitive callee log_line is not listed.
	assert.NotContains(t, result.Answer(), "log_line")
}

func TestStaticEngine_FindCallPath(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindCallPath, "main", "log_line"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 3, result.Count())
	assert.Contains(t, result.Answer(), "Call path (3 steps):")
	assert.Contains(t, result.Answer(), "app.main -> utils.process -> utils.log_line")
}

func TestStaticEngine_FindCallPathNone(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindCallPath, "log_line", "main"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "No call path found between 'utils.log_line' and 'app.main'", result.Answer())
}

func TestStaticEngine_FindCallPathMissingEntity(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindCallPath, "main"))
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, "Need both source and target function names", result.Answer())
}

func TestStaticEngine_FindReachable(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindReachable, "main"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 3, result.Count())
	assert.Contains(t, result.Answer(), "Functions reachable from `app.main`: 3")
	assert.Contains(t, result.Answer(), "`app.main`")
}

func TestStaticEngine_UnknownFunction(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindCallers, "ghostless_qqq"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "Function 'ghostless_qqq' not found", result.Answer())
}

func TestStaticEngine_FindImports(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindImports, "app.py"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Contains(t, result.Answer(), "'app.py' imports 1 module(s):")
	assert.Contains(t, result.Answer(), "utils (line 1)")
}

func TestStaticEngine_FindDependencies(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindDependencies, "app.py"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Contains(t, result.Answer(), "'app.py' depends on 1 file(s):")
	assert.Contains(t, result.Answer(), "utils.py")
}

func TestStaticEngine_FindImporters(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentFindImporters, "utils.py"))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Contains(t, result.Answer(), "1 file(s) import 'utils.py':")
	assert.Contains(t, result.Answer(), "app.py")
}

func TestStaticEngine_ListEndpointsUnsupported(t *testing.T) {
	ctx := context.Background()
	fx := seedStaticGraph(t)

	result, err := fx.engine.Execute(ctx, fx.snap, classify(query.IntentListEndpoints))
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, "Endpoint detection is not supported", result.Answer())
}
