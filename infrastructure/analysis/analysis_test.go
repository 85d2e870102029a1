package analysis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/indexing"
	"github.com/codesense-ai/codesense/infrastructure/parsing"
)

var fixture = map[string]string{
	"auth.py": `def login(user):
    return check(user)

def check(user):
    return True
`,
	"api.py": `from auth import login

class ApiHandler(BaseHandler):
    def handle(self, request):
        login(request.user)

class BaseHandler:
    pass
`,
	"services/worker.py": `from ..auth import login

def process():
    login(None)
`,
}

func indexFixture(t *testing.T) []symbol.Symbol {
	t.Helper()

	parser := parsing.NewParser(1 << 20)
	indexer := indexing.NewIndexer(nil)
	repoID := uuid.New()

	var symbols []symbol.Symbol
	for path, content := range fixture {
		parse, err := parser.Parse(context.Background(), path, []byte(content))
		require.NoError(t, err)
		symbols = append(symbols, indexer.IndexFile(repoID, "abc123", parse)...)
	}
	return symbols
}

func findSym(symbols []symbol.Symbol, file, qualified string) symbol.Symbol {
	for _, s := range symbols {
		if s.FilePath() == file && s.QualifiedName() == qualified {
			return s
		}
	}
	return symbol.Symbol{}
}

func TestImportResolverCrossFile(t *testing.T) {
	symbols := indexFixture(t)

	graph, rels := NewImportResolver(nil).Resolve(symbols)

	login := findSym(symbols, "auth.py", "login")
	require.NotEqual(t, uuid.Nil, login.ID())

	resolved, ok := graph["api.py"]["login"]
	require.True(t, ok, "api.py must resolve login to auth.py")
	assert.Equal(t, login.ID(), resolved.ID())

	var found bool
	for _, rel := range rels {
		if rel.TargetID() == login.ID() && rel.RelType() == symbol.RelImports {
			found = true
		}
	}
	assert.True(t, found, "imports relationship to auth.login expected")
}

func TestImportResolverRelative(t *testing.T) {
	symbols := indexFixture(t)

	graph, _ := NewImportResolver(nil).Resolve(symbols)

	login := findSym(symbols, "auth.py", "login")
	resolved, ok := graph["services/worker.py"]["login"]
	require.True(t, ok, "relative import ..auth must ascend to the repo root")
	assert.Equal(t, login.ID(), resolved.ID())
}

func TestImportResolverSkipsExternal(t *testing.T) {
	parser := parsing.NewParser(1 << 20)
	parse, err := parser.Parse(context.Background(), "main.js", []byte(`import axios from 'axios';
import { helper } from './util';
`))
	require.NoError(t, err)

	symbols := indexing.NewIndexer(nil).IndexFile(uuid.New(), "sha", parse)
	graph, rels := NewImportResolver(nil).Resolve(symbols)

	assert.Empty(t, graph["main.js"])
	assert.Empty(t, rels)
}

func TestCallGraphBuilder(t *testing.T) {
	symbols := indexFixture(t)
	parser := parsing.NewParser(1 << 20)

	graph, _ := NewImportResolver(nil).Resolve(symbols)

	readFile := func(path string) ([]byte, error) {
		content, ok := fixture[path]
		if !ok {
			return nil, os.ErrNotExist
		}
		return []byte(content), nil
	}

	rels, stats, err := NewCallGraphBuilder(parser, nil).Build(context.Background(), symbols, graph, readFile)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Files)

	login := findSym(symbols, "auth.py", "login")
	check := findSym(symbols, "auth.py", "check")
	handle := findSym(symbols, "api.py", "ApiHandler.handle")
	process := findSym(symbols, "services/worker.py", "process")
	apiHandler := findSym(symbols, "api.py", "ApiHandler")
	baseHandler := findSym(symbols, "api.py", "BaseHandler")

	hasEdge := func(source, target uuid.UUID, relType symbol.RelationshipType) bool {
		for _, rel := range rels {
			if rel.SourceID() == source && rel.TargetID() == target && rel.RelType() == relType {
				return true
			}
		}
		return false
	}

	assert.True(t, hasEdge(login.ID(), check.ID(), symbol.RelCalls), "login → check same-file call")
	assert.True(t, hasEdge(handle.ID(), login.ID(), symbol.RelCalls), "handle → login via import")
	assert.True(t, hasEdge(process.ID(), login.ID(), symbol.RelCalls), "process → login via relative import")
	assert.True(t, hasEdge(apiHandler.ID(), baseHandler.ID(), symbol.RelInherits), "ApiHandler inherits BaseHandler")
	assert.GreaterOrEqual(t, stats.Calls, 3)
	assert.Equal(t, 1, stats.Inherits)
}

func TestCallGraphBuilderSkipsRecursion(t *testing.T) {
	source := map[string]string{
		"math.py": `def fact(n):
    if n <= 1:
        return 1
    return n * fact(n - 1)

def run():
    return fact(5)
`,
	}

	parser := parsing.NewParser(1 << 20)
	indexer := indexing.NewIndexer(nil)
	repoID := uuid.New()

	var symbols []symbol.Symbol
	for path, content := range source {
		parse, err := parser.Parse(context.Background(), path, []byte(content))
		require.NoError(t, err)
		symbols = append(symbols, indexer.IndexFile(repoID, "abc123", parse)...)
	}

	graph, _ := NewImportResolver(nil).Resolve(symbols)
	readFile := func(path string) ([]byte, error) {
		return []byte(source[path]), nil
	}

	rels, stats, err := NewCallGraphBuilder(parser, nil).Build(context.Background(), symbols, graph, readFile)
	require.NoError(t, err)

	fact := findSym(symbols, "math.py", "fact")
	run := findSym(symbols, "math.py", "run")

	for _, rel := range rels {
		if rel.RelType() == symbol.RelCalls {
			assert.NotEqual(t, rel.SourceID(), rel.TargetID(), "recursive call must not become an edge")
		}
	}

	var runToFact bool
	for _, rel := range rels {
		if rel.SourceID() == run.ID() && rel.TargetID() == fact.ID() && rel.RelType() == symbol.RelCalls {
			runToFact = true
		}
	}
	assert.True(t, runToFact, "run → fact call expected")
	assert.Equal(t, 1, stats.Calls)
}
