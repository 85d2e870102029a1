package indexing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/parsing"
)

const sample = `from auth import login

RATE_LIMIT = 10

class Handler(Base):
    async def process(self, item):
        login(item)

def run():
    pass
`

func indexSample(t *testing.T) []symbol.Symbol {
	t.Helper()

	parser := parsing.NewParser(1 << 20)
	parse, err := parser.Parse(context.Background(), "app/handler.py", []byte(sample))
	require.NoError(t, err)

	return NewIndexer(nil).IndexFile(uuid.New(), "abc123", parse)
}

func TestIndexFileSymbolTypes(t *testing.T) {
	symbols := indexSample(t)

	byType := make(map[symbol.Type][]symbol.Symbol)
	for _, s := range symbols {
		byType[s.SymbolType()] = append(byType[s.SymbolType()], s)
	}

	assert.Len(t, byType[symbol.TypeClass], 1)
	assert.Len(t, byType[symbol.TypeMethod], 1)
	assert.Len(t, byType[symbol.TypeFunction], 1)
	assert.Len(t, byType[symbol.TypeImport], 1)
	assert.Len(t, byType[symbol.TypeVariable], 1)
}

func TestIndexFileMethodParent(t *testing.T) {
	symbols := indexSample(t)

	var class, method symbol.Symbol
	for _, s := range symbols {
		switch s.SymbolType() {
		case symbol.TypeClass:
			class = s
		case symbol.TypeMethod:
			method = s
		}
	}

	assert.Equal(t, "Handler.process", method.QualifiedName())
	assert.Equal(t, "class", method.Scope())
	assert.Equal(t, class.ID(), method.ParentSymbolID())
	assert.Equal(t, "async process(self, item)", method.Signature())
	assert.True(t, method.IsAsync())
	assert.Equal(t, []string{"Base"}, class.BaseClasses())
}

func TestIndexFileDuplicateClassFirstWins(t *testing.T) {
	parse := parsing.FileParse{
		Path:     "app/models.py",
		Language: "python",
		Classes: []parsing.ClassDef{
			{Name: "Widget", StartLine: 1, EndLine: 5},
			{Name: "Widget", StartLine: 10, EndLine: 15},
		},
		Functions: []parsing.FunctionDef{
			{Name: "render", StartLine: 2, EndLine: 4, IsMethod: true, ParentClass: "Widget"},
		},
	}

	symbols := NewIndexer(nil).IndexFile(uuid.New(), "abc123", parse)

	var first, method symbol.Symbol
	for _, s := range symbols {
		switch {
		case s.SymbolType() == symbol.TypeClass && s.StartLine() == 1:
			first = s
		case s.SymbolType() == symbol.TypeMethod:
			method = s
		}
	}

	require.NotEqual(t, uuid.Nil, first.ID())
	assert.Equal(t, first.ID(), method.ParentSymbolID(), "first declared class keeps the lookup slot")
}

func TestIndexFileImportMetadata(t *testing.T) {
	symbols := indexSample(t)

	var imp symbol.Symbol
	for _, s := range symbols {
		if s.SymbolType() == symbol.TypeImport {
			imp = s
		}
	}

	assert.Equal(t, "auth", imp.Name())
	assert.Equal(t, "auth", imp.ImportModule())
	assert.Equal(t, []string{"login"}, imp.ImportedNames())
	assert.True(t, imp.IsFromImport())
}
