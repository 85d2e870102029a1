package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStaticQueries(t *testing.T) {
	router := NewRouter()

	tests := []struct {
		query    string
		intent   Intent
		entities []string
	}{
		{"Find all callers of authenticate", IntentFindCallers, []string{"authenticate"}},
		{"who calls validate_token", IntentFindCallers, []string{"validate_token"}},
		{"What does login call?", IntentFindCallees, []string{"login"}},
		{"show call path from handler to save", IntentFindCallPath, []string{"handler", "save"}},
		{"where is UserService defined", IntentFindSymbol, []string{"userservice"}},
		{"find function parse_config", IntentFindSymbol, []string{"function", "parse_config"}},
		{"list all functions", IntentListSymbols, []string{"functions"}},
		{"find functions reachable from main", IntentFindReachable, []string{"main"}},
		{"what imports auth.py", IntentFindImporters, []string{"auth.py"}},
	}

	for _, tt := range tests {
		c := router.Classify(tt.query)
		assert.Equal(t, TypeStatic, c.QueryType(), "query %q", tt.query)
		assert.Equal(t, tt.intent, c.Intent(), "query %q", tt.query)
		assert.Equal(t, tt.entities, c.Entities(), "query %q", tt.query)
		assert.InDelta(t, 0.9, c.Confidence(), 1e-9)
		assert.True(t, c.UseStaticAnalysis())
		assert.False(t, c.UseSemanticSearch())
	}
}

func TestClassifyHybridQueries(t *testing.T) {
	router := NewRouter()

	c := router.Classify("How does the auth system handle JWT tokens?")
	assert.Equal(t, TypeHybrid, c.QueryType())
	assert.Equal(t, IntentHybridAnalysis, c.Intent())
	assert.InDelta(t, 0.7, c.Confidence(), 1e-9)
	assert.True(t, c.UseStaticAnalysis())
	assert.True(t, c.UseSemanticSearch())

	c = router.Classify("Describe the request flow")
	assert.Equal(t, TypeHybrid, c.QueryType())
}

func TestClassifySemanticQueries(t *testing.T) {
	router := NewRouter()

	c := router.Classify("explain the caching strategy")
	assert.Equal(t, TypeSemantic, c.QueryType())
	assert.Equal(t, IntentSemanticSearch, c.Intent())
	assert.InDelta(t, 0.8, c.Confidence(), 1e-9)
	assert.False(t, c.UseStaticAnalysis())
	assert.True(t, c.UseSemanticSearch())
}

func TestClassifyDefaultsToHybrid(t *testing.T) {
	router := NewRouter()

	c := router.Classify("token refresh")
	assert.Equal(t, TypeHybrid, c.QueryType())
	assert.Equal(t, IntentGeneralQuery, c.Intent())
	assert.InDelta(t, 0.5, c.Confidence(), 1e-9)
}

func TestExtractEntities(t *testing.T) {
	entities := ExtractEntities(`How does "TokenStore" interact with refresh_token and the DB?`)

	assert.Contains(t, entities, "TokenStore")
	assert.Contains(t, entities, "refresh_token")
	assert.NotContains(t, entities, "the")
	assert.NotContains(t, entities, "DB") // two characters, too short
}

func TestExtractEntitiesDeduplicates(t *testing.T) {
	entities := ExtractEntities("authenticate calls authenticate again")

	count := 0
	for _, e := range entities {
		if e == "authenticate" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
