// Package query defines query classification and result types for the
// hybrid query engine.
package query

// Type classifies a query by how it should be answered.
type Type string

// Query types.
const (
	// TypeStatic is a structural query answered from the symbol graph alone.
	TypeStatic Type = "static"
	// TypeSemantic is a conceptual question answered with retrieval + generation.
	TypeSemantic Type = "semantic"
	// TypeHybrid needs both structural facts and semantic understanding.
	TypeHybrid Type = "hybrid"
)

// Intent names the specific operation a static query maps to.
type Intent string

// Static intents.
const (
	IntentFindSymbol       Intent = "find_symbol"
	IntentListSymbols      Intent = "list_symbols"
	IntentFindCallers      Intent = "find_callers"
	IntentFindCallees      Intent = "find_callees"
	IntentFindCallPath     Intent = "find_call_path"
	IntentFindReachable    Intent = "find_reachable"
	IntentFindImports      Intent = "find_imports"
	IntentFindDependencies Intent = "find_dependencies"
	IntentFindImporters    Intent = "find_importers"
	IntentDetectCircular   Intent = "detect_circular"
	IntentListEndpoints    Intent = "list_endpoints"

	// Non-static intents.
	IntentHybridAnalysis Intent = "hybrid_analysis"
	IntentSemanticSearch Intent = "semantic_search"
	IntentGeneralQuery   Intent = "general_query"
)

// Classification is the routing decision for one query.
type Classification struct {
	queryType  Type
	intent     Intent
	entities   []string
	confidence float64
}

// NewClassification creates a Classification.
func NewClassification(queryType Type, intent Intent, entities []string, confidence float64) Classification {
	cp := make([]string, len(entities))
	copy(cp, entities)
	return Classification{
		queryType:  queryType,
		intent:     intent,
		entities:   cp,
		confidence: confidence,
	}
}

// QueryType returns the classified query type.
func (c Classification) QueryType() Type { return c.queryType }

// Intent returns the primary intent.
func (c Classification) Intent() Intent { return c.intent }

// Entities returns the extracted entities (symbol names, paths).
func (c Classification) Entities() []string {
	cp := make([]string, len(c.entities))
	copy(cp, c.entities)
	return cp
}

// Confidence returns the classification confidence in [0, 1].
func (c Classification) Confidence() float64 { return c.confidence }

// UseStaticAnalysis reports whether the symbol graph should be consulted.
func (c Classification) UseStaticAnalysis() bool {
	return c.queryType == TypeStatic || c.queryType == TypeHybrid
}

// UseSemanticSearch reports whether retrieval + generation should run.
func (c Classification) UseSemanticSearch() bool {
	return c.queryType == TypeSemantic || c.queryType == TypeHybrid
}
