package query

import (
	"regexp"
	"sort"
	"strings"
)

// staticPattern pairs a compiled regex with the intent it signals.
type staticPattern struct {
	re     *regexp.Regexp
	intent Intent
}

// Patterns for structural queries, matched against the lowercased query.
// Capture groups become the classification's entities.
var staticPatterns = []staticPattern{
	// Symbol lookup
	{regexp.MustCompile(`find\s+(function|class|method|variable)\s+['"]?(\w+)['"]?`), IntentFindSymbol},
	{regexp.MustCompile(`show\s+(?:me\s+)?(?:all\s+)?(functions|classes|methods)\s+(?:in|from)\s+['"]?(\w+)['"]?`), IntentListSymbols},
	{regexp.MustCompile(`where\s+is\s+['"]?(\w+)['"]?\s+defined`), IntentFindSymbol},
	{regexp.MustCompile(`list\s+(?:all\s+)?(functions|classes|endpoints)`), IntentListSymbols},

	// Call graph
	{regexp.MustCompile(`(?:who|what)\s+calls\s+['"]?(\w+)['"]?`), IntentFindCallers},
	{regexp.MustCompile(`find\s+(?:all\s+)?callers\s+of\s+['"]?(\w+)['"]?`), IntentFindCallers},
	{regexp.MustCompile(`what\s+(?:does\s+)?['"]?(\w+)['"]?\s+call`), IntentFindCallees},
	{regexp.MustCompile(`show\s+call\s+(?:chain|path)\s+from\s+['"]?(\w+)['"]?\s+to\s+['"]?(\w+)['"]?`), IntentFindCallPath},
	{regexp.MustCompile(`find\s+(?:all\s+)?functions\s+reachable\s+from\s+['"]?(\w+)['"]?`), IntentFindReachable},

	// Dependencies
	{regexp.MustCompile(`what\s+(?:does\s+)?['"]?([^'"]+)['"]?\s+import`), IntentFindImports},
	{regexp.MustCompile(`(?:show|find)\s+dependencies\s+of\s+['"]?([^'"]+)['"]?`), IntentFindDependencies},
	{regexp.MustCompile(`what\s+imports\s+['"]?([^'"]+)['"]?`), IntentFindImporters},
	{regexp.MustCompile(`detect\s+circular\s+dependencies`), IntentDetectCircular},

	// Architecture
	{regexp.MustCompile(`list\s+(?:all\s+)?(?:api\s+)?endpoints`), IntentListEndpoints},
}

// semanticKeywords suggest conceptual questions.
var semanticKeywords = []string{
	"how", "why", "explain", "describe", "what is", "what's",
	"tell me about", "understand", "meaning", "purpose",
	"work", "implement", "design", "approach", "best practice",
}

// hybridKeywords suggest queries that need both structure and understanding.
var hybridKeywords = []string{
	"where is", "how does", "show me how",
	"architecture", "flow", "process", "mechanism",
}

// Router classifies queries as static, semantic, or hybrid.
type Router struct{}

// NewRouter creates a Router.
func NewRouter() Router {
	return Router{}
}

// Classify routes a natural-language query. Static patterns win with
// confidence 0.9, hybrid keywords classify at 0.7, semantic keywords at
// 0.8, and anything else defaults to hybrid at 0.5.
func (Router) Classify(q string) Classification {
	lower := strings.ToLower(strings.TrimSpace(q))

	for _, p := range staticPatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		var entities []string
		for _, g := range m[1:] {
			if g != "" {
				entities = append(entities, g)
			}
		}
		return NewClassification(TypeStatic, p.intent, entities, 0.9)
	}

	for _, kw := range hybridKeywords {
		if strings.Contains(lower, kw) {
			return NewClassification(TypeHybrid, IntentHybridAnalysis, ExtractEntities(q), 0.7)
		}
	}

	for _, kw := range semanticKeywords {
		if strings.Contains(lower, kw) {
			return NewClassification(TypeSemantic, IntentSemanticSearch, ExtractEntities(q), 0.8)
		}
	}

	return NewClassification(TypeHybrid, IntentGeneralQuery, ExtractEntities(q), 0.5)
}

var (
	quotedRe     = regexp.MustCompile(`['"]([^'"]+)['"]`)
	nonWordRe    = regexp.MustCompile(`\W`)
	snakeCaseRe  = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	casedIdentRe = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
)

// entityStopwords are common words excluded from entity extraction.
var entityStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {},
}

// ExtractEntities pulls likely code identifiers out of a query: quoted
// strings plus snake_case or CamelCase words longer than two characters.
// The result is deduplicated and sorted.
func ExtractEntities(q string) []string {
	seen := make(map[string]struct{})

	for _, m := range quotedRe.FindAllStringSubmatch(q, -1) {
		seen[m[1]] = struct{}{}
	}

	for _, word := range strings.Fields(q) {
		word = nonWordRe.ReplaceAllString(word, "")
		if len(word) <= 2 {
			continue
		}
		if _, stop := entityStopwords[word]; stop {
			continue
		}
		if snakeCaseRe.MatchString(word) || casedIdentRe.MatchString(word) {
			seen[word] = struct{}{}
		}
	}

	entities := make([]string, 0, len(seen))
	for e := range seen {
		entities = append(entities, e)
	}
	sort.Strings(entities)
	return entities
}
