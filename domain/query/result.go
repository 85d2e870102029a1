package query

// StaticResult is the outcome of a structural query against the symbol graph.
type StaticResult struct {
	success   bool
	queryType Intent
	answer    string
	citations []Citation
	count     int
}

// NewStaticResult creates a StaticResult.
func NewStaticResult(success bool, queryType Intent, answer string, citations []Citation, count int) StaticResult {
	cp := make([]Citation, len(citations))
	copy(cp, citations)
	return StaticResult{
		success:   success,
		queryType: queryType,
		answer:    answer,
		citations: cp,
		count:     count,
	}
}

// Success reports whether the query executed.
func (r StaticResult) Success() bool { return r.success }

// QueryType returns the intent that was executed.
func (r StaticResult) QueryType() Intent { return r.queryType }

// Answer returns the human-readable formatted answer.
func (r StaticResult) Answer() string { return r.answer }

// Citations returns the source locations backing the answer.
func (r StaticResult) Citations() []Citation {
	cp := make([]Citation, len(r.citations))
	copy(cp, r.citations)
	return cp
}

// Count returns the number of results behind the answer.
func (r StaticResult) Count() int { return r.count }

// Citation points at the source lines backing part of an answer.
type Citation struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// RetrievedChunk is one vector search hit with its similarity score.
type RetrievedChunk struct {
	FilePath  string  `json:"file_path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Language  string  `json:"language"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
}

// Answer is the final response of the hybrid query engine.
type Answer struct {
	Query          string           `json:"query"`
	QueryType      Type             `json:"query_type"`
	Intent         Intent           `json:"intent"`
	Text           string           `json:"text"`
	Citations      []Citation       `json:"citations,omitempty"`
	Retrieved      []RetrievedChunk `json:"retrieved,omitempty"`
	StaticAnswer   string           `json:"static_answer,omitempty"`
	Degraded       bool             `json:"degraded,omitempty"`
	DegradedReason string           `json:"degraded_reason,omitempty"`
}
