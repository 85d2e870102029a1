package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codesense-ai/codesense/domain/chunk"
	"github.com/codesense-ai/codesense/domain/query"
	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/cache"
	"github.com/codesense-ai/codesense/infrastructure/provider"
	"github.com/codesense-ai/codesense/infrastructure/vector"
)

const generatorSystemPrompt = "You are a code analysis assistant. Answer " +
	"strictly from the provided context. Cite sources by their [N] labels. " +
	"If the context does not contain the answer, say so plainly."

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// Hybrid answers free-text questions about an indexed snapshot by
// combining the static engine, vector retrieval, and a text generator.
// Every non-generated part of the answer is grounded in stored data;
// the generator only narrates what retrieval found.
type Hybrid struct {
	router    query.Router
	static    *StaticEngine
	embedder  QueryEmbedder
	vectors   vector.Store
	chunks    chunk.Store
	generator provider.TextGenerator
	cache     *cache.Cache
	logger    *slog.Logger

	topK int
}

// NewHybrid creates the hybrid query service. The generator and cache
// may be nil; answers degrade gracefully without them.
func NewHybrid(
	static *StaticEngine,
	embedder QueryEmbedder,
	vectors vector.Store,
	chunks chunk.Store,
	generator provider.TextGenerator,
	queryCache *cache.Cache,
	logger *slog.Logger,
) *Hybrid {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hybrid{
		router:    query.NewRouter(),
		static:    static,
		embedder:  embedder,
		vectors:   vectors,
		chunks:    chunks,
		generator: generator,
		cache:     queryCache,
		logger:    logger,
		topK:      vector.DefaultTopK,
	}
}

// WithTopK sets the retrieval depth.
func (s *Hybrid) WithTopK(k int) *Hybrid {
	if k > 0 {
		s.topK = k
	}
	return s
}

// Query answers a question about one indexed snapshot.
func (s *Hybrid) Query(ctx context.Context, snap symbol.Snapshot, question string) (query.Answer, error) {
	if cached, ok := s.cachedAnswer(ctx, snap, question); ok {
		return cached, nil
	}

	classification := s.router.Classify(question)
	answer := query.Answer{
		Query:     question,
		QueryType: classification.QueryType(),
		Intent:    classification.Intent(),
	}

	var static query.StaticResult
	if classification.UseStaticAnalysis() {
		var err error
		static, err = s.static.Execute(ctx, snap, classification)
		if err != nil {
			return query.Answer{}, fmt.Errorf("static query: %w", err)
		}
		if static.Success() {
			answer.StaticAnswer = static.Answer()
			answer.Citations = static.Citations()
		}
	}

	if classification.UseSemanticSearch() {
		retrieved, err := s.retrieve(ctx, snap, question)
		if err != nil {
			s.logger.Warn("vector retrieval failed, continuing without chunks",
				slog.String("error", err.Error()),
			)
		} else {
			answer.Retrieved = retrieved
		}
	}

	// A pure static query with a definitive answer needs no generation.
	if classification.QueryType() == query.TypeStatic && static.Success() {
		answer.Text = static.Answer()
		s.storeAnswer(ctx, snap, question, answer)
		return answer, nil
	}

	if len(answer.Retrieved) == 0 && answer.StaticAnswer == "" {
		answer.Text = "No relevant code found for this question in the indexed repository."
		answer.Degraded = true
		answer.DegradedReason = "empty retrieval"
		return answer, nil
	}

	text, err := s.generate(ctx, question, answer)
	if err != nil {
		s.logger.Warn("generator unavailable, returning degraded answer",
			slog.String("error", err.Error()),
		)
		answer.Text = s.fallbackAnswer(answer)
		answer.Degraded = true
		answer.DegradedReason = "generator unavailable"
		return answer, nil
	}
	answer.Text = text
	for _, c := range answer.Retrieved {
		answer.Citations = append(answer.Citations, query.Citation{
			FilePath:  c.FilePath,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
		})
	}

	s.storeAnswer(ctx, snap, question, answer)
	return answer, nil
}

func (s *Hybrid) retrieve(ctx context.Context, snap symbol.Snapshot, question string) ([]query.RetrievedChunk, error) {
	if s.embedder == nil || s.vectors == nil {
		return nil, nil
	}

	queryVec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.vectors.Search(ctx, snap.RepoID, snap.CommitSHA, queryVec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	scores := make(map[string]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.ChunkID()
		scores[m.ChunkID()] = m.Score()
	}

	chunks, err := s.chunks.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	byID := make(map[string]chunk.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID()] = c
	}

	// Preserve score order from the vector search.
	retrieved := make([]query.RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		c, ok := byID[m.ChunkID()]
		if !ok {
			continue
		}
		retrieved = append(retrieved, query.RetrievedChunk{
			FilePath:  c.FilePath(),
			StartLine: c.StartLine(),
			EndLine:   c.EndLine(),
			Language:  c.Language(),
			Content:   c.Content(),
			Score:     scores[c.ID()],
		})
	}
	return retrieved, nil
}

func (s *Hybrid) generate(ctx context.Context, question string, answer query.Answer) (string, error) {
	if s.generator == nil {
		return "", provider.ErrGeneratorUnavailable
	}

	var b strings.Builder
	if answer.StaticAnswer != "" {
		b.WriteString("## Verified facts from static analysis\n")
		b.WriteString(answer.StaticAnswer)
		b.WriteString("\n\nDo not speculate beyond these facts.\n\n")
	}
	if len(answer.Retrieved) > 0 {
		b.WriteString("## Retrieved code\n")
		for i, c := range answer.Retrieved {
			fmt.Fprintf(&b, "[%d] %s (lines %d-%d):\n```%s\n%s\n```\n\n",
				i+1, c.FilePath, c.StartLine, c.EndLine, c.Language, c.Content)
		}
	}
	fmt.Fprintf(&b, "## Question\n%s\n", question)

	req := provider.NewChatCompletionRequest([]provider.Message{
		provider.SystemMessage(generatorSystemPrompt),
		provider.UserMessage(b.String()),
	}).WithTemperature(0.2)

	resp, err := s.generator.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}

// fallbackAnswer builds the best non-generated answer available: the
// static answer when there is one, else the top chunks verbatim.
func (s *Hybrid) fallbackAnswer(answer query.Answer) string {
	if answer.StaticAnswer != "" {
		return answer.StaticAnswer
	}

	var b strings.Builder
	b.WriteString("The answer generator is unavailable. Most relevant code found:\n")
	for i, c := range answer.Retrieved {
		fmt.Fprintf(&b, "\n[%d] %s (lines %d-%d, score %.2f)\n%s\n",
			i+1, c.FilePath, c.StartLine, c.EndLine, c.Score, c.Content)
	}
	return b.String()
}

func (s *Hybrid) cachedAnswer(ctx context.Context, snap symbol.Snapshot, question string) (query.Answer, bool) {
	if s.cache == nil {
		return query.Answer{}, false
	}
	var answer query.Answer
	if !s.cache.GetQueryResult(ctx, question, snap.RepoID.String(), snap.CommitSHA, &answer) {
		return query.Answer{}, false
	}
	return answer, true
}

func (s *Hybrid) storeAnswer(ctx context.Context, snap symbol.Snapshot, question string, answer query.Answer) {
	if s.cache == nil {
		return
	}
	s.cache.PutQueryResult(ctx, question, snap.RepoID.String(), snap.CommitSHA, answer)
}
