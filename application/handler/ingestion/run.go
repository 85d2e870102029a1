// Package ingestion implements the ingestion pipeline task handler.
package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/codesense-ai/codesense/application/handler"
	"github.com/codesense-ai/codesense/domain/chunk"
	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/analysis"
	"github.com/codesense-ai/codesense/infrastructure/chunking"
	"github.com/codesense-ai/codesense/infrastructure/git"
	"github.com/codesense-ai/codesense/infrastructure/indexing"
	"github.com/codesense-ai/codesense/infrastructure/objectstore"
	"github.com/codesense-ai/codesense/infrastructure/parsing"
	"github.com/codesense-ai/codesense/infrastructure/provider"
	"github.com/codesense-ai/codesense/infrastructure/vector"
)

// Stores groups the persistence dependencies of the pipeline.
type Stores struct {
	Repositories  domainrepo.Store
	Runs          domainrepo.RunStore
	Symbols       symbol.Store
	Relationships symbol.RelationshipStore
	Chunks        chunk.Store
}

// Run executes one full ingestion of a repository at a commit: clone,
// parse, index, resolve imports, build the call graph, chunk, embed,
// persist, upload artifacts.
type Run struct {
	stores   Stores
	cloner   *git.Cloner
	parser   *parsing.Parser
	indexer  *indexing.Indexer
	imports  *analysis.ImportResolver
	graph    *analysis.CallGraphBuilder
	chunker  *chunking.Chunker
	embedder *provider.BatchEmbedder
	vectors  vector.Store
	objects  objectstore.Store
	logger   *slog.Logger
}

// NewRun creates the ingestion pipeline handler.
func NewRun(
	stores Stores,
	cloner *git.Cloner,
	parser *parsing.Parser,
	indexer *indexing.Indexer,
	imports *analysis.ImportResolver,
	graph *analysis.CallGraphBuilder,
	chunker *chunking.Chunker,
	embedder *provider.BatchEmbedder,
	vectors vector.Store,
	objects objectstore.Store,
	logger *slog.Logger,
) *Run {
	if logger == nil {
		logger = slog.Default()
	}
	return &Run{
		stores:   stores,
		cloner:   cloner,
		parser:   parser,
		indexer:  indexer,
		imports:  imports,
		graph:    graph,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		objects:  objects,
		logger:   logger,
	}
}

// Execute processes one queued ingestion run.
func (h *Run) Execute(ctx context.Context, payload map[string]any) error {
	runID, err := handler.ExtractUUID(payload, "run_id")
	if err != nil {
		return err
	}

	run, err := h.stores.Runs.Get(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if run.Status().IsTerminal() {
		h.logger.Info("run already finished, skipping",
			slog.String("run_id", runID.String()),
			slog.String("status", string(run.Status())),
		)
		return nil
	}

	run, started, err := h.stores.Runs.TryStart(ctx, runID)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	if !started {
		h.logger.Info("another run holds the snapshot, skipping",
			slog.String("run_id", runID.String()),
		)
		return nil
	}

	repo, err := h.stores.Repositories.Get(ctx, run.RepoID())
	if err != nil {
		return h.fail(ctx, run, fmt.Errorf("load repository: %w", err))
	}

	if err := h.pipeline(ctx, repo, &run); err != nil {
		if errors.Is(err, context.Canceled) {
			_ = h.stores.Runs.Save(context.WithoutCancel(ctx), run.Cancel())
			return err
		}
		return h.fail(ctx, run, err)
	}
	return nil
}

func (h *Run) fail(ctx context.Context, run domainrepo.IngestionRun, err error) error {
	if saveErr := h.stores.Runs.Save(ctx, run.Fail(err.Error())); saveErr != nil {
		h.logger.Error("recording run failure failed",
			slog.String("run_id", run.ID().String()),
			slog.String("error", saveErr.Error()),
		)
	}
	return err
}

func (h *Run) pipeline(ctx context.Context, repo domainrepo.Repository, run *domainrepo.IngestionRun) error {
	commitSHA := run.CommitSHA()
	repoID := repo.ID()

	// Clone.
	if err := h.stage(ctx, run, domainrepo.StageClone); err != nil {
		return err
	}
	checkout, cleanup, err := h.cloner.Clone(ctx, repo.RemoteURL(), commitSHA)
	if err != nil {
		return fmt.Errorf("clone: %w", err)
	}
	defer cleanup()

	files, err := git.WalkSource(checkout)
	if err != nil {
		return fmt.Errorf("walk source tree: %w", err)
	}

	// Parse.
	if err := h.stage(ctx, run, domainrepo.StageParse); err != nil {
		return err
	}
	parses, astSummary, err := h.parseFiles(ctx, files)
	if err != nil {
		return err
	}

	// Index.
	if err := h.stage(ctx, run, domainrepo.StageIndex); err != nil {
		return err
	}
	var symbols []symbol.Symbol
	for _, parse := range parses {
		symbols = append(symbols, h.indexer.IndexFile(repoID, commitSHA, parse)...)
	}

	// Resolve imports.
	if err := h.stage(ctx, run, domainrepo.StageResolve); err != nil {
		return err
	}
	importGraph, relationships := h.imports.Resolve(symbols)

	// Call graph.
	if err := h.stage(ctx, run, domainrepo.StageGraph); err != nil {
		return err
	}
	readFile := checkoutReader(checkout, files)
	callEdges, stats, err := h.graph.Build(ctx, symbols, importGraph, readFile)
	if err != nil {
		return fmt.Errorf("build call graph: %w", err)
	}
	relationships = append(relationships, callEdges...)
	h.logger.Info("call graph built",
		slog.Int("files", stats.Files),
		slog.Int("calls", stats.Calls),
		slog.Int("inherits", stats.Inherits),
	)

	// Chunk.
	if err := h.stage(ctx, run, domainrepo.StageChunk); err != nil {
		return err
	}
	chunks, err := h.chunkFiles(repoID, commitSHA, files, readFile)
	if err != nil {
		return err
	}

	// Embed.
	if err := h.stage(ctx, run, domainrepo.StageEmbed); err != nil {
		return err
	}
	embeddings, embedded, failed := h.embedChunks(ctx, repoID, commitSHA, chunks)
	degraded := len(chunks) > 0 && failed*2 > len(chunks)
	*run = run.WithChunkCounts(len(chunks), embedded, failed)
	if degraded {
		h.logger.Warn("majority of chunks failed embedding, run will be degraded",
			slog.Int("total", len(chunks)),
			slog.Int("failed", failed),
		)
	}

	// Persist.
	if err := h.stage(ctx, run, domainrepo.StagePersist); err != nil {
		return err
	}
	if err := h.persist(ctx, symbols, relationships, chunks, embeddings); err != nil {
		return err
	}
	if err := h.uploadArtifacts(repo, commitSHA, checkout, files, symbols, relationships, astSummary); err != nil {
		return err
	}

	// Finalize.
	if err := h.stage(ctx, run, domainrepo.StageFinalize); err != nil {
		return err
	}
	if err := h.stores.Repositories.Save(ctx, repo.WithIndexedCommit(commitSHA)); err != nil {
		return fmt.Errorf("update repository: %w", err)
	}
	*run = run.Complete(degraded)
	if err := h.stores.Runs.Save(ctx, *run); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}

	h.logger.Info("ingestion completed",
		slog.String("repo", repo.FullName()),
		slog.String("commit", commitSHA),
		slog.Int("symbols", len(symbols)),
		slog.Int("relationships", len(relationships)),
		slog.Int("chunks", len(chunks)),
		slog.Bool("degraded", degraded),
	)
	return nil
}

// stage records progress on the run so status queries see where a long
// ingestion is.
func (h *Run) stage(ctx context.Context, run *domainrepo.IngestionRun, stage domainrepo.RunStage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	*run = run.WithStage(stage)
	if err := h.stores.Runs.Save(ctx, *run); err != nil {
		return fmt.Errorf("record stage %s: %w", stage, err)
	}
	return nil
}

func (h *Run) parseFiles(ctx context.Context, files []git.SourceFile) ([]parsing.FileParse, *objectstore.ASTSummary, error) {
	summary := &objectstore.ASTSummary{}
	var parses []parsing.FileParse

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !h.parser.Supports(file.Path) {
			continue
		}

		content, err := os.ReadFile(file.AbsPath)
		if err != nil {
			summary.AddSkipped(file.Path, err.Error())
			continue
		}

		parse, err := h.parser.Parse(ctx, file.Path, content)
		if err != nil {
			if errors.Is(err, parsing.ErrSkipped) {
				summary.AddSkipped(file.Path, err.Error())
				continue
			}
			return nil, nil, fmt.Errorf("parse %s: %w", file.Path, err)
		}
		summary.AddParsed(parse)
		parses = append(parses, parse)
	}
	return parses, summary, nil
}

// chunkFiles chunks every walked file, not only those with a grammar,
// so documentation and config files reach semantic retrieval too.
// Oversized and binary files are skipped.
func (h *Run) chunkFiles(repoID uuid.UUID, commitSHA string, files []git.SourceFile, readFile analysis.FileReader) ([]chunk.Chunk, error) {
	maxBytes := h.parser.MaxFileSize()

	var chunks []chunk.Chunk
	for _, file := range files {
		if maxBytes > 0 && file.Size > maxBytes {
			continue
		}
		content, err := readFile(file.Path)
		if err != nil {
			h.logger.Debug("chunking skipped unreadable file",
				slog.String("path", file.Path),
				slog.String("error", err.Error()),
			)
			continue
		}
		if isBinary(content) {
			continue
		}
		chunks = append(chunks, h.chunker.ChunkFile(repoID, commitSHA, file.Path, h.chunkLanguage(file.Path), string(content))...)
	}
	return chunks, nil
}

// chunkLanguage labels a chunk for retrieval. Files without a grammar
// get a plain label by filename or extension.
func (h *Run) chunkLanguage(path string) string {
	if lang := h.parser.DetectLanguage(path); lang != "" {
		return lang
	}
	switch filepath.Base(path) {
	case "Dockerfile":
		return "dockerfile"
	case "Makefile":
		return "make"
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "markdown"
	}
	return "text"
}

// isBinary sniffs the first kilobytes for a NUL byte.
func isBinary(content []byte) bool {
	head := content
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// embedChunks embeds all chunk texts. Failed batches degrade the run
// instead of failing it, so a flaky provider still yields a usable index.
func (h *Run) embedChunks(ctx context.Context, repoID uuid.UUID, commitSHA string, chunks []chunk.Chunk) ([]vector.Embedding, int, int) {
	if len(chunks) == 0 || h.embedder == nil {
		return nil, 0, 0
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content()
	}

	result, err := h.embedder.EmbedAll(ctx, texts)
	if err != nil {
		h.logger.Warn("embedding failed entirely",
			slog.String("error", err.Error()),
		)
		return nil, 0, len(chunks)
	}

	var embeddings []vector.Embedding
	embedded := 0
	for i, vec := range result.Vectors() {
		if vec == nil {
			continue
		}
		embeddings = append(embeddings, vector.NewEmbedding(chunks[i].ID(), repoID, commitSHA, vec))
		embedded++
	}
	return embeddings, embedded, len(chunks) - embedded
}

func (h *Run) persist(ctx context.Context, symbols []symbol.Symbol, relationships []symbol.Relationship, chunks []chunk.Chunk, embeddings []vector.Embedding) error {
	if err := h.stores.Symbols.SaveBatch(ctx, symbols); err != nil {
		return fmt.Errorf("persist symbols: %w", err)
	}
	if err := h.stores.Relationships.SaveBatch(ctx, relationships); err != nil {
		return fmt.Errorf("persist relationships: %w", err)
	}
	if err := h.stores.Chunks.SaveBatch(ctx, chunks); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}
	if len(embeddings) > 0 {
		if err := h.vectors.Upsert(ctx, embeddings); err != nil {
			return fmt.Errorf("persist embeddings: %w", err)
		}
	}
	return nil
}

func (h *Run) uploadArtifacts(
	repo domainrepo.Repository,
	commitSHA string,
	checkout string,
	files []git.SourceFile,
	symbols []symbol.Symbol,
	relationships []symbol.Relationship,
	astSummary *objectstore.ASTSummary,
) error {
	key := func(kind string) objectstore.Key {
		return objectstore.Key{
			Provider:  string(repo.Provider()),
			Owner:     repo.Owner(),
			Name:      repo.Name(),
			CommitSHA: commitSHA,
			Kind:      kind,
		}
	}

	// The source tree of a commit never changes, so an existing archive
	// wins silently.
	archive, err := objectstore.PackSourceTree(checkout, files)
	if err != nil {
		return fmt.Errorf("pack source tree: %w", err)
	}
	if err := h.objects.PutIfAbsent(key(objectstore.KindSourceTree), archive); err != nil {
		return fmt.Errorf("upload source tree: %w", err)
	}

	graphData, err := objectstore.EncodeGraphData(commitSHA, symbols, relationships)
	if err != nil {
		return fmt.Errorf("encode graph data: %w", err)
	}
	if err := h.objects.Put(key(objectstore.KindGraphData), graphData); err != nil {
		return fmt.Errorf("upload graph data: %w", err)
	}

	astData, err := astSummary.Encode(commitSHA)
	if err != nil {
		return fmt.Errorf("encode ast data: %w", err)
	}
	if err := h.objects.Put(key(objectstore.KindASTData), astData); err != nil {
		return fmt.Errorf("upload ast data: %w", err)
	}

	manifest, err := objectstore.EncodeManifest(objectstore.Manifest{
		Commit:     commitSHA,
		NodesCount: len(symbols),
		Version:    objectstore.ManifestVersion,
	})
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := h.objects.Put(key(objectstore.KindManifest), manifest); err != nil {
		return fmt.Errorf("upload manifest: %w", err)
	}
	return nil
}

// checkoutReader reads files by repo-relative path, restricted to the
// walked file set.
func checkoutReader(checkout string, files []git.SourceFile) analysis.FileReader {
	byPath := make(map[string]string, len(files))
	for _, f := range files {
		byPath[f.Path] = f.AbsPath
	}
	return func(path string) ([]byte, error) {
		abs, ok := byPath[path]
		if !ok {
			return nil, fmt.Errorf("file %s not in checkout", path)
		}
		return os.ReadFile(abs)
	}
}
