// Package codesense provides a library for indexing public git
// repositories and answering questions about their code.
//
// Codesense clones a repository at a commit, parses it with
// tree-sitter, builds a symbol and call graph, chunks and embeds the
// source, and persists everything for querying. Questions route through
// a hybrid engine: structural queries are answered deterministically
// from the graph, conceptual ones through vector retrieval and an LLM
// generator.
//
// Basic usage:
//
//	client, err := codesense.New(
//	    codesense.WithSQLite(".codesense/data.db"),
//	    codesense.WithOpenAI(provider.OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY")}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	run, err := client.Ingest(ctx, "https://github.com/pallets/flask", "main")
//
//	answer, err := client.Query(ctx, "pallets/flask", "who calls dispatch_request")
//	fmt.Println(answer.Text)
package codesense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/codesense-ai/codesense/application/handler"
	"github.com/codesense-ai/codesense/application/service"
	"github.com/codesense-ai/codesense/domain/query"
	domainrepo "github.com/codesense-ai/codesense/domain/repository"
	"github.com/codesense-ai/codesense/domain/symbol"
	"github.com/codesense-ai/codesense/infrastructure/cache"
	"github.com/codesense-ai/codesense/infrastructure/chunking"
	"github.com/codesense-ai/codesense/infrastructure/git"
	"github.com/codesense-ai/codesense/infrastructure/objectstore"
	"github.com/codesense-ai/codesense/infrastructure/parsing"
	"github.com/codesense-ai/codesense/infrastructure/persistence"
	"github.com/codesense-ai/codesense/infrastructure/provider"
	"github.com/codesense-ai/codesense/infrastructure/vector"
	"github.com/codesense-ai/codesense/internal/config"
	"github.com/codesense-ai/codesense/internal/database"
	"github.com/codesense-ai/codesense/internal/log"
)

// Client is the main entry point for the codesense library. The
// background worker starts automatically on creation; ingestion runs on
// the task queue while queries execute synchronously.
type Client struct {
	db      database.Database
	objects objectstore.Store
	vectors vector.Store
	caches  *cache.Cache

	stores struct {
		repositories  *persistence.RepositoryStore
		runs          *persistence.RunStore
		symbols       *persistence.SymbolStore
		relationships *persistence.RelationshipStore
		chunks        *persistence.ChunkStore
		tasks         *persistence.TaskStore
	}

	ingestion *service.Ingestion
	hybrid    *service.Hybrid
	queue     *service.Queue
	worker    *service.Worker
	registry  *handler.Registry

	hugot  *provider.HugotEmbedder
	logger *slog.Logger
	closed atomic.Bool
}

// New creates a Client and starts its background worker.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = log.Default().Slog()
	}

	dataDir, err := config.PrepareDataDir(cfg.dataDir)
	if err != nil {
		return nil, err
	}
	cloneDir := cfg.cloneDir
	if cloneDir == "" {
		cloneDir = config.CloneDir(dataDir)
	}
	modelDir := cfg.modelDir
	if modelDir == "" {
		modelDir = config.ModelDir(dataDir)
	}
	dbURL := cfg.dbURL
	if dbURL == "" {
		dbURL = config.DefaultDBURL(dataDir)
	}

	// Fall back to the bundled local model when no embedding provider
	// is configured.
	var hugot *provider.HugotEmbedder
	if cfg.embedder == nil {
		hugot = provider.NewHugotEmbedder(modelDir)
		if !hugot.Available() {
			return nil, fmt.Errorf("%w: no model found in %s, configure WithOpenAI or WithEmbedder", ErrNoEmbedder, modelDir)
		}
		cfg.embedder = hugot
		logger.Info("local embedding model enabled", slog.String("model_dir", modelDir))
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), db.Close())
	}

	caches, err := cache.New(cfg.redisURL, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("connect redis: %w", err), db.Close())
	}

	objects, err := objectstore.NewFilesystemStore(config.ArtifactDir(dataDir), logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("artifact store: %w", err), db.Close())
	}

	chunker, err := chunking.NewChunker(cfg.chunkParams)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("chunker: %w", err), db.Close())
	}

	c := &Client{
		db:      db,
		objects: objects,
		vectors: vector.NewStore(db, logger),
		caches:  caches,
		hugot:   hugot,
		logger:  logger,
	}
	c.stores.repositories = persistence.NewRepositoryStore(db)
	c.stores.runs = persistence.NewRunStore(db)
	c.stores.symbols = persistence.NewSymbolStore(db)
	c.stores.relationships = persistence.NewRelationshipStore(db)
	c.stores.chunks = persistence.NewChunkStore(db)
	c.stores.tasks = persistence.NewTaskStore(db)

	adapter := git.NewGoGitAdapter(logger)
	cloner := git.NewCloner(adapter, cloneDir, cfg.cloneTimeout, logger)
	parser := parsing.NewParser(cfg.maxFileBytes)
	embedder := provider.NewBatchEmbedder(cfg.embedder, caches, logger)

	c.registry = handler.NewRegistry()
	c.queue = service.NewQueue(c.stores.tasks, logger)
	c.worker = service.NewWorker(c.stores.tasks, c.registry, logger)
	if cfg.workerPollPeriod > 0 {
		c.worker.WithPollPeriod(cfg.workerPollPeriod)
	}
	c.ingestion = service.NewIngestion(c.stores.repositories, c.stores.runs, c.queue, cloner, logger)

	static := service.NewStaticEngine(c.stores.symbols, c.stores.relationships, logger)
	c.hybrid = service.NewHybrid(static, embedder, c.vectors, c.stores.chunks, cfg.generator, caches, logger).
		WithTopK(cfg.topK)

	c.registerHandlers(cloner, parser, embedder, chunker)

	c.worker.Start(ctx)
	return c, nil
}

// Ingest registers a repository and queues ingestion of the tip of the
// given branch (empty means the remote default). If the resolved commit
// is already ingested or in flight, the existing run is returned.
func (c *Client) Ingest(ctx context.Context, remoteURL, branch string) (domainrepo.IngestionRun, error) {
	if c.closed.Load() {
		return domainrepo.IngestionRun{}, ErrClientClosed
	}
	return c.ingestion.Ingest(ctx, remoteURL, branch)
}

// RunStatus retrieves an ingestion run by ID.
func (c *Client) RunStatus(ctx context.Context, runID uuid.UUID) (domainrepo.IngestionRun, error) {
	return c.ingestion.Status(ctx, runID)
}

// Runs lists all ingestion runs recorded for a repository.
func (c *Client) Runs(ctx context.Context, repoID uuid.UUID) ([]domainrepo.IngestionRun, error) {
	return c.ingestion.Runs(ctx, repoID)
}

// CancelRun marks a non-terminal run as failed with reason "cancelled".
func (c *Client) CancelRun(ctx context.Context, runID uuid.UUID) (domainrepo.IngestionRun, error) {
	return c.ingestion.Cancel(ctx, runID)
}

// Repositories lists all registered repositories.
func (c *Client) Repositories(ctx context.Context) ([]domainrepo.Repository, error) {
	return c.ingestion.Repositories(ctx)
}

// Resolve finds a repository by "owner/name" reference or remote URL.
func (c *Client) Resolve(ctx context.Context, ref string) (domainrepo.Repository, error) {
	return c.ingestion.Resolve(ctx, ref)
}

// Query answers a question about a repository's latest indexed commit.
// repoRef is an "owner/name" reference or remote URL.
func (c *Client) Query(ctx context.Context, repoRef, question string) (query.Answer, error) {
	if c.closed.Load() {
		return query.Answer{}, ErrClientClosed
	}

	repo, err := c.ingestion.Resolve(ctx, repoRef)
	if err != nil {
		return query.Answer{}, err
	}
	if repo.LatestCommitSHA() == "" {
		return query.Answer{}, fmt.Errorf("%w: %s has no completed ingestion", ErrNotIndexed, repo.FullName())
	}

	snap := symbol.Snapshot{RepoID: repo.ID(), CommitSHA: repo.LatestCommitSHA()}
	return c.hybrid.Query(ctx, snap, question)
}

// DeleteRepository queues removal of a repository and all derived data.
func (c *Client) DeleteRepository(ctx context.Context, repoID uuid.UUID) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.ingestion.Delete(ctx, repoID)
}

// Queue exposes the task queue for inspection.
func (c *Client) Queue() *service.Queue {
	return c.queue
}

// Worker exposes the background worker for loop control; tests use
// ProcessNext to drive the queue synchronously.
func (c *Client) Worker() *service.Worker {
	return c.worker
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Close stops the background worker and releases all resources.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.worker.Stop()

	if c.hugot != nil {
		if err := c.hugot.Close(); err != nil {
			c.logger.Error("close local embedder", slog.Any("error", err))
		}
	}
	if err := c.caches.Close(); err != nil {
		c.logger.Error("close cache", slog.Any("error", err))
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("codesense client closed")
	return nil
}
