package codesense

import (
	"log/slog"
	"time"

	"github.com/codesense-ai/codesense/infrastructure/chunking"
	"github.com/codesense-ai/codesense/infrastructure/provider"
	"github.com/codesense-ai/codesense/internal/config"
)

// clientConfig holds configuration for Client construction. Use
// newClientConfig() to create it with defaults from internal/config.
type clientConfig struct {
	dbURL            string
	dataDir          string
	cloneDir         string
	modelDir         string
	redisURL         string
	generator        provider.TextGenerator
	embedder         provider.Embedder
	logger           *slog.Logger
	cloneTimeout     time.Duration
	chunkParams      chunking.ChunkParams
	maxFileBytes     int64
	topK             int
	workerPollPeriod time.Duration
}

// newClientConfig creates a clientConfig with defaults from internal/config,
// the single source of truth for tunables.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:      config.DefaultDataDir(),
		cloneTimeout: config.DefaultCloneTimeout,
		chunkParams:  chunking.DefaultChunkParams(),
		maxFileBytes: config.DefaultMaxFileBytes,
		topK:         config.DefaultTopK,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.dbURL = "sqlite://" + path
	}
}

// WithPostgres configures PostgreSQL. Vector search uses pgvector and
// fuzzy symbol lookup uses pg_trgm when the extensions are available.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.dbURL = dsn
	}
}

// WithOpenAI sets an OpenAI-compatible provider for both embeddings and
// answer generation.
func WithOpenAI(cfg provider.OpenAIConfig) Option {
	return func(c *clientConfig) {
		p := provider.NewOpenAIProvider(cfg)
		c.generator = p
		c.embedder = p
	}
}

// WithAnthropic sets Anthropic as the answer generator. A separate
// embedding provider is still required, since Anthropic does not serve
// embeddings.
func WithAnthropic(cfg provider.AnthropicConfig) Option {
	return func(c *clientConfig) {
		c.generator = provider.NewAnthropicProvider(cfg)
	}
}

// WithGenerator sets a custom answer generator. Without one, query
// answers degrade to static facts and verbatim retrieved code.
func WithGenerator(g provider.TextGenerator) Option {
	return func(c *clientConfig) {
		c.generator = g
	}
}

// WithEmbedder sets a custom embedding provider.
func WithEmbedder(e provider.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithRedis enables the embedding and query-result caches.
func WithRedis(url string) Option {
	return func(c *clientConfig) {
		c.redisURL = url
	}
}

// WithDataDir sets the directory for the database, clones, artifacts
// and models. Defaults to ~/.codesense.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithCloneDir sets the scratch directory for working copies.
// Defaults to {dataDir}/clones.
func WithCloneDir(dir string) Option {
	return func(c *clientConfig) {
		c.cloneDir = dir
	}
}

// WithModelDir sets the directory holding local embedding model files.
// Defaults to {dataDir}/models.
func WithModelDir(dir string) Option {
	return func(c *clientConfig) {
		c.modelDir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithCloneTimeout bounds a single repository clone. Defaults to 10m.
func WithCloneTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.cloneTimeout = d
		}
	}
}

// WithChunkParams sets the chunk window and stride in lines.
func WithChunkParams(params chunking.ChunkParams) Option {
	return func(c *clientConfig) {
		c.chunkParams = params
	}
}

// WithMaxFileBytes sets the per-file size cap for parsing and chunking.
func WithMaxFileBytes(n int64) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.maxFileBytes = n
		}
	}
}

// WithTopK sets how many chunks retrieval returns per query.
func WithTopK(k int) Option {
	return func(c *clientConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithWorkerPollPeriod sets how often the background worker checks for
// new tasks. Defaults to 1 second; lower values speed up tests.
func WithWorkerPollPeriod(d time.Duration) Option {
	return func(c *clientConfig) {
		c.workerPollPeriod = d
	}
}

// FromAppConfig applies an environment-derived configuration.
func FromAppConfig(cfg config.AppConfig) Option {
	return func(c *clientConfig) {
		c.dataDir = cfg.DataDir()
		c.dbURL = cfg.DBURL()
		c.redisURL = cfg.RedisURL()
		c.cloneTimeout = cfg.CloneTimeout()
		c.chunkParams = chunking.ChunkParams{
			WindowLines: cfg.ChunkWindowLines(),
			StrideLines: cfg.ChunkStrideLines(),
		}
		c.maxFileBytes = cfg.MaxFileBytes()
		c.topK = cfg.TopK()

		if emb := cfg.Embedding(); emb.IsConfigured() {
			p := provider.NewOpenAIProvider(provider.OpenAIConfig{
				APIKey:         emb.APIKey(),
				BaseURL:        emb.BaseURL(),
				EmbeddingModel: emb.Model(),
				Timeout:        emb.Timeout(),
				MaxRetries:     emb.MaxRetries(),
			})
			c.embedder = p
		}
		if gen := cfg.Generator(); gen.IsConfigured() {
			c.generator = provider.NewOpenAIProvider(provider.OpenAIConfig{
				APIKey:     gen.APIKey(),
				BaseURL:    gen.BaseURL(),
				ChatModel:  gen.Model(),
				Timeout:    gen.Timeout(),
				MaxRetries: gen.MaxRetries(),
			})
		}
	}
}
