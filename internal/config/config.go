// Package config holds application configuration for codesense.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults for the ingestion and query pipelines.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatJSON

	DefaultCloneTimeout     = 10 * time.Minute
	DefaultEmbedTimeout     = 120 * time.Second
	DefaultGeneratorTimeout = 60 * time.Second

	DefaultChunkWindowLines = 300
	DefaultChunkStrideLines = 250
	DefaultMaxFileBytes     = 1 << 20

	DefaultEmbedBatchSize         = 64
	DefaultEmbedRequestsPerMinute = 10
	DefaultEmbedMaxRetries        = 3
	DefaultEmbedConcurrency       = 2

	DefaultCallGraphMaxDepth    = 10
	DefaultVectorScoreThreshold = 0.35
	DefaultTopK                 = 5

	DefaultEmbeddingCacheTTL = 24 * time.Hour
	DefaultQueryCacheTTL     = time.Hour
)

// LogFormat selects the log output encoding.
type LogFormat string

// Supported log formats.
const (
	LogFormatJSON     LogFormat = "json"
	LogFormatTerminal LogFormat = "terminal"
)

// Endpoint describes an OpenAI-compatible provider endpoint.
type Endpoint struct {
	baseURL    string
	model      string
	apiKey     string
	timeout    time.Duration
	maxRetries int
}

// NewEndpoint creates an Endpoint with sensible defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:    DefaultEmbedTimeout,
		maxRetries: DefaultEmbedMaxRetries,
	}
}

// BaseURL returns the endpoint base URL.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the per-call timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the retry budget for transient failures.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// IsConfigured reports whether the endpoint has enough settings to be used.
func (e Endpoint) IsConfigured() bool {
	return e.baseURL != "" || e.apiKey != ""
}

// EndpointOption configures an Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the endpoint base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model identifier.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithEndpointTimeout sets the per-call timeout.
func WithEndpointTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithEndpointMaxRetries sets the retry budget.
func WithEndpointMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// NewEndpointWithOptions creates an Endpoint with the given options applied.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AppConfig is the immutable application configuration.
type AppConfig struct {
	dataDir   string
	dbURL     string
	redisURL  string
	logLevel  string
	logFormat LogFormat

	cloneTimeout     time.Duration
	embedTimeout     time.Duration
	generatorTimeout time.Duration

	chunkWindowLines int
	chunkStrideLines int
	maxFileBytes     int64

	embedBatchSize         int
	embedRequestsPerMinute int
	embedMaxRetries        int
	embedConcurrency       int

	callGraphMaxDepth    int
	vectorScoreThreshold float64
	topK                 int

	embeddingCacheTTL time.Duration
	queryCacheTTL     time.Duration

	embedding Endpoint
	generator Endpoint
}

// DefaultDataDir returns the default data directory (~/.codesense).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codesense"
	}
	return filepath.Join(home, ".codesense")
}

// DefaultDBURL returns the default sqlite database URL under dataDir.
func DefaultDBURL(dataDir string) string {
	return "sqlite://" + filepath.Join(dataDir, "codesense.db")
}

// PrepareDataDir ensures the data directory exists and returns its path.
func PrepareDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// CloneDir returns the scratch directory for working copies under dataDir.
func CloneDir(dataDir string) string {
	return filepath.Join(dataDir, "clones")
}

// ArtifactDir returns the artifact store root under dataDir.
func ArtifactDir(dataDir string) string {
	return filepath.Join(dataDir, "artifacts")
}

// ModelDir returns the local embedding model cache under dataDir.
func ModelDir(dataDir string) string {
	return filepath.Join(dataDir, "models")
}

// NewAppConfig creates an AppConfig populated with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		dataDir:                dataDir,
		dbURL:                  DefaultDBURL(dataDir),
		logLevel:               DefaultLogLevel,
		logFormat:              DefaultLogFormat,
		cloneTimeout:           DefaultCloneTimeout,
		embedTimeout:           DefaultEmbedTimeout,
		generatorTimeout:       DefaultGeneratorTimeout,
		chunkWindowLines:       DefaultChunkWindowLines,
		chunkStrideLines:       DefaultChunkStrideLines,
		maxFileBytes:           DefaultMaxFileBytes,
		embedBatchSize:         DefaultEmbedBatchSize,
		embedRequestsPerMinute: DefaultEmbedRequestsPerMinute,
		embedMaxRetries:        DefaultEmbedMaxRetries,
		embedConcurrency:       DefaultEmbedConcurrency,
		callGraphMaxDepth:      DefaultCallGraphMaxDepth,
		vectorScoreThreshold:   DefaultVectorScoreThreshold,
		topK:                   DefaultTopK,
		embeddingCacheTTL:      DefaultEmbeddingCacheTTL,
		queryCacheTTL:          DefaultQueryCacheTTL,
		embedding:              NewEndpoint(),
		generator: NewEndpointWithOptions(
			WithEndpointTimeout(DefaultGeneratorTimeout),
		),
	}
}

// DataDir returns the data directory.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// RedisURL returns the redis URL, empty when caching is disabled.
func (c AppConfig) RedisURL() string { return c.redisURL }

// LogLevel returns the configured log level string.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the configured log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// CloneTimeout bounds a full clone of one repository.
func (c AppConfig) CloneTimeout() time.Duration { return c.cloneTimeout }

// EmbedTimeout bounds a single embedding call.
func (c AppConfig) EmbedTimeout() time.Duration { return c.embedTimeout }

// GeneratorTimeout bounds a single generator call.
func (c AppConfig) GeneratorTimeout() time.Duration { return c.generatorTimeout }

// ChunkWindowLines returns the chunk window size in lines.
func (c AppConfig) ChunkWindowLines() int { return c.chunkWindowLines }

// ChunkStrideLines returns the chunk stride in lines.
func (c AppConfig) ChunkStrideLines() int { return c.chunkStrideLines }

// MaxFileBytes returns the per-file size cap for parsing and chunking.
func (c AppConfig) MaxFileBytes() int64 { return c.maxFileBytes }

// EmbedBatchSize returns the maximum texts per embedding request.
func (c AppConfig) EmbedBatchSize() int { return c.embedBatchSize }

// EmbedRequestsPerMinute returns the embedding rate limit.
func (c AppConfig) EmbedRequestsPerMinute() int { return c.embedRequestsPerMinute }

// EmbedMaxRetries returns the retry budget per embedding batch.
func (c AppConfig) EmbedMaxRetries() int { return c.embedMaxRetries }

// EmbedConcurrency returns the maximum in-flight embedding calls.
func (c AppConfig) EmbedConcurrency() int { return c.embedConcurrency }

// CallGraphMaxDepth bounds graph traversals.
func (c AppConfig) CallGraphMaxDepth() int { return c.callGraphMaxDepth }

// VectorScoreThreshold is the minimum similarity for retrieval hits.
func (c AppConfig) VectorScoreThreshold() float64 { return c.vectorScoreThreshold }

// TopK returns the retrieval result count.
func (c AppConfig) TopK() int { return c.topK }

// EmbeddingCacheTTL returns the embedding cache entry lifetime.
func (c AppConfig) EmbeddingCacheTTL() time.Duration { return c.embeddingCacheTTL }

// QueryCacheTTL returns the query result cache entry lifetime.
func (c AppConfig) QueryCacheTTL() time.Duration { return c.queryCacheTTL }

// Embedding returns the remote embedding endpoint.
func (c AppConfig) Embedding() Endpoint { return c.embedding }

// Generator returns the answer generator endpoint.
func (c AppConfig) Generator() Endpoint { return c.generator }

// AppConfigOption configures an AppConfig.
type AppConfigOption func(*AppConfig)

// WithDataDir sets the data directory and rebases the default DB URL.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		defaultURL := DefaultDBURL(c.dataDir)
		c.dataDir = dir
		if c.dbURL == defaultURL {
			c.dbURL = DefaultDBURL(dir)
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithRedisURL enables redis caching.
func WithRedisURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.redisURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithCloneTimeout sets the clone timeout.
func WithCloneTimeout(d time.Duration) AppConfigOption {
	return func(c *AppConfig) { c.cloneTimeout = d }
}

// WithChunking sets chunk window and stride.
func WithChunking(window, stride int) AppConfigOption {
	return func(c *AppConfig) {
		c.chunkWindowLines = window
		c.chunkStrideLines = stride
	}
}

// WithMaxFileBytes sets the per-file size cap.
func WithMaxFileBytes(n int64) AppConfigOption {
	return func(c *AppConfig) { c.maxFileBytes = n }
}

// WithEmbedLimits sets batch size, rate limit, retries and concurrency.
func WithEmbedLimits(batch, rpm, retries, concurrency int) AppConfigOption {
	return func(c *AppConfig) {
		c.embedBatchSize = batch
		c.embedRequestsPerMinute = rpm
		c.embedMaxRetries = retries
		c.embedConcurrency = concurrency
	}
}

// WithRetrieval sets graph depth, score threshold and top-K.
func WithRetrieval(depth int, threshold float64, topK int) AppConfigOption {
	return func(c *AppConfig) {
		c.callGraphMaxDepth = depth
		c.vectorScoreThreshold = threshold
		c.topK = topK
	}
}

// WithEmbeddingEndpoint sets the remote embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embedding = e }
}

// WithGeneratorEndpoint sets the answer generator endpoint.
func WithGeneratorEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.generator = e }
}

// NewAppConfigWithOptions creates an AppConfig with the given options applied.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	cfg := NewAppConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
