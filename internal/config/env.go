package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig mirrors AppConfig as an envconfig-decodable struct.
// All variables use the CODESENSE_ prefix, e.g. CODESENSE_DB_URL.
type EnvConfig struct {
	DataDir   string `envconfig:"DATA_DIR"`
	DBURL     string `envconfig:"DB_URL"`
	RedisURL  string `envconfig:"REDIS_URL"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	CloneTimeout     time.Duration `envconfig:"CLONE_TIMEOUT" default:"10m"`
	EmbedTimeout     time.Duration `envconfig:"EMBED_TIMEOUT" default:"120s"`
	GeneratorTimeout time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"60s"`

	ChunkWindow  int   `envconfig:"CHUNK_WINDOW" default:"300"`
	ChunkStride  int   `envconfig:"CHUNK_STRIDE" default:"250"`
	MaxFileBytes int64 `envconfig:"MAX_FILE_BYTES" default:"1048576"`

	EmbedBatchSize   int `envconfig:"EMBED_BATCH_SIZE" default:"64"`
	EmbedRPM         int `envconfig:"EMBED_RPM" default:"10"`
	EmbedMaxRetries  int `envconfig:"EMBED_MAX_RETRIES" default:"3"`
	EmbedConcurrency int `envconfig:"EMBED_CONCURRENCY" default:"2"`

	CallGraphMaxDepth    int     `envconfig:"CALL_GRAPH_MAX_DEPTH" default:"10"`
	VectorScoreThreshold float64 `envconfig:"VECTOR_SCORE_THRESHOLD" default:"0.35"`
	TopK                 int     `envconfig:"TOP_K" default:"5"`

	Embedding EndpointEnv `envconfig:"EMBEDDING"`
	Generator EndpointEnv `envconfig:"GENERATOR"`
}

// EndpointEnv holds env-decoded settings for one provider endpoint.
type EndpointEnv struct {
	BaseURL    string        `envconfig:"BASE_URL"`
	Model      string        `envconfig:"MODEL"`
	APIKey     string        `envconfig:"API_KEY"`
	Timeout    time.Duration `envconfig:"TIMEOUT"`
	MaxRetries int           `envconfig:"MAX_RETRIES" default:"3"`
}

// IsConfigured reports whether the endpoint was set in the environment.
func (e EndpointEnv) IsConfigured() bool {
	return e.BaseURL != "" || e.APIKey != ""
}

// ToEndpoint converts env settings into a config.Endpoint.
func (e EndpointEnv) ToEndpoint(defaultTimeout time.Duration) Endpoint {
	timeout := e.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return NewEndpointWithOptions(
		WithBaseURL(e.BaseURL),
		WithModel(e.Model),
		WithAPIKey(e.APIKey),
		WithEndpointTimeout(timeout),
		WithEndpointMaxRetries(e.MaxRetries),
	)
}

// LoadFromEnv reads configuration from CODESENSE_-prefixed variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("codesense", &cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// ToAppConfig converts env settings into an immutable AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	opts := []AppConfigOption{
		WithLogLevel(e.LogLevel),
		WithLogFormat(parseLogFormat(e.LogFormat)),
		WithCloneTimeout(e.CloneTimeout),
		WithChunking(e.ChunkWindow, e.ChunkStride),
		WithMaxFileBytes(e.MaxFileBytes),
		WithEmbedLimits(e.EmbedBatchSize, e.EmbedRPM, e.EmbedMaxRetries, e.EmbedConcurrency),
		WithRetrieval(e.CallGraphMaxDepth, e.VectorScoreThreshold, e.TopK),
	}
	if e.DataDir != "" {
		opts = append(opts, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		opts = append(opts, WithDBURL(e.DBURL))
	}
	if e.RedisURL != "" {
		opts = append(opts, WithRedisURL(e.RedisURL))
	}
	if e.Embedding.IsConfigured() {
		opts = append(opts, WithEmbeddingEndpoint(e.Embedding.ToEndpoint(e.EmbedTimeout)))
	}
	if e.Generator.IsConfigured() {
		opts = append(opts, WithGeneratorEndpoint(e.Generator.ToEndpoint(e.GeneratorTimeout)))
	}

	cfg := NewAppConfigWithOptions(opts...)
	cfg.embedTimeout = e.EmbedTimeout
	cfg.generatorTimeout = e.GeneratorTimeout
	return cfg
}

func parseLogFormat(s string) LogFormat {
	switch s {
	case "terminal", "pretty", "text":
		return LogFormatTerminal
	default:
		return LogFormatJSON
	}
}
