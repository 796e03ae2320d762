// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"RELEVANCE_HOST" yaml:"host"`
	Port int    `envconfig:"RELEVANCE_PORT" yaml:"port"`

	Server ServerConfig `yaml:"server"`

	// Linguistic resources
	Dictionary DictionaryConfig `yaml:"dictionary"`

	// Served document collection
	Catalog CatalogConfig `yaml:"catalog"`

	// Rank weights used by the serving engine
	Weights WeightsConfig `yaml:"weights"`

	// Query validation limits
	Query QueryConfig `yaml:"query"`

	// Offline evaluation harness
	Evaluation EvaluationConfig `yaml:"evaluation"`

	// Metrics sinks
	Metrics MetricsConfig `yaml:"metrics"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig holds HTTP server timeouts.
type ServerConfig struct {
	ReadTimeout     time.Duration `envconfig:"RELEVANCE_READ_TIMEOUT" yaml:"read_timeout"`
	WriteTimeout    time.Duration `envconfig:"RELEVANCE_WRITE_TIMEOUT" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `envconfig:"RELEVANCE_SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`
}

// DictionaryConfig points at optional synonym and stop-word files. Empty
// paths select the built-in resources.
type DictionaryConfig struct {
	SynonymsPath  string `envconfig:"RELEVANCE_SYNONYMS_PATH" yaml:"synonyms_path"`
	StopWordsPath string `envconfig:"RELEVANCE_STOPWORDS_PATH" yaml:"stopwords_path"`
}

// CatalogConfig points at the document collection served over HTTP. An
// empty path serves the built-in evaluation documents.
type CatalogConfig struct {
	Path string `envconfig:"RELEVANCE_CATALOG_PATH" yaml:"path"`
}

// WeightsConfig holds the rank weights: four base tiers and eight context
// multipliers. RecordPath, when set, loads the tiers from a best-weights
// record written by the evaluation harness instead.
type WeightsConfig struct {
	Original float64 `envconfig:"RELEVANCE_WEIGHT_ORIGINAL" yaml:"original"`
	Synonym  float64 `envconfig:"RELEVANCE_WEIGHT_SYNONYM" yaml:"synonym"`
	Semantic float64 `envconfig:"RELEVANCE_WEIGHT_SEMANTIC" yaml:"semantic"`
	Keyword  float64 `envconfig:"RELEVANCE_WEIGHT_KEYWORD" yaml:"keyword"`

	ExactMatch         float64 `envconfig:"RELEVANCE_WEIGHT_EXACT_MATCH" yaml:"exact_match"`
	PhraseMatch        float64 `envconfig:"RELEVANCE_WEIGHT_PHRASE_MATCH" yaml:"phrase_match"`
	FuzzyMatch         float64 `envconfig:"RELEVANCE_WEIGHT_FUZZY_MATCH" yaml:"fuzzy_match"`
	PartialMatch       float64 `envconfig:"RELEVANCE_WEIGHT_PARTIAL_MATCH" yaml:"partial_match"`
	LanguagePreference float64 `envconfig:"RELEVANCE_WEIGHT_LANGUAGE" yaml:"language_preference"`
	FieldType          float64 `envconfig:"RELEVANCE_WEIGHT_FIELD_TYPE" yaml:"field_type"`
	Recency            float64 `envconfig:"RELEVANCE_WEIGHT_RECENCY" yaml:"recency"`
	Popularity         float64 `envconfig:"RELEVANCE_WEIGHT_POPULARITY" yaml:"popularity"`

	RecordPath string `envconfig:"RELEVANCE_WEIGHTS_RECORD" yaml:"record_path"`
}

// QueryConfig holds parsed-query limits and result defaults.
type QueryConfig struct {
	MaxTerms      int `envconfig:"RELEVANCE_MAX_TERMS" yaml:"max_terms"`
	MaxTermLength int `envconfig:"RELEVANCE_MAX_TERM_LENGTH" yaml:"max_term_length"`
	DefaultLimit  int `envconfig:"RELEVANCE_DEFAULT_LIMIT" yaml:"default_limit"`
	MaxLimit      int `envconfig:"RELEVANCE_MAX_LIMIT" yaml:"max_limit"`
}

// EvaluationConfig holds the grid-search settings.
type EvaluationConfig struct {
	K             int    `envconfig:"RELEVANCE_EVAL_K" yaml:"k"`
	Workers       int    `envconfig:"RELEVANCE_EVAL_WORKERS" yaml:"workers"`
	GridPath      string `envconfig:"RELEVANCE_EVAL_GRID" yaml:"grid_path"`
	SamplesPath   string `envconfig:"RELEVANCE_EVAL_SAMPLES" yaml:"samples_path"`
	DocumentsPath string `envconfig:"RELEVANCE_EVAL_DOCUMENTS" yaml:"documents_path"`
	RecordPath    string `envconfig:"RELEVANCE_EVAL_RECORD" yaml:"record_path"`
}

// MetricsConfig selects metric sinks. Sinks is a comma-separated list of
// registry, prometheus, redis and bus.
type MetricsConfig struct {
	Enabled     bool          `envconfig:"RELEVANCE_METRICS_ENABLED" yaml:"enabled"`
	Sinks       string        `envconfig:"RELEVANCE_METRICS_SINKS" yaml:"sinks"`
	Path        string        `envconfig:"RELEVANCE_METRICS_PATH" yaml:"path"`
	BufferSize  int           `envconfig:"RELEVANCE_METRICS_BUFFER" yaml:"buffer_size"`
	RedisURL    string        `envconfig:"RELEVANCE_METRICS_REDIS_URL" yaml:"redis_url"`
	RedisPrefix string        `envconfig:"RELEVANCE_METRICS_REDIS_PREFIX" yaml:"redis_prefix"`
	RedisTTL    time.Duration `envconfig:"RELEVANCE_METRICS_REDIS_TTL" yaml:"redis_ttl"`
}

// SinkList returns the configured sink names, lowercased and trimmed.
func (m MetricsConfig) SinkList() []string {
	var sinks []string
	for _, s := range strings.Split(m.Sinks, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			sinks = append(sinks, s)
		}
	}
	return sinks
}

// HasSink reports whether name is among the configured sinks.
func (m MetricsConfig) HasSink(name string) bool {
	for _, s := range m.SinkList() {
		if s == name {
			return true
		}
	}
	return false
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"RELEVANCE_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"RELEVANCE_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"RELEVANCE_KAFKA_GROUP" yaml:"kafka_group"`
	KafkaVersion string `envconfig:"RELEVANCE_KAFKA_VERSION" yaml:"kafka_version"`
	EventLog     string `envconfig:"RELEVANCE_EVENT_LOG" yaml:"event_log"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RELEVANCE_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RELEVANCE_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	APIKey          string  `envconfig:"RELEVANCE_API_KEY" yaml:"api_key"`
	RateLimit       float64 `envconfig:"RELEVANCE_RATE_LIMIT" yaml:"rate_limit"` // requests/second per client, 0 = disabled
	RateBurst       int     `envconfig:"RELEVANCE_RATE_BURST" yaml:"rate_burst"`
	MaxRequestBytes int64   `envconfig:"RELEVANCE_MAX_REQUEST_BYTES" yaml:"max_request_bytes"`
	MaxQueryLength  int     `envconfig:"RELEVANCE_MAX_QUERY_LENGTH" yaml:"max_query_length"`
	CORSOrigins     string  `envconfig:"RELEVANCE_CORS_ORIGINS" yaml:"cors_origins"`
}

// CORSOriginList returns the allowed CORS origins. An empty setting
// disables CORS headers.
func (s SecurityConfig) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Load loads configuration from defaults, an optional YAML file and the
// environment, in increasing priority, then validates it.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, apperrors.ConfigError("loading config file", err).WithDetail("path", configPath)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, apperrors.ConfigError("processing env config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.ConfigError("validating config", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Server = ServerConfig{
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	cfg.Weights = DefaultWeights()

	cfg.Query = QueryConfig{
		MaxTerms:      50,
		MaxTermLength: 100,
		DefaultLimit:  20,
		MaxLimit:      500,
	}

	cfg.Evaluation = EvaluationConfig{
		K:          10,
		Workers:    4,
		RecordPath: "best_weights.json",
	}

	cfg.Metrics = MetricsConfig{
		Enabled:     true,
		Sinks:       "registry",
		Path:        "/metrics",
		BufferSize:  1024,
		RedisURL:    "redis://localhost:6379",
		RedisPrefix: "relevance:metrics:",
		RedisTTL:    24 * time.Hour,
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit:       0,
		RateBurst:       20,
		MaxRequestBytes: 10 * 1024 * 1024,
		MaxQueryLength:  10000,
		CORSOrigins:     "*",
	}
}

// DefaultWeights returns the default rank weights. Literal matches outweigh
// synonym matches; every context multiplier is neutral.
func DefaultWeights() WeightsConfig {
	return WeightsConfig{
		Original: 1.0,
		Synonym:  0.6,
		Semantic: 0.4,
		Keyword:  0.3,

		ExactMatch:         1.0,
		PhraseMatch:        1.0,
		FuzzyMatch:         1.0,
		PartialMatch:       1.0,
		LanguagePreference: 1.0,
		FieldType:          1.0,
		Recency:            1.0,
		Popularity:         1.0,
	}
}

// Validate validates the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	for name, v := range map[string]float64{
		"original": c.Weights.Original, "synonym": c.Weights.Synonym,
		"semantic": c.Weights.Semantic, "keyword": c.Weights.Keyword,
		"exact_match": c.Weights.ExactMatch, "phrase_match": c.Weights.PhraseMatch,
		"fuzzy_match": c.Weights.FuzzyMatch, "partial_match": c.Weights.PartialMatch,
		"language_preference": c.Weights.LanguagePreference, "field_type": c.Weights.FieldType,
		"recency": c.Weights.Recency, "popularity": c.Weights.Popularity,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Sprintf("weight %s must be a finite non-negative number", name))
		}
	}

	if c.Query.MaxTerms < 1 {
		errs = append(errs, "query max_terms must be positive")
	}
	if c.Query.MaxTermLength < 1 {
		errs = append(errs, "query max_term_length must be positive")
	}
	if c.Query.DefaultLimit < 1 || c.Query.DefaultLimit > c.Query.MaxLimit {
		errs = append(errs, "query default_limit must be between 1 and max_limit")
	}

	if c.Evaluation.K < 1 {
		errs = append(errs, "evaluation k must be positive")
	}
	if c.Evaluation.Workers < 0 {
		errs = append(errs, "evaluation workers must not be negative")
	}

	validSinks := map[string]bool{"registry": true, "prometheus": true, "redis": true, "bus": true}
	for _, s := range c.Metrics.SinkList() {
		if !validSinks[s] {
			errs = append(errs, fmt.Sprintf("invalid metrics sink: %s (must be registry, prometheus, redis, or bus)", s))
		}
	}
	if c.Metrics.BufferSize < 1 {
		errs = append(errs, "metrics buffer_size must be positive")
	}
	if c.Metrics.HasSink("redis") && c.Metrics.RedisURL == "" {
		errs = append(errs, "metrics redis_url is required for the redis sink")
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}
	if c.Bus.Type == "kafka" && strings.TrimSpace(c.Bus.KafkaBrokers) == "" {
		errs = append(errs, "kafka_brokers is required for the kafka bus")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if c.Security.RateLimit < 0 {
		errs = append(errs, "rate_limit must not be negative")
	}
	if c.Security.RateLimit > 0 && c.Security.RateBurst < 1 {
		errs = append(errs, "rate_burst must be positive when rate limiting is enabled")
	}
	if c.Security.MaxRequestBytes < 1 {
		errs = append(errs, "max_request_bytes must be positive")
	}
	if c.Security.MaxQueryLength < 1 {
		errs = append(errs, "max_query_length must be positive")
	}

	if len(errs) > 0 {
		// Map iteration above is unordered.
		sort.Strings(errs)
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
