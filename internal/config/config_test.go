package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/ricesearch/relevance/internal/pkg/errors"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RELEVANCE_PORT", "9090")
	t.Setenv("RELEVANCE_LOG_LEVEL", "debug")
	t.Setenv("RELEVANCE_WEIGHT_SYNONYM", "0.45")
	t.Setenv("RELEVANCE_METRICS_REDIS_TTL", "2h")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}

	if cfg.Weights.Synonym != 0.45 {
		t.Errorf("Weights.Synonym = %v, want 0.45", cfg.Weights.Synonym)
	}

	if cfg.Metrics.RedisTTL != 2*time.Hour {
		t.Errorf("Metrics.RedisTTL = %v, want 2h", cfg.Metrics.RedisTTL)
	}

	// Untouched values keep their defaults.
	if cfg.Weights.Original != 1.0 {
		t.Errorf("Weights.Original = %v, want 1.0", cfg.Weights.Original)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
host: "127.0.0.1"
port: 8888
log:
  level: warn
  format: json
weights:
  original: 1.5
  keyword: 0.2
  exact_match: 1.25
query:
  max_terms: 20
metrics:
  sinks: registry,prometheus
bus:
  type: memory
  event_log: /tmp/events.log
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}

	if cfg.Port != 8888 {
		t.Errorf("Port = %d, want 8888", cfg.Port)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}

	if cfg.Weights.Original != 1.5 {
		t.Errorf("Weights.Original = %v, want 1.5", cfg.Weights.Original)
	}

	if cfg.Weights.Synonym != 0.6 {
		t.Errorf("Weights.Synonym = %v, want default 0.6", cfg.Weights.Synonym)
	}

	if cfg.Weights.ExactMatch != 1.25 {
		t.Errorf("Weights.ExactMatch = %v, want 1.25", cfg.Weights.ExactMatch)
	}

	if cfg.Query.MaxTerms != 20 {
		t.Errorf("Query.MaxTerms = %d, want 20", cfg.Query.MaxTerms)
	}

	if cfg.Query.MaxTermLength != 100 {
		t.Errorf("Query.MaxTermLength = %d, want default 100", cfg.Query.MaxTermLength)
	}

	if !cfg.Metrics.HasSink("prometheus") {
		t.Errorf("Metrics.HasSink(prometheus) = false, want true")
	}

	if cfg.Bus.EventLog != "/tmp/events.log" {
		t.Errorf("Bus.EventLog = %s, want /tmp/events.log", cfg.Bus.EventLog)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if !apperrors.HasCode(err, apperrors.CodeConfig) {
			t.Errorf("Load() error = %v, want config error", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("port: 0\nlog:\n  level: loud\n"), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		_, err := Load(path)
		if !apperrors.HasCode(err, apperrors.CodeConfig) {
			t.Fatalf("Load() error = %v, want config error", err)
		}
		for _, want := range []string{"port", "log level"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("Load() error = %q, want it to mention %q", err, want)
			}
		}
	})
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.Port = 0
			},
			wantErr: true,
		},
		{
			name: "negative weight",
			modify: func(c *Config) {
				c.Weights.Synonym = -0.1
			},
			wantErr: true,
		},
		{
			name: "NaN multiplier",
			modify: func(c *Config) {
				c.Weights.Recency = math.NaN()
			},
			wantErr: true,
		},
		{
			name: "zero weights allowed",
			modify: func(c *Config) {
				c.Weights.Keyword = 0
				c.Weights.Semantic = 0
			},
			wantErr: false,
		},
		{
			name: "zero max terms",
			modify: func(c *Config) {
				c.Query.MaxTerms = 0
			},
			wantErr: true,
		},
		{
			name: "default limit above max",
			modify: func(c *Config) {
				c.Query.DefaultLimit = c.Query.MaxLimit + 1
			},
			wantErr: true,
		},
		{
			name: "zero evaluation k",
			modify: func(c *Config) {
				c.Evaluation.K = 0
			},
			wantErr: true,
		},
		{
			name: "unknown metrics sink",
			modify: func(c *Config) {
				c.Metrics.Sinks = "registry,statsd"
			},
			wantErr: true,
		},
		{
			name: "redis sink without url",
			modify: func(c *Config) {
				c.Metrics.Sinks = "redis"
				c.Metrics.RedisURL = ""
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid bus type",
			modify: func(c *Config) {
				c.Bus.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "kafka without brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
			},
			wantErr: true,
		},
		{
			name: "kafka with brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
				c.Bus.KafkaBrokers = "localhost:9092"
			},
			wantErr: false,
		},
		{
			name: "rate limit without burst",
			modify: func(c *Config) {
				c.Security.RateLimit = 10
				c.Security.RateBurst = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetricsConfig_SinkList(t *testing.T) {
	m := MetricsConfig{Sinks: " Registry, ,prometheus ,"}

	got := m.SinkList()
	if len(got) != 2 || got[0] != "registry" || got[1] != "prometheus" {
		t.Errorf("SinkList() = %v, want [registry prometheus]", got)
	}

	if m.HasSink("redis") {
		t.Error("HasSink(redis) = true, want false")
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{
		Host: "localhost",
		Port: 8080,
	}

	if addr := cfg.Address(); addr != "localhost:8080" {
		t.Errorf("Address() = %s, want localhost:8080", addr)
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{}

	cfg.Log.Level = "debug"
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for debug level")
	}

	cfg.Log.Level = "info"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false for info level")
	}
}

func TestSecurityConfig_CORSOriginList(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"*", 1},
		{"https://a.example, https://b.example,", 2},
	}

	for _, tt := range tests {
		got := SecurityConfig{CORSOrigins: tt.in}.CORSOriginList()
		if len(got) != tt.want {
			t.Errorf("CORSOriginList(%q) = %v, want %d entries", tt.in, got, tt.want)
		}
	}
}
