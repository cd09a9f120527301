package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads, including the unprefixed
// fallbacks envconfig consults.
func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"ENVIRONMENT", "LOG_LEVEL", "OPENAI_API_KEY", "ASSEMBLYAI_API_KEY",
		"HTTP_PORT", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT", "HTTP_MAX_UPLOAD_MB",
		"TRANSCRIBE_PROVIDER", "TRANSCRIBE_API_KEY", "TRANSCRIBE_BASE_URL", "TRANSCRIBE_MODEL",
		"TRANSCRIBE_LANGUAGE", "TRANSCRIBE_TIMEOUT",
		"LLM_PROVIDER", "LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "LLM_TEMPERATURE",
		"LLM_MAX_TOKENS", "LLM_TIMEOUT",
		"GATE_MIN_DURATION_SECONDS", "PIPELINE_RUN_TTL", "PIPELINE_SWEEP_INTERVAL",
		"STORE_DRIVER", "STORE_MONGO_URI", "STORE_MONGO_DATABASE", "STORE_MONGO_COLLECTION",
		"STORE_POSTGRES_DSN", "STORE_CONNECT_TIMEOUT",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "MAX_UPLOAD_MB", "PROVIDER", "API_KEY",
		"BASE_URL", "MODEL", "LANGUAGE", "TIMEOUT", "TEMPERATURE", "MAX_TOKENS",
		"MIN_DURATION_SECONDS", "DRIVER", "MONGO_URI", "MONGO_DATABASE", "MONGO_COLLECTION",
		"POSTGRES_DSN", "CONNECT_TIMEOUT", "ENABLED", "BROKERS", "TOPIC",
		"RUN_TTL", "SWEEP_INTERVAL",
	}
	for _, v := range vars {
		v := v
		if old, ok := os.LookupEnv(v); ok {
			os.Unsetenv(v)
			t.Cleanup(func() { os.Setenv(v, old) })
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTP.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.HTTP.Port)
	}
	if cfg.Transcribe.Provider != "openai" || cfg.Transcribe.Model != "whisper-1" || cfg.Transcribe.Language != "en" {
		t.Errorf("unexpected transcribe defaults %+v", cfg.Transcribe)
	}
	if cfg.Transcribe.APIKey != "sk-test" || cfg.LLM.APIKey != "sk-test" {
		t.Errorf("expected OPENAI_API_KEY fallback for both backends")
	}
	if cfg.LLM.Model != "gpt-4" || cfg.LLM.Temperature != 0.7 || cfg.LLM.MaxTokens != 500 {
		t.Errorf("unexpected llm defaults %+v", cfg.LLM)
	}
	if cfg.Transcribe.Timeout != 2*time.Minute || cfg.LLM.Timeout != time.Minute {
		t.Errorf("unexpected timeouts %v %v", cfg.Transcribe.Timeout, cfg.LLM.Timeout)
	}
	if cfg.Gate.MinDurationSeconds != 200 {
		t.Errorf("expected gate threshold 200, got %v", cfg.Gate.MinDurationSeconds)
	}
	if cfg.Store.Driver != "mongo" || cfg.Store.MongoCollection != "call_analysis" {
		t.Errorf("unexpected store defaults %+v", cfg.Store)
	}
	if cfg.Kafka.Enabled {
		t.Errorf("kafka should be disabled by default")
	}
	if cfg.Pipeline.RunTTL != time.Hour || cfg.Pipeline.SweepInterval != time.Minute {
		t.Errorf("unexpected pipeline defaults %+v", cfg.Pipeline)
	}
	if cfg.HTTP.MaxUploadMB != 100 {
		t.Errorf("unexpected upload limit %d", cfg.HTTP.MaxUploadMB)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRANSCRIBE_PROVIDER", "assemblyai")
	t.Setenv("ASSEMBLYAI_API_KEY", "aai-key")
	t.Setenv("LLM_PROVIDER", "mock")
	t.Setenv("LLM_MAX_TOKENS", "1200")
	t.Setenv("TRANSCRIBE_TIMEOUT", "45s")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("STORE_POSTGRES_DSN", "host=db user=x")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("HTTP_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transcribe.APIKey != "aai-key" {
		t.Errorf("expected ASSEMBLYAI_API_KEY fallback, got %q", cfg.Transcribe.APIKey)
	}
	if cfg.LLM.MaxTokens != 1200 {
		t.Errorf("expected max tokens 1200, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.Transcribe.Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %v", cfg.Transcribe.Timeout)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.HTTP.Port != "9999" {
		t.Errorf("expected port 9999, got %s", cfg.HTTP.Port)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Transcribe: TranscribeConfig{Provider: "mock", Timeout: time.Second},
			LLM:        LLMConfig{Provider: "mock", Timeout: time.Second},
			Store:      StoreConfig{Driver: "memory"},
			Pipeline:   PipelineConfig{RunTTL: time.Hour, SweepInterval: time.Minute},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"missing transcribe key", func(c *Config) { c.Transcribe.Provider = "openai" }, "TRANSCRIBE_API_KEY"},
		{"unknown transcribe provider", func(c *Config) { c.Transcribe.Provider = "vosk" }, "unknown TRANSCRIBE_PROVIDER"},
		{"missing llm key", func(c *Config) { c.LLM.Provider = "openai" }, "LLM_API_KEY"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, "unknown STORE_DRIVER"},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres" }, "STORE_POSTGRES_DSN"},
		{"zero timeout", func(c *Config) { c.LLM.Timeout = 0 }, "LLM_TIMEOUT"},
		{"zero run ttl", func(c *Config) { c.Pipeline.RunTTL = 0 }, "PIPELINE_RUN_TTL"},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, "KAFKA_BROKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
