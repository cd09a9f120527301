package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	HTTP       HTTPConfig       `envconfig:"HTTP"`
	Transcribe TranscribeConfig `envconfig:"TRANSCRIBE"`
	LLM        LLMConfig        `envconfig:"LLM"`
	Gate       GateConfig       `envconfig:"GATE"`
	Pipeline   PipelineConfig   `envconfig:"PIPELINE"`
	Store      StoreConfig      `envconfig:"STORE"`
	Kafka      KafkaConfig      `envconfig:"KAFKA"`
}

type HTTPConfig struct {
	Port         string        `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10m"`
	MaxUploadMB  int           `envconfig:"MAX_UPLOAD_MB" default:"100"`
}

// TranscribeConfig selects and configures the speech-to-text backend.
type TranscribeConfig struct {
	Provider string        `envconfig:"PROVIDER" default:"openai"` // openai, assemblyai, mock
	APIKey   string        `envconfig:"API_KEY"`
	BaseURL  string        `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	Model    string        `envconfig:"MODEL" default:"whisper-1"`
	Language string        `envconfig:"LANGUAGE" default:"en"`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"2m"`
}

// LLMConfig configures the chat-completion backend used for scoring.
type LLMConfig struct {
	Provider    string        `envconfig:"PROVIDER" default:"openai"` // openai, mock
	APIKey      string        `envconfig:"API_KEY"`
	BaseURL     string        `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	Model       string        `envconfig:"MODEL" default:"gpt-4"`
	Temperature float64       `envconfig:"TEMPERATURE" default:"0.7"`
	MaxTokens   int           `envconfig:"MAX_TOKENS" default:"500"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"1m"`
}

type GateConfig struct {
	MinDurationSeconds float64 `envconfig:"MIN_DURATION_SECONDS" default:"200"`
}

// PipelineConfig bounds how long runs with pending files stay in memory.
type PipelineConfig struct {
	RunTTL        time.Duration `envconfig:"RUN_TTL" default:"1h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
}

type StoreConfig struct {
	Driver          string        `envconfig:"DRIVER" default:"mongo"` // mongo, postgres, memory
	MongoURI        string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string        `envconfig:"MONGO_DATABASE" default:"call_review"`
	MongoCollection string        `envconfig:"MONGO_COLLECTION" default:"call_analysis"`
	PostgresDSN     string        `envconfig:"POSTGRES_DSN"`
	ConnectTimeout  time.Duration `envconfig:"CONNECT_TIMEOUT" default:"30s"`
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"ENABLED" default:"false"`
	Brokers []string `envconfig:"BROKERS"`
	Topic   string   `envconfig:"TOPIC" default:"call-review.records"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.applyKeyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyKeyFallbacks lets a single OPENAI_API_KEY (or ASSEMBLYAI_API_KEY) serve
// both backends when the dedicated keys are unset.
func (c *Config) applyKeyFallbacks() {
	if c.Transcribe.APIKey == "" {
		switch c.Transcribe.Provider {
		case "openai":
			c.Transcribe.APIKey = os.Getenv("OPENAI_API_KEY")
		case "assemblyai":
			c.Transcribe.APIKey = os.Getenv("ASSEMBLYAI_API_KEY")
		}
	}
	if c.LLM.APIKey == "" && c.LLM.Provider == "openai" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var problems []string

	switch c.Transcribe.Provider {
	case "openai", "assemblyai":
		if c.Transcribe.APIKey == "" {
			problems = append(problems, "TRANSCRIBE_API_KEY is required for provider "+c.Transcribe.Provider)
		}
	case "mock":
	default:
		problems = append(problems, "unknown TRANSCRIBE_PROVIDER "+c.Transcribe.Provider)
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			problems = append(problems, "LLM_API_KEY is required for provider openai")
		}
	case "mock":
	default:
		problems = append(problems, "unknown LLM_PROVIDER "+c.LLM.Provider)
	}

	switch c.Store.Driver {
	case "mongo":
		if c.Store.MongoURI == "" {
			problems = append(problems, "STORE_MONGO_URI is required for driver mongo")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			problems = append(problems, "STORE_POSTGRES_DSN is required for driver postgres")
		}
	case "memory":
	default:
		problems = append(problems, "unknown STORE_DRIVER "+c.Store.Driver)
	}

	if c.Transcribe.Timeout <= 0 {
		problems = append(problems, "TRANSCRIBE_TIMEOUT must be positive")
	}
	if c.LLM.Timeout <= 0 {
		problems = append(problems, "LLM_TIMEOUT must be positive")
	}
	if c.Pipeline.RunTTL <= 0 || c.Pipeline.SweepInterval <= 0 {
		problems = append(problems, "PIPELINE_RUN_TTL and PIPELINE_SWEEP_INTERVAL must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		problems = append(problems, "KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
