package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Backend names accepted for VectorBackend.
const (
	BackendEmbedded = "embedded"
	BackendPgvector = "pgvector"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// VectorBackend selects the vector store strategy at composition
	// time: "embedded" for the in-process store, "pgvector" for the
	// Postgres ANN store.
	VectorBackend     string `envconfig:"VECTOR_BACKEND" default:"embedded"`
	DatabaseURL       string `envconfig:"DATABASE_URL"`
	EmbeddedStorePath string `envconfig:"EMBEDDED_STORE_PATH" default:"./data/parley_store.json"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	TextModel       string  `envconfig:"TEXT_MODEL" default:"gpt-4o-mini"`
	MultimodalModel string  `envconfig:"MULTIMODAL_MODEL" default:"gpt-4o"`
	MaxTokens       int     `envconfig:"MAX_TOKENS" default:"2000"`
	Temperature     float32 `envconfig:"TEMPERATURE" default:"0.7"`

	ChunkSize          int     `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap       int     `envconfig:"CHUNK_OVERLAP" default:"50"`
	TopK               int     `envconfig:"TOP_K" default:"3"`
	RelevanceThreshold float32 `envconfig:"RELEVANCE_THRESHOLD" default:"0.60"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PARLEY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects configurations that would misbehave at runtime.
// An overlap >= chunk size would stop the chunking window from
// advancing, so it is refused here instead of looping later.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", c.TopK)
	}
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 1 {
		return fmt.Errorf("relevance_threshold must be in [0,1], got %g", c.RelevanceThreshold)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding_dimensions must be positive, got %d", c.EmbeddingDimensions)
	}

	switch c.VectorBackend {
	case BackendEmbedded:
	case BackendPgvector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("unknown vector_backend %q (expected %q or %q)", c.VectorBackend, BackendEmbedded, BackendPgvector)
	}

	return nil
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
