package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

type (
	// Config holds every setting the service reads from the environment.
	Config struct {
		// API server
		APIAddr  string
		LogLevel string

		// Pipeline tuning
		NumFAQs       int
		MaxCrawlPages int
		ChunkSize     int
		ChunkOverlap  int

		// Models
		LLMModel       string
		WebSearchModel string
		EmbeddingModel string
		EmbeddingDim   int

		// Vendor credentials
		OpenAIAPIKey     string
		OpenRouterAPIKey string
		FirecrawlAPIKey  string
		LlamaCloudAPIKey string

		// Session persistence
		SessionStore         string
		SessionRedisAddr     string
		SessionRedisPassword string
		SessionSQLitePath    string

		// Vector store
		QdrantURL    string
		QdrantAPIKey string
	}
)

const (
	DefaultAPIAddr  = ":8000"
	DefaultLogLevel = "info"

	DefaultNumFAQs       = 5
	DefaultMaxCrawlPages = 1
	DefaultChunkSize     = 600
	DefaultChunkOverlap  = 128

	DefaultLLMModel       = "gpt-4o-mini"
	DefaultWebSearchModel = "perplexity/sonar-reasoning-pro"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultEmbeddingDim   = 1536

	DefaultSessionStore     = StoreMemory
	DefaultSessionRedisAddr = "localhost:6379"
	DefaultSessionSQLite    = "sessions.db"

	MaxNumFAQs      = 100
	MaxCrawlPages   = 500
	MaxChunkSize    = 100_000
	MaxEmbeddingDim = 16_384
	MaxChunkOverlap = MaxChunkSize
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

var (
	ErrInvalidSessionStore = errors.New("invalid session store backend")
	ErrOverlapTooLarge     = errors.New("chunk overlap must be < chunk size")
)

// Default creates a configuration with sensible defaults for every
// setting. API keys default to empty and must come from the environment.
func Default() *Config {
	return &Config{
		APIAddr:  DefaultAPIAddr,
		LogLevel: DefaultLogLevel,

		NumFAQs:       DefaultNumFAQs,
		MaxCrawlPages: DefaultMaxCrawlPages,
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,

		LLMModel:       DefaultLLMModel,
		WebSearchModel: DefaultWebSearchModel,
		EmbeddingModel: DefaultEmbeddingModel,
		EmbeddingDim:   DefaultEmbeddingDim,

		SessionStore:      DefaultSessionStore,
		SessionRedisAddr:  DefaultSessionRedisAddr,
		SessionSQLitePath: DefaultSessionSQLite,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	loadEnvString("API_ADDR", &c.APIAddr)
	loadEnvString("LOG_LEVEL", &c.LogLevel)

	loadEnvString("OPENROUTER_MODEL", &c.LLMModel)
	loadEnvString("WEB_SEARCH_MODEL", &c.WebSearchModel)
	loadEnvString("EMBEDDING_MODEL", &c.EmbeddingModel)

	loadEnvString("OPENAI_API_KEY", &c.OpenAIAPIKey)
	loadEnvString("OPENROUTER_API_KEY", &c.OpenRouterAPIKey)
	loadEnvString("FIRECRAWL_API_KEY", &c.FirecrawlAPIKey)
	loadEnvString("LLAMA_CLOUD_API_KEY", &c.LlamaCloudAPIKey)

	loadEnvString("SESSION_STORE", &c.SessionStore)
	loadEnvString("SESSION_REDIS_ADDR", &c.SessionRedisAddr)
	loadEnvString("SESSION_REDIS_PASSWORD", &c.SessionRedisPassword)
	loadEnvString("SESSION_SQLITE_PATH", &c.SessionSQLitePath)

	loadEnvString("QDRANT_URL", &c.QdrantURL)
	loadEnvString("QDRANT_API_KEY", &c.QdrantAPIKey)

	if err := loadEnvInt(
		"NUM_FAQS_TO_GENERATE", &c.NumFAQs, 0, MaxNumFAQs,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MAX_CRAWL_PAGES", &c.MaxCrawlPages, 0, MaxCrawlPages,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"CHUNK_SIZE", &c.ChunkSize, 0, MaxChunkSize,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"CHUNK_OVERLAP", &c.ChunkOverlap, -1, MaxChunkOverlap,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"EMBEDDING_DIMENSION", &c.EmbeddingDim, 0, MaxEmbeddingDim,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	switch c.SessionStore {
	case StoreMemory, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSessionStore, c.SessionStore)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d, size %d",
			ErrOverlapTooLarge, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

func loadEnvString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt(key string, dst *int, min, max int) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	if v <= min || v > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, v, min+1, max)
	}
	*dst = v
	return nil
}
