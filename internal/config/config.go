// Package config reads engine configuration from environment variables with
// documented defaults. A .env file, when present, is loaded by the CLI layer
// before this package is consulted.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full configuration surface of the generation engine and its
// HTTP server.
type Config struct {
	// Completion service.
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// Retry controller.
	MaxRetries int

	// WriterPersona selects the default prompt template.
	WriterPersona string

	// Telemetry ring buffer capacity.
	StoreCapacity int

	// HTTP server.
	ListenAddr string

	// Exemplar store; empty MilvusAddress disables few-shot retrieval.
	MilvusAddress    string
	MilvusCollection string
	EmbeddingModel   string
	EmbeddingDim     int
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		Model:            envString("SCRIPTFORGE_MODEL", "gpt-4o-mini"),
		MaxTokens:        envInt("SCRIPTFORGE_MAX_TOKENS", 4096),
		Temperature:      envFloat("SCRIPTFORGE_TEMPERATURE", 0.7),
		Timeout:          envDuration("SCRIPTFORGE_TIMEOUT", 60*time.Second),
		MaxRetries:       envInt("SCRIPTFORGE_MAX_RETRIES", 2),
		WriterPersona:    envString("SCRIPTFORGE_PERSONA", "director"),
		StoreCapacity:    envInt("SCRIPTFORGE_STORE_CAPACITY", 1000),
		ListenAddr:       envString("SCRIPTFORGE_LISTEN_ADDR", ":8080"),
		MilvusAddress:    os.Getenv("MILVUS_ADDRESS"),
		MilvusCollection: envString("MILVUS_COLLECTION", "scriptforge_exemplars"),
		EmbeddingModel:   envString("SCRIPTFORGE_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:     envInt("SCRIPTFORGE_EMBEDDING_DIM", 1536),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
