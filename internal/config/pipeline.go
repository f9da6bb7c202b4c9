package config

import (
	"fmt"
	"os"
)

// PipelineConfig carries the environment-overridable defaults an
// indexer.Config is built from: database backend, embedding provider, and
// the worker/batch sizing the stage pools use.
type PipelineConfig struct {
	DBType     string
	DBPath     string
	DSN        string
	Dimensions int

	EmbeddingProvider string
	EmbeddingModel    string
	OllamaURL         string

	BatchSize  int
	MaxWorkers int
}

// DefaultPipelineConfig mirrors indexer.DefaultConfig's own defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DBType:            "sqlite",
		Dimensions:        768,
		EmbeddingProvider: "ollama",
		EmbeddingModel:    "nomic-embed-text",
		OllamaURL:         "http://localhost:11434",
		BatchSize:         32,
		MaxWorkers:        4,
	}
}

// LoadPipelineConfigFromEnv loads PipelineConfig from the CODETECT_*
// environment variables, falling back to DefaultPipelineConfig for
// anything unset.
//
//   - CODETECT_DB_TYPE: sqlite (default) or postgres
//   - CODETECT_DB_DSN: PostgreSQL connection string
//   - CODETECT_DB_PATH: SQLite database path override
//   - CODETECT_VECTOR_DIMENSIONS: embedding vector dimensions
//   - CODETECT_EMBEDDING_PROVIDER: ollama (default), lmstudio, or off
//   - CODETECT_EMBEDDING_MODEL: model name override
//   - CODETECT_OLLAMA_URL: Ollama endpoint
//   - CODETECT_BATCH_SIZE: files buffered per pipeline stage batch
//   - CODETECT_MAX_WORKERS: worker count per stage pool
func LoadPipelineConfigFromEnv() PipelineConfig {
	cfg := DefaultPipelineConfig()

	if v := os.Getenv("CODETECT_DB_TYPE"); v != "" {
		cfg.DBType = v
	}
	if v := os.Getenv("CODETECT_DB_DSN"); v != "" {
		cfg.DSN = v
	}
	if v := os.Getenv("CODETECT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CODETECT_VECTOR_DIMENSIONS"); v != "" {
		var dims int
		if _, err := fmt.Sscanf(v, "%d", &dims); err == nil && dims > 0 {
			cfg.Dimensions = dims
		}
	}
	if v := os.Getenv("CODETECT_EMBEDDING_PROVIDER"); v != "" {
		cfg.EmbeddingProvider = v
	}
	if v := os.Getenv("CODETECT_EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if v := os.Getenv("CODETECT_OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := os.Getenv("CODETECT_BATCH_SIZE"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("CODETECT_MAX_WORKERS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.MaxWorkers = n
		}
	}

	return cfg
}
