package config

import (
	"os"
	"testing"
)

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()

	if cfg.DBType != "sqlite" {
		t.Errorf("Expected DBType=sqlite, got %s", cfg.DBType)
	}
	if cfg.Dimensions != 768 {
		t.Errorf("Expected Dimensions=768, got %d", cfg.Dimensions)
	}
	if cfg.EmbeddingProvider != "ollama" {
		t.Errorf("Expected EmbeddingProvider=ollama, got %s", cfg.EmbeddingProvider)
	}
	if cfg.BatchSize != 32 {
		t.Errorf("Expected BatchSize=32, got %d", cfg.BatchSize)
	}
	if cfg.MaxWorkers != 4 {
		t.Errorf("Expected MaxWorkers=4, got %d", cfg.MaxWorkers)
	}
}

func TestLoadPipelineConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"CODETECT_DB_TYPE", "CODETECT_DB_DSN", "CODETECT_DB_PATH",
		"CODETECT_VECTOR_DIMENSIONS", "CODETECT_EMBEDDING_PROVIDER",
		"CODETECT_EMBEDDING_MODEL", "CODETECT_OLLAMA_URL",
		"CODETECT_BATCH_SIZE", "CODETECT_MAX_WORKERS",
	} {
		os.Unsetenv(key)
	}

	cfg := LoadPipelineConfigFromEnv()
	want := DefaultPipelineConfig()
	if cfg != want {
		t.Errorf("LoadPipelineConfigFromEnv() with no env set = %+v, want %+v", cfg, want)
	}
}

func TestLoadPipelineConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("CODETECT_DB_TYPE", "postgres")
	t.Setenv("CODETECT_DB_DSN", "postgres://localhost/codetect")
	t.Setenv("CODETECT_VECTOR_DIMENSIONS", "1536")
	t.Setenv("CODETECT_EMBEDDING_PROVIDER", "off")
	t.Setenv("CODETECT_BATCH_SIZE", "64")
	t.Setenv("CODETECT_MAX_WORKERS", "8")

	cfg := LoadPipelineConfigFromEnv()

	if cfg.DBType != "postgres" {
		t.Errorf("DBType = %q, want postgres", cfg.DBType)
	}
	if cfg.DSN != "postgres://localhost/codetect" {
		t.Errorf("DSN = %q, want postgres DSN", cfg.DSN)
	}
	if cfg.Dimensions != 1536 {
		t.Errorf("Dimensions = %d, want 1536", cfg.Dimensions)
	}
	if cfg.EmbeddingProvider != "off" {
		t.Errorf("EmbeddingProvider = %q, want off", cfg.EmbeddingProvider)
	}
	if cfg.BatchSize != 64 {
		t.Errorf("BatchSize = %d, want 64", cfg.BatchSize)
	}
	if cfg.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want 8", cfg.MaxWorkers)
	}
}

func TestLoadPipelineConfigFromEnv_IgnoresInvalidInts(t *testing.T) {
	t.Setenv("CODETECT_VECTOR_DIMENSIONS", "not-a-number")
	t.Setenv("CODETECT_BATCH_SIZE", "-5")

	cfg := LoadPipelineConfigFromEnv()
	if cfg.Dimensions != 768 {
		t.Errorf("Dimensions = %d, want default 768 for invalid input", cfg.Dimensions)
	}
	if cfg.BatchSize != 32 {
		t.Errorf("BatchSize = %d, want default 32 for invalid input", cfg.BatchSize)
	}
}
