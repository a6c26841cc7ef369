package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "app:\n  name: test-app\n")
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.App.Name != "test-app" {
		t.Errorf("app.name = %q", cfg.App.Name)
	}
	if cfg.Retrieval.SimilarityThreshold != 0.30 || cfg.Retrieval.TopK != 20 {
		t.Errorf("retrieval defaults = %+v", cfg.Retrieval)
	}
	if cfg.Embedding.Model != "bge-m3" || cfg.LLM.Model != "llama3.2" {
		t.Errorf("model defaults = %q / %q", cfg.Embedding.Model, cfg.LLM.Model)
	}
	if cfg.Media.Section != "*0-10" {
		t.Errorf("media.section = %q", cfg.Media.Section)
	}
	if cfg.Embedding.Timeout != 60*time.Second {
		t.Errorf("embedding.timeout = %v", cfg.Embedding.Timeout)
	}
	if cfg.Ingest.QueueMode() {
		t.Errorf("default ingest mode should be inline")
	}
}

func TestLoadFromMergesEnvFileAndPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "retrieval:\n  top_k: 10\nllm:\n  model: ${TEST_LLM_MODEL:mistral}\n")
	writeConfig(t, dir, "config.staging.yaml", "retrieval:\n  top_k: 5\n")
	t.Setenv("APP_ENV", "staging")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("env file should override top_k, got %d", cfg.Retrieval.TopK)
	}
	if cfg.LLM.Model != "mistral" {
		t.Errorf("placeholder default not applied, got %q", cfg.LLM.Model)
	}
}

func TestLoadFromRejectsInvalidBackend(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", "storage:\n  segments:\n    backend: postgres\n")
	t.Setenv("APP_ENV", "test")

	if _, err := LoadFrom(dir); err == nil {
		t.Fatalf("postgres backend without database.postgres.enabled should fail")
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	if _, err := LoadFrom(t.TempDir()); err == nil {
		t.Fatalf("missing config.yaml should fail")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("PLAYLIST_TEST_HOST", "redis.local")
	got := expandEnv("host: ${PLAYLIST_TEST_HOST:localhost} port: ${PLAYLIST_TEST_PORT:6379} key: ${PLAYLIST_TEST_UNSET}")
	want := "host: redis.local port: 6379 key: ${PLAYLIST_TEST_UNSET}"
	if got != want {
		t.Fatalf("expandEnv = %q, want %q", got, want)
	}
}
