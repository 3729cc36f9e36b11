package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8000},
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Qdrant.Collection != "choruses" {
		t.Errorf("default collection: got %q, want %q", cfg.Qdrant.Collection, "choruses")
	}
	if cfg.Qdrant.VectorSize != 768 {
		t.Errorf("default vector size: got %d, want 768", cfg.Qdrant.VectorSize)
	}
	if cfg.Qdrant.ConnectRetries != 5 {
		t.Errorf("default connect retries: got %d, want 5", cfg.Qdrant.ConnectRetries)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("default ollama base url: got %q", cfg.Ollama.BaseURL)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("default cache backend: got %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Pipeline.DefaultK != 5 {
		t.Errorf("default k: got %d, want 5", cfg.Pipeline.DefaultK)
	}
	if cfg.Pipeline.RetrieveCount != 12 {
		t.Errorf("default retrieve count: got %d, want 12", cfg.Pipeline.RetrieveCount)
	}
	if cfg.Pipeline.ContextSize != 8 {
		t.Errorf("default context size: got %d, want 8", cfg.Pipeline.ContextSize)
	}
	if !cfg.Pipeline.PerItemReasonsEnabled() {
		t.Error("per-item reasons should default to enabled")
	}
	if !cfg.Pipeline.AnalysisEnabled() {
		t.Error("overall analysis should default to enabled")
	}
}

func TestValidate_InvalidCacheBackend(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	cfg.Cache.Backend = "memcached"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown cache backend")
	}

	expected := `cache.backend must be "memory" or "redis", got "memcached"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_RedisBackendRequiresAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	cfg.Cache.Backend = "redis"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis backend without addrs")
	}

	cfg.Cache.Addrs = []string{"localhost:6379"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error with addrs set: %v", err)
	}
}

func TestValidate_ContextSizeBound(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	cfg.Pipeline.RetrieveCount = 4
	cfg.Pipeline.ContextSize = 8

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when context_size exceeds retrieve_count")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := []byte(`
http:
  port: 8000
ollama:
  base_url: ${TEST_OLLAMA_URL:-http://fallback:11434/v1}
qdrant:
  host: ${TEST_QDRANT_HOST}
`)
	if err := os.WriteFile(filepath.Join(cfgDir, "test.yaml"), content, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEST_QDRANT_HOST", "qdrant.internal")

	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Ollama.BaseURL != "http://fallback:11434/v1" {
		t.Errorf("env default not applied: got %q", cfg.Ollama.BaseURL)
	}
	if cfg.Qdrant.Host != "qdrant.internal" {
		t.Errorf("env var not expanded: got %q", cfg.Qdrant.Host)
	}
}
