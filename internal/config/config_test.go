package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.Retrieval.MaxExactMentions != 40 || cfg.Retrieval.SessionCap != 3 {
		t.Errorf("retrieval defaults wrong: %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.VectorThreshold != 0.30 {
		t.Errorf("threshold = %v", cfg.Retrieval.VectorThreshold)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	data := `
database:
  path: /tmp/archive.db
llm:
  provider: anthropic
  model: claude-sonnet-4-20250514
  timeout: 30s
retrieval:
  max_exact_mentions: 25
  session_cap: 5
logging:
  level: debug
  json: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/archive.db" {
		t.Errorf("path = %q", cfg.Database.Path)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.Retrieval.MaxExactMentions != 25 || cfg.Retrieval.SessionCap != 5 {
		t.Errorf("retrieval overrides lost: %+v", cfg.Retrieval)
	}
	// Unset keys keep their defaults.
	if cfg.Embedding.Provider != "genai" {
		t.Errorf("embedding provider = %q", cfg.Embedding.Provider)
	}
	if got := cfg.LLMTimeout(); got != 30*time.Second {
		t.Errorf("LLMTimeout = %v", got)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	if err := os.WriteFile(path, []byte("llm: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("RECALL_DB", "/tmp/env.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "gem-key" || cfg.Embedding.APIKey != "gem-key" {
		t.Errorf("GEMINI_API_KEY not applied: %+v", cfg.LLM)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("RECALL_DB not applied: %q", cfg.Database.Path)
	}
}

func TestEnvDoesNotClobberFileKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "recall.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  api_key: file-key\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Errorf("file key clobbered: %q", cfg.LLM.APIKey)
	}
	// The embedding key was empty, so the env value fills it.
	if cfg.Embedding.APIKey != "env-key" {
		t.Errorf("embedding key = %q", cfg.Embedding.APIKey)
	}
}

func TestAnthropicKeyOnlyWhenSelected(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey == "ant-key" {
		t.Error("anthropic key applied to gemini provider")
	}

	path := filepath.Join(t.TempDir(), "recall.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  provider: anthropic\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "ant-key" {
		t.Errorf("anthropic key missing: %q", cfg.LLM.APIKey)
	}
}

func TestLLMTimeoutFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "garbage"
	if got := cfg.LLMTimeout(); got != 60*time.Second {
		t.Errorf("fallback = %v", got)
	}
	cfg.LLM.Timeout = "-5s"
	if got := cfg.LLMTimeout(); got != 60*time.Second {
		t.Errorf("negative timeout accepted: %v", got)
	}
}
