// Package config loads the application configuration from a YAML file
// with environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all recall configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig locates the SQLite archive.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LLMConfig configures the generation service.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, anthropic
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// EmbeddingConfig configures the embedding backend.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // genai, ollama
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
}

// RetrievalConfig tunes the evidence pipeline.
type RetrievalConfig struct {
	MaxExactMentions int     `yaml:"max_exact_mentions"`
	SessionCap       int     `yaml:"session_cap"`
	VectorThreshold  float64 `yaml:"vector_threshold"`
	VectorLimit      int     `yaml:"vector_limit"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/recall.db",
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  "60s",
		},
		Embedding: EmbeddingConfig{
			Provider:       "genai",
			Model:          "gemini-embedding-001",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
		},
		Retrieval: RetrievalConfig{
			MaxExactMentions: 40,
			SessionCap:       3,
			VectorThreshold:  0.30,
			VectorLimit:      40,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file returns
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LLMTimeout parses the generation timeout, falling back to one minute.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// applyEnvOverrides applies environment variable overrides. API keys
// are usually supplied this way rather than in the config file.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedding.APIKey == "" {
			c.Embedding.APIKey = key
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && c.LLM.Provider == "anthropic" {
		c.LLM.APIKey = key
	}
	if path := os.Getenv("RECALL_DB"); path != "" {
		c.Database.Path = path
	}
}
