// Package embedding generates vector embeddings for questions and
// archive chunks. Supports two backends: Google GenAI (cloud) and Ollama
// (local).
package embedding

import (
	"context"
	"fmt"
	"math"
)

// =============================================================================
// ENGINE INTERFACE
// =============================================================================

// Engine generates vector embeddings for text. Embeddings are
// deterministic for identical input, which lets the retrieval engine
// budget exactly one embedding call per request.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings.
	Dimensions() int

	// Name returns the engine name.
	Name() string
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config selects and configures an embedding backend.
type Config struct {
	// Provider: "genai" or "ollama".
	Provider string

	// GenAI settings.
	GenAIAPIKey string
	GenAIModel  string // default gemini-embedding-001

	// TaskType for GenAI: queries embed with RETRIEVAL_QUERY, archive
	// chunks with RETRIEVAL_DOCUMENT.
	TaskType string

	// Ollama settings.
	OllamaEndpoint string // default http://localhost:11434
	OllamaModel    string // default embeddinggemma
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		Provider:       "ollama",
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "embeddinggemma",
		GenAIModel:     "gemini-embedding-001",
		TaskType:       "RETRIEVAL_QUERY",
	}
}

// NewEngine creates an embedding engine from configuration.
func NewEngine(cfg Config) (Engine, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel)
	case "genai":
		return NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel, cfg.TaskType)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'genai')", cfg.Provider)
	}
}

// =============================================================================
// SIMILARITY UTILITIES
// =============================================================================

// CosineSimilarity returns the cosine similarity of two vectors: 1 means
// identical direction, 0 orthogonal.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i] * b[i])
		na += float64(a[i] * a[i])
		nb += float64(b[i] * b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
