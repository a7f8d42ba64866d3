// Package llm wraps the generation service behind a small client
// interface. Providers: Google Gemini (with native structured-output
// schema enforcement) and Anthropic (schema via prompt contract).
//
// Retry policy, shared by both clients: a transient server error
// (429/5xx) is retried at most once with a short backoff; a timeout is
// never retried, to avoid duplicate spend on a call that may still be
// running server-side.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Client is the generation service used by answer synthesis. The answer
// must come back as JSON matching the supplied schema; clients that
// cannot enforce a schema natively embed it in the prompt contract.
type Client interface {
	CompleteWithSchema(ctx context.Context, systemPrompt, userPrompt, jsonSchema string) (string, error)
}

// ErrNoCompletion reports a well-formed provider response that carried no
// usable candidate text.
var ErrNoCompletion = errors.New("llm: no completion returned")

// Config selects and configures a generation provider.
type Config struct {
	Provider string // "gemini" or "anthropic"
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewClient creates a generation client from configuration.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiClient(cfg), nil
	case "anthropic":
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s (use 'gemini' or 'anthropic')", cfg.Provider)
	}
}

// retryableStatus reports whether an HTTP status is worth one retry.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// retryBackoff is the pause before the single retry attempt.
const retryBackoff = 2 * time.Second
