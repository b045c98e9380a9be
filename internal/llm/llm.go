// Package llm provides a provider-agnostic client for chat-style completion
// services. It defines the two-message (system + user) request shape the
// script engine uses, a concrete OpenAI implementation, and a deterministic
// mock for testing.
package llm

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTransport covers failed or timed-out requests to the completion
	// service. Retryable.
	ErrTransport = errors.New("completion request failed")

	// ErrEmptyResponse indicates the service answered with no content.
	// Retryable.
	ErrEmptyResponse = errors.New("completion service returned no content")

	// ErrInvalidConfig indicates a misconfigured client.
	ErrInvalidConfig = errors.New("invalid completion configuration")
)

// Request is a two-message completion request. The service is constrained
// to return a single JSON object as its entire response.
type Request struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Response carries the generated text plus token usage as reported by the
// service.
type Response struct {
	Text         string
	Model        string
	PromptTokens int
	OutputTokens int
}

// Client defines the interface for completion providers. Implementations
// must be stateless and safe for concurrent use.
type Client interface {
	// Complete sends the two-message request and returns the raw response
	// text. The response-format constraint (single JSON object) is applied
	// by the implementation.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Config holds common configuration for completion clients.
type Config struct {
	// Model is the default model identifier used when a request leaves
	// Model empty.
	Model string

	// MaxTokens caps the response length (0 = provider default).
	MaxTokens int

	// Temperature balances creativity against consistency.
	Temperature float64

	// Timeout bounds a single request. Generation is long-form, so the
	// default is generous.
	Timeout time.Duration

	// APIKey authenticates against the provider.
	APIKey string
}

// DefaultConfig returns sensible defaults for script generation.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   4096,
		Temperature: 0.7,
		Timeout:     60 * time.Second,
	}
}
