package llm

import (
	"context"
	"errors"
)

var (
	// ErrNoBackend is returned when the router has no backend for a call
	ErrNoBackend = errors.New("no model backend configured")
	// ErrEmptyResponse is returned when a backend answers with no text
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Request is a single model invocation
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	// Model overrides the backend's configured model when set
	Model string
}

// Usage is the token usage a backend reports for one call
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the text returned by a backend.
// Usage is nil when the backend does not report it.
type Response struct {
	Text  string
	Usage *Usage
}

// Backend is a generative model endpoint
type Backend interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
	ModelName() string
}
