package llm

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Tier selects the quality and cost level of a model call
type Tier int

const (
	// TierFast is used for extraction-style stages
	TierFast Tier = iota
	// TierAccurate is used for reasoning-heavy stages
	TierAccurate
)

// String returns the tier name
func (t Tier) String() string {
	switch t {
	case TierFast:
		return "fast"
	case TierAccurate:
		return "accurate"
	default:
		return fmt.Sprintf("Tier(%d)", t)
	}
}

const (
	DefaultMaxTokens           = 4096
	DefaultFastTemperature     = 0.2
	DefaultAccurateTemperature = 0.3
)

// InvokeOption configures a single router call
type InvokeOption func(*Request)

// WithMaxTokens sets the completion token budget
func WithMaxTokens(n int) InvokeOption {
	return func(r *Request) {
		if n > 0 {
			r.MaxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) InvokeOption {
	return func(r *Request) {
		r.Temperature = t
	}
}

// WithModel overrides the backend's model for this call
func WithModel(model string) InvokeOption {
	return func(r *Request) {
		r.Model = model
	}
}

// Router sends calls to a fast or accurate backend and accumulates token usage.
// A router belongs to one run; its counters and fallback warning are not shared.
type Router struct {
	fast     Backend
	accurate Backend

	mu           sync.Mutex
	inputTokens  int
	outputTokens int
	warned       bool
}

// NewRouter creates a router. fast may be nil, in which case every call uses accurate.
func NewRouter(fast, accurate Backend) *Router {
	return &Router{fast: fast, accurate: accurate}
}

// Invoke sends prompt to the backend for tier and returns the response text.
// A failed fast call is retried once on the accurate backend.
func (r *Router) Invoke(ctx context.Context, tier Tier, prompt string, opts ...InvokeOption) (string, error) {
	if r.accurate == nil {
		return "", ErrNoBackend
	}

	req := Request{
		Prompt:      prompt,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultAccurateTemperature,
	}
	if tier == TierFast {
		req.Temperature = DefaultFastTemperature
	}
	for _, opt := range opts {
		opt(&req)
	}

	if tier == TierFast && r.hasDistinctFast() {
		text, err := r.call(ctx, r.fast, req)
		if err == nil {
			return text, nil
		}
		r.warnFallback(err)
	}

	return r.call(ctx, r.accurate, req)
}

// InvokeJSON invokes the model and decodes the response into v
func (r *Router) InvokeJSON(ctx context.Context, tier Tier, prompt string, v any, opts ...InvokeOption) error {
	text, err := r.Invoke(ctx, tier, prompt, opts...)
	if err != nil {
		return err
	}
	return DecodeInto(text, v)
}

// Decode extracts a JSON object from raw model output
func (r *Router) Decode(raw string) (map[string]any, error) {
	return Decode(raw)
}

// Tokens returns the accumulated input and output token counts
func (r *Router) Tokens() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inputTokens, r.outputTokens
}

// TotalTokens returns input plus output tokens
func (r *Router) TotalTokens() int {
	in, out := r.Tokens()
	return in + out
}

// ResetTokens zeroes the counters
func (r *Router) ResetTokens() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputTokens = 0
	r.outputTokens = 0
}

func (r *Router) hasDistinctFast() bool {
	if r.fast == nil {
		return false
	}
	return r.fast.ModelName() != r.accurate.ModelName()
}

func (r *Router) call(ctx context.Context, b Backend, req Request) (string, error) {
	resp, err := b.Invoke(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.ModelName(), err)
	}
	if resp.Usage != nil {
		r.mu.Lock()
		r.inputTokens += resp.Usage.InputTokens
		r.outputTokens += resp.Usage.OutputTokens
		r.mu.Unlock()
	}
	return resp.Text, nil
}

func (r *Router) warnFallback(err error) {
	r.mu.Lock()
	first := !r.warned
	r.warned = true
	r.mu.Unlock()

	if first {
		log.Printf("Warning: fast model %s failed, falling back to %s: %v", r.fast.ModelName(), r.accurate.ModelName(), err)
	}
}
