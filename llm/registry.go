package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
)

// Supported providers
const (
	ProviderBedrock = "bedrock"
	ProviderOllama  = "ollama"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
)

// ErrUnknownProvider is returned for a provider name outside the supported set
var ErrUnknownProvider = errors.New("unknown llm provider")

// Providers lists the supported provider names
func Providers() []string {
	return []string{ProviderBedrock, ProviderOllama, ProviderGemini, ProviderOpenAI}
}

// ValidProvider reports whether name is a supported provider
func ValidProvider(name string) bool {
	return slices.Contains(Providers(), name)
}

// ProviderSettings holds the model settings of every provider
type ProviderSettings struct {
	DefaultProvider string

	Bedrock          BedrockConfig
	BedrockFastModel string

	OllamaBaseURL   string
	OllamaModel     string
	OllamaFastModel string

	GeminiAPIKey    string
	GeminiModel     string
	GeminiFastModel string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIFastModel string

	Timeout   time.Duration
	RateLimit float64
}

// ProviderSource returns the provider currently selected at runtime
type ProviderSource interface {
	ActiveProvider(ctx context.Context) (string, error)
}

// ProviderStatus reports whether a provider's models are reachable
type ProviderStatus struct {
	Provider  string   `json:"provider"`
	Model     string   `json:"model"`
	FastModel string   `json:"fast_model"`
	Available bool     `json:"available"`
	Models    []string `json:"models,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type backendPair struct {
	fast     Backend
	accurate Backend
}

// Registry builds backends per provider and hands out one router per run.
// Backends are cached so their rate limiters are shared across runs.
type Registry struct {
	settings ProviderSettings
	source   ProviderSource
	gemini   *genai.Client

	mu    sync.Mutex
	pairs map[string]backendPair
}

// RegistryOption is a functional option for Registry
type RegistryOption func(*Registry)

// RegistryWithProviderSource sets the runtime provider lookup
func RegistryWithProviderSource(source ProviderSource) RegistryOption {
	return func(r *Registry) {
		r.source = source
	}
}

// RegistryWithGeminiClient sets a shared Gemini client
func RegistryWithGeminiClient(client *genai.Client) RegistryOption {
	return func(r *Registry) {
		r.gemini = client
	}
}

// NewRegistry creates a provider registry
func NewRegistry(settings ProviderSettings, opts ...RegistryOption) *Registry {
	if settings.DefaultProvider == "" {
		settings.DefaultProvider = ProviderBedrock
	}
	r := &Registry{
		settings: settings,
		pairs:    make(map[string]backendPair),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ActiveProvider returns the runtime provider, falling back to the configured default
func (r *Registry) ActiveProvider(ctx context.Context) string {
	if r.source != nil {
		provider, err := r.source.ActiveProvider(ctx)
		if err != nil {
			log.Printf("Warning: failed to read active llm provider, using %s: %v", r.settings.DefaultProvider, err)
		} else if ValidProvider(provider) {
			return provider
		}
	}
	return r.settings.DefaultProvider
}

// NewRouter returns a fresh router for the active provider
func (r *Registry) NewRouter(ctx context.Context) (*Router, error) {
	fast, accurate, err := r.Backends(ctx, r.ActiveProvider(ctx))
	if err != nil {
		return nil, err
	}
	return NewRouter(fast, accurate), nil
}

// Backends returns the fast and accurate backends of provider
func (r *Registry) Backends(ctx context.Context, provider string) (Backend, Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pair, ok := r.pairs[provider]; ok {
		return pair.fast, pair.accurate, nil
	}

	pair, err := r.build(ctx, provider)
	if err != nil {
		return nil, nil, err
	}
	r.pairs[provider] = pair
	return pair.fast, pair.accurate, nil
}

func (r *Registry) build(ctx context.Context, provider string) (backendPair, error) {
	s := r.settings
	var fast, accurate Backend

	switch provider {
	case ProviderBedrock:
		accCfg := s.Bedrock
		accCfg.Timeout = s.Timeout
		acc, err := NewBedrockBackend(ctx, accCfg)
		if err != nil {
			return backendPair{}, err
		}
		accurate = acc
		if s.BedrockFastModel != "" {
			fastCfg := accCfg
			fastCfg.ModelID = s.BedrockFastModel
			f, err := NewBedrockBackend(ctx, fastCfg)
			if err != nil {
				return backendPair{}, err
			}
			fast = f
		}

	case ProviderOllama:
		acc, err := NewOllamaBackend(s.OllamaBaseURL, s.OllamaModel, s.Timeout)
		if err != nil {
			return backendPair{}, err
		}
		accurate = acc
		if s.OllamaFastModel != "" {
			f, err := NewOllamaBackend(s.OllamaBaseURL, s.OllamaFastModel, s.Timeout)
			if err != nil {
				return backendPair{}, err
			}
			fast = f
		}

	case ProviderGemini:
		client := r.gemini
		if client == nil {
			c, err := NewGeminiClient(ctx, s.GeminiAPIKey)
			if err != nil {
				return backendPair{}, err
			}
			client = c
			r.gemini = c
		}
		acc, err := NewGeminiBackend(client, s.GeminiModel)
		if err != nil {
			return backendPair{}, err
		}
		accurate = acc
		if s.GeminiFastModel != "" {
			f, err := NewGeminiBackend(client, s.GeminiFastModel)
			if err != nil {
				return backendPair{}, err
			}
			fast = f
		}

	case ProviderOpenAI:
		acc, err := NewOpenAIBackend(OpenAIConfig{
			APIKey: s.OpenAIAPIKey, BaseURL: s.OpenAIBaseURL, Model: s.OpenAIModel, Timeout: s.Timeout, JSONMode: true,
		})
		if err != nil {
			return backendPair{}, err
		}
		accurate = acc
		if s.OpenAIFastModel != "" {
			f, err := NewOpenAIBackend(OpenAIConfig{
				APIKey: s.OpenAIAPIKey, BaseURL: s.OpenAIBaseURL, Model: s.OpenAIFastModel, Timeout: s.Timeout, JSONMode: true,
			})
			if err != nil {
				return backendPair{}, err
			}
			fast = f
		}

	default:
		return backendPair{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	accurate = NewRateLimited(accurate, s.RateLimit, 1)
	if fast != nil {
		fast = NewRateLimited(fast, s.RateLimit, 1)
	}
	log.Printf("LLM provider %s initialized (accurate=%s)", provider, accurate.ModelName())
	return backendPair{fast: fast, accurate: accurate}, nil
}

// Status checks model availability for provider. OpenAI-compatible providers
// are asked for their model list; the others report whether credentials are set.
func (r *Registry) Status(ctx context.Context, provider string) ProviderStatus {
	status := ProviderStatus{Provider: provider}
	s := r.settings

	switch provider {
	case ProviderBedrock:
		status.Model, status.FastModel = s.Bedrock.ModelID, s.BedrockFastModel
		status.Available = s.Bedrock.BearerToken != "" || (s.Bedrock.AccessKeyID != "" && s.Bedrock.SecretAccessKey != "")
		if !status.Available {
			status.Error = "no static AWS credentials or bearer token configured; default credential chain will be used"
		}
		return status
	case ProviderGemini:
		status.Model, status.FastModel = s.GeminiModel, s.GeminiFastModel
		status.Available = s.GeminiAPIKey != ""
		if !status.Available {
			status.Error = "GEMINI_API_KEY not set"
		}
		return status
	case ProviderOllama:
		status.Model, status.FastModel = s.OllamaModel, s.OllamaFastModel
	case ProviderOpenAI:
		status.Model, status.FastModel = s.OpenAIModel, s.OpenAIFastModel
	default:
		status.Error = fmt.Sprintf("%v: %q", ErrUnknownProvider, provider)
		return status
	}

	_, accurate, err := r.Backends(ctx, provider)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	lister, ok := unwrapBackend(accurate).(interface {
		ListModels(ctx context.Context) ([]string, error)
	})
	if !ok {
		status.Error = "provider does not support model listing"
		return status
	}

	models, err := lister.ListModels(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Models = models
	status.Available = slices.Contains(models, status.Model)
	if !status.Available {
		status.Error = fmt.Sprintf("model %s not available", status.Model)
	}
	return status
}

func unwrapBackend(b Backend) Backend {
	if rl, ok := b.(*RateLimited); ok {
		return rl.Backend
	}
	return b
}
