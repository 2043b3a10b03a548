package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds the settings for an OpenAI-compatible backend.
// Ollama is reached through its /v1 endpoint with any non-empty key.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// JSONMode requests a JSON object response format
	JSONMode bool
}

// OpenAIBackend calls a chat completions endpoint
type OpenAIBackend struct {
	client   *openai.Client
	model    string
	jsonMode bool
}

// NewOpenAIBackend creates an OpenAI-compatible backend
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIBackend{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		jsonMode: cfg.JSONMode,
	}, nil
}

// NewOllamaBackend creates a backend for a local Ollama server
func NewOllamaBackend(baseURL, model string, timeout time.Duration) (*OpenAIBackend, error) {
	return NewOpenAIBackend(OpenAIConfig{
		APIKey:   "ollama",
		BaseURL:  OllamaV1URL(baseURL),
		Model:    model,
		Timeout:  timeout,
		JSONMode: true,
	})
}

// OllamaV1URL returns the OpenAI-compatible endpoint of an Ollama server
func OllamaV1URL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return baseURL + "/v1"
}

// ModelName returns the configured model
func (b *OpenAIBackend) ModelName() string {
	return b.model
}

// Invoke sends a single user message
func (b *OpenAIBackend) Invoke(ctx context.Context, req Request) (*Response, error) {
	model := b.model
	if req.Model != "" {
		model = req.Model
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: float32(req.Temperature),
	}
	if b.jsonMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// Reasoning models take MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(model) {
		chatReq.MaxCompletionTokens = req.MaxTokens
		chatReq.Temperature = 0
	} else {
		chatReq.MaxTokens = req.MaxTokens
	}

	resp, err := b.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}

	out := &Response{Text: resp.Choices[0].Message.Content}
	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		out.Usage = &Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens}
	}
	return out, nil
}

// ListModels returns the model ids the endpoint serves
func (b *OpenAIBackend) ListModels(ctx context.Context) ([]string, error) {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
