package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel supports reduced dimensions
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig holds configuration for the OpenAI-compatible embedder
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions is sent to text-embedding-3 models and checked for all models
	Dimensions int
	Timeout    time.Duration
}

// OpenAIEmbedder embeds text through an OpenAI-compatible embeddings endpoint
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder. Ollama works through its /v1 endpoint.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed returns one normalized vector per text
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, group := range batches(texts) {
		req := openai.EmbeddingRequest{
			Input: group,
			Model: openai.EmbeddingModel(e.model),
		}
		if strings.HasPrefix(e.model, "text-embedding-3") {
			req.Dimensions = e.dimensions
		}

		var resp openai.EmbeddingResponse
		err := retry(ctx, func() error {
			var err error
			resp, err = e.client.CreateEmbeddings(ctx, req)
			// Don't retry on 400 or 401 errors
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == http.StatusBadRequest || apiErr.HTTPStatusCode == http.StatusUnauthorized) {
				return fmt.Errorf("%w: %v", errNonRetryableRequest, err)
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("openai embed: %w", err)
		}
		if len(resp.Data) != len(group) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(group), len(resp.Data))
		}

		data := resp.Data
		sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		for _, d := range data {
			out = append(out, normalize(d.Embedding))
		}
	}

	if err := checkDimensions(out, e.dimensions); err != nil {
		return nil, err
	}
	return out, nil
}
