package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// DefaultGeminiModel produces 768-dimensional vectors
const DefaultGeminiModel = "text-embedding-004"

// GeminiEmbedder embeds text with a Gemini embedding model
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiEmbedder creates a Gemini embedder over a shared client
func NewGeminiEmbedder(client *genai.Client, model string, dimensions int) (*GeminiEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini client not set")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiEmbedder{client: client, model: model, dimensions: dimensions}, nil
}

// Embed returns one normalized vector per text
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	out := make([][]float32, 0, len(texts))
	for _, group := range batches(texts) {
		batch := em.NewBatch()
		for _, t := range group {
			batch.AddContent(genai.Text(t))
		}

		var res *genai.BatchEmbedContentsResponse
		err := retry(ctx, func() error {
			var err error
			res, err = em.BatchEmbedContents(ctx, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embed: %w", err)
		}
		if len(res.Embeddings) != len(group) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(group), len(res.Embeddings))
		}
		for _, emb := range res.Embeddings {
			out = append(out, normalize(emb.Values))
		}
	}

	if err := checkDimensions(out, e.dimensions); err != nil {
		return nil, err
	}
	return out, nil
}
