package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiBackend calls the Gemini GenerateContent API
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client from an API key
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiBackend wraps an existing client. The client is shared with the
// Gemini embedder, so closing it is left to the owner.
func NewGeminiBackend(client *genai.Client, model string) (*GeminiBackend, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini client not set")
	}
	if model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// ModelName returns the configured model
func (b *GeminiBackend) ModelName() string {
	return b.model
}

// Invoke generates content for a single text prompt
func (b *GeminiBackend) Invoke(ctx context.Context, req Request) (*Response, error) {
	name := b.model
	if req.Model != "" {
		name = req.Model
	}

	model := b.client.GenerativeModel(name)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return nil, fmt.Errorf("API blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("API returned no candidates")
	}

	var text strings.Builder
	for i, candidate := range resp.Candidates {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			log.Printf("Warning: Candidate %d finished with reason: %s", i, candidate.FinishReason)
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	if text.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	out := &Response{Text: text.String()}
	if um := resp.UsageMetadata; um != nil {
		out.Usage = &Usage{InputTokens: int(um.PromptTokenCount), OutputTokens: int(um.CandidatesTokenCount)}
	}
	return out, nil
}
