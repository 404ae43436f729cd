package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrDisabled is returned when embedding is requested from a disabled
// provider
var ErrDisabled = errors.New("embedding provider is disabled")

const defaultDimensions = 1536

// OpenAIProvider generates embeddings through the OpenAI embeddings API
// (or any compatible endpoint via a custom base URL)
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIProvider creates an embedding provider for the given model
func NewOpenAIProvider(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required for the OpenAI embedding provider")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if model == "" {
		model = "text-embedding-3-small"
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: defaultDimensions,
	}, nil
}

// Embed generates the embedding vector for one text
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response contained no data")
	}

	vec := resp.Data[0].Embedding
	if len(vec) > 0 {
		p.dimensions = len(vec)
	}

	return vec, nil
}

func (p *OpenAIProvider) Dimensions() int { return p.dimensions }

func (p *OpenAIProvider) Enabled() bool { return true }

func (p *OpenAIProvider) Name() string { return "openai/" + p.model }
