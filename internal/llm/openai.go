package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sqlsage/sqlsage/internal/errors"
	"github.com/sqlsage/sqlsage/internal/logging"
)

// OpenAIService generates SQL through the OpenAI chat completions API
type OpenAIService struct {
	client *openai.Client
	logger *logging.Logger
}

// NewOpenAIService creates a chat-based generator. baseURL may be empty
// to use the public endpoint, or point at any compatible server
func NewOpenAIService(apiKey, baseURL string) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrTypeConfig, "OpenAI API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIService{
		client: openai.NewClientWithConfig(cfg),
		logger: logging.GetLogger().WithField("component", "llm.openai"),
	}, nil
}

// Generate produces a single SQL statement for the request
func (s *OpenAIService) Generate(ctx context.Context, req Request) (*Response, error) {
	system := BuildSystemPrompt(req.Schema)

	var user string
	if req.Repair != nil {
		user = BuildRepairPrompt(req.Question, req.Schema, req.Repair)
	} else {
		user = BuildUserPrompt(req.Question)
	}

	s.logger.Debugf("Requesting completion from model %s", req.Model)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeBackend, "OpenAI completion failed")
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New(errors.ErrTypeBackend, "OpenAI returned no choices")
	}

	sql := CleanSQLResponse(resp.Choices[0].Message.Content)
	if sql == "" {
		return nil, errors.New(errors.ErrTypeBackend, "OpenAI returned an empty statement")
	}

	return &Response{
		SQL:              sql,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Name returns the provider identifier
func (s *OpenAIService) Name() string {
	return ProviderOpenAI
}

var _ Service = (*OpenAIService)(nil)
