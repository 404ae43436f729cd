package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sqlsage/sqlsage/internal/errors"
	"github.com/sqlsage/sqlsage/internal/logging"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaService generates SQL against a local Ollama server
type OllamaService struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewOllamaService creates a generator backed by Ollama's generate API
func NewOllamaService(baseURL string, timeout time.Duration) *OllamaService {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OllamaService{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logging.GetLogger().WithField("component", "llm.ollama"),
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

// Generate produces a single SQL statement for the request
func (s *OllamaService) Generate(ctx context.Context, req Request) (*Response, error) {
	var prompt string
	if req.Repair != nil {
		prompt = BuildRepairPrompt(req.Question, req.Schema, req.Repair)
	} else {
		prompt = BuildUserPrompt(req.Question)
	}

	reqBody := ollamaRequest{
		Model:  req.Model,
		Prompt: prompt,
		System: BuildSystemPrompt(req.Schema),
		Stream: false,
	}

	respBody, err := s.makeRequest(ctx, "/api/generate", reqBody)
	if err != nil {
		return nil, err
	}

	var response ollamaResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeBackend, "failed to parse Ollama response")
	}

	if response.Error != "" {
		return nil, errors.Newf(errors.ErrTypeBackend, "Ollama API error: %s", response.Error)
	}

	sql := CleanSQLResponse(response.Response)
	if sql == "" {
		return nil, errors.New(errors.ErrTypeBackend, "Ollama returned an empty statement")
	}

	return &Response{
		SQL:              sql,
		Model:            response.Model,
		PromptTokens:     response.PromptEvalCount,
		CompletionTokens: response.EvalCount,
	}, nil
}

// Name returns the provider identifier
func (s *OllamaService) Name() string {
	return ProviderOllama
}

func (s *OllamaService) makeRequest(ctx context.Context, endpoint string, reqBody interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeInternal, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeBackend, "failed to reach Ollama")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeBackend, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrTypeBackend,
			fmt.Sprintf("Ollama request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	return body, nil
}

var _ Service = (*OllamaService)(nil)
