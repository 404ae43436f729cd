package llm

import (
	"context"
)

// Service defines the interface for SQL generation backends
type Service interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// Request carries everything a backend needs to produce one statement
type Request struct {
	Question string
	Schema   string // compact schema rendering
	Model    string
	Repair   *RepairContext
}

// RepairContext is set when regenerating after an execution failure
type RepairContext struct {
	FailingSQL   string
	ErrorMessage string
}

// Response is a generated statement with usage accounting
type Response struct {
	SQL              string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Provider constants for generation backends
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)
