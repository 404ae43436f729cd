package llm

import (
	"github.com/sqlsage/sqlsage/internal/config"
	"github.com/sqlsage/sqlsage/internal/errors"
)

// NewFromConfig builds the generation stack described by the
// configuration: the configured provider wrapped in a Manager with
// retries, plus the rule-based fallback when enabled
func NewFromConfig(cfg config.LLMConfig) (Service, error) {
	var primary Service

	switch cfg.Provider {
	case ProviderOpenAI:
		svc, err := NewOpenAIService(cfg.APIKey, cfg.BaseURL)
		if err != nil {
			return nil, err
		}

		primary = svc
	case ProviderOllama:
		primary = NewOllamaService(cfg.BaseURL, cfg.TimeoutDuration())
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported LLM provider: %s", cfg.Provider)
	}

	var fallback Service
	if cfg.EnableFallback {
		fallback = NewFallbackService()
	}

	return NewManager(primary, fallback, cfg.RetryAttempts, cfg.RetryDelayDuration()), nil
}
