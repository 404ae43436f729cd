package llm

import (
	"context"
	"time"

	"github.com/sqlsage/sqlsage/internal/errors"
	"github.com/sqlsage/sqlsage/internal/logging"
)

// Manager wraps a primary Service with retries and an optional fallback
type Manager struct {
	primary       Service
	fallback      Service
	retryAttempts int
	retryDelay    time.Duration
	logger        *logging.Logger
}

// NewManager creates a manager. fallback may be nil to disable fallback
// entirely
func NewManager(primary, fallback Service, retryAttempts int, retryDelay time.Duration) *Manager {
	if retryAttempts < 1 {
		retryAttempts = 1
	}

	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Manager{
		primary:       primary,
		fallback:      fallback,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
		logger:        logging.GetLogger().WithField("component", "llm.manager"),
	}
}

// Generate calls the primary service with retries, then the fallback if
// all attempts fail
func (m *Manager) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= m.retryAttempts; attempt++ {
		resp, err := m.primary.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		m.logger.Warnf("Generation attempt %d/%d failed: %v", attempt, m.retryAttempts, err)

		// Deadline or cancellation ends the loop immediately
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.ErrTypeTimeout, "generation cancelled")
		}

		if attempt < m.retryAttempts {
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrTypeTimeout, "generation cancelled")
			case <-time.After(m.retryDelay):
			}
		}
	}

	if m.fallback != nil {
		m.logger.Infof("Primary provider %s exhausted, using fallback %s",
			m.primary.Name(), m.fallback.Name())

		resp, err := m.fallback.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		m.logger.Warnf("Fallback generation failed: %v", err)
	}

	return nil, errors.Wrap(lastErr, errors.ErrTypeBackend, "all generation attempts failed")
}

// Name returns the primary provider identifier
func (m *Manager) Name() string {
	return m.primary.Name()
}

var _ Service = (*Manager)(nil)
