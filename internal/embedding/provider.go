package embedding

import (
	"context"
)

// Provider generates embedding vectors for natural-language text
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Enabled() bool
	Name() string
}

// Disabled is a Provider that is permanently off. Used when the semantic
// cache is disabled by configuration.
type Disabled struct{}

// NewDisabled creates a provider that never embeds
func NewDisabled() *Disabled {
	return &Disabled{}
}

func (*Disabled) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrDisabled
}

func (*Disabled) Dimensions() int { return 0 }

func (*Disabled) Enabled() bool { return false }

func (*Disabled) Name() string { return "disabled" }
