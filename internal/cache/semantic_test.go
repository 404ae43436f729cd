package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns canned vectors per text
type stubEmbedder struct {
	vectors map[string][]float32
	fail    bool
	enabled bool
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++

	if s.fail {
		return nil, errors.New("embedding backend down")
	}

	if v, ok := s.vectors[text]; ok {
		return v, nil
	}

	return []float32{0, 0, 1}, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }

func (s *stubEmbedder) Enabled() bool { return s.enabled }

func (s *stubEmbedder) Name() string { return "stub" }

func TestSemanticCacheRoundTrip(t *testing.T) {
	emb := &stubEmbedder{
		enabled: true,
		vectors: map[string][]float32{
			"total revenue by country": {1, 0, 0},
		},
	}

	c := NewSemanticCache(emb, 0.90, time.Minute)
	ctx := context.Background()

	_, _, ok := c.Lookup(ctx, "total revenue by country")
	assert.False(t, ok)

	c.Store(ctx, "total revenue by country", "SELECT 1", []byte("result"))

	entry, sim, ok := c.Lookup(ctx, "total revenue by country")
	require.True(t, ok)
	assert.InDelta(t, 1.0, sim, 1e-9)
	assert.Equal(t, []byte("result"), entry.Payload)
	assert.Equal(t, "SELECT 1", entry.SQL)
}

func TestSemanticCacheThreshold(t *testing.T) {
	emb := &stubEmbedder{
		enabled: true,
		vectors: map[string][]float32{
			"stored":  {1, 0, 0},
			"similar": {0.95, 0.3122, 0}, // cosine ~0.95
			"far":     {0, 1, 0},         // cosine 0
		},
	}

	c := NewSemanticCache(emb, 0.90, time.Minute)
	ctx := context.Background()

	c.Store(ctx, "stored", "SELECT 1", []byte("x"))

	_, sim, ok := c.Lookup(ctx, "similar")
	assert.True(t, ok)
	assert.Greater(t, sim, 0.90)

	_, _, ok = c.Lookup(ctx, "far")
	assert.False(t, ok)
}

func TestSemanticCacheBestMatchWins(t *testing.T) {
	emb := &stubEmbedder{
		enabled: true,
		vectors: map[string][]float32{
			"close":  {0.99, 0.141, 0},
			"closer": {1, 0, 0},
			"probe":  {1, 0, 0},
		},
	}

	c := NewSemanticCache(emb, 0.90, time.Minute)
	ctx := context.Background()

	c.Store(ctx, "close", "SELECT close", []byte("close"))
	c.Store(ctx, "closer", "SELECT closer", []byte("closer"))

	entry, _, ok := c.Lookup(ctx, "probe")
	require.True(t, ok)
	assert.Equal(t, "closer", entry.Question)
}

func TestSemanticCacheTieBreaksByRecency(t *testing.T) {
	emb := &stubEmbedder{
		enabled: true,
		vectors: map[string][]float32{
			"older": {1, 0, 0},
			"newer": {1, 0, 0},
			"probe": {1, 0, 0},
		},
	}

	c := NewSemanticCache(emb, 0.90, time.Minute)
	ctx := context.Background()

	c.Store(ctx, "older", "SELECT older", []byte("older"))
	time.Sleep(2 * time.Millisecond)
	c.Store(ctx, "newer", "SELECT newer", []byte("newer"))

	entry, _, ok := c.Lookup(ctx, "probe")
	require.True(t, ok)
	assert.Equal(t, "newer", entry.Question)
}

func TestSemanticCacheExpiry(t *testing.T) {
	emb := &stubEmbedder{
		enabled: true,
		vectors: map[string][]float32{"q": {1, 0, 0}},
	}

	c := NewSemanticCache(emb, 0.90, time.Millisecond)
	ctx := context.Background()

	c.Store(ctx, "q", "SELECT 1", []byte("x"))
	time.Sleep(5 * time.Millisecond)

	_, _, ok := c.Lookup(ctx, "q")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestSemanticCacheEmbeddingFailureDegrades(t *testing.T) {
	emb := &stubEmbedder{enabled: true, fail: true}

	c := NewSemanticCache(emb, 0.90, time.Minute)
	ctx := context.Background()

	// Store silently drops the entry
	c.Store(ctx, "q", "SELECT 1", []byte("x"))
	assert.Equal(t, 0, c.Len())

	// Lookup is a plain miss
	_, _, ok := c.Lookup(ctx, "q")
	assert.False(t, ok)
}

func TestSemanticCacheDisabledProvider(t *testing.T) {
	emb := &stubEmbedder{enabled: false}

	c := NewSemanticCache(emb, 0.90, time.Minute)
	ctx := context.Background()

	c.Store(ctx, "q", "SELECT 1", []byte("x"))

	_, _, ok := c.Lookup(ctx, "q")
	assert.False(t, ok)
	assert.Equal(t, 0, emb.calls)
}

func TestSemanticCacheReplaceSameQuestion(t *testing.T) {
	emb := &stubEmbedder{
		enabled: true,
		vectors: map[string][]float32{"q": {1, 0, 0}},
	}

	c := NewSemanticCache(emb, 0.90, time.Minute)
	ctx := context.Background()

	c.Store(ctx, "q", "SELECT old", []byte("old"))
	c.Store(ctx, "q", "SELECT new", []byte("new"))

	assert.Equal(t, 1, c.Len())

	entry, _, ok := c.Lookup(ctx, "q")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), entry.Payload)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"mismatched length", []float32{1, 0}, []float32{1}, 0.0},
		{"empty", nil, nil, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-6)
		})
	}
}
