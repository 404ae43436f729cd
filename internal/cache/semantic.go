package cache

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sqlsage/sqlsage/internal/embedding"
	"github.com/sqlsage/sqlsage/internal/logging"
)

// SemanticEntry is one cached question with its embedding and result
// payload
type SemanticEntry struct {
	Question   string    `json:"question"`
	SQL        string    `json:"sql"`
	Payload    []byte    `json:"payload"`
	Vector     []float32 `json:"vector"`
	CapturedAt time.Time `json:"captured_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SemanticCache matches questions by embedding similarity. Lookups
// linear-scan the live entries; the best match wins only at or above the
// threshold, with ties broken by similarity then recency. Embedding
// failures degrade to a miss, never an error.
type SemanticCache struct {
	provider  embedding.Provider
	threshold float64
	ttl       time.Duration

	mu      sync.RWMutex
	entries []SemanticEntry
	hits    int64
	misses  int64
}

// NewSemanticCache creates a semantic cache over an embedding provider
func NewSemanticCache(
	provider embedding.Provider,
	threshold float64,
	ttl time.Duration,
) *SemanticCache {
	return &SemanticCache{
		provider:  provider,
		threshold: threshold,
		ttl:       ttl,
	}
}

// Lookup finds the best live entry for a question. The similarity of the
// winning entry is returned alongside it.
func (c *SemanticCache) Lookup(ctx context.Context, question string) (*SemanticEntry, float64, bool) {
	if c.provider == nil || !c.provider.Enabled() {
		return nil, 0, false
	}

	vec, err := c.provider.Embed(ctx, question)
	if err != nil {
		logging.Warnf("semantic lookup embedding failed, treating as miss: %v", err)

		c.mu.Lock()
		c.misses++
		c.mu.Unlock()

		return nil, 0, false
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)

	bestIdx := -1
	bestSim := 0.0

	for i := range c.entries {
		sim := Cosine(vec, c.entries[i].Vector)

		if sim < c.threshold {
			continue
		}

		if bestIdx < 0 || sim > bestSim ||
			(sim == bestSim && c.entries[i].CapturedAt.After(c.entries[bestIdx].CapturedAt)) {
			bestIdx = i
			bestSim = sim
		}
	}

	if bestIdx < 0 {
		c.misses++
		return nil, 0, false
	}

	c.hits++

	entry := c.entries[bestIdx]

	return &entry, bestSim, true
}

// Store caches a successful result for a question. Same-question writes
// replace the previous entry.
func (c *SemanticCache) Store(ctx context.Context, question, sql string, payload []byte) {
	if c.provider == nil || !c.provider.Enabled() {
		return
	}

	vec, err := c.provider.Embed(ctx, question)
	if err != nil {
		logging.Warnf("semantic store embedding failed, entry dropped: %v", err)
		return
	}

	now := time.Now()

	entry := SemanticEntry{
		Question:   question,
		SQL:        sql,
		Payload:    payload,
		Vector:     vec,
		CapturedAt: now,
		ExpiresAt:  now.Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		if strings.EqualFold(c.entries[i].Question, question) {
			c.entries[i] = entry
			return
		}
	}

	c.entries = append(c.entries, entry)
}

// Clear drops all entries and resets stats
func (c *SemanticCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	c.hits = 0
	c.misses = 0
}

// Stats reports entry count and hit/miss totals
func (c *SemanticCache) Stats() *Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := &Stats{
		TotalEntries: int64(len(c.entries)),
		Hits:         c.hits,
		Misses:       c.misses,
	}

	for _, e := range c.entries {
		stats.TotalSize += int64(len(e.Payload))
	}

	stats.finalize()

	return stats
}

// Len returns the number of live entries
func (c *SemanticCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func (c *SemanticCache) pruneLocked(now time.Time) {
	live := c.entries[:0]

	for _, e := range c.entries {
		if now.Before(e.ExpiresAt) {
			live = append(live, e)
		}
	}

	c.entries = live
}

// Cosine computes the cosine similarity of two vectors. Mismatched or
// zero-length vectors score zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
