package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. Writes are
// last-write-wins under concurrency.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	defaultTTL time.Duration
	hits       int64
	misses     int64
}

// NewMemoryStore creates an in-memory cache store
func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]Entry),
		defaultTTL: defaultTTL,
	}
}

// Get retrieves data for a key, treating expired entries as misses
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, ErrMiss
	}

	if time.Now().After(entry.ExpiresAt) {
		delete(s.entries, key)

		s.misses++

		return nil, ErrMiss
	}

	s.hits++

	return entry.Data, nil
}

// Set stores data under a key with the given TTL
func (s *MemoryStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if ttl == 0 {
		ttl = s.defaultTTL
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = Entry{
		Key:       key,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Size:      int64(len(data)),
	}

	return nil
}

// Delete removes a key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)

	return nil
}

// Clear removes all entries and resets stats
func (s *MemoryStore) Clear(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
	s.hits = 0
	s.misses = 0

	return nil
}

// Stats returns cache statistics
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{
		TotalEntries: int64(len(s.entries)),
		Hits:         s.hits,
		Misses:       s.misses,
	}

	for _, e := range s.entries {
		stats.TotalSize += e.Size
	}

	stats.finalize()

	return stats, nil
}
