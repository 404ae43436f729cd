package schema

import (
	"context"
	"sync"
	"time"

	"github.com/sqlsage/sqlsage/internal/errors"
	"github.com/sqlsage/sqlsage/internal/logging"
)

// Registry wraps a Provider with TTL caching. An expired snapshot is
// reloaded on demand; if the reload fails the last good snapshot is
// served so a flaky warehouse never takes the validator down.
type Registry struct {
	provider Provider
	ttl      time.Duration

	mu       sync.RWMutex
	snapshot *Snapshot
	loadedAt time.Time
}

// NewRegistry creates a registry over the given provider
func NewRegistry(provider Provider, ttl time.Duration) *Registry {
	return &Registry{
		provider: provider,
		ttl:      ttl,
	}
}

// Snapshot returns the current schema snapshot, reloading it if the TTL
// has expired
func (r *Registry) Snapshot(ctx context.Context) (*Snapshot, error) {
	r.mu.RLock()
	snap := r.snapshot
	fresh := snap != nil && (r.ttl <= 0 || time.Since(r.loadedAt) < r.ttl)
	r.mu.RUnlock()

	if fresh {
		return snap, nil
	}

	return r.reload(ctx, false)
}

// Refresh forces a reload regardless of TTL
func (r *Registry) Refresh(ctx context.Context) (*Snapshot, error) {
	return r.reload(ctx, true)
}

func (r *Registry) reload(ctx context.Context, force bool) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have reloaded while we waited for the lock
	if !force && r.snapshot != nil && r.ttl > 0 && time.Since(r.loadedAt) < r.ttl {
		return r.snapshot, nil
	}

	snap, err := r.provider.Load(ctx)
	if err != nil {
		if r.snapshot != nil {
			logging.Warnf("schema reload from %s failed, serving stale snapshot: %v",
				r.provider.Name(), err)

			return r.snapshot, nil
		}

		return nil, errors.Wrapf(err, errors.ErrTypeDatabase,
			"failed to load schema from %s", r.provider.Name())
	}

	r.snapshot = snap
	r.loadedAt = time.Now()

	logging.Debugf("schema loaded from %s: %d tables", r.provider.Name(), snap.Len())

	return snap, nil
}
