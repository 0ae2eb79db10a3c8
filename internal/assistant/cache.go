package assistant

import (
	"context"
	"sync"
	"time"
)

// Provider supplies the current configuration snapshot.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Cache holds one configuration snapshot with a TTL, refreshed lazily
// on read and invalidated explicitly. When a refresh fails and a prior
// snapshot exists, the stale snapshot is served instead of the error.
type Cache struct {
	provider Provider
	ttl      time.Duration

	mu        sync.Mutex
	snap      *Snapshot
	fetchedAt time.Time
}

// NewCache wraps a provider with TTL caching.
func NewCache(provider Provider, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{provider: provider, ttl: ttl}
}

// Get returns the cached snapshot, refetching when stale.
func (c *Cache) Get(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap != nil && time.Since(c.fetchedAt) < c.ttl {
		return *c.snap, nil
	}

	snap, err := c.provider.Snapshot(ctx)
	if err != nil {
		if c.snap != nil {
			return *c.snap, nil
		}
		return Snapshot{}, err
	}
	c.snap = &snap
	c.fetchedAt = time.Now()
	return snap, nil
}

// Invalidate drops the cached snapshot so the next Get refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
