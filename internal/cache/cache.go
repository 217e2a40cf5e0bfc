package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader produces the value for a cache key.
type Loader[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache memoizes loader results by key for a bounded time window. Concurrent
// callers for the same key share a single in-flight load. There is no eviction
// beyond TTL: entries disappear only via invalidation or replacement, so memory
// is bounded by the distinct-key cardinality of a session.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	group   singleflight.Group
	now     func() time.Time
}

// New constructs an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		now:     time.Now,
	}
}

// GetOrLoad returns the live cached value for key, or invokes loader and caches
// the result for ttl. A failed load is propagated to every waiter and nothing
// is cached, so the next caller retries.
func (c *Cache[T]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader Loader[T]) (T, error) {
	c.mu.Lock()
	if hit, ok := c.entries[key]; ok && hit.expiresAt.After(c.now()) {
		c.mu.Unlock()
		return hit.value, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: another caller may have completed the load while this
		// one waited on the singleflight lock.
		c.mu.Lock()
		if hit, ok := c.entries[key]; ok && hit.expiresAt.After(c.now()) {
			c.mu.Unlock()
			return hit.value, nil
		}
		c.mu.Unlock()

		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry[T]{value: value, expiresAt: c.now().Add(ttl)}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate removes a single entry. In-flight loads are not cancelled.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix removes every entry whose key starts with prefix.
func (c *Cache[T]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Clear drops all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[T])
	c.mu.Unlock()
}
