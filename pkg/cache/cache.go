// Package cache provides a TTL cache with single-flight recomputation.
//
// A miss triggers at most one concurrent recompute per key: callers that
// arrive while a compute is in flight wait for and share its result rather
// than starting their own.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scoutbeat/scoutbeat/pkg/metrics"
)

const defaultMaxEntries = 10_000

// ComputeFunc produces the value for a key on a cache miss.
type ComputeFunc func(ctx context.Context) (interface{}, error)

type entry struct {
	value   interface{}
	expires time.Time
}

// Cache is a concurrency-safe TTL cache with stampede suppression.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	group      singleflight.Group
	now        func() time.Time
	maxEntries int
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxEntries bounds the number of cached keys. Expired entries are
// evicted first; if the cache is still full the new value is stored anyway
// and the oldest-expiring entry is dropped.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]entry),
		now:        time.Now,
		maxEntries: defaultMaxEntries,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetOrCompute returns the cached value for key if fresh, otherwise runs fn
// and caches its result for ttl. Concurrent callers for the same expired or
// missing key share a single invocation of fn.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc) (interface{}, error) {
	if v, ok := c.lookup(key); ok {
		metrics.RecordCacheHit()
		return v, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Another flight may have filled the entry between the miss and
		// acquiring the flight; serve that instead of recomputing.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		metrics.RecordCacheMiss()
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, v, ttl)
		return v, nil
	})
	if shared {
		metrics.RecordCacheSharedFlight()
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Invalidate drops a key so the next read recomputes.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of entries currently held, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key string, v interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = entry{value: v, expires: c.now().Add(ttl)}
}

// evictLocked removes expired entries, then the oldest-expiring entry if the
// cache is still full. Caller must hold the write lock.
func (c *Cache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}

	var (
		oldestKey string
		oldest    time.Time
		first     = true
	)
	for k, e := range c.entries {
		if first || e.expires.Before(oldest) {
			oldestKey, oldest = k, e.expires
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
