// Package cache provides a thread-safe load-through cache for corpus data.
//
// Entries are keyed by string. Concurrent loads of the same missing key are
// collapsed into a single call, and only successful loads are stored, so a
// failed fetch is retried on the next request.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value  V
	stored time.Time
}

// Cache is a string-keyed cache with an optional per-entry TTL.
// A zero TTL means entries never expire.
type Cache[V any] struct {
	mu    sync.RWMutex
	data  map[string]entry[V]
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time
}

// New creates an empty cache. Pass 0 for entries that live as long as the
// cache does.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		data: make(map[string]entry[V]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || c.expiredLocked(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry[V]{value: value, stored: c.now()}
}

// Load returns the cached value for key, calling fn to produce it on a miss.
// Callers racing on the same key share one fn invocation. Errors are
// returned to every waiting caller and nothing is cached.
func (c *Cache[V]) Load(key string, fn func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// expiredLocked MUST be called with at least a read lock held.
func (c *Cache[V]) expiredLocked(e entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.stored) >= c.ttl
}
