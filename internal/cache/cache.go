// Package cache provides a coalescing TTL cache around an expensive
// asynchronous producer. For any key there is at most one producer execution
// in flight at a time; concurrent callers for the same key share its result,
// while callers for different keys proceed independently.
package cache

import (
	"context"
	"sync"
	"time"
)

// call is an in-flight producer execution shared by every caller that
// requested the same key before it settled.
type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// entry stores a resolved value until it expires.
type entry[V any] struct {
	val       V
	expiresAt time.Time
}

// Cache is a coalescing cache with a fixed TTL. The zero value is not usable;
// construct with New.
type Cache[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry[V]
	calls   map[string]*call[V]
}

// New creates a Cache whose successful results live for ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
		calls:   make(map[string]*call[V]),
	}
}

// Get returns the cached value for key, attaches to an in-flight producer run
// for key if one exists, or starts a new run otherwise.
//
// Failures are never cached: every waiter on a failed run receives the same
// error, and the next Get for that key starts a fresh attempt. A caller whose
// ctx is cancelled while attached stops waiting, but the producer run itself
// is not cancelled since other callers may still depend on it.
func (c *Cache[V]) Get(ctx context.Context, key string, producer func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.now().Before(e.expiresAt) {
			c.mu.Unlock()
			return e.val, nil
		}
		// Expired entries are evicted lazily, on the access that finds them.
		delete(c.entries, key)
	}

	if cl, ok := c.calls[key]; ok {
		c.mu.Unlock()
		select {
		case <-cl.done:
			return cl.val, cl.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	cl := &call[V]{done: make(chan struct{})}
	c.calls[key] = cl
	c.mu.Unlock()

	cl.val, cl.err = producer(context.WithoutCancel(ctx))

	c.mu.Lock()
	delete(c.calls, key)
	if cl.err == nil {
		c.entries[key] = entry[V]{val: cl.val, expiresAt: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()

	close(cl.done)
	return cl.val, cl.err
}

// InFlight reports the number of producer runs currently executing.
func (c *Cache[V]) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// Len reports the number of stored entries, including any not yet evicted
// expired ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
