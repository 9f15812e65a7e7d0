// Package cache provides a generic, TTL-bounded, size-capped LRU cache
// used by the Analysis Quality Controller's result cache.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/patentlens/kernel/internal/clock"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// LRU is a mutex-guarded, TTL-aware, size-bounded cache. Eviction happens
// both on capacity overflow (oldest-first, true LRU order) and lazily on
// lookup (expired entries are dropped and treated as a miss).
type LRU[K comparable, V any] struct {
	clock clock.Clock

	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = most recently used
	index    map[K]*list.Element
}

// New creates an LRU cache capped at capacity entries, each expiring ttl
// after insertion.
func New[K comparable, V any](c clock.Clock, capacity int, ttl time.Duration) *LRU[K, V] {
	return &LRU[K, V]{
		clock:    c,
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		index:    make(map[K]*list.Element),
	}
}

// Get returns the cached value for key, or ok=false if absent or expired.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		var zero V

		return zero, false
	}

	e := el.Value.(*entry[K, V])

	if c.clock.Now().After(e.expiresAt) {
		c.removeElement(el)

		var zero V

		return zero, false
	}

	c.order.MoveToFront(el)

	return e.value, true
}

// Set inserts or updates key's value, resetting its TTL and recency.
// Capacity overflow evicts the least-recently-used entry first.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.ttl)

	if el, ok := c.index[key]; ok {
		el.Value.(*entry[K, V]).value = value
		el.Value.(*entry[K, V]).expiresAt = expiresAt
		c.order.MoveToFront(el)

		return
	}

	e := &entry[K, V]{key: key, value: value, expiresAt: expiresAt}
	el := c.order.PushFront(e)
	c.index[key] = el

	if c.capacity > 0 && c.order.Len() > c.capacity {
		c.evictOldest()
	}
}

func (c *LRU[K, V]) evictOldest() {
	oldest := c.order.Back()
	if oldest != nil {
		c.removeElement(oldest)
	}
}

func (c *LRU[K, V]) removeElement(el *list.Element) {
	e := el.Value.(*entry[K, V])
	delete(c.index, e.key)
	c.order.Remove(el)
}

// Len returns the number of entries currently held, including any not yet
// lazily expired.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Delete removes key if present.
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.removeElement(el)
	}
}
