// Package lru implements a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
// Get, Put, Delete and Len are O(1). Expired entries are dropped lazily on
// access, or in bulk by Sweep.
package lru

import (
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	val       V
	expiresAt time.Time // zero means no expiry
	prev      *entry[K, V]
	next      *entry[K, V]
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Metrics is a point-in-time snapshot of cache counters.
type Metrics struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
}

// HitRate returns hits / (hits + misses), or 0 before any lookups.
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total)
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithTTL sets the default lifetime applied by Put.
func WithTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *Cache[K, V]) { c.ttl = ttl }
}

// WithClock replaces time.Now as the source of the current time.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) { c.now = now }
}

// Cache is a generic, thread-safe LRU cache.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[K]*entry[K, V]
	head     *entry[K, V] // sentinel, most recently used follows
	tail     *entry[K, V] // sentinel, least recently used precedes
	metrics  Metrics
	now      func() time.Time
}

// New creates a cache holding at most capacity entries. Panics if capacity < 1.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *Cache[K, V] {
	if capacity < 1 {
		panic("lru: capacity must be >= 1")
	}

	head := &entry[K, V]{}
	tail := &entry[K, V]{}
	head.next = tail
	tail.prev = head

	c := &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*entry[K, V], capacity),
		head:     head,
		tail:     tail,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		c.metrics.Misses++
		var zero V
		return zero, false
	}
	c.metrics.Hits++
	c.moveToFront(e)
	return e.val, true
}

// Peek returns the live value for key without changing recency or counters.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	return e.val, true
}

// Put inserts or replaces key using the cache's default TTL.
// It returns the entry evicted to make room, if any.
func (c *Cache[K, V]) Put(key K, val V) (K, V, bool) {
	return c.PutWithTTL(key, val, c.ttl)
}

// PutWithTTL inserts or replaces key with an explicit lifetime; ttl <= 0 means no expiry.
func (c *Cache[K, V]) PutWithTTL(key K, val V, ttl time.Duration) (K, V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	var (
		evictedKey K
		evictedVal V
	)

	if e, ok := c.items[key]; ok {
		e.val = val
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return evictedKey, evictedVal, false
	}

	evicted := false
	if len(c.items) >= c.capacity {
		victim := c.tail.prev
		c.unlink(victim)
		delete(c.items, victim.key)
		c.metrics.Evictions++
		evictedKey, evictedVal, evicted = victim.key, victim.val, true
	}

	e := &entry[K, V]{key: key, val: val, expiresAt: expiresAt}
	c.items[key] = e
	c.pushFront(e)

	return evictedKey, evictedVal, evicted
}

// Delete removes key. Returns true if it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.unlink(e)
	delete(c.items, key)
	return true
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Sweep drops every expired entry and returns how many were removed.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for cur := c.head.next; cur != c.tail; {
		next := cur.next
		if cur.expired(now) {
			c.expire(cur)
			removed++
		}
		cur = next
	}
	return removed
}

// Metrics returns a snapshot of the cache counters.
func (c *Cache[K, V]) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// --- list operations, caller holds c.mu ---

func (c *Cache[K, V]) lookup(key K) (*entry[K, V], bool) {
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		c.expire(e)
		return nil, false
	}
	return e, true
}

func (c *Cache[K, V]) expire(e *entry[K, V]) {
	c.unlink(e)
	delete(c.items, e.key)
	c.metrics.Expirations++
}

func (c *Cache[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

func (c *Cache[K, V]) pushFront(e *entry[K, V]) {
	e.next = c.head.next
	e.prev = c.head
	c.head.next.prev = e
	c.head.next = e
}

func (c *Cache[K, V]) moveToFront(e *entry[K, V]) {
	c.unlink(e)
	c.pushFront(e)
}
