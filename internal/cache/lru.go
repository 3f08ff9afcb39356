package cache

import (
	"container/list"
	"sync"

	"github.com/rs/zerolog"
)

// EvictFunc releases resources held by an evicted or cleared value, e.g. a
// decoded pixel buffer. It runs while the cache lock is held, so it must not
// call back into the cache.
type EvictFunc[K comparable, V any] func(key K, value V)

// LRU is a bounded cache with least-recently-used eviction. Capacity is fixed
// at construction and never exceeded: inserting a new key into a full cache
// evicts exactly one entry, the one least recently touched by Get or Put.
//
// Get and Put are fully mutually exclusive with each other. Refreshing recency
// on a read is itself a write to the internal order, so trading away read
// concurrency keeps the eviction order correct under any interleaving.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[K]*list.Element
	onEvict  EvictFunc[K, V]
	log      zerolog.Logger
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU returns an empty cache holding at most capacity entries.
// A capacity below 1 is clamped to 1.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[K]*list.Element),
		log:      zerolog.Nop(),
	}
}

// OnEvict installs a release callback invoked for every entry removed by
// eviction, Remove, or Clear. Install it before the cache is shared.
func (c *LRU[K, V]) OnEvict(fn EvictFunc[K, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// SetLogger routes release-failure warnings to log. The default is a no-op
// logger.
func (c *LRU[K, V]) SetLogger(log zerolog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = log
}

// Get returns the value for key and refreshes its recency on a hit. A miss
// has no side effects.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*lruEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Put inserts or updates the value for key and marks it most recently used.
// If the key is new and the cache is full, the least-recently-used entry is
// evicted first.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*lruEntry[K, V]).value = value
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictOldest()
	}
	el := c.ll.PushFront(&lruEntry[K, V]{key: key, value: value})
	c.items[key] = el
}

// Remove deletes key, releasing its value, and reports whether it was present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Clear drops every entry, releasing each value. A release callback that
// panics is logged and does not stop the remaining entries from being
// released; the cache is empty when Clear returns.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.ll.Front(); el != nil; el = el.Next() {
		ent := el.Value.(*lruEntry[K, V])
		c.release(ent.key, ent.value)
	}
	c.ll.Init()
	c.items = make(map[K]*list.Element)
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Capacity returns the fixed capacity set at construction.
func (c *LRU[K, V]) Capacity() int {
	return c.capacity
}

// evictOldest removes the back of the recency list. Caller holds the lock.
func (c *LRU[K, V]) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.removeElement(el)
}

// removeElement unlinks el from both structures and releases its value.
// Caller holds the lock.
func (c *LRU[K, V]) removeElement(el *list.Element) {
	ent := el.Value.(*lruEntry[K, V])
	c.ll.Remove(el)
	delete(c.items, ent.key)
	c.release(ent.key, ent.value)
}

// release runs the eviction callback with panic isolation so a failing value
// release never corrupts the cache or aborts a Clear in progress.
func (c *LRU[K, V]) release(key K, value V) {
	if c.onEvict == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().Interface("panic", r).Msg("cache value release failed")
		}
	}()
	c.onEvict(key, value)
}
