// Package cache provides the in-process key/value stores used throughout the
// editor core: a generic thread-safe map and a bounded LRU cache with
// deterministic eviction.
//
// Both types own their internal bookkeeping exclusively; callers interact only
// through the exported methods. Values are opaque to the cache — decoded pixel
// buffers, OCR results, whatever the caller hands over. Ownership of a value
// after it has been handed out is the caller's responsibility.
package cache

import (
	"github.com/slidetools/slidekit/internal/syncutil"
)

// SafeMap is a generic mapping safe for concurrent use. Individual operations
// are atomic; there is no ordering guarantee between keys, and Len may be
// stale immediately after it returns if other goroutines keep mutating the
// map. That is expected, not a bug.
type SafeMap[K comparable, V any] struct {
	m *syncutil.RWGuard[map[K]V]
}

// NewSafeMap returns an empty SafeMap ready for concurrent use.
func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{m: syncutil.NewRWGuard(make(map[K]V))}
}

// Get returns the value stored for key and whether it was present.
func (s *SafeMap[K, V]) Get(key K) (V, bool) {
	var (
		out V
		ok  bool
	)
	s.m.Read(func(m map[K]V) {
		out, ok = m[key]
	})
	return out, ok
}

// Put stores value under key, replacing any previous value.
func (s *SafeMap[K, V]) Put(key K, value V) {
	s.m.Write(func(m *map[K]V) {
		(*m)[key] = value
	})
}

// Remove deletes key and reports whether it was present.
func (s *SafeMap[K, V]) Remove(key K) bool {
	var ok bool
	s.m.Write(func(m *map[K]V) {
		if _, ok = (*m)[key]; ok {
			delete(*m, key)
		}
	})
	return ok
}

// Clear drops every entry.
func (s *SafeMap[K, V]) Clear() {
	s.m.Write(func(m *map[K]V) {
		*m = make(map[K]V)
	})
}

// Len returns the number of entries at the instant of the call.
func (s *SafeMap[K, V]) Len() int {
	var n int
	s.m.Read(func(m map[K]V) {
		n = len(m)
	})
	return n
}

// Keys returns a snapshot of the keys in no particular order.
func (s *SafeMap[K, V]) Keys() []K {
	var keys []K
	s.m.Read(func(m map[K]V) {
		keys = make([]K, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
	})
	return keys
}
