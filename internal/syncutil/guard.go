// Package syncutil provides the small synchronization primitives shared by the
// caches, the temp-file manager, and the worker pool: a generic mutual-exclusion
// wrapper, a reader/writer variant, and a thread-safe counter.
//
// The guards wrap state rather than callables: callers get scoped access to the
// guarded value through a closure, and the lock is released on every exit path
// from that closure, including panics.
package syncutil

import "sync"

// Guard wraps a value with a mutex so that at most one goroutine at a time can
// touch it. Access happens only inside the closure passed to Do or DoErr; the
// guarded value must not escape the closure.
type Guard[T any] struct {
	mu    sync.Mutex
	value T
}

// NewGuard returns a Guard protecting the given initial value.
func NewGuard[T any](initial T) *Guard[T] {
	return &Guard[T]{value: initial}
}

// Do runs fn with exclusive access to the guarded value. The lock is released
// on every exit path, including a panic inside fn.
func (g *Guard[T]) Do(fn func(v *T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.value)
}

// DoErr is Do for closures that report an error.
func (g *Guard[T]) DoErr(fn func(v *T) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(&g.value)
}

// Get returns a copy of the guarded value.
func (g *Guard[T]) Get() T {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Set replaces the guarded value.
func (g *Guard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

// RWGuard is like Guard but distinguishes readers from writers: any number of
// concurrent Read closures may run at once, while a Write closure is exclusive
// with respect to both readers and other writers. Fairness between the two is
// best-effort (whatever sync.RWMutex provides); a reader never observes a
// partially-applied write.
type RWGuard[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewRWGuard returns an RWGuard protecting the given initial value.
func NewRWGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// Read runs fn holding the lock in shared mode. fn receives the value by copy
// and must not mutate state reachable through it.
func (g *RWGuard[T]) Read(fn func(v T)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn(g.value)
}

// ReadErr is Read for closures that report an error.
func (g *RWGuard[T]) ReadErr(fn func(v T) error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn(g.value)
}

// Write runs fn holding the lock exclusively.
func (g *RWGuard[T]) Write(fn func(v *T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.value)
}

// WriteErr is Write for closures that report an error.
func (g *RWGuard[T]) WriteErr(fn func(v *T) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(&g.value)
}
