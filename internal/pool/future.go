package pool

import (
	"context"
	"sync"
)

type futureState int

const (
	statePending futureState = iota
	stateRunning
	stateSettled
	stateCanceled
)

// Future is the handle to a submitted task's eventual result or failure.
// Exactly one of the terminal outcomes is observed: a result, a task error,
// or ErrCanceled. No submitted task is lost silently.
type Future struct {
	id   string
	done chan struct{}

	mu     sync.Mutex
	state  futureState
	result any
	err    error
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

// ID returns the task's identifier, as carried in pool logs.
func (f *Future) ID() string {
	return f.id
}

// Wait blocks until the task settles or ctx is done. It returns the task's
// result, the task's failure, ErrCanceled, or the context error.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled reports whether the task has reached a terminal state.
func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Cancel prevents the task from starting and reports whether it succeeded.
// Cancellation is best-effort: once the task is running it proceeds to
// completion or failure. A canceled future settles with ErrCanceled.
func (f *Future) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != statePending {
		return false
	}
	f.state = stateCanceled
	f.err = ErrCanceled
	close(f.done)
	return true
}

// tryStart transitions pending -> running. A false return means the task was
// canceled and must not run.
func (f *Future) tryStart() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != statePending {
		return false
	}
	f.state = stateRunning
	return true
}

// settle records the task's outcome. Settling a canceled future is a no-op.
func (f *Future) settle(result any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == stateSettled || f.state == stateCanceled {
		return
	}
	f.state = stateSettled
	f.result = result
	f.err = err
	close(f.done)
}
