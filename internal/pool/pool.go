// Package pool implements a bounded worker pool for the editor's parallel
// work: per-page OCR, image preprocessing, PDF import. Worker count is fixed
// at construction; tasks are submitted from any goroutine and settled through
// futures. A failing task never affects its siblings or the pool itself.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slidetools/slidekit/internal/syncutil"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 4

var (
	// ErrPoolClosed is returned by Submit once shutdown has begun.
	ErrPoolClosed = errors.New("pool: shut down, not accepting tasks")

	// ErrQueueFull is returned by Submit when a bounded queue is configured
	// and full.
	ErrQueueFull = errors.New("pool: task queue full")

	// ErrCanceled settles a future whose task was canceled before it started.
	ErrCanceled = errors.New("pool: task canceled before start")
)

// Task is a unit of work. The context is the pool's base context; tasks that
// block should honor its cancellation.
type Task func(ctx context.Context) (any, error)

// Option configures a Pool at construction.
type Option func(*Pool)

// WithLogger routes the pool's lifecycle and task logs to log.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pool) { p.log = log }
}

// WithQueueSize bounds the pending queue at n tasks; Submit fails fast with
// ErrQueueFull instead of blocking when the queue is full. The default queue
// is unbounded.
func WithQueueSize(n int) Option {
	return func(p *Pool) { p.maxQueue = n }
}

type queued struct {
	task Task
	fut  *Future
}

// Pool runs tasks on a fixed set of workers. Submission never blocks; tasks
// complete in no particular order. After Shutdown, queued tasks still run to
// completion — nothing is silently dropped.
type Pool struct {
	name     string
	workers  int
	maxQueue int
	baseCtx  context.Context
	log      zerolog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*queued
	closed bool
	wg     sync.WaitGroup

	active *syncutil.Counter
}

// New starts a pool with the given worker count. A count below 1 falls back
// to DefaultWorkers. The name appears in log output only.
func New(name string, workers int, opts ...Option) *Pool {
	if workers < 1 {
		workers = DefaultWorkers
	}
	p := &Pool{
		name:    name,
		workers: workers,
		baseCtx: context.Background(),
		log:     zerolog.Nop(),
		active:  syncutil.NewCounter(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cond = sync.NewCond(&p.mu)

	p.log.Info().Str("pool", p.name).Int("workers", workers).Msg("starting worker pool")
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit enqueues a task and returns its future. It never blocks: once
// shutdown has begun it fails fast with ErrPoolClosed, and with a bounded
// queue it fails fast with ErrQueueFull.
func (p *Pool) Submit(task Task) (*Future, error) {
	if task == nil {
		return nil, errors.New("pool: nil task")
	}
	fut := newFuture(uuid.NewString())

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.maxQueue > 0 && len(p.queue) >= p.maxQueue {
		p.mu.Unlock()
		return nil, ErrQueueFull
	}
	p.queue = append(p.queue, &queued{task: task, fut: fut})
	p.cond.Signal()
	p.mu.Unlock()

	p.log.Debug().Str("pool", p.name).Str("task", fut.id).Msg("task submitted")
	return fut, nil
}

// Shutdown stops intake. Tasks already queued still run to completion. With
// wait, Shutdown blocks until every in-flight and queued task has settled.
// Shutting down twice is harmless.
func (p *Pool) Shutdown(wait bool) {
	p.mu.Lock()
	already := p.closed
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	if !already {
		p.log.Info().Str("pool", p.name).Bool("wait", wait).Msg("pool shutting down")
	}
	if wait {
		p.wg.Wait()
	}
}

// Active returns the number of tasks currently executing.
func (p *Pool) Active() int64 {
	return p.active.Get()
}

// Pending returns the number of queued, not yet started tasks.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Workers returns the fixed worker count.
func (p *Pool) Workers() int {
	return p.workers
}

// worker pulls tasks until the queue is drained after shutdown. A panic that
// escapes the per-task recovery is logged and the worker replaced so the pool
// never bleeds capacity.
func (p *Pool) worker(id int) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("pool", p.name).Int("worker", id).
				Interface("panic", r).Msg("worker crashed, starting replacement")
			p.wg.Add(1)
			go p.worker(id)
		}
		p.wg.Done()
	}()

	for {
		item, ok := p.next()
		if !ok {
			return
		}
		p.runTask(item)
	}
}

// next blocks until a task is available or the pool is closed and drained.
func (p *Pool) next() (*queued, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}
	item := p.queue[0]
	p.queue = p.queue[1:]
	return item, true
}

// runTask executes one task, capturing its failure — error or panic — in the
// task's own future.
func (p *Pool) runTask(item *queued) {
	if !item.fut.tryStart() {
		p.log.Debug().Str("pool", p.name).Str("task", item.fut.id).Msg("skipping canceled task")
		return
	}

	p.active.Increment(1)
	defer p.active.Decrement(1)

	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("pool", p.name).Str("task", item.fut.id).
				Interface("panic", r).Msg("task panicked")
			item.fut.settle(nil, fmt.Errorf("task panicked: %v", r))
		}
	}()

	result, err := item.task(p.baseCtx)
	item.fut.settle(result, err)
}
