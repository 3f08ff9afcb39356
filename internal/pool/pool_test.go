package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_SubmitAndWait(t *testing.T) {
	p := New("test", 2)
	defer p.Shutdown(true)

	fut, err := p.Submit(func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)

	result, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestPool_NTasksYieldNResults(t *testing.T) {
	const n = 20
	p := New("test", 3) // fewer workers than tasks
	defer p.Shutdown(true)

	futures := make([]*Future, 0, n)
	for i := 0; i < n; i++ {
		i := i
		fut, err := p.Submit(func(ctx context.Context) (any, error) {
			return i * i, nil
		})
		require.NoError(t, err)
		futures = append(futures, fut)
	}

	results := make(map[int]bool)
	for i, fut := range futures {
		v, err := fut.Wait(context.Background())
		require.NoError(t, err, "task %d", i)
		results[v.(int)] = true
	}
	assert.Len(t, results, n, "every task must settle with its own result")
}

func TestPool_TaskFailureIsIsolated(t *testing.T) {
	p := New("test", 2)
	defer p.Shutdown(true)

	wantErr := errors.New("page 3 unreadable")
	futures := make([]*Future, 0, 5)
	for i := 1; i <= 5; i++ {
		i := i
		fut, err := p.Submit(func(ctx context.Context) (any, error) {
			if i == 3 {
				return nil, wantErr
			}
			return i, nil
		})
		require.NoError(t, err)
		futures = append(futures, fut)
	}

	for i, fut := range futures {
		v, err := fut.Wait(context.Background())
		if i == 2 {
			assert.ErrorIs(t, err, wantErr)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, i+1, v)
	}

	// The pool stays usable after a task failure.
	fut, err := p.Submit(func(ctx context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	v, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestPool_TaskPanicIsCaptured(t *testing.T) {
	p := New("test", 2)
	defer p.Shutdown(true)

	fut, err := p.Submit(func(ctx context.Context) (any, error) {
		panic("decode blew up")
	})
	require.NoError(t, err)

	_, err = fut.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task panicked")

	// Siblings are unaffected.
	fut2, err := p.Submit(func(ctx context.Context) (any, error) { return 1, nil })
	require.NoError(t, err)
	v, err := fut2.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestPool_SubmitAfterShutdownFailsFast(t *testing.T) {
	p := New("test", 2)
	p.Shutdown(true)

	_, err := p.Submit(func(ctx context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_ShutdownWaitDrainsQueuedTasks(t *testing.T) {
	p := New("test", 1)

	var mu sync.Mutex
	var ran []int
	for i := 0; i < 5; i++ {
		i := i
		_, err := p.Submit(func(ctx context.Context) (any, error) {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			ran = append(ran, i)
			mu.Unlock()
			return nil, nil
		})
		require.NoError(t, err)
	}

	p.Shutdown(true)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, ran, 5, "queued tasks must run to completion after shutdown")
}

func TestPool_ShutdownNoWaitStillRunsQueuedTasks(t *testing.T) {
	p := New("test", 1)

	fut, err := p.Submit(func(ctx context.Context) (any, error) {
		time.Sleep(10 * time.Millisecond)
		return "done", nil
	})
	require.NoError(t, err)

	p.Shutdown(false)

	v, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestPool_DoubleShutdown(t *testing.T) {
	p := New("test", 2)
	p.Shutdown(true)
	assert.NotPanics(t, func() { p.Shutdown(true) })
}

func TestPool_BoundedQueueFailsFast(t *testing.T) {
	p := New("test", 1, WithQueueSize(1))
	defer p.Shutdown(true)

	release := make(chan struct{})
	// Occupy the single worker.
	_, err := p.Submit(func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, err)

	// Wait until the blocker has left the queue and is running.
	require.Eventually(t, func() bool { return p.Pending() == 0 }, time.Second, time.Millisecond)

	// Fill the queue slot, then overflow.
	_, err = p.Submit(func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	_, err = p.Submit(func(ctx context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
}

func TestFuture_CancelBeforeStart(t *testing.T) {
	p := New("test", 1)
	defer p.Shutdown(true)

	release := make(chan struct{})
	_, err := p.Submit(func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, err)

	fut, err := p.Submit(func(ctx context.Context) (any, error) {
		t.Error("canceled task must not run")
		return nil, nil
	})
	require.NoError(t, err)

	assert.True(t, fut.Cancel())
	close(release)

	_, err = fut.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestFuture_CancelAfterStartFails(t *testing.T) {
	p := New("test", 1)
	defer p.Shutdown(true)

	started := make(chan struct{})
	release := make(chan struct{})
	fut, err := p.Submit(func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return "finished", nil
	})
	require.NoError(t, err)

	<-started
	assert.False(t, fut.Cancel(), "a running task cannot be canceled")
	close(release)

	v, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "finished", v)
}

func TestFuture_WaitHonorsContext(t *testing.T) {
	p := New("test", 1)
	defer p.Shutdown(true)

	release := make(chan struct{})
	defer close(release)
	fut, err := p.Submit(func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = fut.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_ConcurrentSubmitters(t *testing.T) {
	p := New("test", 4)
	defer p.Shutdown(true)

	const submitters = 8
	const perSubmitter = 50

	var wg sync.WaitGroup
	futures := make(chan *Future, submitters*perSubmitter)
	for s := 0; s < submitters; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for i := 0; i < perSubmitter; i++ {
				fut, err := p.Submit(func(ctx context.Context) (any, error) {
					return fmt.Sprintf("s%d", s), nil
				})
				if assert.NoError(t, err) {
					futures <- fut
				}
			}
		}(s)
	}
	wg.Wait()
	close(futures)

	settled := 0
	for fut := range futures {
		_, err := fut.Wait(context.Background())
		require.NoError(t, err)
		settled++
	}
	assert.Equal(t, submitters*perSubmitter, settled)
	assert.Equal(t, int64(0), p.Active())
}
