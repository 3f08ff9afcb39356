package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestLRU_GetRefreshesRecency(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// Touching a makes b the LRU entry.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestLRU_PutRefreshesRecency(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 10) // update, a is now most recent
	c.Put("c", 3)  // evicts b

	_, ok := c.Get("b")
	assert.False(t, ok)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestLRU_NeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	c := NewLRU[int, int](capacity)
	for i := 0; i < 100; i++ {
		c.Put(i, i)
		assert.LessOrEqual(t, c.Len(), capacity)
	}
	assert.Equal(t, capacity, c.Len())
}

func TestLRU_ExactlyOneEvictionPerOverflow(t *testing.T) {
	var evicted []string
	c := NewLRU[string, int](2)
	c.OnEvict(func(key string, _ int) {
		evicted = append(evicted, key)
	})

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	assert.Equal(t, []string{"a"}, evicted)

	c.Put("d", 4)
	assert.Equal(t, []string{"a", "b"}, evicted)
}

func TestLRU_MissHasNoSideEffects(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	_, ok := c.Get("missing")
	require.False(t, ok)

	// A miss must not disturb the eviction order.
	c.Put("c", 3)
	_, ok = c.Get("a")
	assert.False(t, ok, "a was still the LRU entry and should be evicted")
}

func TestLRU_ClearReleasesAllEntries(t *testing.T) {
	released := make(map[string]bool)
	c := NewLRU[string, int](10)
	c.OnEvict(func(key string, _ int) {
		released[key] = true
	})

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.True(t, released["a"])
	assert.True(t, released["b"])
	assert.True(t, released["c"])
}

func TestLRU_ClearSurvivesPanickingRelease(t *testing.T) {
	var releaseCalls int
	c := NewLRU[string, int](10)
	c.OnEvict(func(key string, _ int) {
		releaseCalls++
		if key == "b" {
			panic("release failed")
		}
	})

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	require.NotPanics(t, func() { c.Clear() })
	assert.Equal(t, 3, releaseCalls, "every entry should see a release attempt")
	assert.Equal(t, 0, c.Len())

	// Cache must stay usable after a failed release.
	c.Put("d", 4)
	v, ok := c.Get("d")
	require.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestLRU_RemoveReleasesValue(t *testing.T) {
	var released bool
	c := NewLRU[string, int](10)
	c.OnEvict(func(string, int) { released = true })

	c.Put("a", 1)
	require.True(t, c.Remove("a"))
	assert.True(t, released)
	assert.False(t, c.Remove("a"))
}

func TestLRU_CapacityClamped(t *testing.T) {
	c := NewLRU[string, int](0)
	assert.Equal(t, 1, c.Capacity())
	c.Put("a", 1)
	c.Put("b", 2)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	const capacity = 8
	c := NewLRU[string, int](capacity)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (g*31+i)%20)
				if i%3 == 0 {
					c.Get(key)
				} else {
					c.Put(key, i)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), capacity)
}
