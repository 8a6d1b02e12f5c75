package performance

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dashKey struct {
	Fingerprint uint64
	Window      string
}

func TestCacheHitsOnSameKey(t *testing.T) {
	c := NewCache[dashKey, int](4)
	calls := 0
	compute := func() int { calls++; return calls }

	v, cached := c.GetOrCompute(dashKey{1, "ALL"}, compute)
	assert.Equal(t, 1, v)
	assert.False(t, cached)

	v, cached = c.GetOrCompute(dashKey{1, "ALL"}, compute)
	assert.Equal(t, 1, v)
	assert.True(t, cached)

	// A changed fingerprint recomputes.
	v, cached = c.GetOrCompute(dashKey{2, "ALL"}, compute)
	assert.Equal(t, 2, v)
	assert.False(t, cached)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, 2, stats.Size)
}

func TestCacheEvictsOldest(t *testing.T) {
	c := NewCache[dashKey, string](2)
	c.GetOrCompute(dashKey{1, "1D"}, func() string { return "a" })
	c.GetOrCompute(dashKey{2, "1D"}, func() string { return "b" })
	c.GetOrCompute(dashKey{3, "1D"}, func() string { return "c" })

	assert.Equal(t, 2, c.Stats().Size)
	_, cached := c.GetOrCompute(dashKey{1, "1D"}, func() string { return "a2" })
	assert.False(t, cached)
	_, cached = c.GetOrCompute(dashKey{3, "1D"}, func() string { return "c2" })
	assert.True(t, cached)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache[int, int](8)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := c.GetOrCompute(i%4, func() int { return (i % 4) * 10 })
			assert.Equal(t, (i%4)*10, v)
		}(i)
	}
	wg.Wait()
	stats := c.Stats()
	assert.Equal(t, uint64(50), stats.Hits+stats.Misses)
	assert.Equal(t, 4, stats.Size)
}

func TestWorkerPoolRunAll(t *testing.T) {
	pool := NewWorkerPool(3)
	assert.False(t, pool.RunAll(context.Background(), []func(){func() {}}))

	pool.Start()
	defer pool.Stop()

	var done atomic.Int32
	results := make([]int, 10)
	tasks := make([]func(), len(results))
	for i := range tasks {
		i := i
		tasks[i] = func() {
			results[i] = i * i
			done.Add(1)
		}
	}

	require.True(t, pool.RunAll(context.Background(), tasks))
	assert.Equal(t, int32(10), done.Load())
	assert.Equal(t, 81, results[9])

	stats := pool.Stats()
	assert.Equal(t, 3, stats.Workers)
	assert.True(t, stats.Running)
	assert.Equal(t, uint64(10), stats.TasksTotal)
}

func BenchmarkCacheHit(b *testing.B) {
	c := NewCache[dashKey, int](4)
	key := dashKey{42, "ALL"}
	c.GetOrCompute(key, func() int { return 1 })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.GetOrCompute(key, func() int { return 1 })
	}
}
