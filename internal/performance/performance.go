// Package performance provides the recompute-on-change cache and the worker
// pool used by the analytics commands.
package performance

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// Cache memoizes computed values by a comparable key, typically a content
// fingerprint plus the parameters of the computation. When full, the oldest
// entry is evicted.
type Cache[K comparable, V any] struct {
	capacity int
	entries  map[K]V
	order    []K
	mu       sync.Mutex
	hits     atomic.Uint64
	misses   atomic.Uint64
}

// NewCache creates a cache holding at most capacity entries.
// If capacity is 0, it defaults to 16.
func NewCache[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 16
	}
	return &Cache[K, V]{
		capacity: capacity,
		entries:  make(map[K]V, capacity),
	}
}

// GetOrCompute returns the cached value for key, or computes and stores it.
// The boolean reports whether the value came from the cache.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() V) (V, bool) {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		return v, true
	}
	c.mu.Unlock()

	c.misses.Add(1)
	v := compute()

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = v
	return v, false
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() CacheStats {
	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()
	return CacheStats{
		Size:   size,
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

// WorkerPool runs tasks on a fixed number of goroutines.
type WorkerPool struct {
	workers    int
	taskQueue  chan func()
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	running    atomic.Bool
	tasksTotal atomic.Uint64
	tasksDone  atomic.Uint64
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If workers is 0, it defaults to runtime.NumCPU().
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*4),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the worker pool.
func (p *WorkerPool) Start() {
	if p.running.Swap(true) {
		return
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			task()
			p.tasksDone.Add(1)
		}
	}
}

// RunAll submits every task and blocks until all of them have finished or
// ctx is cancelled. It returns false if the pool is not running.
func (p *WorkerPool) RunAll(ctx context.Context, tasks []func()) bool {
	if !p.running.Load() {
		return false
	}

	var wg sync.WaitGroup
	for _, task := range tasks {
		task := task
		wg.Add(1)
		wrapped := func() {
			defer wg.Done()
			task()
		}
		select {
		case p.taskQueue <- wrapped:
			p.tasksTotal.Add(1)
		case <-ctx.Done():
			wg.Done()
			wg.Wait()
			return false
		}
	}
	wg.Wait()
	return true
}

// Stop stops the worker pool and waits for all workers to finish.
func (p *WorkerPool) Stop() {
	if !p.running.Swap(false) {
		return
	}

	p.cancel()
	close(p.taskQueue)
	p.wg.Wait()
}

// Stats returns pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		Running:    p.running.Load(),
		TasksTotal: p.tasksTotal.Load(),
		TasksDone:  p.tasksDone.Load(),
		QueueLen:   len(p.taskQueue),
	}
}

// PoolStats contains worker pool statistics.
type PoolStats struct {
	Workers    int
	Running    bool
	TasksTotal uint64
	TasksDone  uint64
	QueueLen   int
}
