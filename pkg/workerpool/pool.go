// Package workerpool provides a bounded goroutine pool for fan-out work
// such as matching rule sets against source trees and refreshing finding
// sources. Workers are reused across tasks, so submitting thousands of
// small file jobs does not cost thousands of goroutine stacks.
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed-capacity worker pool. Workers start lazily on the
// first submissions and exit when the pool is closed.
type Pool struct {
	capacity int32
	tasks    chan func()
	running  int32
	closed   int32
	wg       sync.WaitGroup
}

var (
	defaultPool *Pool
	defaultOnce sync.Once
)

// Default returns the shared pool, sized for CPU-bound work: rule
// matching is regex over file bytes, so more workers than cores only
// adds scheduling churn.
func Default() *Pool {
	defaultOnce.Do(func() {
		workers := runtime.GOMAXPROCS(0)
		if workers < 4 {
			workers = 4
		}
		if workers > 64 {
			workers = 64
		}
		defaultPool = New(workers)
	})
	return defaultPool
}

// New creates a pool with the given worker capacity. Non-positive
// capacity falls back to GOMAXPROCS. The task queue is buffered so a
// fast producer (the directory walker) can run ahead of the matchers.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		capacity: int32(workers),
		tasks:    make(chan func(), workers*16),
	}
}

// Submit queues a task for execution, spawning a worker if the pool is
// below capacity. When the queue is full it blocks, after allowing a
// bounded overflow of emergency workers (at most 2x capacity) so a
// burst cannot deadlock submitters against a stalled queue. Returns
// false if the pool is closed.
func (p *Pool) Submit(task func()) bool {
	if atomic.LoadInt32(&p.closed) == 1 {
		return false
	}

	p.spawn(p.capacity)

	select {
	case p.tasks <- task:
		return true
	default:
		p.spawn(p.capacity * 2)
		p.tasks <- task
		return true
	}
}

// spawn starts one worker if the running count is below limit. The CAS
// loop keeps concurrent submitters from over-spawning.
func (p *Pool) spawn(limit int32) {
	for {
		running := atomic.LoadInt32(&p.running)
		if running >= limit {
			return
		}
		if atomic.CompareAndSwapInt32(&p.running, running, running+1) {
			p.wg.Add(1)
			go p.worker()
			return
		}
	}
}

// worker drains the task queue. A panicking task takes its worker down,
// so the deferred handler spawns a replacement to preserve capacity;
// counters and the WaitGroup transfer to the replacement untouched.
func (p *Pool) worker() {
	defer func() {
		if r := recover(); r != nil {
			if atomic.LoadInt32(&p.closed) == 0 {
				go p.worker()
				return
			}
		}
		atomic.AddInt32(&p.running, -1)
		p.wg.Done()
	}()

	for task := range p.tasks {
		if task != nil {
			task()
		}
	}
}

// SubmitWait queues a task and blocks until it has run. Returns false
// without running the task if the pool is closed.
func (p *Pool) SubmitWait(task func()) bool {
	done := make(chan struct{})
	ok := p.Submit(func() {
		defer close(done)
		task()
	})
	if ok {
		<-done
	}
	return ok
}

// ParallelFor runs fn for every index in [0,n) on the pool and blocks
// until all iterations finish.
func (p *Pool) ParallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		idx := i
		if !p.Submit(func() {
			defer wg.Done()
			fn(idx)
		}) {
			wg.Done()
		}
	}
	wg.Wait()
}

// Map applies fn to every item on the pool and returns the results in
// input order. Slots for items whose submission failed (closed pool)
// hold the zero value.
func Map[T, R any](p *Pool, items []T, fn func(T) R) []R {
	results := make([]R, len(items))
	var wg sync.WaitGroup
	wg.Add(len(items))

	for i, item := range items {
		idx, val := i, item
		if !p.Submit(func() {
			defer wg.Done()
			results[idx] = fn(val)
		}) {
			wg.Done()
		}
	}

	wg.Wait()
	return results
}

// Running returns the current worker count, including emergency
// overflow workers.
func (p *Pool) Running() int {
	return int(atomic.LoadInt32(&p.running))
}

// Cap returns the configured worker capacity.
func (p *Pool) Cap() int {
	return int(atomic.LoadInt32(&p.capacity))
}

// Waiting returns the number of queued tasks no worker has picked up.
func (p *Pool) Waiting() int {
	return len(p.tasks)
}

// IsClosed reports whether Close has been called.
func (p *Pool) IsClosed() bool {
	return atomic.LoadInt32(&p.closed) == 1
}

// Close drains the queue and stops all workers. Queued tasks run to
// completion; subsequent submissions are rejected.
func (p *Pool) Close() {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return
	}
	close(p.tasks)
	p.wg.Wait()
}
