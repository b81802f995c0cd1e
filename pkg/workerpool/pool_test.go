package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsTasks(t *testing.T) {
	t.Parallel()

	p := New(4)
	defer p.Close()

	var ran int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		if !p.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&ran, 1)
		}) {
			t.Fatal("Submit returned false on an open pool")
		}
	}
	wg.Wait()

	if got := atomic.LoadInt64(&ran); got != 100 {
		t.Errorf("ran %d tasks, want 100", got)
	}
}

func TestWorkersStartLazily(t *testing.T) {
	t.Parallel()

	p := New(8)
	defer p.Close()

	if got := p.Running(); got != 0 {
		t.Errorf("Running() = %d before any submission, want 0", got)
	}

	p.SubmitWait(func() {})
	if got := p.Running(); got < 1 || got > 8 {
		t.Errorf("Running() = %d after one task, want within [1,8]", got)
	}
}

func TestConcurrencyBoundedByEmergencyCap(t *testing.T) {
	t.Parallel()

	const capacity = 3
	p := New(capacity)
	defer p.Close()

	var cur, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			n := atomic.AddInt64(&cur, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&cur, -1)
		})
	}
	wg.Wait()

	if got := atomic.LoadInt64(&peak); got > capacity*2 {
		t.Errorf("peak concurrency %d exceeds the 2x emergency cap %d", got, capacity*2)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	t.Parallel()

	p := New(2)
	p.Close()

	if p.Submit(func() {}) {
		t.Error("Submit must reject tasks after Close")
	}
	if !p.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	// Closing twice is a no-op, not a panic.
	p.Close()
}

func TestCloseDrainsQueue(t *testing.T) {
	t.Parallel()

	p := New(1)

	var ran int64
	for i := 0; i < 20; i++ {
		p.Submit(func() {
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&ran, 1)
		})
	}
	p.Close()

	if got := atomic.LoadInt64(&ran); got != 20 {
		t.Errorf("Close returned with %d/20 queued tasks run", got)
	}
}

func TestSubmitWait(t *testing.T) {
	t.Parallel()

	p := New(2)
	defer p.Close()

	var done int32
	if !p.SubmitWait(func() {
		time.Sleep(10 * time.Millisecond)
		atomic.StoreInt32(&done, 1)
	}) {
		t.Fatal("SubmitWait returned false on an open pool")
	}
	if atomic.LoadInt32(&done) != 1 {
		t.Error("SubmitWait returned before the task finished")
	}
}

func TestParallelForCoversAllIndices(t *testing.T) {
	t.Parallel()

	p := New(4)
	defer p.Close()

	const n = 500
	seen := make([]int32, n)
	p.ParallelFor(n, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	})

	for i, c := range seen {
		if c != 1 {
			t.Fatalf("index %d executed %d times", i, c)
		}
	}

	// Degenerate sizes return immediately.
	p.ParallelFor(0, func(int) { t.Error("fn called for n=0") })
	p.ParallelFor(-3, func(int) { t.Error("fn called for n<0") })
}

func TestMapPreservesOrder(t *testing.T) {
	t.Parallel()

	p := New(8)
	defer p.Close()

	items := make([]int, 200)
	for i := range items {
		items[i] = i
	}

	results := Map(p, items, func(v int) int { return v * v })

	if len(results) != len(items) {
		t.Fatalf("got %d results for %d items", len(results), len(items))
	}
	for i, r := range results {
		if r != i*i {
			t.Errorf("results[%d] = %d, want %d", i, r, i*i)
		}
	}
}

func TestMapOnClosedPool(t *testing.T) {
	t.Parallel()

	p := New(2)
	p.Close()

	results := Map(p, []int{1, 2, 3}, func(v int) int { return v + 1 })
	if len(results) != 3 {
		t.Fatalf("Map on a closed pool must still return a full-length slice, got %d", len(results))
	}
	for i, r := range results {
		if r != 0 {
			t.Errorf("results[%d] = %d, want zero value on closed pool", i, r)
		}
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()

	p := Default()
	if p != Default() {
		t.Error("Default() must return the shared instance")
	}
	if c := p.Cap(); c < 4 || c > 64 {
		t.Errorf("Default() capacity %d outside [4,64]", c)
	}
}

func TestNewNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	p := New(0)
	defer p.Close()
	if p.Cap() <= 0 {
		t.Errorf("Cap() = %d, want GOMAXPROCS fallback", p.Cap())
	}
}
