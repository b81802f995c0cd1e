// Regression tests for worker respawn accounting.
//
// Bug: when a task panicked, the dying worker decremented the running
// counter before its replacement existed, so Running() undercounted and
// a panic barrage could drift the counter permanently, starving the
// pool. Fix: the replacement inherits the dying worker's counter slot
// and WaitGroup membership; nothing is decremented on respawn.
package workerpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPanicRespawn_PoolKeepsWorking verifies the pool survives panicking
// tasks and still runs later submissions.
func TestPanicRespawn_PoolKeepsWorking(t *testing.T) {
	t.Parallel()

	p := New(2)
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			panic("rule matcher bug")
		})
	}
	wg.Wait()

	ran := false
	require.True(t, p.SubmitWait(func() { ran = true }))
	assert.True(t, ran, "task submitted after panics never ran")
}

// TestPanicRespawn_RunningCountStable verifies that after many panics the
// running count settles back at capacity with no drift in either direction.
func TestPanicRespawn_RunningCountStable(t *testing.T) {
	t.Parallel()

	const capacity = 4
	p := New(capacity)
	defer p.Close()

	// Saturate the pool so all workers exist before the barrage.
	var warm sync.WaitGroup
	for i := 0; i < capacity; i++ {
		warm.Add(1)
		p.Submit(func() { defer warm.Done(); time.Sleep(5 * time.Millisecond) })
	}
	warm.Wait()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			panic("intentional")
		})
	}
	wg.Wait()

	// Respawns are asynchronous; poll briefly for convergence.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.Running() == capacity {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, capacity, p.Running(), "running count drifted after panic barrage")
	assert.GreaterOrEqual(t, p.Running(), 0, "running count went negative")
}
