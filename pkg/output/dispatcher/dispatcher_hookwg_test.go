// Regression test for bug: Dispatcher.Close() did not wait for async hooks.
//
// Before the fix, async hooks were fire-and-forget goroutines. Close() would
// flush and close writers without waiting for hook goroutines to finish,
// losing events still in flight when a batch ended. The fix adds a
// sync.WaitGroup (hookWg) so Close() blocks until all async hooks complete.
package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/fleetscan/fleetscan/pkg/output/events"
)

// TestCloseWaitsForAsyncHooks verifies Close() blocks until all async hooks
// finish, rather than returning immediately.
func TestCloseWaitsForAsyncHooks(t *testing.T) {
	t.Parallel()

	d := New(Config{Async: true})

	h := newMockHook()
	h.shouldBlock = true
	h.blockTime = 200 * time.Millisecond
	d.RegisterHook(h)

	event := newMockEvent(events.EventTypeResult)

	// Dispatch fires the async hook goroutine.
	if err := d.Dispatch(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	// Close should block until the async hook finishes (~200ms).
	start := time.Now()
	_ = d.Close()
	elapsed := time.Since(start)

	// If Close returned without waiting, elapsed would be ~0ms.
	if elapsed < 100*time.Millisecond {
		t.Errorf("Close() returned in %v; expected it to wait for async hook (~200ms)", elapsed)
	}

	// Verify the hook actually processed the event.
	if h.getEventCount() != 1 {
		t.Errorf("hook received %d events after Close(); want 1", h.getEventCount())
	}
}

// TestCloseWaitsForMultipleAsyncHooks verifies Close() waits for ALL hooks,
// not just the first one.
func TestCloseWaitsForMultipleAsyncHooks(t *testing.T) {
	t.Parallel()

	d := New(Config{Async: true})

	hooks := make([]*mockHook, 3)
	for i := range hooks {
		hooks[i] = newMockHook()
		hooks[i].shouldBlock = true
		hooks[i].blockTime = 150 * time.Millisecond
		d.RegisterHook(hooks[i])
	}

	if err := d.Dispatch(context.Background(), newMockEvent(events.EventTypeFinding)); err != nil {
		t.Fatal(err)
	}

	_ = d.Close()

	for i, h := range hooks {
		if h.getEventCount() != 1 {
			t.Errorf("hook %d received %d events after Close(); want 1", i, h.getEventCount())
		}
	}
}

// TestSyncHooksUnaffectedByClose verifies synchronous dispatch already
// completes before Close runs, with or without the wait.
func TestSyncHooksUnaffectedByClose(t *testing.T) {
	t.Parallel()

	d := New(Config{Async: false})

	h := newMockHook()
	d.RegisterHook(h)

	if err := d.Dispatch(context.Background(), newMockEvent(events.EventTypeSummary)); err != nil {
		t.Fatal(err)
	}
	_ = d.Close()

	if h.getEventCount() != 1 {
		t.Errorf("hook received %d events; want 1", h.getEventCount())
	}
}
