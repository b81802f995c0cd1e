// Package dispatcher provides the central event routing for output.
// It receives events from the scan orchestrator, the ingest pipeline,
// and the aggregation store, and routes them to registered writers and
// hooks. Writers handle file output (JSON, CSV, Markdown, PDF), while
// hooks handle live integrations (logging, Prometheus, OTel).
//
// The dispatcher decouples event producers from consumers: a producer
// never knows, and never waits on, what is listening.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fleetscan/fleetscan/pkg/output/events"
)

// Writer is the interface for all output writers. Writers persist
// events to an output format such as JSON, CSV, or a rendered report.
type Writer interface {
	// Write writes an event to the output.
	Write(event events.Event) error

	// Flush ensures all buffered events are written.
	Flush() error

	// Close closes the writer and releases any resources.
	Close() error

	// SupportsEvent reports whether the writer handles this event type.
	SupportsEvent(eventType events.EventType) bool
}

// Hook is the interface for event hooks: live integrations such as
// structured logging, metrics exposition, or trace export.
type Hook interface {
	// OnEvent is called for each matching event.
	OnEvent(ctx context.Context, event events.Event) error

	// EventTypes returns the event types this hook handles.
	// Nil or empty means the hook receives all events.
	EventTypes() []events.EventType
}

// Dispatcher routes events to writers and hooks. It is safe for
// concurrent use; Dispatch may be called from many goroutines while a
// batch runs.
type Dispatcher struct {
	mu      sync.RWMutex
	writers []Writer
	hooks   []Hook

	async  bool
	hookWg sync.WaitGroup
	closed atomic.Bool

	logger *slog.Logger
}

// Config configures the dispatcher behavior.
type Config struct {
	// Async runs hooks in goroutines so a slow hook never stalls the
	// producing scan. Close waits for outstanding hook deliveries.
	Async bool

	// Logger receives writer and hook failure diagnostics.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// New creates an event dispatcher with the given configuration.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		writers: make([]Writer, 0),
		hooks:   make([]Hook, 0),
		async:   cfg.Async,
		logger:  logger,
	}
}

// RegisterWriter adds a writer. Writers receive events that match
// their SupportsEvent filter.
func (d *Dispatcher) RegisterWriter(w Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writers = append(d.writers, w)
}

// RegisterHook adds a hook. Hooks receive events that match their
// EventTypes filter.
func (d *Dispatcher) RegisterHook(h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, h)
}

// Dispatch sends an event to all registered writers and hooks. A
// failing writer or hook is logged and skipped; the event still
// reaches every other consumer. Dispatch after Close is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	// Checked under the read lock: Close holds the write lock while it
	// waits on hookWg, so no Dispatch can slip an Add past its Wait.
	if d.closed.Load() {
		return nil
	}

	for _, w := range d.writers {
		if !w.SupportsEvent(event.EventType()) {
			continue
		}
		if err := w.Write(event); err != nil {
			d.logger.Warn("dispatcher: writer failed",
				slog.String("event", string(event.EventType())),
				slog.String("error", err.Error()))
		}
	}

	for _, h := range d.hooks {
		if !hookSupportsEvent(h, event.EventType()) {
			continue
		}
		if d.async {
			d.hookWg.Add(1)
			go func(hook Hook) {
				defer d.hookWg.Done()
				if err := hook.OnEvent(ctx, event); err != nil {
					d.logger.Warn("dispatcher: hook failed",
						slog.String("event", string(event.EventType())),
						slog.String("error", err.Error()))
				}
			}(h)
		} else if err := h.OnEvent(ctx, event); err != nil {
			d.logger.Warn("dispatcher: hook failed",
				slog.String("event", string(event.EventType())),
				slog.String("error", err.Error()))
		}
	}

	return nil
}

// hookSupportsEvent checks whether a hook handles the given event type.
func hookSupportsEvent(h Hook, eventType events.EventType) bool {
	types := h.EventTypes()
	if len(types) == 0 {
		return true
	}
	for _, et := range types {
		if et == eventType {
			return true
		}
	}
	return false
}

// Flush flushes all registered writers.
func (d *Dispatcher) Flush() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, w := range d.writers {
		if err := w.Flush(); err != nil {
			d.logger.Warn("dispatcher: flush failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Close waits for outstanding async hook deliveries, then flushes and
// closes all writers. After Close the dispatcher drops new events.
//
// The write lock is held across hookWg.Wait: no Dispatch can be
// mid-flight when Wait begins, which is what makes the Add/Wait pair
// safe.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed.Swap(true) {
		return nil
	}
	d.hookWg.Wait()

	for _, w := range d.writers {
		if err := w.Flush(); err != nil {
			d.logger.Warn("dispatcher: flush on close failed", slog.String("error", err.Error()))
		}
		if err := w.Close(); err != nil {
			d.logger.Warn("dispatcher: close failed", slog.String("error", err.Error()))
		}
	}
	return nil
}
