// Package writers provides output writers for various formats.
//
// This package contains implementations of the dispatcher.Writer interface
// for different report formats including JSONL (newline-delimited JSON),
// CSV, Markdown, and PDF, suitable for both CI pipelines and human review.
package writers

import (
	"io"
	"sync"

	"github.com/fleetscan/fleetscan/pkg/jsonutil"
	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*JSONLWriter)(nil)

// JSONLWriter writes events as newline-delimited JSON (JSONL).
// Each event is serialized as a complete JSON object on a single line,
// making it ideal for streaming processing and CI pipelines.
//
// JSONL format allows each line to be parsed independently, enabling
// tools like jq, grep, and streaming parsers to process events in real-time.
type JSONLWriter struct {
	w       io.Writer
	mu      sync.Mutex
	opts    JSONLOptions
	encoder *jsonutil.Encoder
}

// JSONLOptions configures the JSONL writer behavior.
type JSONLOptions struct {
	// OmitEvidence blanks evidence and match snippets on finding events.
	// Evidence can contain resource contents that should not land in
	// shared logs.
	OmitEvidence bool

	// OnlyFailures filters output to failed findings. When true, only
	// FindingEvents whose finding has status FAIL are written; all
	// other events are dropped.
	OnlyFailures bool
}

// NewJSONLWriter creates a new JSONL writer that writes to w.
// The writer is safe for concurrent use.
func NewJSONLWriter(w io.Writer, opts JSONLOptions) *JSONLWriter {
	return &JSONLWriter{
		w:       w,
		opts:    opts,
		encoder: jsonutil.NewEncoder(w),
	}
}

// Write writes an event as a single JSON line.
// Returns nil if the event was filtered out by options.
func (jw *JSONLWriter) Write(event events.Event) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.opts.OnlyFailures {
		fe, ok := event.(*events.FindingEvent)
		if !ok || !fe.Finding.IsFailed() {
			return nil
		}
	}

	if jw.opts.OmitEvidence {
		if fe, ok := event.(*events.FindingEvent); ok {
			// Copy so the shared event stays intact for other writers.
			filtered := *fe
			filtered.Finding.Evidence = ""
			filtered.Finding.MatchSnippet = ""
			return jw.encoder.Encode(&filtered)
		}
	}

	return jw.encoder.Encode(event)
}

// Flush is a no-op: every Write already reaches the underlying stream.
func (jw *JSONLWriter) Flush() error {
	return nil
}

// Close closes the underlying writer if it implements io.Closer.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if closer, ok := jw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for all event types.
// JSONL is the full-fidelity audit stream of a run.
func (jw *JSONLWriter) SupportsEvent(eventType events.EventType) bool {
	return true
}
