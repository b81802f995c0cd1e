// Package writers provides output writers for various formats.
package writers

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/jsonutil"
	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*JSONWriter)(nil)

// JSONWriter writes a complete report document as a single JSON object.
// Unlike JSONLWriter which streams events one per line, this writer
// buffers findings, per-target results, and the summary in memory and
// writes one self-describing document when Close is called. This is
// the canonical machine-readable export.
type JSONWriter struct {
	w        io.Writer
	mu       sync.Mutex
	opts     JSONOptions
	runID    string
	findings []finding.Finding
	targets  []TargetResult
	summary  *events.Summary
	filters  *events.FilterEcho
}

// JSONOptions configures the JSON writer behavior.
type JSONOptions struct {
	// OmitEvidence blanks evidence and match snippets on exported
	// findings to keep resource contents out of shared documents.
	OmitEvidence bool

	// Pretty enables indented JSON output.
	Pretty bool

	// IndentSize sets the number of spaces for indentation (default 2).
	IndentSize int
}

// Document is the top-level shape of the JSON export.
type Document struct {
	Tool        string             `json:"tool"`
	Version     string             `json:"version"`
	GeneratedAt time.Time          `json:"generated_at"`
	RunID       string             `json:"run_id,omitempty"`
	Summary     *events.Summary    `json:"summary,omitempty"`
	Filters     *events.FilterEcho `json:"filters,omitempty"`
	Targets     []TargetResult     `json:"targets,omitempty"`
	Findings    []finding.Finding  `json:"findings"`
}

// TargetResult is the per-target scan outcome embedded in the document.
type TargetResult struct {
	Target     string  `json:"target"`
	Success    bool    `json:"success"`
	ReportPath string  `json:"report_path,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"duration_ms"`
}

// NewJSONWriter creates a new JSON document writer that writes to w.
// The writer buffers all events and writes the document on Close.
// The writer is safe for concurrent use.
func NewJSONWriter(w io.Writer, opts JSONOptions) *JSONWriter {
	if opts.IndentSize == 0 {
		opts.IndentSize = 2
	}
	return &JSONWriter{
		w:        w,
		opts:     opts,
		findings: make([]finding.Finding, 0),
	}
}

// Write buffers an event for the final document.
func (jw *JSONWriter) Write(event events.Event) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.runID == "" {
		jw.runID = event.RunID()
	}

	switch e := event.(type) {
	case *events.FindingEvent:
		f := e.Finding
		if jw.opts.OmitEvidence {
			f.Evidence = ""
			f.MatchSnippet = ""
		}
		jw.findings = append(jw.findings, f)
	case *events.ResultEvent:
		jw.targets = append(jw.targets, TargetResult{
			Target:     e.Target,
			Success:    e.Success,
			ReportPath: e.ReportPath,
			Error:      e.Error,
			DurationMs: e.DurationMs,
		})
	case *events.SummaryEvent:
		summary := e.Summary
		jw.summary = &summary
		jw.filters = e.Filters
	}
	return nil
}

// Flush is a no-op for the JSON writer.
// The document is written as a whole on Close.
func (jw *JSONWriter) Flush() error {
	return nil
}

// Close writes the buffered document and closes the writer.
// If the underlying writer implements io.Closer, it will be closed.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	doc := Document{
		Tool:        defaults.ToolName,
		Version:     defaults.Version,
		GeneratedAt: time.Now().UTC(),
		RunID:       jw.runID,
		Summary:     jw.summary,
		Filters:     jw.filters,
		Targets:     jw.targets,
		Findings:    jw.findings,
	}

	var err error
	if jw.opts.Pretty {
		indent := strings.Repeat(" ", jw.opts.IndentSize)
		err = jsonutil.MarshalWriteIndent(jw.w, doc, indent)
	} else {
		err = jsonutil.MarshalWrite(jw.w, doc)
	}
	if err != nil {
		return fmt.Errorf("json: encode: %w", err)
	}

	if closer, ok := jw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for finding, result, and summary events.
// These are the event types that constitute the report document.
func (jw *JSONWriter) SupportsEvent(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeFinding, events.EventTypeResult, events.EventTypeSummary:
		return true
	default:
		return false
	}
}
