// Package writers provides output writers for various formats.
package writers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*CSVWriter)(nil)

// UTF-8 BOM for Excel compatibility.
const utf8BOM = "\xEF\xBB\xBF"

// Default timestamp format (RFC3339).
const defaultTimestampFormat = "2006-01-02T15:04:05Z07:00"

// CSVWriter writes finding events as CSV rows.
// Each row is a single finding, making it ideal for data analysis in
// tools like Excel, pandas, or database imports.
//
// Features:
//   - Fixed column set ordered for triage workflow
//   - Excel compatibility with UTF-8 BOM
//   - CSV injection prevention (formula sanitization)
//   - Summary rows appended on Close
type CSVWriter struct {
	w             io.Writer
	csvWriter     *csv.Writer
	mu            sync.Mutex
	opts          CSVOptions
	headerWritten bool
	summary       *events.SummaryEvent // Store summary for Close()
}

// CSVOptions configures the CSV writer behavior.
type CSVOptions struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool

	// Delimiter sets the field delimiter character.
	// Default is comma when zero value.
	Delimiter rune

	// ExcelCompatible adds UTF-8 BOM for Excel compatibility.
	// This ensures proper display of Unicode characters in Excel.
	ExcelCompatible bool

	// SanitizeFormulas prevents CSV injection by prefixing dangerous characters.
	// Dangerous characters: = + - @ TAB CR
	SanitizeFormulas bool

	// TimestampFormat sets the timestamp format (default: RFC3339).
	TimestampFormat string

	// TruncateAt limits field length (0 = no limit).
	TruncateAt int
}

// csvColumns defines the CSV column headers.
// Order optimized for triage: identity first, classification next,
// free-text detail last.
var csvColumns = []string{
	// Identity
	"fingerprint", // Stable finding fingerprint (mmh3)
	"timestamp",   // ISO 8601 timestamp (RFC3339)
	"project_id",  // Scanned project/account
	"resource_id", // Affected resource
	"check_id",    // Check identifier

	// Classification
	"service",   // Cloud service (iam, gcs, kms, ...)
	"severity",  // CRITICAL/HIGH/MEDIUM/LOW/INFORMATIONAL
	"status",    // PASS/FAIL/WARNING/UNKNOWN
	"framework", // Compliance framework tag
	"category",  // Check category

	// Detail
	"description",    // Human-readable finding description
	"recommendation", // Fix guidance
	"evidence",       // Matched resource state

	// Source location (audit findings only)
	"file", // Audited file path
	"line", // Line number of the match
}

// sanitizeForCSV prevents CSV injection by prefixing dangerous characters.
// This is a SECURITY feature to prevent formula execution in spreadsheets.
func sanitizeForCSV(s string) string {
	if len(s) == 0 {
		return s
	}
	// Characters that can trigger formula execution in spreadsheets
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s // Prefix with single quote
	}
	return s
}

// truncateField truncates a field to the specified length.
func truncateField(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen > 3 {
		return string(runes[:maxLen-3]) + "..."
	}
	return string(runes[:maxLen])
}

// NewCSVWriter creates a new CSV writer.
// If IncludeHeader is true, a header row is written immediately.
// If ExcelCompatible is true, a UTF-8 BOM is written for proper Excel display.
// The writer is safe for concurrent use.
func NewCSVWriter(w io.Writer, opts CSVOptions) *CSVWriter {
	if opts.TimestampFormat == "" {
		opts.TimestampFormat = defaultTimestampFormat
	}

	if opts.ExcelCompatible {
		_, _ = w.Write([]byte(utf8BOM))
	}

	csvWriter := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		csvWriter.Comma = opts.Delimiter
	}

	cw := &CSVWriter{
		w:         w,
		csvWriter: csvWriter,
		opts:      opts,
	}

	if opts.IncludeHeader {
		_ = csvWriter.Write(csvColumns)
		csvWriter.Flush()
		cw.headerWritten = true
	}

	return cw
}

// Write writes a finding event as a CSV row.
// Summary events are captured for output on Close().
// Other event types are silently skipped.
func (cw *CSVWriter) Write(event events.Event) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	switch e := event.(type) {
	case *events.FindingEvent:
		return cw.writeFinding(e.Finding)
	case *events.SummaryEvent:
		cw.summary = e
		return nil
	default:
		return nil // Skip other event types
	}
}

// writeFinding writes a single finding as a CSV row.
func (cw *CSVWriter) writeFinding(f finding.Finding) error {
	line := ""
	if f.Line > 0 {
		line = strconv.Itoa(f.Line)
	}

	// Build row matching csvColumns order.
	row := []string{
		f.Fingerprint(),                            // fingerprint
		f.Timestamp.Format(cw.opts.TimestampFormat), // timestamp
		f.ProjectID,                           // project_id
		f.ResourceID,                          // resource_id
		f.CheckID,                             // check_id
		f.Service,                             // service
		strings.ToUpper(string(f.Severity)),   // severity
		string(f.Status),                      // status
		strings.ToUpper(string(f.Framework)),  // framework
		f.Category,                            // category
		f.Description,                         // description
		f.Recommendation,                      // recommendation
		f.Evidence,                            // evidence
		f.File,                                // file
		line,                                  // line
	}

	// Apply sanitization and truncation
	for i, field := range row {
		if cw.opts.SanitizeFormulas {
			field = sanitizeForCSV(field)
		}
		if cw.opts.TruncateAt > 0 {
			field = truncateField(field, cw.opts.TruncateAt)
		}
		row[i] = field
	}

	return cw.csvWriter.Write(row)
}

// Flush flushes the CSV writer's internal buffer.
func (cw *CSVWriter) Flush() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.csvWriter.Flush()
	return cw.csvWriter.Error()
}

// Close flushes the CSV writer and writes summary rows if available.
// If the underlying writer implements io.Closer, it will be closed.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.summary != nil {
		cw.writeSummaryLocked()
	}

	cw.csvWriter.Flush()
	if err := cw.csvWriter.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}

	if closer, ok := cw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// writeSummaryLocked writes a summary section at the end of the CSV.
// Must be called with mu held.
func (cw *CSVWriter) writeSummaryLocked() {
	if cw.summary == nil {
		return
	}
	s := cw.summary.Summary

	// Blank row as separator
	_ = cw.csvWriter.Write([]string{})

	_ = cw.csvWriter.Write([]string{"# SUMMARY"})
	_ = cw.csvWriter.Write([]string{"Security Score", strconv.Itoa(s.SecurityScore)})
	_ = cw.csvWriter.Write([]string{"Risk Level", s.RiskLevel.String()})
	_ = cw.csvWriter.Write([]string{"Total Findings", strconv.Itoa(s.Stats.Total)})
	_ = cw.csvWriter.Write([]string{"Passed", strconv.Itoa(s.Stats.Passed)})
	_ = cw.csvWriter.Write([]string{"Failed", strconv.Itoa(s.Stats.Failed)})
}

// SupportsEvent returns true for finding and summary events.
// CSV format supports tabular finding data and summary statistics.
func (cw *CSVWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeFinding || eventType == events.EventTypeSummary
}
