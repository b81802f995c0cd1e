// Package writers provides output writers for various formats.
package writers

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*MarkdownWriter)(nil)

// MarkdownConfig configures the Markdown report writer. All boolean
// fields are opt-in so the zero value renders a compact report.
type MarkdownConfig struct {
	// Title is the report title (default: "Fleetscan Security Report").
	Title string

	// SortBy sets the finding sort order: "severity" (default),
	// "service", or "project".
	SortBy string

	// IncludeTOC includes a table of contents.
	IncludeTOC bool

	// IncludeEvidence appends an evidence section for failed findings.
	IncludeEvidence bool

	// CollapseSections wraps per-severity finding tables in
	// GitHub-flavored <details> blocks.
	CollapseSections bool

	// UseEmojis includes severity emojis in headings and tables.
	UseEmojis bool

	// MaxEvidenceLen truncates evidence display to this length (default 200).
	MaxEvidenceLen int

	// MaxFindings caps the number of findings rendered in detail tables
	// (0 = no limit). The summary always covers the full set.
	MaxFindings int
}

// MarkdownWriter writes events as a Markdown report.
// It buffers all events in memory and renders the complete Markdown
// document on Close. The writer is safe for concurrent use.
type MarkdownWriter struct {
	w        io.Writer
	mu       sync.Mutex
	config   MarkdownConfig
	findings []finding.Finding
	summary  *events.SummaryEvent
}

// NewMarkdownWriter creates a new Markdown report writer.
// The writer buffers all events and writes a complete report on Close.
func NewMarkdownWriter(w io.Writer, config MarkdownConfig) *MarkdownWriter {
	if config.Title == "" {
		config.Title = "Fleetscan Security Report"
	}
	if config.SortBy == "" {
		config.SortBy = "severity"
	}
	if config.MaxEvidenceLen == 0 {
		config.MaxEvidenceLen = 200
	}
	return &MarkdownWriter{
		w:        w,
		config:   config,
		findings: make([]finding.Finding, 0),
	}
}

// Write buffers an event for later Markdown output.
func (mw *MarkdownWriter) Write(event events.Event) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	switch e := event.(type) {
	case *events.FindingEvent:
		mw.findings = append(mw.findings, e.Finding)
	case *events.SummaryEvent:
		mw.summary = e
	}
	return nil
}

// Flush is a no-op for Markdown writer.
// All events are written as a single Markdown document on Close.
func (mw *MarkdownWriter) Flush() error {
	return nil
}

// Close renders and writes the complete Markdown report.
func (mw *MarkdownWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	sb := &strings.Builder{}
	mw.renderMarkdown(sb)

	if _, err := io.WriteString(mw.w, sb.String()); err != nil {
		return fmt.Errorf("failed to write Markdown: %w", err)
	}

	if closer, ok := mw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for finding and summary events.
func (mw *MarkdownWriter) SupportsEvent(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeFinding, events.EventTypeSummary:
		return true
	default:
		return false
	}
}

func severityEmoji(s finding.Severity) string {
	switch s {
	case finding.SeverityCritical:
		return "🔴"
	case finding.SeverityHigh:
		return "🟠"
	case finding.SeverityMedium:
		return "🟡"
	case finding.SeverityLow:
		return "🔵"
	case finding.SeverityInformational:
		return "⚪"
	default:
		return "⚫"
	}
}

func severityLabel(s finding.Severity) string {
	return strings.ToUpper(string(s))
}

// renderSeverityBar renders an ASCII distribution bar for failed
// findings per severity, proportional to the largest bucket.
func renderSeverityBar(counts map[finding.Severity]int) string {
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	if max == 0 {
		return "No failed findings.\n"
	}

	const barWidth = 40
	sb := &strings.Builder{}
	sb.WriteString("```\n")
	for _, sev := range finding.Severities {
		n := counts[sev]
		width := n * barWidth / max
		if n > 0 && width == 0 {
			width = 1
		}
		label := severityLabel(sev)
		sb.WriteString(fmt.Sprintf("%-14s %s %d\n", label, strings.Repeat("█", width), n))
	}
	sb.WriteString("```\n\n")
	return sb.String()
}

func (mw *MarkdownWriter) renderMarkdown(sb *strings.Builder) {
	sorted := mw.sortFindings()

	failedCounts := make(map[finding.Severity]int)
	totalFailed := 0
	for i := range sorted {
		if sorted[i].IsFailed() {
			failedCounts[sorted[i].Severity]++
			totalFailed++
		}
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", mw.config.Title))
	sb.WriteString(fmt.Sprintf("*Generated: %s*\n\n", time.Now().Format("2006-01-02 15:04:05 MST")))

	if mw.config.IncludeTOC {
		mw.renderTOC(sb)
	}

	mw.renderExecutiveSummary(sb, failedCounts, totalFailed)
	mw.renderSummaryTable(sb, totalFailed)

	sb.WriteString("## Risk Distribution\n\n")
	sb.WriteString(renderSeverityBar(failedCounts))

	mw.renderComplianceTable(sb)
	mw.renderFindings(sb, sorted)

	if mw.config.IncludeEvidence {
		mw.renderEvidence(sb, sorted)
	}
}

func (mw *MarkdownWriter) renderTOC(sb *strings.Builder) {
	sb.WriteString("## Table of Contents\n\n")
	sb.WriteString("- [Executive Summary](#executive-summary)\n")
	sb.WriteString("- [Summary](#summary)\n")
	sb.WriteString("- [Risk Distribution](#risk-distribution)\n")
	sb.WriteString("- [Compliance](#compliance)\n")
	sb.WriteString("- [Findings](#findings)\n")
	if mw.config.IncludeEvidence {
		sb.WriteString("- [Evidence](#evidence)\n")
	}
	sb.WriteString("\n")
}

func (mw *MarkdownWriter) renderExecutiveSummary(sb *strings.Builder, failedCounts map[finding.Severity]int, totalFailed int) {
	sb.WriteString("## Executive Summary\n\n")

	if mw.summary != nil {
		s := mw.summary.Summary
		sb.WriteString(fmt.Sprintf("**Security Score: %d/100** (Risk Level: **%s**)\n\n", s.SecurityScore, s.RiskLevel))
		if s.TargetsScanned > 0 {
			sb.WriteString(fmt.Sprintf("Scanned %d target(s) in %.1fs", s.TargetsScanned, s.DurationSec))
			if s.TargetsFailed > 0 {
				sb.WriteString(fmt.Sprintf(" (%d failed to scan)", s.TargetsFailed))
			}
			sb.WriteString(".\n\n")
		}
	}

	sb.WriteString(fmt.Sprintf("%d of %d checks failed.\n\n", totalFailed, len(mw.findings)))

	for _, rec := range mw.recommendations(failedCounts, totalFailed) {
		sb.WriteString(fmt.Sprintf("- %s\n", rec))
	}
	sb.WriteString("\n")
}

// recommendations derives a short action list from the failure profile.
func (mw *MarkdownWriter) recommendations(failedCounts map[finding.Severity]int, totalFailed int) []string {
	var recs []string

	if n := failedCounts[finding.SeverityCritical]; n > 0 {
		recs = append(recs, fmt.Sprintf("**Immediate action required:** %d critical finding(s). Remediate before the next deploy.", n))
	}
	if n := failedCounts[finding.SeverityHigh]; n > 0 {
		recs = append(recs, fmt.Sprintf("Schedule remediation for %d high-severity finding(s) within the current sprint.", n))
	}
	if mw.summary != nil {
		for _, cs := range mw.summary.Summary.Compliance {
			if cs.TotalChecks > 0 && cs.Percentage < 50 {
				recs = append(recs, fmt.Sprintf("Compliance for %s is at %.1f%%; review the framework's failed checks.",
					strings.ToUpper(cs.Framework.String()), cs.Percentage))
			}
		}
	}
	if totalFailed == 0 {
		recs = append(recs, "No failed checks. Keep scans scheduled to catch regressions.")
	}
	return recs
}

func (mw *MarkdownWriter) renderSummaryTable(sb *strings.Builder, totalFailed int) {
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Findings | %d |\n", len(mw.findings)))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", totalFailed))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", len(mw.findings)-totalFailed))
	if mw.summary != nil {
		s := mw.summary.Summary
		sb.WriteString(fmt.Sprintf("| Security Score | %d/100 |\n", s.SecurityScore))
		sb.WriteString(fmt.Sprintf("| Risk Level | %s |\n", s.RiskLevel))
		if len(s.Projects) > 0 {
			sb.WriteString(fmt.Sprintf("| Projects | %s |\n", strings.Join(s.Projects, ", ")))
		}
	}
	sb.WriteString("\n")
}

func (mw *MarkdownWriter) renderComplianceTable(sb *strings.Builder) {
	if mw.summary == nil || len(mw.summary.Summary.Compliance) == 0 {
		return
	}

	sb.WriteString("## Compliance\n\n")
	sb.WriteString("| Framework | Checks | Passed | Failed | Compliance |\n")
	sb.WriteString("|-----------|-------:|-------:|-------:|-----------:|\n")
	for _, cs := range mw.summary.Summary.Compliance {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.1f%% |\n",
			strings.ToUpper(cs.Framework.String()), cs.TotalChecks, cs.PassedChecks, cs.FailedChecks, cs.Percentage))
	}
	sb.WriteString("\n")
}

func (mw *MarkdownWriter) renderFindings(sb *strings.Builder, sorted []finding.Finding) {
	sb.WriteString("## Findings\n\n")

	failed := make([]finding.Finding, 0, len(sorted))
	for i := range sorted {
		if sorted[i].IsFailed() {
			failed = append(failed, sorted[i])
		}
	}
	if len(failed) == 0 {
		sb.WriteString("No failed findings.\n\n")
		return
	}
	if mw.config.MaxFindings > 0 && len(failed) > mw.config.MaxFindings {
		sb.WriteString(fmt.Sprintf("Showing the first %d of %d failed findings.\n\n", mw.config.MaxFindings, len(failed)))
		failed = failed[:mw.config.MaxFindings]
	}

	// Group by severity, most severe first.
	for _, sev := range finding.Severities {
		group := make([]finding.Finding, 0)
		for i := range failed {
			if failed[i].Severity == sev {
				group = append(group, failed[i])
			}
		}
		if len(group) == 0 {
			continue
		}

		heading := fmt.Sprintf("%s (%d)", severityLabel(sev), len(group))
		if mw.config.UseEmojis {
			heading = severityEmoji(sev) + " " + heading
		}

		if mw.config.CollapseSections {
			sb.WriteString(fmt.Sprintf("<details>\n<summary><strong>%s</strong></summary>\n\n", heading))
			mw.renderFindingsTable(sb, group)
			sb.WriteString("</details>\n\n")
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", heading))
			mw.renderFindingsTable(sb, group)
		}
	}
}

func (mw *MarkdownWriter) renderFindingsTable(sb *strings.Builder, group []finding.Finding) {
	sb.WriteString("| Check | Service | Project | Resource | Description |\n")
	sb.WriteString("|-------|---------|---------|----------|-------------|\n")
	for i := range group {
		f := &group[i]
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s | %s |\n",
			f.CheckID, f.Service, f.ProjectID,
			escapeMarkdownCell(f.ResourceID), escapeMarkdownCell(f.Description)))
	}
	sb.WriteString("\n")
}

func (mw *MarkdownWriter) renderEvidence(sb *strings.Builder, sorted []finding.Finding) {
	sb.WriteString("## Evidence\n\n")

	wrote := false
	for i := range sorted {
		f := &sorted[i]
		if !f.IsFailed() || (f.Evidence == "" && f.MatchSnippet == "") {
			continue
		}
		wrote = true

		sb.WriteString(fmt.Sprintf("### `%s` — %s\n\n", f.CheckID, escapeMarkdownCell(f.ResourceID)))
		if f.File != "" {
			if f.Line > 0 {
				sb.WriteString(fmt.Sprintf("`%s:%d`\n\n", f.File, f.Line))
			} else {
				sb.WriteString(fmt.Sprintf("`%s`\n\n", f.File))
			}
		}
		evidence := f.Evidence
		if evidence == "" {
			evidence = f.MatchSnippet
		}
		sb.WriteString("```\n")
		sb.WriteString(truncateString(evidence, mw.config.MaxEvidenceLen))
		sb.WriteString("\n```\n\n")

		if f.Recommendation != "" {
			sb.WriteString(fmt.Sprintf("**Recommendation:** %s\n\n", f.Recommendation))
		}
	}
	if !wrote {
		sb.WriteString("No evidence captured.\n\n")
	}
}

// sortFindings returns the buffered findings in the configured order.
// Failed findings always sort before passed ones within a key.
func (mw *MarkdownWriter) sortFindings() []finding.Finding {
	sorted := make([]finding.Finding, len(mw.findings))
	copy(sorted, mw.findings)

	less := func(a, b *finding.Finding) bool {
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		return a.CheckID < b.CheckID
	}
	switch mw.config.SortBy {
	case "service":
		less = func(a, b *finding.Finding) bool {
			if a.Service != b.Service {
				return a.Service < b.Service
			}
			return a.Severity.Rank() > b.Severity.Rank()
		}
	case "project":
		less = func(a, b *finding.Finding) bool {
			if a.ProjectID != b.ProjectID {
				return a.ProjectID < b.ProjectID
			}
			return a.Severity.Rank() > b.Severity.Rank()
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(&sorted[i], &sorted[j])
	})
	return sorted
}

// escapeMarkdownCell escapes characters that would break a table cell.
func escapeMarkdownCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// truncateString truncates a string to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
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
