// Package writers provides output writers for various formats.
package writers

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
	"github.com/fleetscan/fleetscan/pkg/scoring"
	gofpdf "github.com/go-pdf/fpdf"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*PDFWriter)(nil)

// pdfSeverityColors maps severity names to RGB colors used throughout
// the report.
var pdfSeverityColors = map[string][]int{
	"critical":      {220, 38, 38},
	"high":          {234, 88, 12},
	"medium":        {202, 138, 4},
	"low":           {37, 99, 235},
	"informational": {107, 114, 128},
}

// PDFConfig configures the PDF report writer.
type PDFConfig struct {
	// Title is the report title (default: "Fleetscan Security Report").
	Title string

	// CompanyName appears on the cover page and in page headers.
	CompanyName string

	// Author is recorded in the document metadata and on the cover.
	Author string

	// IncludeEvidence appends the evidence appendix for failed findings.
	IncludeEvidence bool

	// IncludeTOC renders a table of contents page.
	IncludeTOC bool

	// PageSize is the page format: "A4" (default) or "Letter".
	PageSize string

	// Orientation is "P" for portrait (default) or "L" for landscape.
	Orientation string

	// FooterText overrides the default page footer.
	FooterText string
}

// PDFWriter writes events as a paginated PDF report.
// It buffers all events in memory and renders the document on Close.
// The writer is safe for concurrent use.
type PDFWriter struct {
	w        io.Writer
	mu       sync.Mutex
	config   PDFConfig
	findings []finding.Finding
	targets  []TargetResult
	summary  *events.SummaryEvent

	// noCompress disables stream compression so tests can search the
	// raw bytes for rendered text.
	noCompress bool
}

// NewPDFWriter creates a new PDF report writer.
// The writer buffers all events and renders a complete report on Close.
func NewPDFWriter(w io.Writer, config PDFConfig) *PDFWriter {
	if config.Title == "" {
		config.Title = "Fleetscan Security Report"
	}
	if config.PageSize == "" {
		config.PageSize = "A4"
	}
	if config.Orientation == "" {
		config.Orientation = "P"
	}
	return &PDFWriter{
		w:        w,
		config:   config,
		findings: make([]finding.Finding, 0),
	}
}

// Write buffers an event for later PDF rendering.
func (pw *PDFWriter) Write(event events.Event) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	switch e := event.(type) {
	case *events.FindingEvent:
		pw.findings = append(pw.findings, e.Finding)
	case *events.ResultEvent:
		pw.targets = append(pw.targets, TargetResult{
			Target:     e.Target,
			Success:    e.Success,
			ReportPath: e.ReportPath,
			Error:      e.Error,
			DurationMs: e.DurationMs,
		})
	case *events.SummaryEvent:
		pw.summary = e
	}
	return nil
}

// Flush is a no-op for the PDF writer.
// The document is rendered as a whole on Close.
func (pw *PDFWriter) Flush() error {
	return nil
}

// Close renders the PDF document and writes it out.
// If the underlying writer implements io.Closer, it will be closed.
func (pw *PDFWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	pdf := gofpdf.New(pw.config.Orientation, "mm", pw.config.PageSize, "")
	if pw.noCompress {
		pdf.SetCompression(false)
	}
	pdf.SetTitle(pw.config.Title, true)
	if pw.config.Author != "" {
		pdf.SetAuthor(pw.config.Author, true)
	}
	pdf.SetCreator(defaults.ToolName+" "+defaults.Version, true)
	pdf.AliasNbPages("")

	footer := pw.config.FooterText
	if footer == "" {
		footer = fmt.Sprintf("Generated by %s v%s", defaults.ToolName, defaults.Version)
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, footer, "", 0, "L", false, 0, "")
		pdf.SetX(-40)
		pdf.CellFormat(30, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pw.addCoverPage(pdf)
	if pw.config.IncludeTOC {
		pw.addTableOfContents(pdf)
	}
	pw.addSummarySection(pdf)
	pw.addSeverityBreakdown(pdf)
	pw.addComplianceSection(pdf)
	pw.addTargetResults(pdf)
	pw.addFindingsDetail(pdf)
	if pw.config.IncludeEvidence {
		pw.addEvidenceAppendix(pdf)
	}

	if err := pdf.Output(pw.w); err != nil {
		return fmt.Errorf("pdf: render: %w", err)
	}

	if closer, ok := pw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for finding, result, and summary events.
func (pw *PDFWriter) SupportsEvent(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeFinding, events.EventTypeResult, events.EventTypeSummary:
		return true
	default:
		return false
	}
}

// addCoverPage renders the title page: report title, organization,
// score badge, and generation metadata.
func (pw *PDFWriter) addCoverPage(pdf *gofpdf.Fpdf) {
	pdf.AddPage()

	// Dark banner across the top.
	pageW, _ := pdf.GetPageSize()
	pdf.SetFillColor(30, 41, 59)
	pdf.Rect(0, 0, pageW, 60, "F")

	pdf.SetY(22)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 12, pw.config.Title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(203, 213, 225)
	pdf.CellFormat(0, 8, "Cloud Security Posture Report", "", 1, "C", false, 0, "")

	pdf.SetY(75)
	if pw.config.CompanyName != "" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(30, 41, 59)
		pdf.CellFormat(0, 8, pw.config.CompanyName, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	// Score badge, when a summary arrived.
	if pw.summary != nil {
		s := pw.summary.Summary
		badge := pdfRiskColor(s.RiskLevel)
		pdf.SetFont("Helvetica", "B", 36)
		pdf.SetTextColor(badge[0], badge[1], badge[2])
		pdf.CellFormat(0, 18, fmt.Sprintf("%d / 100", s.SecurityScore), "", 1, "C", false, 0, "")

		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, fmt.Sprintf("Risk Level: %s", s.RiskLevel), "", 1, "C", false, 0, "")
		pdf.Ln(6)
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05 MST")), "", 1, "C", false, 0, "")
	if pw.config.Author != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Author: %s", pw.config.Author), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("%d findings across %d target(s)", len(pw.findings), pw.targetCount()), "", 1, "C", false, 0, "")
}

// targetCount prefers explicit per-target results; cached exports have
// none, so fall back to the summary's project list.
func (pw *PDFWriter) targetCount() int {
	if len(pw.targets) > 0 {
		return len(pw.targets)
	}
	if pw.summary != nil {
		return len(pw.summary.Summary.Projects)
	}
	return 0
}

// addTableOfContents renders a static section list.
func (pw *PDFWriter) addTableOfContents(pdf *gofpdf.Fpdf) {
	pdf.AddPage()
	pw.addSectionHeader(pdf, "Table of Contents")

	sections := []string{
		"Executive Summary",
		"Severity Breakdown",
		"Compliance",
		"Scan Targets",
		"Findings",
	}
	if pw.config.IncludeEvidence {
		sections = append(sections, "Evidence")
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(60, 60, 60)
	for i, s := range sections {
		pdf.CellFormat(0, 8, fmt.Sprintf("%d.  %s", i+1, s), "", 1, "L", false, 0, "")
	}
}

// addSummarySection renders the executive summary: headline numbers and
// the batch outcome.
func (pw *PDFWriter) addSummarySection(pdf *gofpdf.Fpdf) {
	pdf.AddPage()
	pw.addSectionHeader(pdf, "Executive Summary")

	stats := finding.StatsFor(pw.findings)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	intro := fmt.Sprintf("This report covers %d security checks: %d passed, %d failed.",
		stats.Total, stats.Passed, stats.Failed)
	if pw.summary != nil && pw.summary.Summary.TargetsScanned > 0 {
		s := pw.summary.Summary
		intro += fmt.Sprintf(" %d target(s) were scanned in %.1f seconds", s.TargetsScanned, s.DurationSec)
		if s.TargetsFailed > 0 {
			intro += fmt.Sprintf("; %d target(s) failed to scan", s.TargetsFailed)
		}
		intro += "."
	}
	pdf.MultiCell(0, 5, intro, "", "L", false)
	pdf.Ln(5)

	rows := [][2]string{
		{"Total Findings", fmt.Sprintf("%d", stats.Total)},
		{"Passed", fmt.Sprintf("%d", stats.Passed)},
		{"Failed", fmt.Sprintf("%d", stats.Failed)},
	}
	if pw.summary != nil {
		s := pw.summary.Summary
		rows = append(rows,
			[2]string{"Security Score", fmt.Sprintf("%d / 100", s.SecurityScore)},
			[2]string{"Risk Level", s.RiskLevel.String()},
		)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(60, 8, "Metric", "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 8, "Value", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for i, row := range rows {
		if i%2 == 0 {
			pdf.SetFillColor(248, 250, 252)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(60, 7, row[0], "1", 0, "L", true, 0, "")
		pdf.CellFormat(60, 7, row[1], "1", 1, "L", true, 0, "")
	}
}

// addSectionHeader renders a section title with an underline bar.
func (pw *PDFWriter) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	x, y := pdf.GetX(), pdf.GetY()
	pdf.SetDrawColor(30, 41, 59)
	pdf.SetLineWidth(0.8)
	pdf.Line(x, y, x+50, y)
	pdf.Ln(6)
}

// pdfRiskColor maps a risk level to its badge color.
func pdfRiskColor(level scoring.RiskLevel) []int {
	switch level {
	case scoring.RiskMinimal:
		return []int{22, 163, 74}
	case scoring.RiskLow:
		return []int{101, 163, 13}
	case scoring.RiskMedium:
		return []int{202, 138, 4}
	case scoring.RiskHigh:
		return []int{234, 88, 12}
	default:
		return []int{220, 38, 38}
	}
}
