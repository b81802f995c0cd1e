// Package writers provides output writers for various formats.
package writers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fleetscan/fleetscan/pkg/finding"
	gofpdf "github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// addSeverityBreakdown renders per-severity counts of failed checks
// with the severity color coding used across the report.
func (pw *PDFWriter) addSeverityBreakdown(pdf *gofpdf.Fpdf) {
	pdf.AddPage()
	pw.addSectionHeader(pdf, "Severity Breakdown")

	failed := make(map[finding.Severity]int)
	total := make(map[finding.Severity]int)
	for i := range pw.findings {
		total[pw.findings[i].Severity]++
		if pw.findings[i].IsFailed() {
			failed[pw.findings[i].Severity]++
		}
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.MultiCell(0, 5, "Failed checks by severity. The security score subtracts a "+
		"severity-weighted penalty for every failed check, so the top rows dominate the score.", "", "L", false)
	pdf.Ln(5)

	titleCase := cases.Title(language.English)

	// Table header.
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(45, 8, "Severity", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Checks", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Failed", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Failure Rate", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, sev := range finding.Severities {
		n := total[sev]
		if n == 0 {
			continue
		}

		color := pdfSeverityColors[string(sev)]
		if color == nil {
			color = []int{128, 128, 128}
		}

		pdf.SetTextColor(color[0], color[1], color[2])
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 7, titleCase.String(string(sev)), "1", 0, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", n), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", failed[sev]), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%.1f%%", float64(failed[sev])/float64(n)*100), "1", 1, "C", false, 0, "")
	}
}

// addComplianceSection renders the per-framework pass rates from the
// summary. Skipped when no summary arrived.
func (pw *PDFWriter) addComplianceSection(pdf *gofpdf.Fpdf) {
	if pw.summary == nil || len(pw.summary.Summary.Compliance) == 0 {
		return
	}

	pdf.AddPage()
	pw.addSectionHeader(pdf, "Compliance")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.MultiCell(0, 5, "Pass rates per compliance framework. Frameworks with zero observed "+
		"checks report 0% rather than an unearned 100%.", "", "L", false)
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(40, 8, "Framework", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Checks", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Passed", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 8, "Failed", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Compliance", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for i, cs := range pw.summary.Summary.Compliance {
		if i%2 == 0 {
			pdf.SetFillColor(248, 250, 252)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(40, 7, strings.ToUpper(cs.Framework.String()), "1", 0, "L", true, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", cs.TotalChecks), "1", 0, "C", true, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", cs.PassedChecks), "1", 0, "C", true, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", cs.FailedChecks), "1", 0, "C", true, 0, "")

		// Color the percentage by band.
		switch {
		case cs.TotalChecks == 0:
			pdf.SetTextColor(128, 128, 128)
		case cs.Percentage >= 80:
			pdf.SetTextColor(22, 163, 74)
		case cs.Percentage >= 50:
			pdf.SetTextColor(202, 138, 4)
		default:
			pdf.SetTextColor(220, 38, 38)
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(35, 7, fmt.Sprintf("%.1f%%", cs.Percentage), "1", 1, "C", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
}

// addTargetResults renders the per-target scan outcomes. Skipped for
// exports of cached data, which carry no target results.
func (pw *PDFWriter) addTargetResults(pdf *gofpdf.Fpdf) {
	if len(pw.targets) == 0 {
		return
	}

	pdf.AddPage()
	pw.addSectionHeader(pdf, "Scan Targets")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(55, 8, "Target", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Outcome", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Duration", "1", 0, "C", true, 0, "")
	pdf.CellFormat(0, 8, "Detail", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for i, tr := range pw.targets {
		if i%2 == 0 {
			pdf.SetFillColor(248, 250, 252)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(55, 7, tr.Target, "1", 0, "L", true, 0, "")

		if tr.Success {
			pdf.SetTextColor(22, 163, 74)
			pdf.CellFormat(25, 7, "OK", "1", 0, "C", true, 0, "")
		} else {
			pdf.SetTextColor(220, 38, 38)
			pdf.CellFormat(25, 7, "FAILED", "1", 0, "C", true, 0, "")
		}

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(30, 7, fmt.Sprintf("%.1fs", tr.DurationMs/1000), "1", 0, "C", true, 0, "")

		detail := tr.ReportPath
		if tr.Error != "" {
			detail = tr.Error
		}
		pdf.CellFormat(0, 7, truncateString(detail, 60), "1", 1, "L", true, 0, "")
	}
}

// addFindingsDetail renders the failed findings grouped by severity,
// most severe first.
func (pw *PDFWriter) addFindingsDetail(pdf *gofpdf.Fpdf) {
	pdf.AddPage()
	pw.addSectionHeader(pdf, "Findings")

	failed := make([]finding.Finding, 0, len(pw.findings))
	for i := range pw.findings {
		if pw.findings[i].IsFailed() {
			failed = append(failed, pw.findings[i])
		}
	}
	if len(failed) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(22, 163, 74)
		pdf.CellFormat(0, 8, "No failed findings.", "", 1, "L", false, 0, "")
		return
	}

	sort.SliceStable(failed, func(i, j int) bool {
		if failed[i].Severity.Rank() != failed[j].Severity.Rank() {
			return failed[i].Severity.Rank() > failed[j].Severity.Rank()
		}
		return failed[i].CheckID < failed[j].CheckID
	})

	titleCase := cases.Title(language.English)
	currentSev := finding.Severity("")

	for i := range failed {
		f := &failed[i]

		if f.Severity != currentSev {
			currentSev = f.Severity
			color := pdfSeverityColors[string(currentSev)]
			if color == nil {
				color = []int{128, 128, 128}
			}
			pdf.Ln(3)
			pdf.SetFont("Helvetica", "B", 13)
			pdf.SetTextColor(color[0], color[1], color[2])
			pdf.CellFormat(0, 9, titleCase.String(string(currentSev)), "", 1, "L", false, 0, "")
		}

		// Keep each finding block on one page when possible.
		_, pageH := pdf.GetPageSize()
		if pdf.GetY() > pageH-50 {
			pdf.AddPage()
		}

		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(30, 41, 59)
		pdf.CellFormat(0, 6, f.CheckID, "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(100, 100, 100)
		loc := fmt.Sprintf("%s / %s / %s", f.ProjectID, f.Service, f.ResourceID)
		pdf.CellFormat(0, 5, truncateString(loc, 110), "", 1, "L", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(0, 5, f.Description, "", "L", false)
		if f.Recommendation != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 5, "Recommendation: "+f.Recommendation, "", "L", false)
		}
		pdf.Ln(2)
	}
}

// addEvidenceAppendix renders captured evidence for failed findings in
// a monospace block, including source locations from audit findings.
func (pw *PDFWriter) addEvidenceAppendix(pdf *gofpdf.Fpdf) {
	withEvidence := make([]finding.Finding, 0)
	for i := range pw.findings {
		f := &pw.findings[i]
		if f.IsFailed() && (f.Evidence != "" || f.MatchSnippet != "") {
			withEvidence = append(withEvidence, *f)
		}
	}
	if len(withEvidence) == 0 {
		return
	}

	pdf.AddPage()
	pw.addSectionHeader(pdf, "Evidence")

	for i := range withEvidence {
		f := &withEvidence[i]

		_, pageH := pdf.GetPageSize()
		if pdf.GetY() > pageH-45 {
			pdf.AddPage()
		}

		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(30, 41, 59)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s - %s", f.CheckID, truncateString(f.ResourceID, 60)), "", 1, "L", false, 0, "")

		if f.File != "" {
			pdf.SetFont("Courier", "", 8)
			pdf.SetTextColor(100, 100, 100)
			loc := f.File
			if f.Line > 0 {
				loc = fmt.Sprintf("%s:%d", f.File, f.Line)
			}
			pdf.CellFormat(0, 5, loc, "", 1, "L", false, 0, "")
		}

		evidence := f.Evidence
		if evidence == "" {
			evidence = f.MatchSnippet
		}
		pdf.SetFont("Courier", "", 8)
		pdf.SetTextColor(60, 60, 60)
		pdf.SetFillColor(248, 250, 252)
		pdf.MultiCell(0, 4.5, truncateString(evidence, 400), "1", "L", true)
		pdf.Ln(3)
	}
}
