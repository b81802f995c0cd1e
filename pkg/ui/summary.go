package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ScoreCard carries the aggregate numbers the summary box renders.
// Callers map their domain snapshot onto it; ui stays domain-free.
type ScoreCard struct {
	Score         float64
	RiskLevel     string
	TotalFindings int
	FailedChecks  int
	PassedChecks  int
	Projects      int
	Services      int
	Elapsed       time.Duration
}

// ComplianceRow is one framework line in the compliance table.
type ComplianceRow struct {
	Framework string
	Total     int
	Passed    int
	Failed    int
	Percent   float64
}

// SeverityRow is one severity line in the breakdown list.
type SeverityRow struct {
	Severity string
	Count    int
}

const summaryBoxWidth = 50

// RenderScoreCard renders the posture summary box.
func RenderScoreCard(card ScoreCard) string {
	var b strings.Builder

	border := "+" + strings.Repeat("-", summaryBoxWidth-2) + "+"

	b.WriteString(BracketStyle.Render("  " + border))
	b.WriteString("\n")

	row := func(label, value string, style lipgloss.Style) {
		const labelW = 18
		labelPadded := label
		for len(labelPadded) < labelW {
			labelPadded += " "
		}
		// Pad on the raw value; styles add no visible width.
		valueW := summaryBoxWidth - labelW - 6
		valuePadded := value
		for len(valuePadded) < valueW {
			valuePadded += " "
		}
		b.WriteString(BracketStyle.Render("  |"))
		b.WriteString(" " + StatLabelStyle.Render(labelPadded))
		b.WriteString(style.Render(valuePadded))
		b.WriteString(BracketStyle.Render(" |"))
		b.WriteString("\n")
	}

	row("Security Score", fmt.Sprintf("%.1f / 100", card.Score), ScoreStyle(card.Score))
	row("Risk Level", card.RiskLevel, lipgloss.NewStyle().Bold(true).Foreground(riskColor(card.RiskLevel)))
	row("Findings", fmt.Sprintf("%d", card.TotalFindings), StatValueStyle)
	row("Failed Checks", fmt.Sprintf("%d", card.FailedChecks), failCountStyle(card.FailedChecks))
	row("Passed Checks", fmt.Sprintf("%d", card.PassedChecks), PassStyle)
	row("Projects", fmt.Sprintf("%d", card.Projects), StatValueStyle)
	row("Services", fmt.Sprintf("%d", card.Services), StatValueStyle)
	if card.Elapsed > 0 {
		row("Elapsed", formatElapsedCompact(card.Elapsed), StatValueStyle)
	}

	b.WriteString(BracketStyle.Render("  " + border))
	b.WriteString("\n")

	return b.String()
}

// RenderComplianceTable renders per-framework compliance percentages.
func RenderComplianceTable(rows []ComplianceRow) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(StatLabelStyle.Render(fmt.Sprintf("  %-10s %8s %8s %8s %10s", "FRAMEWORK", "CHECKS", "PASSED", "FAILED", "SCORE")))
	b.WriteString("\n")

	for _, r := range rows {
		pct := fmt.Sprintf("%.1f%%", r.Percent)
		b.WriteString(fmt.Sprintf("  %-10s %8d %8d %8d %10s\n",
			strings.ToUpper(r.Framework), r.Total, r.Passed, r.Failed,
			ScoreStyle(r.Percent).Render(pct)))
	}

	return b.String()
}

// RenderSeverityBreakdown renders severity counts, one line each, in
// the order given (callers pass critical first).
func RenderSeverityBreakdown(rows []SeverityRow) string {
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	for _, r := range rows {
		bar := strings.Repeat(Icon("▪", "#"), severityBarLen(r.Count))
		b.WriteString(fmt.Sprintf("  %s %5d  %s\n",
			SeverityStyle(r.Severity).Render(fmt.Sprintf("%-14s", r.Severity)),
			r.Count,
			SeverityStyle(r.Severity).Render(bar)))
	}
	return b.String()
}

// severityBarLen maps a count onto a 0-40 char bar without letting
// large fleets blow out the line width.
func severityBarLen(count int) int {
	switch {
	case count <= 0:
		return 0
	case count > 40:
		return 40
	default:
		return count
	}
}

func riskColor(risk string) lipgloss.Color {
	switch risk {
	case "CRITICAL":
		return Critical
	case "HIGH":
		return High
	case "MEDIUM":
		return Medium
	case "LOW":
		return Low
	case "MINIMAL":
		return Pass
	default:
		return Muted
	}
}

func failCountStyle(failed int) lipgloss.Style {
	if failed > 0 {
		return FailStyle
	}
	return PassStyle
}

// TruncateString shortens s to maxLen with an ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
