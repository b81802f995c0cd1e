// Package ui renders fleetscan's terminal output: styles, the banner,
// live scan progress, and the summary tables the table format prints.
// Everything here takes display-ready primitives; domain types stay in
// their own packages.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette. Severity colors follow the scanner-report conventions
// so a finding looks the same here as in the hosted console.
var (
	// Brand colors
	Primary   = lipgloss.Color("#00A8E8") // Blue
	Secondary = lipgloss.Color("#00D4AA") // Teal

	// Severity colors
	Critical      = lipgloss.Color("#FF0000")
	High          = lipgloss.Color("#FF6B6B")
	Medium        = lipgloss.Color("#FFD93D")
	Low           = lipgloss.Color("#6BCB77")
	Informational = lipgloss.Color("#4D96FF")

	// Status colors
	Pass    = lipgloss.Color("#00D26A")
	Fail    = lipgloss.Color("#FF3838")
	Warning = lipgloss.Color("#FFB800")
	Muted   = lipgloss.Color("#6B7280")

	// Background colors
	DarkBg = lipgloss.Color("#1A1A2E")
)

// Pre-configured styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(Primary).
			Padding(0, 1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true).
			MarginTop(1)

	ConfigLabelStyle = lipgloss.NewStyle().
				Foreground(Muted).
				Width(15)

	ConfigValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA"))

	StatLabelStyle = lipgloss.NewStyle().
			Foreground(Muted)

	StatValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	BracketStyle = lipgloss.NewStyle().
			Foreground(Muted)

	PassStyle = lipgloss.NewStyle().
			Foreground(Pass).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(Fail).
			Bold(true)

	WarnStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	ServiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#3B3B4F")).
			Padding(0, 1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)
)

// SeverityStyle returns the style for a canonical severity value
// (lowercase, as findings carry them).
func SeverityStyle(severity string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch severity {
	case "critical":
		return base.Foreground(Critical)
	case "high":
		return base.Foreground(High)
	case "medium":
		return base.Foreground(Medium)
	case "low":
		return base.Foreground(Low)
	case "informational":
		return base.Foreground(Informational)
	default:
		return base.Foreground(Muted)
	}
}

// SeverityBadge returns the filled-background style used in tables.
func SeverityBadge(severity string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch severity {
	case "critical":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(Critical)
	case "high":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(High)
	case "medium":
		return base.Foreground(lipgloss.Color("#000000")).Background(Medium)
	case "low":
		return base.Foreground(lipgloss.Color("#000000")).Background(Low)
	case "informational":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(Informational)
	default:
		return base.Foreground(Muted)
	}
}

// StatusStyle returns the style for a canonical status value
// (uppercase, as findings carry them).
func StatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch status {
	case "PASS":
		return base.Foreground(Pass)
	case "FAIL":
		return base.Foreground(Fail)
	case "WARNING":
		return base.Foreground(Warning)
	default:
		return base.Foreground(Muted)
	}
}

// RiskStyle returns the style for an aggregate risk level.
func RiskStyle(risk string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch risk {
	case "CRITICAL":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(Critical)
	case "HIGH":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(High)
	case "MEDIUM":
		return base.Foreground(lipgloss.Color("#000000")).Background(Medium)
	case "LOW":
		return base.Foreground(lipgloss.Color("#000000")).Background(Low)
	case "MINIMAL":
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(Pass)
	default:
		return base.Foreground(Muted)
	}
}

// ScoreStyle colors a 0-100 security score: green above 80, amber
// above 50, red below.
func ScoreStyle(score float64) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch {
	case score >= 80:
		return base.Foreground(Pass)
	case score >= 50:
		return base.Foreground(Warning)
	default:
		return base.Foreground(Fail)
	}
}

// FormatScore renders a score with one decimal and its color.
func FormatScore(score float64) string {
	return ScoreStyle(score).Render(fmt.Sprintf("%.1f", score))
}
