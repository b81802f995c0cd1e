package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ManifestItem is a single line in the execution manifest.
type ManifestItem struct {
	Label    string
	Value    interface{}
	Emphasis bool
}

// ExecutionManifest displays what a run will do before it starts.
type ExecutionManifest struct {
	Title       string
	Description string
	Items       []ManifestItem
	Writer      io.Writer
	BoxStyle    bool
}

// NewExecutionManifest creates a manifest with default settings.
func NewExecutionManifest(title string) *ExecutionManifest {
	return &ExecutionManifest{
		Title:    title,
		Writer:   os.Stderr,
		BoxStyle: true,
	}
}

// SetDescription sets a description line under the title.
func (m *ExecutionManifest) SetDescription(desc string) *ExecutionManifest {
	m.Description = desc
	return m
}

// Add appends an item.
func (m *ExecutionManifest) Add(label string, value interface{}) *ExecutionManifest {
	m.Items = append(m.Items, ManifestItem{Label: label, Value: value})
	return m
}

// AddEmphasis appends a highlighted item.
func (m *ExecutionManifest) AddEmphasis(label string, value interface{}) *ExecutionManifest {
	m.Items = append(m.Items, ManifestItem{Label: label, Value: value, Emphasis: true})
	return m
}

// Print displays the manifest. Silent mode suppresses it.
func (m *ExecutionManifest) Print() {
	if IsSilent() {
		return
	}
	if m.BoxStyle {
		m.printBoxed()
	} else {
		m.printSimple()
	}
}

// printBoxed draws the manifest in a box. Emphasis and dimming go
// through lipgloss so no-color mode and piped output stay clean.
func (m *ExecutionManifest) printBoxed() {
	w := m.Writer

	maxWidth := len(m.Title) + 4
	for _, item := range m.Items {
		width := len(item.Label) + len(fmt.Sprintf("%v", item.Value)) + 10
		if width > maxWidth {
			maxWidth = width
		}
	}
	if maxWidth > 70 {
		maxWidth = 70
	}
	if maxWidth < 50 {
		maxWidth = 50
	}

	h := Icon("═", "=")
	v := Icon("║", "|")
	tl := Icon("╔", "+")
	tr := Icon("╗", "+")
	ml := Icon("╠", "+")
	mr := Icon("╣", "+")
	bl := Icon("╚", "+")
	br := Icon("╝", "+")

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s%s%s\n", tl, strings.Repeat(h, maxWidth), tr)

	titlePadding := (maxWidth - len(m.Title)) / 2
	fmt.Fprintf(w, "  %s%s%s%s%s\n", v,
		strings.Repeat(" ", titlePadding),
		StatValueStyle.Render(m.Title),
		strings.Repeat(" ", maxWidth-titlePadding-len(m.Title)), v)

	if m.Description != "" {
		descPadding := (maxWidth - len(m.Description)) / 2
		fmt.Fprintf(w, "  %s%s%s%s%s\n", v,
			strings.Repeat(" ", descPadding),
			SubtitleStyle.Render(m.Description),
			strings.Repeat(" ", maxWidth-descPadding-len(m.Description)), v)
	}

	fmt.Fprintf(w, "  %s%s%s\n", ml, strings.Repeat(h, maxWidth), mr)

	for _, item := range m.Items {
		raw := fmt.Sprintf("%v", item.Value)
		valueStr := raw
		if item.Emphasis {
			valueStr = StatValueStyle.Render(raw)
		}

		padding := maxWidth - len(item.Label) - 1 - len(raw) - 4
		if padding < 1 {
			padding = 1
		}

		fmt.Fprintf(w, "  %s  %s:%s%s  %s\n", v, item.Label, strings.Repeat(" ", padding), valueStr, v)
	}

	fmt.Fprintf(w, "  %s%s%s\n", bl, strings.Repeat(h, maxWidth), br)
	fmt.Fprintln(w)
}

// printSimple displays the manifest as key-value pairs.
func (m *ExecutionManifest) printSimple() {
	w := m.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", StatValueStyle.Render(m.Title))
	if m.Description != "" {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render(m.Description))
	}
	fmt.Fprintln(w)

	for _, item := range m.Items {
		valueStr := fmt.Sprintf("%v", item.Value)
		if item.Emphasis {
			valueStr = StatValueStyle.Render(valueStr)
		}
		fmt.Fprintf(w, "    %s: %s\n", item.Label, valueStr)
	}
	fmt.Fprintln(w)
}

// ScanManifest builds the pre-run manifest for a fleet scan.
func ScanManifest(projects []string, provider, scanner string, concurrency int, timeout time.Duration, remote bool) *ExecutionManifest {
	m := NewExecutionManifest("SCAN MANIFEST")
	m.SetDescription("Fleet scan configuration")

	if len(projects) == 1 {
		m.Add("Project", projects[0])
	} else {
		m.AddEmphasis("Projects", fmt.Sprintf("%d projects", len(projects)))
		if len(projects) > 0 {
			m.Add("First", TruncateString(projects[0], 40))
		}
	}
	m.Add("Provider", provider)
	m.Add("Scanner", scanner)
	m.Add("Concurrency", fmt.Sprintf("%d concurrent", concurrency))
	m.Add("Timeout", timeout.String())
	if remote {
		m.AddEmphasis("Mode", "remote API with local fallback")
	} else {
		m.Add("Mode", "local")
	}
	return m
}

// AuditManifest builds the pre-run manifest for a local audit.
func AuditManifest(root string, ruleCount, workers int) *ExecutionManifest {
	m := NewExecutionManifest("AUDIT MANIFEST")
	m.SetDescription("Static analysis configuration")
	m.Add("Root", TruncateString(root, 40))
	m.AddEmphasis("Rules", fmt.Sprintf("%d rules", ruleCount))
	if workers > 0 {
		m.Add("Workers", fmt.Sprintf("%d concurrent", workers))
	} else {
		m.Add("Workers", "auto")
	}
	return m
}
