// Package writers provides output writers for various formats.
package writers

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/jsonutil"
	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*TemplateWriter)(nil)

// TemplateConfig configures the template writer.
type TemplateConfig struct {
	// TemplatePath is the path to a custom template file.
	TemplatePath string

	// TemplateString is an inline template string (alternative to TemplatePath).
	TemplateString string

	// BuiltIn is the name of a built-in template: "csv", "text-summary".
	BuiltIn string
}

// builtInTemplates contains pre-defined templates for common output formats.
var builtInTemplates = map[string]string{
	"csv": `check_id,project_id,resource_id,service,severity,status,description
{{- range .Findings }}
{{ .CheckID }},{{ .ProjectID }},{{ escapeCSV .ResourceID }},{{ .Service }},{{ .Severity }},{{ .Status }},{{ escapeCSV .Description }}
{{- end }}`,

	"text-summary": `Fleetscan Scan Summary
======================
Run: {{ .RunID }}
Generated: {{ .GeneratedAt }}

Findings:
  Total:  {{ .TotalFindings }}
  Passed: {{ .PassedCount }}
  Failed: {{ .FailedCount }}

Security Score: {{ .SecurityScore }}/100 ({{ .RiskLevel }})
{{ if gt .FailedCount 0 }}
Failed by Severity:
{{- range $sev, $count := .FailedBySeverity }}
  {{ severityIcon $sev }} {{ $sev | title }}: {{ $count }}
{{- end }}
{{ end }}`,
}

// TemplateWriter renders events using Go templates.
// It buffers all events in memory and renders the template on Close.
// The writer supports custom templates, inline templates, and built-in
// templates. Sprig functions and report-specific functions are
// available in templates.
type TemplateWriter struct {
	w        io.Writer
	mu       sync.Mutex
	config   TemplateConfig
	tmpl     *template.Template
	runID    string
	findings []finding.Finding
	targets  []TargetResult
	summary  *events.SummaryEvent
}

// NewTemplateWriter creates a new template writer.
// It parses the template immediately and returns an error if the template is invalid.
// The writer buffers all events and writes the rendered template on Close.
func NewTemplateWriter(w io.Writer, config TemplateConfig) (*TemplateWriter, error) {
	tw := &TemplateWriter{
		w:        w,
		config:   config,
		findings: make([]finding.Finding, 0),
	}

	if err := tw.parseTemplate(); err != nil {
		return nil, fmt.Errorf("template parse error: %w", err)
	}

	return tw, nil
}

// parseTemplate parses the template from config (path, string, or built-in).
func (tw *TemplateWriter) parseTemplate() error {
	var templateContent string

	switch {
	case tw.config.TemplatePath != "":
		content, err := os.ReadFile(tw.config.TemplatePath)
		if err != nil {
			return fmt.Errorf("failed to read template file: %w", err)
		}
		templateContent = string(content)

	case tw.config.TemplateString != "":
		templateContent = tw.config.TemplateString

	case tw.config.BuiltIn != "":
		content, ok := builtInTemplates[tw.config.BuiltIn]
		if !ok {
			return fmt.Errorf("unknown built-in template: %s (available: csv, text-summary)", tw.config.BuiltIn)
		}
		templateContent = content

	default:
		return fmt.Errorf("no template specified: set TemplatePath, TemplateString, or BuiltIn")
	}

	funcMap := sprig.TxtFuncMap()
	funcMap["escapeCSV"] = tmplEscapeCSV
	funcMap["severityIcon"] = tmplSeverityIcon
	funcMap["json"] = tmplToJSON
	funcMap["prettyJSON"] = tmplPrettyJSON

	tmpl, err := template.New("fleetscan").Funcs(funcMap).Parse(templateContent)
	if err != nil {
		return fmt.Errorf("parse output template: %w", err)
	}

	tw.tmpl = tmpl
	return nil
}

// Write buffers an event for later template rendering.
func (tw *TemplateWriter) Write(event events.Event) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	// Capture run ID from first event
	if tw.runID == "" {
		tw.runID = event.RunID()
	}

	switch e := event.(type) {
	case *events.FindingEvent:
		tw.findings = append(tw.findings, e.Finding)
	case *events.ResultEvent:
		tw.targets = append(tw.targets, TargetResult{
			Target:     e.Target,
			Success:    e.Success,
			ReportPath: e.ReportPath,
			Error:      e.Error,
			DurationMs: e.DurationMs,
		})
	case *events.SummaryEvent:
		tw.summary = e
	}
	return nil
}

// Flush is a no-op for template writer.
// All events are rendered as a single document on Close.
func (tw *TemplateWriter) Flush() error {
	return nil
}

// Close renders the template with all buffered events and writes to the output.
func (tw *TemplateWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data := tw.buildTemplateData()

	var buf bytes.Buffer
	if err := tw.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	if _, err := tw.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write error: %w", err)
	}

	if closer, ok := tw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for finding, result, and summary events.
func (tw *TemplateWriter) SupportsEvent(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeFinding, events.EventTypeResult, events.EventTypeSummary:
		return true
	default:
		return false
	}
}

// tmplData holds all data available to templates.
type tmplData struct {
	// Basic info
	RunID       string
	GeneratedAt string

	// Findings
	Findings []finding.Finding
	Failed   []finding.Finding
	Targets  []TargetResult
	Summary  *events.Summary
	Filters  *events.FilterEcho

	// Rollups
	TotalFindings    int
	PassedCount      int
	FailedCount      int
	FailedBySeverity map[string]int
	SecurityScore    int
	RiskLevel        string
}

// buildTemplateData assembles the template context from buffered events.
func (tw *TemplateWriter) buildTemplateData() *tmplData {
	data := &tmplData{
		RunID:            tw.runID,
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Findings:         tw.findings,
		Targets:          tw.targets,
		TotalFindings:    len(tw.findings),
		FailedBySeverity: make(map[string]int),
	}

	for i := range tw.findings {
		switch tw.findings[i].Status {
		case finding.StatusPass:
			data.PassedCount++
		case finding.StatusFail:
			data.FailedCount++
			data.Failed = append(data.Failed, tw.findings[i])
			data.FailedBySeverity[tw.findings[i].Severity.String()]++
		}
	}

	if tw.summary != nil {
		s := tw.summary.Summary
		data.Summary = &s
		data.Filters = tw.summary.Filters
		data.SecurityScore = s.SecurityScore
		data.RiskLevel = s.RiskLevel.String()
	}
	return data
}

// tmplEscapeCSV quotes a value for CSV embedding when needed.
func tmplEscapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// tmplSeverityIcon returns a plain-text marker for a severity name.
func tmplSeverityIcon(severity string) string {
	switch finding.ParseSeverity(severity) {
	case finding.SeverityCritical:
		return "[!!]"
	case finding.SeverityHigh:
		return "[! ]"
	case finding.SeverityMedium:
		return "[~ ]"
	case finding.SeverityLow:
		return "[- ]"
	default:
		return "[  ]"
	}
}

// tmplToJSON marshals a value to compact JSON, or "{}" on error.
func tmplToJSON(v any) string {
	b, err := jsonutil.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// tmplPrettyJSON marshals a value to indented JSON, or "{}" on error.
func tmplPrettyJSON(v any) string {
	b, err := jsonutil.MarshalIndent(v, "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
