package store

import (
	"slices"
	"strings"

	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/output/events"
)

// Filters is a conjunctive predicate over findings. Every populated
// dimension must match; an empty dimension is no constraint. The zero
// value matches everything.
type Filters struct {
	Severities []finding.Severity
	Statuses   []finding.Status
	Frameworks []finding.Framework
	Services   []string
	Projects   []string

	// Search is a case-insensitive substring match over description,
	// check id, service, and resource id.
	Search string

	// OnlyFailures hides passing checks. Warnings and unknowns stay
	// visible so triage never loses sight of them.
	OnlyFailures bool
}

// IsZero reports whether no dimension is constrained.
func (fl Filters) IsZero() bool {
	return len(fl.Severities) == 0 &&
		len(fl.Statuses) == 0 &&
		len(fl.Frameworks) == 0 &&
		len(fl.Services) == 0 &&
		len(fl.Projects) == 0 &&
		fl.Search == "" &&
		!fl.OnlyFailures
}

// Matches reports whether the finding passes every active dimension.
func (fl Filters) Matches(f finding.Finding) bool {
	if len(fl.Severities) > 0 && !slices.Contains(fl.Severities, f.Severity) {
		return false
	}
	if len(fl.Statuses) > 0 && !slices.Contains(fl.Statuses, f.Status) {
		return false
	}
	if len(fl.Frameworks) > 0 && !slices.Contains(fl.Frameworks, f.Framework) {
		return false
	}
	if len(fl.Services) > 0 && !slices.Contains(fl.Services, f.Service) {
		return false
	}
	if len(fl.Projects) > 0 && !slices.Contains(fl.Projects, f.ProjectID) {
		return false
	}
	if fl.OnlyFailures && f.Status == finding.StatusPass {
		return false
	}
	if fl.Search != "" {
		if !strings.Contains(f.SearchText(), strings.ToLower(fl.Search)) {
			return false
		}
	}
	return true
}

// Apply returns the findings that match.
func (fl Filters) Apply(findings []finding.Finding) []finding.Finding {
	if fl.IsZero() {
		return findings
	}
	out := make([]finding.Finding, 0, len(findings))
	for _, f := range findings {
		if fl.Matches(f) {
			out = append(out, f)
		}
	}
	return out
}

// Echo converts the filters to the serializable form exports attach to
// summaries. Returns nil for the zero filter so unfiltered exports omit
// the block entirely.
func (fl Filters) Echo() *events.FilterEcho {
	if fl.IsZero() {
		return nil
	}
	echo := &events.FilterEcho{
		Search:       fl.Search,
		OnlyFailures: fl.OnlyFailures,
	}
	for _, s := range fl.Severities {
		echo.Severities = append(echo.Severities, string(s))
	}
	for _, s := range fl.Statuses {
		echo.Statuses = append(echo.Statuses, string(s))
	}
	for _, f := range fl.Frameworks {
		echo.Frameworks = append(echo.Frameworks, string(f))
	}
	echo.Services = slices.Clone(fl.Services)
	echo.Projects = slices.Clone(fl.Projects)
	return echo
}
