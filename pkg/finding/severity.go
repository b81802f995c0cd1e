package finding

import "strings"

// Severity represents the severity level of a security finding.
// All values are lowercase strings matching the scanner's wire format.
type Severity string

const (
	// SeverityCritical represents findings demanding immediate action
	// (public data exposure, unrestricted admin access).
	SeverityCritical Severity = "critical"

	// SeverityHigh represents significant misconfigurations requiring a
	// prompt fix (open firewall rules, unencrypted storage).
	SeverityHigh Severity = "high"

	// SeverityMedium represents moderate impact (weak rotation policy,
	// missing audit logging).
	SeverityMedium Severity = "medium"

	// SeverityLow represents limited impact (labels missing, minor
	// hygiene checks).
	SeverityLow Severity = "low"

	// SeverityInformational represents observations with no direct
	// security impact.
	SeverityInformational Severity = "informational"
)

// Severities lists all valid severities from most to least severe.
// The slice is shared; callers must not mutate it.
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInformational,
}

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInformational:
		return true
	}
	return false
}

// Rank returns a numeric rank for sorting and comparison.
// Critical=5, High=4, Medium=3, Low=2, Informational=1, unknown=0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInformational:
		return 1
	default:
		return 0
	}
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity buckets a raw severity string case-insensitively.
// Unrecognized or empty input falls back to SeverityInformational, the
// defined default for records that carry no usable severity.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	case "informational", "info":
		return SeverityInformational
	default:
		return SeverityInformational
	}
}
