package finding

import "strings"

// Status represents the outcome of a single check against a resource.
// Values are uppercase strings matching the scanner's wire format.
type Status string

const (
	// StatusPass means the check ran and the resource is compliant.
	StatusPass Status = "PASS"

	// StatusFail means the check ran and the resource violates it.
	StatusFail Status = "FAIL"

	// StatusWarning means the check ran but the outcome needs review.
	StatusWarning Status = "WARNING"

	// StatusUnknown means the record carried no recognizable status.
	StatusUnknown Status = "UNKNOWN"
)

// Statuses lists all valid statuses. The slice is shared; callers must
// not mutate it.
var Statuses = []Status{StatusPass, StatusFail, StatusWarning, StatusUnknown}

// IsValid reports whether s is a recognized status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPass, StatusFail, StatusWarning, StatusUnknown:
		return true
	}
	return false
}

// String returns the status as a string.
func (s Status) String() string {
	return string(s)
}

// ParseStatus buckets a raw status string case-insensitively. Scanners
// disagree on tense ("fail" vs "failed"), so each bucket accepts the
// common variants. Anything else is StatusUnknown.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fail", "failing", "failed":
		return StatusFail
	case "pass", "passing", "passed":
		return StatusPass
	case "warning", "warn":
		return StatusWarning
	default:
		return StatusUnknown
	}
}
