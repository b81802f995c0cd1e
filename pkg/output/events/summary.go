package events

import (
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/scoring"
)

// SummaryEvent carries the aggregated security posture over a finding
// set: the 0-100 score, the risk level, per-framework compliance, and
// the count breakdowns reports group by. Exports attach the filter
// echo so a reader knows which slice of the corpus the numbers cover.
type SummaryEvent struct {
	BaseEvent
	Summary Summary     `json:"summary"`
	Filters *FilterEcho `json:"filters,omitempty"`
}

// Summary is the posture rollup embedded in a SummaryEvent.
type Summary struct {
	SecurityScore int                       `json:"security_score"`
	RiskLevel     scoring.RiskLevel         `json:"risk_level"`
	Stats         finding.Stats             `json:"stats"`
	Compliance    []scoring.ComplianceScore `json:"compliance"`
	Projects      []string                  `json:"projects,omitempty"`
	Services      []string                  `json:"services,omitempty"`

	// Batch outcome, zero when the summary covers cached data only.
	TargetsScanned int     `json:"targets_scanned,omitempty"`
	TargetsFailed  int     `json:"targets_failed,omitempty"`
	DurationSec    float64 `json:"duration_sec,omitempty"`
}

// FilterEcho records the filter an export was produced under. All
// fields use plain strings so the echo never drifts from what was
// serialized, even if the enum sets grow.
type FilterEcho struct {
	Severities   []string `json:"severities,omitempty"`
	Statuses     []string `json:"statuses,omitempty"`
	Frameworks   []string `json:"frameworks,omitempty"`
	Services     []string `json:"services,omitempty"`
	Projects     []string `json:"projects,omitempty"`
	Search       string   `json:"search,omitempty"`
	OnlyFailures bool     `json:"only_failures,omitempty"`
}
