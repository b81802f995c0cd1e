// Package scoring turns a normalized finding set into aggregate posture
// numbers: the 0-100 security score, the coarse risk level, and
// per-framework compliance percentages. All functions are pure; the
// aggregation cache calls them on every refresh and stores the results
// in the snapshot it hands out.
package scoring

import (
	"github.com/fleetscan/fleetscan/pkg/finding"
)

// severityWeights is the score deduction applied for every failed check
// of a given severity.
var severityWeights = map[finding.Severity]int{
	finding.SeverityCritical:      15,
	finding.SeverityHigh:          10,
	finding.SeverityMedium:        5,
	finding.SeverityLow:           1,
	finding.SeverityInformational: 0,
}

// RiskLevel is the coarse posture label derived from the security score
// and the presence of failed critical checks.
type RiskLevel string

const (
	RiskMinimal  RiskLevel = "MINIMAL"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// String returns the risk level as a string.
func (r RiskLevel) String() string {
	return string(r)
}

// ComplianceScore is the per-framework rollup. TotalChecks counts every
// finding tagged to the framework, including warnings; Percentage is
// computed over pass/fail outcomes only. Recomputed fresh on every
// aggregation pass, never mutated in place.
type ComplianceScore struct {
	Framework    finding.Framework `json:"framework"`
	TotalChecks  int               `json:"total_checks"`
	PassedChecks int               `json:"passed_checks"`
	FailedChecks int               `json:"failed_checks"`
	Percentage   float64           `json:"compliance_percentage"`
}

// Score computes the overall security score for a finding set. Every
// failed check subtracts its severity weight from a perfect 100 and the
// result is clamped to [0,100]. An empty set scores 100.
func Score(findings []finding.Finding) int {
	score := 100
	for i := range findings {
		if findings[i].Status != finding.StatusFail {
			continue
		}
		score -= severityWeights[findings[i].Severity]
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Weight returns the score deduction for a failed check of severity s.
// Unrecognized severities weigh nothing.
func Weight(s finding.Severity) int {
	return severityWeights[s]
}

// Risk maps a score to its risk level. A single failed critical check
// pins the level to RiskCritical regardless of the score.
func Risk(score int, findings []finding.Finding) RiskLevel {
	for i := range findings {
		if findings[i].Severity == finding.SeverityCritical && findings[i].IsFailed() {
			return RiskCritical
		}
	}
	switch {
	case score >= 86:
		return RiskMinimal
	case score >= 71:
		return RiskLow
	case score >= 51:
		return RiskMedium
	case score >= 31:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Compliance tallies pass rates for every known framework. Frameworks
// with zero observed checks report 0% with TotalChecks=0 rather than a
// vacuous 100%. Findings tagged FrameworkUnknown are not rolled up.
func Compliance(findings []finding.Finding) map[finding.Framework]*ComplianceScore {
	scores := make(map[finding.Framework]*ComplianceScore, len(finding.Frameworks))
	for _, fw := range finding.Frameworks {
		scores[fw] = &ComplianceScore{Framework: fw}
	}

	for i := range findings {
		cs, ok := scores[findings[i].Framework]
		if !ok {
			continue
		}
		cs.TotalChecks++
		switch findings[i].Status {
		case finding.StatusPass:
			cs.PassedChecks++
		case finding.StatusFail:
			cs.FailedChecks++
		}
	}

	for _, cs := range scores {
		if decided := cs.PassedChecks + cs.FailedChecks; decided > 0 {
			cs.Percentage = float64(cs.PassedChecks) / float64(decided) * 100
		}
	}
	return scores
}
