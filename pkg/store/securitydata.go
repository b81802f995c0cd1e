// Package store aggregates findings from registered sources into a
// TTL-cached security posture snapshot. The store is single-writer,
// many-reader: refreshes build a complete SecurityData and swap it in
// wholesale, so readers never observe a partial update.
package store

import (
	"sort"
	"time"

	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/scoring"
)

// SecurityData is one aggregate snapshot over all registered sources.
// It is immutable once built; the store replaces the whole value on
// refresh rather than mutating it in place.
type SecurityData struct {
	Findings      []finding.Finding                              `json:"findings"`
	Stats         finding.Stats                                  `json:"stats"`
	SecurityScore int                                            `json:"security_score"`
	RiskLevel     scoring.RiskLevel                              `json:"risk_level"`
	Compliance    map[finding.Framework]*scoring.ComplianceScore `json:"compliance"`

	// Distinct non-empty project and service names, sorted.
	Projects []string `json:"projects"`
	Services []string `json:"services"`

	// Cache metadata.
	LoadedAt time.Time     `json:"loaded_at"`
	ValidFor time.Duration `json:"valid_for"`
}

// Expired reports whether the snapshot has outlived its TTL.
func (d *SecurityData) Expired(now time.Time) bool {
	return now.Sub(d.LoadedAt) >= d.ValidFor
}

// FailedCritical returns the number of failed critical findings.
func (d *SecurityData) FailedCritical() int {
	n := 0
	for _, f := range d.Findings {
		if f.IsFailed() && f.Severity == finding.SeverityCritical {
			n++
		}
	}
	return n
}

// ComplianceList returns the compliance scores ordered by framework
// name so exports render deterministically.
func (d *SecurityData) ComplianceList() []scoring.ComplianceScore {
	out := make([]scoring.ComplianceScore, 0, len(d.Compliance))
	for _, cs := range d.Compliance {
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Framework < out[j].Framework
	})
	return out
}

// build aggregates findings into a fresh snapshot. An empty input is a
// valid aggregate: score 100, minimal risk, zero counts.
func build(findings []finding.Finding, ttl time.Duration) *SecurityData {
	score := scoring.Score(findings)
	return &SecurityData{
		Findings:      findings,
		Stats:         finding.StatsFor(findings),
		SecurityScore: score,
		RiskLevel:     scoring.Risk(score, findings),
		Compliance:    scoring.Compliance(findings),
		Projects:      distinct(findings, func(f finding.Finding) string { return f.ProjectID }),
		Services:      distinct(findings, func(f finding.Finding) string { return f.Service }),
		LoadedAt:      time.Now(),
		ValidFor:      ttl,
	}
}

// distinct collects the sorted set of non-empty values of one field.
func distinct(findings []finding.Finding, field func(finding.Finding) string) []string {
	seen := make(map[string]struct{})
	for _, f := range findings {
		if v := field(f); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
