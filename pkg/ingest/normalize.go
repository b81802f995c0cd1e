package ingest

import (
	"time"

	"github.com/fleetscan/fleetscan/pkg/checks"
	"github.com/fleetscan/fleetscan/pkg/finding"
)

// Normalizer converts raw records into canonical findings, consulting
// the check registry for framework tags and fallback severities.
type Normalizer struct {
	registry *checks.Registry
	now      func() time.Time
}

// NewNormalizer returns a Normalizer using registry, or the built-in
// registry when nil.
func NewNormalizer(registry *checks.Registry) *Normalizer {
	if registry == nil {
		registry = checks.Builtin()
	}
	return &Normalizer{registry: registry, now: time.Now}
}

// Normalize maps every raw record to a canonical finding. It is total:
// no record is dropped, and every field that resolves to nothing takes
// its documented default.
func (n *Normalizer) Normalize(raws []finding.Raw) []finding.Finding {
	out := make([]finding.Finding, 0, len(raws))
	for _, r := range raws {
		out = append(out, n.normalizeOne(r))
	}
	return out
}

func (n *Normalizer) normalizeOne(r finding.Raw) finding.Finding {
	checkID := r.ResolveCheckID()
	entry := n.registry.Lookup(checkID)

	// The registry severity applies only when the record itself carries
	// none. A record severity, even an unrecognized one, wins and
	// buckets to informational.
	severity := finding.SeverityInformational
	if raw := r.ResolveSeverity(); raw != "" {
		severity = finding.ParseSeverity(raw)
	} else if entry.Severity != "" {
		severity = finding.ParseSeverity(entry.Severity)
	}

	category := r.ResolveCategory()
	if category == "" {
		category = entry.Framework
	}

	return finding.Finding{
		ProjectID:      r.ResolveProjectID(),
		ResourceID:     r.ResolveResourceID(),
		CheckID:        checkID,
		Service:        r.ResolveService(),
		Status:         finding.ParseStatus(r.ResolveStatus()),
		Severity:       severity,
		Framework:      finding.ParseFramework(entry.Framework),
		Description:    r.ResolveDescription(),
		Recommendation: r.ResolveRemediation(),
		Category:       category,
		Evidence:       r.ResolveEvidence(),
		Timestamp:      n.timestamp(r.Timestamp),
	}
}

// timestamp keeps a parseable record timestamp and otherwise stamps
// the finding with ingestion time.
func (n *Normalizer) timestamp(raw string) time.Time {
	if raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts
		}
	}
	return n.now().UTC()
}
