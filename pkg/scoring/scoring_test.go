package scoring

import (
	"testing"

	"github.com/fleetscan/fleetscan/pkg/finding"
)

func failed(sev finding.Severity) finding.Finding {
	return finding.Finding{
		ProjectID:  "proj-1",
		CheckID:    "check",
		ResourceID: "res",
		Status:     finding.StatusFail,
		Severity:   sev,
		Framework:  finding.FrameworkCIS,
	}
}

func passed(fw finding.Framework) finding.Finding {
	return finding.Finding{
		ProjectID:  "proj-1",
		CheckID:    "check",
		ResourceID: "res",
		Status:     finding.StatusPass,
		Severity:   finding.SeverityLow,
		Framework:  fw,
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		findings []finding.Finding
		want     int
	}{
		{"empty set is a clean slate", nil, 100},
		{"single critical failure", []finding.Finding{failed(finding.SeverityCritical)}, 85},
		{"single high failure", []finding.Finding{failed(finding.SeverityHigh)}, 90},
		{"single medium failure", []finding.Finding{failed(finding.SeverityMedium)}, 95},
		{"single low failure", []finding.Finding{failed(finding.SeverityLow)}, 99},
		{"informational failures are free", []finding.Finding{failed(finding.SeverityInformational)}, 100},
		{"passes never subtract", []finding.Finding{passed(finding.FrameworkCIS), passed(finding.FrameworkPCI)}, 100},
		{
			"mixed severities stack",
			[]finding.Finding{
				failed(finding.SeverityCritical),
				failed(finding.SeverityHigh),
				failed(finding.SeverityMedium),
				failed(finding.SeverityLow),
			},
			69,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Score(tt.findings); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreIgnoresWarnings(t *testing.T) {
	t.Parallel()

	f := failed(finding.SeverityCritical)
	f.Status = finding.StatusWarning
	if got := Score([]finding.Finding{f}); got != 100 {
		t.Errorf("warning must not subtract, got score %d", got)
	}
}

func TestRiskBands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score int
		want  RiskLevel
	}{
		{100, RiskMinimal},
		{86, RiskMinimal},
		{85, RiskLow},
		{71, RiskLow},
		{70, RiskMedium},
		{51, RiskMedium},
		{50, RiskHigh},
		{31, RiskHigh},
		{30, RiskCritical},
		{0, RiskCritical},
	}

	for _, tt := range tests {
		if got := Risk(tt.score, nil); got != tt.want {
			t.Errorf("Risk(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestRiskCriticalFailureOverridesScore(t *testing.T) {
	t.Parallel()

	// One failed critical among a sea of passes keeps the score high,
	// but the risk level must still be CRITICAL.
	findings := []finding.Finding{failed(finding.SeverityCritical)}
	for i := 0; i < 50; i++ {
		findings = append(findings, passed(finding.FrameworkCIS))
	}

	score := Score(findings)
	if score < 71 {
		t.Fatalf("setup broken: score %d should be in a mild band", score)
	}
	if got := Risk(score, findings); got != RiskCritical {
		t.Errorf("Risk() = %s, want CRITICAL override", got)
	}

	// A critical WARNING does not trigger the override.
	w := failed(finding.SeverityCritical)
	w.Status = finding.StatusWarning
	if got := Risk(100, []finding.Finding{w}); got != RiskMinimal {
		t.Errorf("critical warning must not pin risk, got %s", got)
	}
}

func TestCompliance(t *testing.T) {
	t.Parallel()

	warning := failed(finding.SeverityMedium)
	warning.Status = finding.StatusWarning
	warning.Framework = finding.FrameworkHIPAA

	findings := []finding.Finding{
		passed(finding.FrameworkCIS),
		passed(finding.FrameworkCIS),
		failed(finding.SeverityHigh), // cis
		warning,
	}

	scores := Compliance(findings)

	cis := scores[finding.FrameworkCIS]
	if cis.TotalChecks != 3 || cis.PassedChecks != 2 || cis.FailedChecks != 1 {
		t.Fatalf("cis rollup = %+v", cis)
	}
	if want := float64(2) / 3 * 100; cis.Percentage != want {
		t.Errorf("cis percentage = %v, want %v", cis.Percentage, want)
	}

	// Warnings count toward the total but not the percentage.
	hipaa := scores[finding.FrameworkHIPAA]
	if hipaa.TotalChecks != 1 || hipaa.Percentage != 0 {
		t.Errorf("hipaa rollup = %+v, want total 1 and 0%%", hipaa)
	}

	// Frameworks with nothing observed report 0%, never 100%.
	pci := scores[finding.FrameworkPCI]
	if pci.TotalChecks != 0 || pci.Percentage != 0 {
		t.Errorf("pci rollup = %+v, want zeroes", pci)
	}

	// Every known framework must be present in the result.
	for _, fw := range finding.Frameworks {
		if _, ok := scores[fw]; !ok {
			t.Errorf("framework %s missing from rollup", fw)
		}
	}
	if _, ok := scores[finding.FrameworkUnknown]; ok {
		t.Error("unknown framework must not be rolled up")
	}
}

func TestComplianceUnknownFrameworkDropped(t *testing.T) {
	t.Parallel()

	f := passed(finding.FrameworkUnknown)
	scores := Compliance([]finding.Finding{f})
	for _, cs := range scores {
		if cs.TotalChecks != 0 {
			t.Errorf("finding tagged unknown leaked into %s", cs.Framework)
		}
	}
}

func TestWeight(t *testing.T) {
	t.Parallel()

	if Weight(finding.SeverityCritical) != 15 {
		t.Error("critical weight changed")
	}
	if Weight(finding.Severity("bogus")) != 0 {
		t.Error("unknown severity must weigh nothing")
	}
}
