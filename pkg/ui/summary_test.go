package ui

import (
	"strings"
	"testing"
	"time"
)

func TestRenderScoreCard(t *testing.T) {
	out := RenderScoreCard(ScoreCard{
		Score:         72.5,
		RiskLevel:     "MEDIUM",
		TotalFindings: 140,
		FailedChecks:  38,
		PassedChecks:  102,
		Projects:      4,
		Services:      11,
		Elapsed:       95 * time.Second,
	})

	for _, want := range []string{"72.5", "MEDIUM", "140", "38", "102", "1m35s"} {
		if !strings.Contains(out, want) {
			t.Errorf("score card missing %q:\n%s", want, out)
		}
	}
}

func TestRenderScoreCard_NoElapsedRow(t *testing.T) {
	out := RenderScoreCard(ScoreCard{Score: 100, RiskLevel: "MINIMAL"})

	if strings.Contains(out, "Elapsed") {
		t.Errorf("zero elapsed should omit the row:\n%s", out)
	}
	if !strings.Contains(out, "MINIMAL") {
		t.Errorf("risk level missing:\n%s", out)
	}
}

func TestRenderComplianceTable(t *testing.T) {
	out := RenderComplianceTable([]ComplianceRow{
		{Framework: "cis", Total: 100, Passed: 80, Failed: 20, Percent: 80},
		{Framework: "hipaa", Total: 50, Passed: 10, Failed: 40, Percent: 20},
	})

	if !strings.Contains(out, "CIS") || !strings.Contains(out, "HIPAA") {
		t.Errorf("frameworks missing (should be uppercased):\n%s", out)
	}
	if !strings.Contains(out, "80.0%") || !strings.Contains(out, "20.0%") {
		t.Errorf("percentages missing:\n%s", out)
	}
	if !strings.Contains(out, "FRAMEWORK") {
		t.Errorf("header missing:\n%s", out)
	}
}

func TestRenderComplianceTable_Empty(t *testing.T) {
	if out := RenderComplianceTable(nil); out != "" {
		t.Errorf("empty input should render nothing, got %q", out)
	}
}

func TestRenderSeverityBreakdown(t *testing.T) {
	out := RenderSeverityBreakdown([]SeverityRow{
		{Severity: "critical", Count: 3},
		{Severity: "high", Count: 0},
		{Severity: "informational", Count: 100},
	})

	if !strings.Contains(out, "critical") || !strings.Contains(out, "informational") {
		t.Errorf("severities missing:\n%s", out)
	}
	if !strings.Contains(out, "    3") {
		t.Errorf("count missing:\n%s", out)
	}
}

func TestSeverityBarLen(t *testing.T) {
	tests := []struct {
		count, want int
	}{
		{-1, 0},
		{0, 0},
		{5, 5},
		{40, 40},
		{5000, 40},
	}
	for _, tt := range tests {
		if got := severityBarLen(tt.count); got != tt.want {
			t.Errorf("severityBarLen(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("TruncateString = %q", got)
	}
	if got := TruncateString("a-very-long-project-name", 10); got != "a-very-..." {
		t.Errorf("TruncateString = %q", got)
	}
	if got := TruncateString("abcdef", 3); got != "abc" {
		t.Errorf("TruncateString tiny max = %q", got)
	}
}
