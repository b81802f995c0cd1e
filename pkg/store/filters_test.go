package store

import (
	"testing"
	"time"

	"github.com/fleetscan/fleetscan/pkg/finding"
)

func filterSubject() finding.Finding {
	return finding.Finding{
		ProjectID:   "proj-alpha",
		ResourceID:  "//storage.googleapis.com/buckets/audit-logs",
		CheckID:     "gcs_bucket_public_access",
		Service:     "gcs",
		Status:      finding.StatusFail,
		Severity:    finding.SeverityCritical,
		Framework:   finding.FrameworkCIS,
		Description: "Bucket grants allUsers read access",
		Timestamp:   time.Now(),
	}
}

func TestFilters_Matches(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		want    bool
	}{
		{"zero filter matches everything", Filters{}, true},
		{
			"severity match",
			Filters{Severities: []finding.Severity{finding.SeverityCritical}},
			true,
		},
		{
			"severity mismatch",
			Filters{Severities: []finding.Severity{finding.SeverityLow}},
			false,
		},
		{
			"status match",
			Filters{Statuses: []finding.Status{finding.StatusFail}},
			true,
		},
		{
			"status mismatch",
			Filters{Statuses: []finding.Status{finding.StatusPass}},
			false,
		},
		{
			"framework match",
			Filters{Frameworks: []finding.Framework{finding.FrameworkCIS}},
			true,
		},
		{
			"framework mismatch",
			Filters{Frameworks: []finding.Framework{finding.FrameworkHIPAA}},
			false,
		},
		{
			"service match",
			Filters{Services: []string{"gcs", "iam"}},
			true,
		},
		{
			"service mismatch",
			Filters{Services: []string{"iam"}},
			false,
		},
		{
			"project match",
			Filters{Projects: []string{"proj-alpha"}},
			true,
		},
		{
			"project mismatch",
			Filters{Projects: []string{"proj-beta"}},
			false,
		},
		{
			"search hits description case-insensitively",
			Filters{Search: "ALLUSERS"},
			true,
		},
		{
			"search hits check id",
			Filters{Search: "bucket_public"},
			true,
		},
		{
			"search hits resource id",
			Filters{Search: "audit-logs"},
			true,
		},
		{
			"search miss",
			Filters{Search: "kubernetes"},
			false,
		},
		{
			"only failures keeps failed",
			Filters{OnlyFailures: true},
			true,
		},
		{
			"conjunction: all dimensions must match",
			Filters{
				Severities: []finding.Severity{finding.SeverityCritical},
				Services:   []string{"gcs"},
				Projects:   []string{"proj-beta"}, // mismatch
			},
			false,
		},
		{
			"conjunction: all dimensions matching",
			Filters{
				Severities:   []finding.Severity{finding.SeverityCritical},
				Services:     []string{"gcs"},
				Projects:     []string{"proj-alpha"},
				Search:       "bucket",
				OnlyFailures: true,
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filters.Matches(filterSubject()); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilters_OnlyFailuresKeepsWarnings(t *testing.T) {
	warned := filterSubject()
	warned.Status = finding.StatusWarning
	passed := filterSubject()
	passed.Status = finding.StatusPass

	fl := Filters{OnlyFailures: true}
	if !fl.Matches(warned) {
		t.Error("OnlyFailures dropped a WARNING finding; only PASS should be hidden")
	}
	if fl.Matches(passed) {
		t.Error("OnlyFailures kept a PASS finding")
	}
}

func TestFilters_Apply(t *testing.T) {
	findings := []finding.Finding{
		mkFinding("proj-alpha", "check_1", "iam", finding.SeverityCritical, finding.StatusFail),
		mkFinding("proj-alpha", "check_2", "gcs", finding.SeverityLow, finding.StatusPass),
		mkFinding("proj-beta", "check_3", "iam", finding.SeverityHigh, finding.StatusFail),
	}

	got := Filters{Services: []string{"iam"}}.Apply(findings)
	if len(got) != 2 {
		t.Fatalf("filtered count = %d, want 2", len(got))
	}

	all := Filters{}.Apply(findings)
	if len(all) != 3 {
		t.Errorf("zero filter dropped findings: got %d, want 3", len(all))
	}
}

func TestFilters_IsZero(t *testing.T) {
	if !(Filters{}).IsZero() {
		t.Error("zero-value filters should report IsZero")
	}
	if (Filters{Search: "x"}).IsZero() {
		t.Error("filters with a search term should not report IsZero")
	}
	if (Filters{OnlyFailures: true}).IsZero() {
		t.Error("filters with OnlyFailures should not report IsZero")
	}
}

func TestFilters_Echo(t *testing.T) {
	if echo := (Filters{}).Echo(); echo != nil {
		t.Errorf("zero filter echo = %+v, want nil", echo)
	}

	fl := Filters{
		Severities:   []finding.Severity{finding.SeverityCritical, finding.SeverityHigh},
		Statuses:     []finding.Status{finding.StatusFail},
		Frameworks:   []finding.Framework{finding.FrameworkCIS},
		Services:     []string{"gcs"},
		Projects:     []string{"proj-alpha"},
		Search:       "bucket",
		OnlyFailures: true,
	}
	echo := fl.Echo()
	if echo == nil {
		t.Fatal("expected non-nil echo")
	}
	if len(echo.Severities) != 2 || echo.Severities[0] != "critical" {
		t.Errorf("echo severities = %v", echo.Severities)
	}
	if len(echo.Statuses) != 1 || echo.Statuses[0] != "FAIL" {
		t.Errorf("echo statuses = %v", echo.Statuses)
	}
	if len(echo.Frameworks) != 1 || echo.Frameworks[0] != "cis" {
		t.Errorf("echo frameworks = %v", echo.Frameworks)
	}
	if echo.Search != "bucket" || !echo.OnlyFailures {
		t.Errorf("echo = %+v", echo)
	}
}
