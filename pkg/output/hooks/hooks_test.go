package hooks

import (
	"time"

	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/output/events"
	"github.com/fleetscan/fleetscan/pkg/scoring"
)

// Shared event fixtures for hook tests.

func newTestBase(et events.EventType) events.BaseEvent {
	return events.BaseEvent{
		Type: et,
		Time: time.Now(),
		Run:  "run-hooks-test",
	}
}

func newTestStartEvent() *events.StartEvent {
	return &events.StartEvent{
		BaseEvent: newTestBase(events.EventTypeStart),
		Provider:  "gcp",
		Targets:   []string{"proj-alpha", "proj-beta"},
		Config: events.ScanConfig{
			Concurrency: 3,
			TimeoutSec:  600,
			OutputDir:   "fleetscan-reports",
			OutputMode:  "json-ocsf",
		},
	}
}

func newTestProgressEvent() *events.ProgressEvent {
	return &events.ProgressEvent{
		BaseEvent: newTestBase(events.EventTypeProgress),
		Target:    "proj-alpha",
		Line:      "Scanning iam resources...",
		Counts: events.Counts{
			Total:      2,
			Completed:  1,
			Successful: 1,
			Failed:     0,
			Percentage: 50.0,
		},
	}
}

func newTestResultEvent(target string, success bool) *events.ResultEvent {
	ev := &events.ResultEvent{
		BaseEvent:  newTestBase(events.EventTypeResult),
		Target:     target,
		Success:    success,
		DurationMs: 1234.5,
	}
	if success {
		ev.ReportPath = "fleetscan-reports/fleetscan-" + target + ".ocsf.json"
	} else {
		ev.Error = "scan timed out"
	}
	return ev
}

func newTestFindingEvent(severity finding.Severity, status finding.Status) *events.FindingEvent {
	return &events.FindingEvent{
		BaseEvent: newTestBase(events.EventTypeFinding),
		Finding: finding.Finding{
			ProjectID:      "proj-alpha",
			ResourceID:     "//storage.googleapis.com/buckets/data",
			CheckID:        "gcs_bucket_public_access",
			Service:        "gcs",
			Status:         status,
			Severity:       severity,
			Framework:      finding.FrameworkCIS,
			Description:    "Bucket grants public access",
			Recommendation: "Remove allUsers bindings",
			Category:       "storage",
			Timestamp:      time.Now(),
		},
	}
}

func newTestErrorEvent(fatal bool) *events.ErrorEvent {
	return &events.ErrorEvent{
		BaseEvent: newTestBase(events.EventTypeError),
		Target:    "proj-alpha",
		Stage:     "ingest",
		Message:   "report file missing",
		Fatal:     fatal,
	}
}

func newTestSummaryEvent() *events.SummaryEvent {
	return &events.SummaryEvent{
		BaseEvent: newTestBase(events.EventTypeSummary),
		Summary: events.Summary{
			SecurityScore: 75,
			RiskLevel:     scoring.RiskLow,
			Stats: finding.Stats{
				Total:  10,
				Passed: 7,
				Failed: 3,
			},
			Compliance: []scoring.ComplianceScore{
				{Framework: finding.FrameworkCIS, TotalChecks: 8, PassedChecks: 6, FailedChecks: 2, Percentage: 75.0},
				{Framework: finding.FrameworkHIPAA, TotalChecks: 2, PassedChecks: 1, FailedChecks: 1, Percentage: 50.0},
			},
			Projects:       []string{"proj-alpha", "proj-beta"},
			TargetsScanned: 2,
			TargetsFailed:  0,
			DurationSec:    42.0,
		},
	}
}

func newTestCompleteEvent(success bool) *events.CompleteEvent {
	failed := 0
	if !success {
		failed = 1
	}
	return &events.CompleteEvent{
		BaseEvent:   newTestBase(events.EventTypeComplete),
		Targets:     2,
		Successful:  2 - failed,
		Failed:      failed,
		Findings:    10,
		Success:     success,
		DurationSec: 42.0,
	}
}
