package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fleetscan/fleetscan/pkg/checks"
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/scoring"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingSource counts Findings calls so tests can assert cache hits.
type countingSource struct {
	name  string
	items []finding.Finding
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (c *countingSource) Name() string { return c.name }

func (c *countingSource) Findings(ctx context.Context) ([]finding.Finding, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.items, nil
}

func mkFinding(project, checkID, service string, sev finding.Severity, status finding.Status) finding.Finding {
	return finding.Finding{
		ProjectID:   project,
		ResourceID:  "//" + service + ".googleapis.com/" + checkID,
		CheckID:     checkID,
		Service:     service,
		Status:      status,
		Severity:    sev,
		Framework:   finding.FrameworkCIS,
		Description: checkID + " description",
		Timestamp:   time.Now(),
	}
}

func newTestStore(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	return New(opts)
}

func TestLoad_EmptyStoreIsValidAggregate(t *testing.T) {
	s := newTestStore(Options{})

	data, err := s.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if data.SecurityScore != 100 {
		t.Errorf("empty store score = %d, want 100", data.SecurityScore)
	}
	if data.RiskLevel != scoring.RiskMinimal {
		t.Errorf("empty store risk = %s, want %s", data.RiskLevel, scoring.RiskMinimal)
	}
	if data.Stats.Total != 0 || data.Stats.Failed != 0 || data.Stats.Passed != 0 {
		t.Errorf("empty store stats = %+v, want zeros", data.Stats)
	}
	if len(data.Projects) != 0 || len(data.Services) != 0 {
		t.Errorf("empty store projects/services = %v/%v, want empty", data.Projects, data.Services)
	}
	if len(data.Compliance) != len(finding.Frameworks) {
		t.Errorf("compliance entries = %d, want %d", len(data.Compliance), len(finding.Frameworks))
	}
	cis := data.Compliance[finding.FrameworkCIS]
	if cis == nil || cis.TotalChecks != 0 || cis.Percentage != 0 {
		t.Errorf("zero-check CIS compliance = %+v, want 0 checks at 0%%", cis)
	}
}

func TestLoad_CachedWithinTTLReturnsIdenticalPointer(t *testing.T) {
	src := &countingSource{name: "a", items: []finding.Finding{
		mkFinding("proj-alpha", "check_1", "iam", finding.SeverityHigh, finding.StatusFail),
	}}
	s := newTestStore(Options{TTL: time.Minute})
	s.AddSource(src)

	first, err := s.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	second, err := s.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}

	if first != second {
		t.Error("two loads within the TTL returned different snapshots")
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("source consulted %d times, want 1", got)
	}
}

func TestLoad_ForceRefreshes(t *testing.T) {
	src := &countingSource{name: "a"}
	s := newTestStore(Options{TTL: time.Minute})
	s.AddSource(src)

	first, _ := s.Load(context.Background(), false)
	second, err := s.Load(context.Background(), true)
	if err != nil {
		t.Fatalf("forced Load: %v", err)
	}

	if first == second {
		t.Error("forced load returned the cached snapshot")
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("source consulted %d times, want 2", got)
	}
}

func TestLoad_TTLExpiryRefreshes(t *testing.T) {
	src := &countingSource{name: "a"}
	s := newTestStore(Options{TTL: 10 * time.Millisecond})
	s.AddSource(src)

	first, _ := s.Load(context.Background(), false)
	time.Sleep(25 * time.Millisecond)
	second, err := s.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load after expiry: %v", err)
	}

	if first == second {
		t.Error("load after TTL expiry returned the stale snapshot")
	}
}

func TestInvalidate_NextLoadRefreshes(t *testing.T) {
	src := &countingSource{name: "a"}
	s := newTestStore(Options{TTL: time.Minute})
	s.AddSource(src)

	first, _ := s.Load(context.Background(), false)

	s.Invalidate()

	// The stale snapshot stays readable until replaced.
	if s.Data() != first {
		t.Error("Invalidate dropped the snapshot; readers should keep it until the next Load")
	}

	second, err := s.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load after Invalidate: %v", err)
	}
	if first == second {
		t.Error("load after Invalidate returned the stale snapshot")
	}
}

func TestClear_DropsSnapshot(t *testing.T) {
	src := &countingSource{name: "a"}
	s := newTestStore(Options{TTL: time.Minute})
	s.AddSource(src)

	if _, err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Clear()

	if s.Data() != nil {
		t.Error("Data() after Clear should be nil")
	}

	if _, err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load after Clear: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("source consulted %d times, want 2", got)
	}
}

func TestLoad_FailingSourceSkippedNotFatal(t *testing.T) {
	good := &countingSource{name: "good", items: []finding.Finding{
		mkFinding("proj-alpha", "check_1", "iam", finding.SeverityHigh, finding.StatusFail),
		mkFinding("proj-alpha", "check_2", "gcs", finding.SeverityLow, finding.StatusPass),
	}}
	bad := &countingSource{name: "bad", err: errors.New("disk on fire")}

	s := newTestStore(Options{})
	s.AddSource(bad)
	s.AddSource(good)

	data, err := s.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load with failing source: %v", err)
	}
	if data.Stats.Total != 2 {
		t.Errorf("findings = %d, want 2 from the healthy source", data.Stats.Total)
	}
}

func TestLoad_AggregatesAllSources(t *testing.T) {
	a := &countingSource{name: "a", items: []finding.Finding{
		mkFinding("proj-alpha", "check_1", "iam", finding.SeverityCritical, finding.StatusFail),
	}}
	b := &countingSource{name: "b", items: []finding.Finding{
		mkFinding("proj-beta", "check_2", "gcs", finding.SeverityMedium, finding.StatusPass),
		mkFinding("proj-beta", "check_3", "kms", finding.SeverityLow, finding.StatusFail),
	}}

	s := newTestStore(Options{})
	s.AddSource(a)
	s.AddSource(b)

	data, err := s.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if data.Stats.Total != 3 {
		t.Errorf("total = %d, want 3", data.Stats.Total)
	}
	if want := []string{"proj-alpha", "proj-beta"}; !equalStrings(data.Projects, want) {
		t.Errorf("projects = %v, want %v", data.Projects, want)
	}
	if want := []string{"gcs", "iam", "kms"}; !equalStrings(data.Services, want) {
		t.Errorf("services = %v, want %v", data.Services, want)
	}
}

func equalStrings(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestLoad_CanceledContext(t *testing.T) {
	s := newTestStore(Options{})
	s.AddSource(&countingSource{name: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Load(ctx, false); err == nil {
		t.Error("expected error from canceled context")
	}
}

func TestOnRefresh_CallbacksSeeNewSnapshot(t *testing.T) {
	s := newTestStore(Options{TTL: time.Minute})
	s.AddSource(&countingSource{name: "a"})

	var seen atomic.Pointer[SecurityData]
	var count atomic.Int32
	s.OnRefresh(func(d *SecurityData) {
		seen.Store(d)
		count.Add(1)
	})

	data, err := s.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if seen.Load() != data {
		t.Error("callback snapshot differs from the loaded one")
	}

	// Cached loads must not re-fire callbacks.
	if _, err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("cached Load: %v", err)
	}
	if got := count.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1", got)
	}
}

func TestOnRefresh_PanicRecovered(t *testing.T) {
	s := newTestStore(Options{})
	s.AddSource(&countingSource{name: "a"})

	var survived atomic.Bool
	s.OnRefresh(func(*SecurityData) { panic("callback bug") })
	s.OnRefresh(func(*SecurityData) { survived.Store(true) })

	if _, err := s.Load(context.Background(), false); err != nil {
		t.Fatalf("Load with panicking callback: %v", err)
	}
	if !survived.Load() {
		t.Error("panic in one callback prevented the next from running")
	}
}

func TestAutoFixable_FailedAllowListedOnly(t *testing.T) {
	registry := checks.NewRegistry()
	registry.Register("fixable_check", checks.Entry{Framework: "CIS", Severity: "high"})
	registry.MarkAutoFixable("fixable_check")

	s := newTestStore(Options{Registry: registry})
	s.AddSource(&countingSource{name: "a", items: []finding.Finding{
		mkFinding("proj-alpha", "fixable_check", "gke", finding.SeverityHigh, finding.StatusFail),
		mkFinding("proj-alpha", "fixable_check", "gke", finding.SeverityHigh, finding.StatusPass),
		mkFinding("proj-alpha", "manual_check", "iam", finding.SeverityHigh, finding.StatusFail),
	}})

	fixable, err := s.AutoFixable(context.Background())
	if err != nil {
		t.Fatalf("AutoFixable: %v", err)
	}
	if len(fixable) != 1 {
		t.Fatalf("auto-fixable count = %d, want 1", len(fixable))
	}
	if fixable[0].CheckID != "fixable_check" || !fixable[0].IsFailed() {
		t.Errorf("unexpected auto-fixable finding: %+v", fixable[0])
	}
}

func TestFiltered_LoadsAndApplies(t *testing.T) {
	s := newTestStore(Options{})
	s.AddSource(&countingSource{name: "a", items: []finding.Finding{
		mkFinding("proj-alpha", "check_1", "iam", finding.SeverityCritical, finding.StatusFail),
		mkFinding("proj-alpha", "check_2", "gcs", finding.SeverityCritical, finding.StatusPass),
		mkFinding("proj-beta", "check_3", "iam", finding.SeverityLow, finding.StatusFail),
	}})

	got, err := s.Filtered(context.Background(), Filters{
		Severities:   []finding.Severity{finding.SeverityCritical},
		OnlyFailures: true,
	})
	if err != nil {
		t.Fatalf("Filtered: %v", err)
	}
	if len(got) != 1 || got[0].CheckID != "check_1" {
		t.Errorf("filtered = %v, want only check_1", checkIDs(got))
	}
}

func checkIDs(findings []finding.Finding) []string {
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.CheckID
	}
	return ids
}

func TestSecurityData_FailedCritical(t *testing.T) {
	data := build([]finding.Finding{
		mkFinding("p", "c1", "iam", finding.SeverityCritical, finding.StatusFail),
		mkFinding("p", "c2", "iam", finding.SeverityCritical, finding.StatusPass),
		mkFinding("p", "c3", "iam", finding.SeverityHigh, finding.StatusFail),
	}, time.Minute)

	if got := data.FailedCritical(); got != 1 {
		t.Errorf("FailedCritical = %d, want 1", got)
	}
}

func TestSecurityData_ComplianceListSorted(t *testing.T) {
	data := build(nil, time.Minute)

	list := data.ComplianceList()
	if len(list) != len(finding.Frameworks) {
		t.Fatalf("compliance list has %d entries, want %d", len(list), len(finding.Frameworks))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Framework > list[i].Framework {
			t.Fatalf("compliance list not sorted: %s before %s", list[i-1].Framework, list[i].Framework)
		}
	}
}
