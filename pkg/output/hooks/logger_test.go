package hooks

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/fleetscan/fleetscan/pkg/finding"
)

// =============================================================================
// logRecorder — captures slog.Record entries for assertions
// =============================================================================

type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func (r *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *logRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *logRecorder) WithGroup(string) slog.Handler      { return r }

func (r *logRecorder) getRecords() []slog.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	dst := make([]slog.Record, len(r.records))
	copy(dst, r.records)
	return dst
}

// findRecord returns the first record with the given message.
func findRecord(records []slog.Record, msg string) (slog.Record, bool) {
	for _, rec := range records {
		if rec.Message == msg {
			return rec, true
		}
	}
	return slog.Record{}, false
}

// hasAttr reports whether the record carries an attribute with the key.
func hasAttr(rec slog.Record, key string) bool {
	found := false
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			found = true
			return false
		}
		return true
	})
	return found
}

// =============================================================================
// orDefault tests
// =============================================================================

func TestOrDefault_NilReturnsDefault(t *testing.T) {
	result := orDefault(nil)
	if result != slog.Default() {
		t.Error("expected slog.Default() for nil input")
	}
}

func TestOrDefault_NonNilReturnsInput(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	result := orDefault(custom)
	if result != custom {
		t.Error("expected custom logger to be returned")
	}
}

// =============================================================================
// LoggerHook tests
// =============================================================================

func TestLoggerHook_NilLoggerNoPanic(t *testing.T) {
	hook := NewLoggerHook(nil, false)

	// Must fall back to slog.Default() without panicking.
	if err := hook.OnEvent(context.Background(), newTestStartEvent()); err != nil {
		t.Fatalf("OnEvent failed: %v", err)
	}
}

func TestLoggerHook_StartEvent(t *testing.T) {
	rec := &logRecorder{}
	hook := NewLoggerHook(slog.New(rec), false)

	if err := hook.OnEvent(context.Background(), newTestStartEvent()); err != nil {
		t.Fatalf("OnEvent failed: %v", err)
	}

	r, ok := findRecord(rec.getRecords(), "scan batch started")
	if !ok {
		t.Fatal("expected 'scan batch started' log message")
	}
	if r.Level != slog.LevelInfo {
		t.Errorf("expected Info level, got %v", r.Level)
	}
	if !hasAttr(r, "run_id") {
		t.Error("expected run_id attribute")
	}
	if !hasAttr(r, "provider") {
		t.Error("expected provider attribute")
	}
}

func TestLoggerHook_ResultEvent_Success(t *testing.T) {
	rec := &logRecorder{}
	hook := NewLoggerHook(slog.New(rec), false)

	_ = hook.OnEvent(context.Background(), newTestResultEvent("proj-alpha", true))

	r, ok := findRecord(rec.getRecords(), "target scanned")
	if !ok {
		t.Fatal("expected 'target scanned' log message")
	}
	if r.Level != slog.LevelInfo {
		t.Errorf("expected Info level, got %v", r.Level)
	}
	if !hasAttr(r, "report") {
		t.Error("expected report attribute")
	}
}

func TestLoggerHook_ResultEvent_Failure(t *testing.T) {
	rec := &logRecorder{}
	hook := NewLoggerHook(slog.New(rec), false)

	_ = hook.OnEvent(context.Background(), newTestResultEvent("proj-alpha", false))

	r, ok := findRecord(rec.getRecords(), "target scan failed")
	if !ok {
		t.Fatal("expected 'target scan failed' log message")
	}
	if r.Level != slog.LevelWarn {
		t.Errorf("expected Warn level, got %v", r.Level)
	}
	if !hasAttr(r, "error") {
		t.Error("expected error attribute")
	}
}

func TestLoggerHook_FindingEvent_Levels(t *testing.T) {
	tests := []struct {
		name     string
		severity finding.Severity
		status   finding.Status
		verbose  bool
		wantMsg  string
		wantLvl  slog.Level
		wantNone bool
	}{
		{
			name:     "failed critical logs at error",
			severity: finding.SeverityCritical,
			status:   finding.StatusFail,
			wantMsg:  "critical finding",
			wantLvl:  slog.LevelError,
		},
		{
			name:     "failed high logs at warn",
			severity: finding.SeverityHigh,
			status:   finding.StatusFail,
			wantMsg:  "failed finding",
			wantLvl:  slog.LevelWarn,
		},
		{
			name:     "passed finding silent by default",
			severity: finding.SeverityMedium,
			status:   finding.StatusPass,
			wantNone: true,
		},
		{
			name:     "passed finding logs at debug when verbose",
			severity: finding.SeverityMedium,
			status:   finding.StatusPass,
			verbose:  true,
			wantMsg:  "finding",
			wantLvl:  slog.LevelDebug,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &logRecorder{}
			hook := NewLoggerHook(slog.New(rec), tt.verbose)

			_ = hook.OnEvent(context.Background(), newTestFindingEvent(tt.severity, tt.status))

			records := rec.getRecords()
			if tt.wantNone {
				if len(records) != 0 {
					t.Fatalf("expected no log output, got %d records", len(records))
				}
				return
			}

			r, ok := findRecord(records, tt.wantMsg)
			if !ok {
				t.Fatalf("expected %q log message", tt.wantMsg)
			}
			if r.Level != tt.wantLvl {
				t.Errorf("expected level %v, got %v", tt.wantLvl, r.Level)
			}
		})
	}
}

func TestLoggerHook_ProgressEvent_VerboseGated(t *testing.T) {
	rec := &logRecorder{}
	hook := NewLoggerHook(slog.New(rec), false)

	_ = hook.OnEvent(context.Background(), newTestProgressEvent())
	if len(rec.getRecords()) != 0 {
		t.Error("expected progress to be silent without verbose")
	}

	hook.Verbose = true
	_ = hook.OnEvent(context.Background(), newTestProgressEvent())

	r, ok := findRecord(rec.getRecords(), "scan progress")
	if !ok {
		t.Fatal("expected 'scan progress' log message with verbose")
	}
	if r.Level != slog.LevelDebug {
		t.Errorf("expected Debug level, got %v", r.Level)
	}
}

func TestLoggerHook_ErrorEvent(t *testing.T) {
	rec := &logRecorder{}
	hook := NewLoggerHook(slog.New(rec), false)

	_ = hook.OnEvent(context.Background(), newTestErrorEvent(false))
	_ = hook.OnEvent(context.Background(), newTestErrorEvent(true))

	records := rec.getRecords()

	r, ok := findRecord(records, "error")
	if !ok {
		t.Fatal("expected 'error' log message for non-fatal error")
	}
	if r.Level != slog.LevelWarn {
		t.Errorf("expected Warn level for non-fatal error, got %v", r.Level)
	}

	r, ok = findRecord(records, "fatal error")
	if !ok {
		t.Fatal("expected 'fatal error' log message")
	}
	if r.Level != slog.LevelError {
		t.Errorf("expected Error level for fatal error, got %v", r.Level)
	}
	if !hasAttr(r, "stage") {
		t.Error("expected stage attribute")
	}
}

func TestLoggerHook_SummaryEvent(t *testing.T) {
	rec := &logRecorder{}
	hook := NewLoggerHook(slog.New(rec), false)

	_ = hook.OnEvent(context.Background(), newTestSummaryEvent())

	r, ok := findRecord(rec.getRecords(), "security summary")
	if !ok {
		t.Fatal("expected 'security summary' log message")
	}
	if !hasAttr(r, "score") {
		t.Error("expected score attribute")
	}
	if !hasAttr(r, "risk") {
		t.Error("expected risk attribute")
	}
}

func TestLoggerHook_CompleteEvent(t *testing.T) {
	rec := &logRecorder{}
	hook := NewLoggerHook(slog.New(rec), false)

	_ = hook.OnEvent(context.Background(), newTestCompleteEvent(true))

	r, ok := findRecord(rec.getRecords(), "scan batch complete")
	if !ok {
		t.Fatal("expected 'scan batch complete' log message")
	}
	if r.Level != slog.LevelInfo {
		t.Errorf("expected Info level, got %v", r.Level)
	}
}

func TestLoggerHook_EventTypesNilMeansAll(t *testing.T) {
	hook := NewLoggerHook(nil, false)
	if types := hook.EventTypes(); types != nil {
		t.Errorf("expected nil event types (receive all), got %v", types)
	}
}
