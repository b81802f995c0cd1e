// Package hooks provides live event consumers: integrations that react
// to events as a batch runs, unlike writers which render documents.
package hooks

import (
	"context"
	"log/slog"

	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
)

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// Compile-time interface check.
var _ dispatcher.Hook = (*LoggerHook)(nil)

// LoggerHook logs events as structured log lines. It is the default
// hook wired into every batch so operators see progress without any
// export configured.
type LoggerHook struct {
	logger *slog.Logger

	// Verbose additionally logs progress updates and passed findings
	// at debug level.
	Verbose bool
}

// NewLoggerHook creates a logging hook. A nil logger falls back to
// slog.Default().
func NewLoggerHook(logger *slog.Logger, verbose bool) *LoggerHook {
	return &LoggerHook{logger: orDefault(logger), Verbose: verbose}
}

// OnEvent logs the event with level by significance: fatal errors and
// failed critical findings log at error, other failures warn, the rest
// info or debug.
func (h *LoggerHook) OnEvent(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.StartEvent:
		h.logger.InfoContext(ctx, "scan batch started",
			"run_id", e.RunID(),
			"provider", e.Provider,
			"targets", len(e.Targets),
			"concurrency", e.Config.Concurrency,
		)
	case *events.ResultEvent:
		if e.Success {
			h.logger.InfoContext(ctx, "target scanned",
				"target", e.Target,
				"duration_ms", e.DurationMs,
				"report", e.ReportPath,
			)
		} else {
			h.logger.WarnContext(ctx, "target scan failed",
				"target", e.Target,
				"duration_ms", e.DurationMs,
				"error", e.Error,
			)
		}
	case *events.ProgressEvent:
		if h.Verbose {
			h.logger.DebugContext(ctx, "scan progress",
				"target", e.Target,
				"completed", e.Counts.Completed,
				"total", e.Counts.Total,
			)
		}
	case *events.FindingEvent:
		f := e.Finding
		switch {
		case f.IsFailed() && f.Severity == finding.SeverityCritical:
			h.logger.ErrorContext(ctx, "critical finding",
				"check", f.CheckID, "project", f.ProjectID, "resource", f.ResourceID)
		case f.IsFailed():
			h.logger.WarnContext(ctx, "failed finding",
				"check", f.CheckID, "severity", f.Severity, "project", f.ProjectID)
		case h.Verbose:
			h.logger.DebugContext(ctx, "finding",
				"check", f.CheckID, "status", f.Status, "project", f.ProjectID)
		}
	case *events.ErrorEvent:
		if e.Fatal {
			h.logger.ErrorContext(ctx, "fatal error",
				"stage", e.Stage, "target", e.Target, "error", e.Message)
		} else {
			h.logger.WarnContext(ctx, "error",
				"stage", e.Stage, "target", e.Target, "error", e.Message)
		}
	case *events.SummaryEvent:
		h.logger.InfoContext(ctx, "security summary",
			"score", e.Summary.SecurityScore,
			"risk", e.Summary.RiskLevel,
			"findings", e.Summary.Stats.Total,
			"failed", e.Summary.Stats.Failed,
		)
	case *events.CompleteEvent:
		h.logger.InfoContext(ctx, "scan batch complete",
			"targets", e.Targets,
			"successful", e.Successful,
			"failed", e.Failed,
			"findings", e.Findings,
			"duration_sec", e.DurationSec,
		)
	}
	return nil
}

// EventTypes returns nil: the logger receives every event.
func (h *LoggerHook) EventTypes() []events.EventType {
	return nil
}
