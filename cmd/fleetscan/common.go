package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fleetscan/fleetscan/pkg/checks"
	"github.com/fleetscan/fleetscan/pkg/config"
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/output"
	"github.com/fleetscan/fleetscan/pkg/output/events"
	"github.com/fleetscan/fleetscan/pkg/output/exitcode"
	"github.com/fleetscan/fleetscan/pkg/store"
	"github.com/fleetscan/fleetscan/pkg/ui"
)

// setupLogging installs the process-wide logger. Silent mode keeps
// errors only; verbose mode opens the debug firehose.
func setupLogging(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case cfg.Silent:
		level = slog.LevelError
	case cfg.Verbose:
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ui.SetSilent(cfg.Silent)
	ui.SetNoColor(cfg.NoColor)
	return logger
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// fatalConfig reports a configuration error and exits with the
// semantic configuration code.
func fatalConfig(err error) {
	ui.PrintError(err.Error())
	os.Exit(int(exitcode.Configuration))
}

// newEmitter maps the parsed config onto an output pipeline.
func newEmitter(cfg *config.Config, logger *slog.Logger) (*output.Emitter, error) {
	return output.NewEmitter(output.Config{
		OutputPath:   cfg.OutputFile,
		Format:       cfg.Format,
		TemplateFile: cfg.TemplateFile,
		OnlyFailures: cfg.OnlyFailures,
		Verbose:      cfg.Verbose,
		Logger:       logger,
		MetricsAddr:  cfg.MetricsAddr,
		OTelEndpoint: cfg.OTelEndpoint,
		OTelInsecure: true,
	})
}

// buildRegistry loads the check registry: built-ins plus the optional
// overrides file.
func buildRegistry(cfg *config.Config) (*checks.Registry, error) {
	registry := checks.Builtin()
	if cfg.ChecksFile == "" {
		return registry, nil
	}
	f, err := checks.LoadFile(cfg.ChecksFile)
	if err != nil {
		return nil, fmt.Errorf("load checks file: %w", err)
	}
	registry.Merge(f)
	return registry, nil
}

// buildFilters converts the filter flags into a store predicate. Typo'd
// enum values are rejected rather than silently bucketed into the
// parse fallbacks, which would filter the wrong findings.
func buildFilters(cfg *config.Config) (store.Filters, error) {
	fl := store.Filters{
		Services:     cfg.Services,
		Search:       cfg.Search,
		OnlyFailures: cfg.OnlyFailures,
	}
	for _, s := range cfg.Severities {
		sev := finding.ParseSeverity(s)
		if sev == finding.SeverityInformational && !strings.EqualFold(s, "informational") && !strings.EqualFold(s, "info") {
			return store.Filters{}, fmt.Errorf("unknown severity %q (valid: critical, high, medium, low, informational)", s)
		}
		fl.Severities = append(fl.Severities, sev)
	}
	for _, s := range cfg.Statuses {
		st := finding.ParseStatus(s)
		if st == finding.StatusUnknown && !strings.EqualFold(s, "unknown") {
			return store.Filters{}, fmt.Errorf("unknown status %q (valid: pass, fail, warning, unknown)", s)
		}
		fl.Statuses = append(fl.Statuses, st)
	}
	for _, s := range cfg.Frameworks {
		fw := finding.ParseFramework(s)
		if fw == finding.FrameworkUnknown && !strings.EqualFold(s, "unknown") {
			return store.Filters{}, fmt.Errorf("unknown framework %q (valid: cis, hipaa, gdpr, soc2, pci, nist, iso27001)", s)
		}
		fl.Frameworks = append(fl.Frameworks, fw)
	}
	return fl, nil
}

// emitSnapshot pumps the filtered view of a snapshot through the
// emitter: one finding event per match, then the corpus-wide summary
// with the filter echo. The summary always covers the whole snapshot.
func emitSnapshot(ctx context.Context, em *output.Emitter, runID string, data *store.SecurityData, filters store.Filters) {
	now := time.Now()
	matched := filters.Apply(data.Findings)
	for i := range matched {
		em.Dispatch(ctx, &events.FindingEvent{
			BaseEvent: events.BaseEvent{Type: events.EventTypeFinding, Time: now, Run: runID},
			Finding:   matched[i],
		})
	}
	em.Dispatch(ctx, &events.SummaryEvent{
		BaseEvent: events.BaseEvent{Type: events.EventTypeSummary, Time: now, Run: runID},
		Summary: events.Summary{
			SecurityScore: data.SecurityScore,
			RiskLevel:     data.RiskLevel,
			Stats:         data.Stats,
			Compliance:    data.ComplianceList(),
			Projects:      data.Projects,
			Services:      data.Services,
		},
		Filters: filters.Echo(),
	})
}

// renderTable prints the terminal report: score card, compliance and
// severity tables, then the filtered finding lines.
func renderTable(data *store.SecurityData, filters store.Filters, elapsed time.Duration) {
	card := ui.ScoreCard{
		Score:         float64(data.SecurityScore),
		RiskLevel:     data.RiskLevel.String(),
		TotalFindings: data.Stats.Total,
		FailedChecks:  data.Stats.Failed,
		PassedChecks:  data.Stats.Passed,
		Projects:      len(data.Projects),
		Services:      len(data.Services),
		Elapsed:       elapsed,
	}
	fmt.Println(ui.RenderScoreCard(card))

	var compliance []ui.ComplianceRow
	for _, cs := range data.ComplianceList() {
		if cs.TotalChecks == 0 {
			continue
		}
		compliance = append(compliance, ui.ComplianceRow{
			Framework: strings.ToUpper(cs.Framework.String()),
			Total:     cs.TotalChecks,
			Passed:    cs.PassedChecks,
			Failed:    cs.FailedChecks,
			Percent:   cs.Percentage,
		})
	}
	if len(compliance) > 0 {
		fmt.Println(ui.RenderComplianceTable(compliance))
	}

	var severities []ui.SeverityRow
	for _, sev := range []finding.Severity{
		finding.SeverityCritical,
		finding.SeverityHigh,
		finding.SeverityMedium,
		finding.SeverityLow,
		finding.SeverityInformational,
	} {
		if n := data.Stats.BySeverity[sev]; n > 0 {
			severities = append(severities, ui.SeverityRow{Severity: sev.String(), Count: n})
		}
	}
	if len(severities) > 0 {
		fmt.Println(ui.RenderSeverityBreakdown(severities))
	}

	matched := filters.Apply(data.Findings)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Severity.Rank() > matched[j].Severity.Rank()
	})
	for i := range matched {
		f := &matched[i]
		if !ui.IsSilent() {
			ui.PrintFinding(f.Severity.String(), f.Service, f.CheckID, f.ProjectID, f.Status.String())
		}
	}
	if len(matched) == 0 && !filters.IsZero() {
		ui.PrintInfo("no findings match the active filters")
	}
}
