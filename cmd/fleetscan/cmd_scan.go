package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fleetscan/fleetscan/pkg/checks"
	"github.com/fleetscan/fleetscan/pkg/config"
	"github.com/fleetscan/fleetscan/pkg/output"
	"github.com/fleetscan/fleetscan/pkg/output/baseline"
	"github.com/fleetscan/fleetscan/pkg/output/events"
	"github.com/fleetscan/fleetscan/pkg/output/exitcode"
	"github.com/fleetscan/fleetscan/pkg/output/policy"
	"github.com/fleetscan/fleetscan/pkg/remote"
	"github.com/fleetscan/fleetscan/pkg/scan"
	"github.com/fleetscan/fleetscan/pkg/store"
	"github.com/fleetscan/fleetscan/pkg/ui"
)

func runScan() {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	cfg := config.Default()
	cfg.RegisterCommonFlags(fs)
	cfg.RegisterScanFlags(fs)
	cfg.RegisterStoreFlags(fs)
	cfg.RegisterFilterFlags(fs)
	cfg.RegisterRemoteFlags(fs)
	cfg.RegisterOutputFlags(fs)
	cfg.RegisterHookFlags(fs)
	policyFile := fs.String("policy", "", "YAML quality-gate policy evaluated after the run")
	baselineFile := fs.String("baseline", "", "Baseline file; only failures not in it fail the run")
	updateBaseline := fs.Bool("update-baseline", false, "Rewrite the baseline from this run's failures")
	fs.Parse(os.Args[2:])

	if err := cfg.Load(fs); err != nil {
		fatalConfig(err)
	}
	logger := setupLogging(cfg)

	projects, err := cfg.ProjectSource().Projects()
	if err != nil {
		fatalConfig(err)
	}
	if len(projects) == 0 {
		fatalConfig(fmt.Errorf("%w: at least one project (-p, -projects-file, or -stdin)", config.ErrMissingRequired))
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		fatalConfig(err)
	}
	filters, err := buildFilters(cfg)
	if err != nil {
		fatalConfig(err)
	}

	em, err := newEmitter(cfg, logger)
	if err != nil {
		fatalConfig(err)
	}
	manager := exitcode.New(exitcode.DefaultConfig())
	em.RegisterHook(manager)

	ui.PrintBanner()
	ui.ScanManifest(projects, cfg.Provider, cfg.ScannerPath, cfg.Concurrency, cfg.ScanTimeout, cfg.RemoteURL != "").Print()

	ctx, cancel := signalContext()
	defer cancel()

	started := time.Now()
	st := store.New(store.Options{TTL: cfg.CacheTTL, Registry: registry, Logger: logger})
	st.AddSource(store.NewReportSource(cfg.ArtifactDir, logger))

	var runID string
	var failedTargets int
	if cfg.RemoteURL != "" {
		runID, failedTargets = scanRemote(ctx, cfg, projects, em, st, registry, logger)
	}
	if runID == "" {
		runID, failedTargets = scanLocal(ctx, cfg, projects, em, logger)
	}

	if ctx.Err() != nil {
		manager.SetInterrupted()
	}

	data, err := st.Load(context.Background(), true)
	if err != nil {
		ui.PrintError(fmt.Sprintf("aggregation failed: %v", err))
		em.Close()
		os.Exit(int(exitcode.ScanErrors))
	}

	emitSnapshot(ctx, em, runID, data, filters)
	elapsed := time.Since(started)
	em.Dispatch(ctx, &events.CompleteEvent{
		BaseEvent:   events.BaseEvent{Type: events.EventTypeComplete, Time: time.Now(), Run: runID},
		Targets:     len(projects),
		Successful:  len(projects) - failedTargets,
		Failed:      failedTargets,
		Findings:    data.Stats.Total,
		Success:     failedTargets == 0,
		DurationSec: elapsed.Seconds(),
	})

	if cfg.Format == config.FormatTable {
		renderTable(data, filters, elapsed)
	}

	gateFailed := applyGates(cfg, *policyFile, *baselineFile, *updateBaseline, data, failedTargets, len(projects))

	if err := em.Close(); err != nil {
		logger.Warn("output pipeline close", slog.String("error", err.Error()))
	}

	code, reason := manager.ExitCode()
	if gateFailed && code == exitcode.Success {
		code, reason = exitcode.FailedFindings, "quality gate failed"
	}
	if code != exitcode.Success {
		ui.PrintWarning(fmt.Sprintf("exit %d: %s", int(code), reason))
	}
	os.Exit(int(code))
}

// scanLocal drives the external scanner under the concurrency cap and
// returns the run id and the count of targets that failed to scan.
func scanLocal(ctx context.Context, cfg *config.Config, projects []string, em *output.Emitter, logger *slog.Logger) (string, int) {
	var completed, failed atomic.Int64
	total := len(projects)

	progress := ui.NewScanProgress(total)

	var runID atomic.Value
	runID.Store("")

	sc, err := scan.New(scan.Options{
		ScannerPath: cfg.ScannerPath,
		Provider:    cfg.Provider,
		OutputDir:   cfg.ArtifactDir,
		OutputMode:  cfg.OutputMode,
		Checks:      cfg.ScanChecks,
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.ScanTimeout,
		Logger:      logger,
		OnProgress: func(target, line string) {
			done := completed.Load()
			em.Dispatch(ctx, &events.ProgressEvent{
				BaseEvent: events.BaseEvent{Type: events.EventTypeProgress, Time: time.Now(), Run: runID.Load().(string)},
				Target:    target,
				Line:      line,
				Counts:    batchCounts(total, done, failed.Load()),
			})
		},
		OnResult: func(res scan.Result) {
			completed.Add(1)
			progress.Increment()
			if res.Success {
				progress.AddMetric("ok")
			} else {
				failed.Add(1)
				progress.AddMetric("failed")
			}
			em.Dispatch(ctx, &events.ResultEvent{
				BaseEvent:  events.BaseEvent{Type: events.EventTypeResult, Time: time.Now(), Run: runID.Load().(string)},
				Target:     res.Target,
				Success:    res.Success,
				ReportPath: res.ReportPath,
				Error:      res.Error,
				DurationMs: float64(res.Duration.Milliseconds()),
			})
			if !res.Success {
				em.Dispatch(ctx, &events.ErrorEvent{
					BaseEvent: events.BaseEvent{Type: events.EventTypeError, Time: time.Now(), Run: runID.Load().(string)},
					Target:    res.Target,
					Stage:     "scan",
					Message:   res.Error,
				})
			}
		},
	})
	if err != nil {
		fatalConfig(err)
	}
	runID.Store(sc.RunID())

	em.Dispatch(ctx, &events.StartEvent{
		BaseEvent: events.BaseEvent{Type: events.EventTypeStart, Time: time.Now(), Run: sc.RunID()},
		Provider:  cfg.Provider,
		Targets:   projects,
		Config: events.ScanConfig{
			Concurrency: cfg.Concurrency,
			TimeoutSec:  int(cfg.ScanTimeout.Seconds()),
			OutputDir:   cfg.ArtifactDir,
			OutputMode:  cfg.OutputMode,
			Checks:      cfg.ScanChecks,
		},
	})

	progress.Start()
	results := sc.ScanAll(ctx, projects)
	progress.Stop()

	nfailed := 0
	for i := range results {
		if !results[i].Success {
			nfailed++
			ui.PrintWarning(fmt.Sprintf("%s: %s", results[i].Target, results[i].Error))
		}
	}
	return sc.RunID(), nfailed
}

// scanRemote submits the batch to the hosted scan API. It returns an
// empty run id when the service is unreachable so the caller can fall
// back to the local scanner.
func scanRemote(ctx context.Context, cfg *config.Config, projects []string, em *output.Emitter, st *store.Store, registry *checks.Registry, logger *slog.Logger) (string, int) {
	client, err := remote.New(remote.Options{
		BaseURL: cfg.RemoteURL,
		Token:   cfg.RemoteToken,
		Logger:  logger,
	})
	if err != nil {
		fatalConfig(err)
	}
	if !client.Available(ctx) {
		ui.PrintWarning("remote scan API unavailable, falling back to the local scanner")
		return "", 0
	}

	jobID, raw, err := client.Run(ctx, cfg.Provider, projects, cfg.OrgID)
	if err != nil {
		if errors.Is(err, remote.ErrUnavailable) && jobID == "" {
			ui.PrintWarning("remote scan API unavailable, falling back to the local scanner")
			return "", 0
		}
		ui.PrintError(fmt.Sprintf("remote scan %s failed: %v", jobID, err))
		em.Dispatch(ctx, &events.ErrorEvent{
			BaseEvent: events.BaseEvent{Type: events.EventTypeError, Time: time.Now(), Run: jobID},
			Stage:     "remote",
			Message:   err.Error(),
			Fatal:     true,
		})
		return jobID, len(projects)
	}

	em.Dispatch(ctx, &events.StartEvent{
		BaseEvent: events.BaseEvent{Type: events.EventTypeStart, Time: time.Now(), Run: jobID},
		Provider:  cfg.Provider,
		Targets:   projects,
		Config:    events.ScanConfig{Concurrency: 1, TimeoutSec: int(cfg.ScanTimeout.Seconds())},
	})

	reportPath := filepath.Join(cfg.ArtifactDir, fmt.Sprintf("remote-%s.json", jobID))
	if err := os.MkdirAll(cfg.ArtifactDir, 0o755); err == nil {
		err = os.WriteFile(reportPath, raw, 0o644)
	}
	if err != nil {
		ui.PrintError(fmt.Sprintf("cannot persist remote results: %v", err))
		return jobID, len(projects)
	}
	st.AddSource(store.NewFileSource("remote-"+jobID, registry, logger, reportPath))

	now := time.Now()
	for _, p := range projects {
		em.Dispatch(ctx, &events.ResultEvent{
			BaseEvent:  events.BaseEvent{Type: events.EventTypeResult, Time: now, Run: jobID},
			Target:     p,
			Success:    true,
			ReportPath: reportPath,
		})
	}
	return jobID, 0
}

// applyGates runs the policy and baseline gates. It reports whether
// either gate failed the run.
func applyGates(cfg *config.Config, policyFile, baselineFile string, update bool, data *store.SecurityData, failedTargets, targets int) bool {
	gateFailed := false

	if baselineFile != "" {
		base, err := baseline.Load(baselineFile)
		switch {
		case errors.Is(err, baseline.ErrBaselineNotFound) && update:
			base = baseline.New()
		case err != nil:
			fatalConfig(err)
		}
		cmp := base.Compare(baseline.ExtractFailed(data.Findings))
		ui.PrintInfo(cmp.Summary)
		if cmp.HasNewFindings {
			gateFailed = true
			for _, e := range cmp.NewFindings {
				ui.PrintWarning(fmt.Sprintf("new failure %s (%s on %s)", e.CheckID, e.ProjectID, e.ResourceID))
			}
		}
		if update {
			fresh := baseline.CreateFromFindings(data.Findings, "", cfg.Provider)
			base.Merge(fresh)
			if err := base.Save(baselineFile); err != nil {
				ui.PrintError(fmt.Sprintf("cannot save baseline: %v", err))
			}
		}
	}

	if policyFile != "" {
		pol, err := policy.LoadPolicy(policyFile)
		if err != nil {
			fatalConfig(err)
		}
		rate := 0.0
		if targets > 0 {
			rate = float64(failedTargets) / float64(targets) * 100
		}
		res := pol.Evaluate(policy.Input{
			Findings:      data.Findings,
			SecurityScore: data.SecurityScore,
			ScanErrorRate: rate,
		})
		for _, msg := range res.Failures {
			ui.PrintWarning(msg)
		}
		if !res.Pass {
			gateFailed = true
		}
	}
	return gateFailed
}

// batchCounts snapshots the batch counters for a progress event.
func batchCounts(total int, completed, failed int64) events.Counts {
	pct := 0.0
	if total > 0 {
		pct = float64(completed) / float64(total) * 100
	}
	return events.Counts{
		Total:      total,
		Completed:  int(completed),
		Successful: int(completed - failed),
		Failed:     int(failed),
		Percentage: pct,
	}
}
