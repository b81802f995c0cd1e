package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fleetscan/fleetscan/pkg/audit"
	"github.com/fleetscan/fleetscan/pkg/config"
	"github.com/fleetscan/fleetscan/pkg/output/events"
	"github.com/fleetscan/fleetscan/pkg/output/exitcode"
	"github.com/fleetscan/fleetscan/pkg/store"
	"github.com/fleetscan/fleetscan/pkg/ui"
	"github.com/google/uuid"
)

func runAudit() {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	cfg := config.Default()
	cfg.RegisterCommonFlags(fs)
	cfg.RegisterAuditFlags(fs)
	cfg.RegisterFilterFlags(fs)
	cfg.RegisterOutputFlags(fs)
	cfg.RegisterHookFlags(fs)
	fs.Parse(os.Args[2:])

	if err := cfg.Load(fs); err != nil {
		fatalConfig(err)
	}
	logger := setupLogging(cfg)

	rules := audit.BuiltinRules()
	if cfg.RulesFile != "" {
		loaded, err := audit.LoadRulesFile(cfg.RulesFile)
		if err != nil {
			fatalConfig(err)
		}
		rules = loaded
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
	ui.AuditManifest(cfg.AuditRoot, len(rules), cfg.AuditWorkers).Print()

	ctx, cancel := signalContext()
	defer cancel()

	progress := ui.NewAuditProgress(0)
	auditor := audit.New(audit.Options{
		Root:    cfg.AuditRoot,
		Rules:   rules,
		Workers: cfg.AuditWorkers,
		Logger:  logger,
		OnProgress: func(p audit.Progress) {
			progress.SetTotal(int(p.FilesTotal))
			progress.SetMetric("findings", p.Findings)
			if done := progress.Completed(); done < p.FilesScanned {
				progress.IncrementBy(int(p.FilesScanned - done))
			}
		},
	})

	runID := uuid.NewString()
	started := time.Now()
	progress.Start()
	findings, err := auditor.Scan(ctx)
	progress.Stop()
	if err != nil {
		if ctx.Err() != nil {
			manager.SetInterrupted()
		}
		ui.PrintWarning(fmt.Sprintf("audit stopped early: %v", err))
	}

	st := store.New(store.Options{TTL: cfg.CacheTTL, Logger: logger})
	st.AddSource(&store.StaticSource{SourceName: auditor.Name(), Items: findings})
	// Aggregate whatever was matched even when the sweep was interrupted.
	data, lerr := st.Load(context.Background(), true)
	if lerr != nil {
		ui.PrintError(fmt.Sprintf("aggregation failed: %v", lerr))
		em.Close()
		os.Exit(int(exitcode.ScanErrors))
	}

	emitSnapshot(ctx, em, runID, data, filters)
	elapsed := time.Since(started)
	em.Dispatch(ctx, &events.CompleteEvent{
		BaseEvent:   events.BaseEvent{Type: events.EventTypeComplete, Time: time.Now(), Run: runID},
		Targets:     1,
		Successful:  1,
		Findings:    data.Stats.Total,
		Success:     err == nil,
		DurationSec: elapsed.Seconds(),
	})

	if cfg.Format == config.FormatTable {
		renderTable(data, filters, elapsed)
	}

	if cerr := em.Close(); cerr != nil {
		logger.Warn("output pipeline close", slog.String("error", cerr.Error()))
	}

	code, reason := manager.ExitCode()
	if code != exitcode.Success {
		ui.PrintWarning(fmt.Sprintf("exit %d: %s", int(code), reason))
	}
	os.Exit(int(code))
}
