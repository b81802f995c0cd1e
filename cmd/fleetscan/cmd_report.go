package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fleetscan/fleetscan/pkg/audit"
	"github.com/fleetscan/fleetscan/pkg/config"
	"github.com/fleetscan/fleetscan/pkg/input"
	"github.com/fleetscan/fleetscan/pkg/output/exitcode"
	"github.com/fleetscan/fleetscan/pkg/store"
	"github.com/fleetscan/fleetscan/pkg/ui"
	"github.com/google/uuid"
)

func runReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	cfg := config.Default()
	cfg.RegisterCommonFlags(fs)
	cfg.RegisterStoreFlags(fs)
	cfg.RegisterFilterFlags(fs)
	cfg.RegisterOutputFlags(fs)
	cfg.RegisterHookFlags(fs)
	var files input.StringSliceFlag
	fs.Var(&files, "file", "Additional report file(s) to ingest (JSON or CSV)")
	auditRoot := fs.String("audit-root", "", "Also sweep this tree with the local audit")
	fs.Parse(os.Args[2:])

	if err := cfg.Load(fs); err != nil {
		fatalConfig(err)
	}
	logger := setupLogging(cfg)

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

	ctx, cancel := signalContext()
	defer cancel()

	st := store.New(store.Options{TTL: cfg.CacheTTL, Registry: registry, Logger: logger})
	st.AddSource(store.NewReportSource(cfg.ReportDir, logger))
	if len(files) > 0 {
		st.AddSource(store.NewFileSource("report-files", registry, logger, files...))
	}
	if *auditRoot != "" {
		st.AddSource(auditSource(*auditRoot, cfg, logger))
	}

	started := time.Now()
	data, err := st.Load(ctx, true)
	if err != nil {
		ui.PrintError(fmt.Sprintf("aggregation failed: %v", err))
		em.Close()
		os.Exit(int(exitcode.ScanErrors))
	}

	emitSnapshot(ctx, em, uuid.NewString(), data, filters)

	if cfg.Format == config.FormatTable {
		renderTable(data, filters, time.Since(started))
	}

	if cerr := em.Close(); cerr != nil {
		logger.Warn("output pipeline close", slog.String("error", cerr.Error()))
	}
}

// auditSource wraps a local audit as a findings source, so report can
// blend a source-tree sweep into the aggregate.
func auditSource(root string, cfg *config.Config, logger *slog.Logger) store.Source {
	return audit.New(audit.Options{
		Root:    root,
		Workers: cfg.AuditWorkers,
		Logger:  logger,
	})
}
