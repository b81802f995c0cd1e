package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/fleetscan/fleetscan/pkg/config"
	"github.com/fleetscan/fleetscan/pkg/mcpserver"
	"github.com/fleetscan/fleetscan/pkg/output/exitcode"
)

// runMCP serves the engine over MCP stdio. Stdout carries the
// protocol, so nothing else may write to it; logs go to stderr.
func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfg := config.Default()
	cfg.RegisterCommonFlags(fs)
	cfg.RegisterScanFlags(fs)
	cfg.RegisterAuditFlags(fs)
	cfg.RegisterStoreFlags(fs)
	fs.Parse(os.Args[2:])

	if err := cfg.Load(fs); err != nil {
		fatalConfig(err)
	}
	cfg.Silent = true // keep stdout clean for the protocol
	logger := setupLogging(cfg)

	srv, err := mcpserver.New(&mcpserver.Config{
		ScannerPath: cfg.ScannerPath,
		Provider:    cfg.Provider,
		ArtifactDir: cfg.ArtifactDir,
		AuditRoot:   cfg.AuditRoot,
		RulesFile:   cfg.RulesFile,
		ChecksFile:  cfg.ChecksFile,
		CacheTTL:    cfg.CacheTTL,
		Logger:      logger,
	})
	if err != nil {
		fatalConfig(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := srv.RunStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "mcp server: %v\n", err)
		os.Exit(int(exitcode.ScanErrors))
	}
}
