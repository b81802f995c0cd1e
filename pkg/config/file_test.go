package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
scan:
  projects: [prod-billing, staging-web]
  provider: aws
  concurrency: 5
  timeout: 2m
audit:
  root: /srv/repos
  workers: 8
store:
  ttl: 15m
remote:
  url: https://scan.internal.example
  token: sekret
output:
  format: json
  no_color: true
hooks:
  metrics_addr: ":9090"
`)

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := Default()
	f.Apply(cfg, nil)

	if len(cfg.Projects) != 2 || cfg.Projects[0] != "prod-billing" {
		t.Errorf("Projects = %v", cfg.Projects)
	}
	if cfg.Provider != "aws" {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.Concurrency != 5 {
		t.Errorf("Concurrency = %d", cfg.Concurrency)
	}
	if cfg.ScanTimeout != 2*time.Minute {
		t.Errorf("ScanTimeout = %s", cfg.ScanTimeout)
	}
	if cfg.AuditRoot != "/srv/repos" || cfg.AuditWorkers != 8 {
		t.Errorf("AuditRoot = %q, AuditWorkers = %d", cfg.AuditRoot, cfg.AuditWorkers)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Errorf("CacheTTL = %s", cfg.CacheTTL)
	}
	if cfg.RemoteURL != "https://scan.internal.example" || cfg.RemoteToken != "sekret" {
		t.Errorf("RemoteURL = %q, RemoteToken = %q", cfg.RemoteURL, cfg.RemoteToken)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q", cfg.Format)
	}
	if !cfg.NoColor {
		t.Error("NoColor not applied")
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFile_BadYAML(t *testing.T) {
	path := writeConfig(t, "scan: [unclosed")

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected error for bad YAML")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error %v does not wrap ErrInvalidConfig", err)
	}
}

func TestLoadFile_BadDuration(t *testing.T) {
	path := writeConfig(t, "scan:\n  timeout: fortnight\n")

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestApply_UnsetKeysKeepDefaults(t *testing.T) {
	path := writeConfig(t, "scan:\n  provider: aws\n")

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := Default()
	f.Apply(cfg, nil)

	if cfg.Provider != "aws" {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.Concurrency != Default().Concurrency {
		t.Errorf("Concurrency = %d, want default", cfg.Concurrency)
	}
	if cfg.ScannerPath != Default().ScannerPath {
		t.Errorf("ScannerPath = %q, want default", cfg.ScannerPath)
	}
}

func TestApply_ExplicitFlagsWin(t *testing.T) {
	path := writeConfig(t, `
scan:
  projects: [from-file]
  concurrency: 2
output:
  format: csv
`)

	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterScanFlags(fs)
	cfg.RegisterOutputFlags(fs)
	if err := fs.Parse([]string{"-p", "from-flag", "-c", "9"}); err != nil {
		t.Fatalf("parse error: %v", err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Apply(cfg, ExplicitFlags(fs))

	if len(cfg.Projects) != 1 || cfg.Projects[0] != "from-flag" {
		t.Errorf("Projects = %v, want [from-flag]", cfg.Projects)
	}
	if cfg.Concurrency != 9 {
		t.Errorf("Concurrency = %d, want 9", cfg.Concurrency)
	}
	// format was not passed as a flag, so the file wins.
	if cfg.Format != "csv" {
		t.Errorf("Format = %q, want csv", cfg.Format)
	}
}

func TestLoad_FullSequence(t *testing.T) {
	path := writeConfig(t, "scan:\n  concurrency: 4\n")

	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterCommonFlags(fs)
	cfg.RegisterScanFlags(fs)
	if err := fs.Parse([]string{"-config", path}); err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if err := cfg.Load(fs); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
}

func TestLoad_InvalidAfterMerge(t *testing.T) {
	path := writeConfig(t, "scan:\n  concurrency: 0\n")

	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterCommonFlags(fs)
	cfg.RegisterScanFlags(fs)
	if err := fs.Parse([]string{"-config", path}); err != nil {
		t.Fatalf("parse error: %v", err)
	}

	err := cfg.Load(fs)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error %v does not wrap ErrInvalidConfig", err)
	}
}

func TestLoad_NoConfigFileJustValidates(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterCommonFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if err := cfg.Load(fs); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
