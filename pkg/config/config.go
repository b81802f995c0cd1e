// Package config defines the configuration shared by the fleetscan
// subcommands: a flat option struct, per-section flag registration,
// YAML config-file layering, and validation.
//
// Precedence, lowest to highest: built-in defaults, config file,
// explicit command-line flags.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/duration"
	"github.com/fleetscan/fleetscan/pkg/input"
)

// Config holds every option the CLI accepts. Subcommands register only
// the sections they use; unregistered fields keep their defaults.
type Config struct {
	// Scan settings
	Projects     input.StringSliceFlag // project IDs - repeated or comma-separated
	ProjectsFile string                // file with one project ID per line
	StdinInput   bool                  // read project IDs from piped stdin
	Provider     string                // cloud provider argument passed to the scanner
	OrgID        string                // organization ID forwarded to remote scans
	ScannerPath  string                // scanner binary name or path
	ArtifactDir  string                // directory the scanner writes reports under
	OutputMode   string                // scanner report format argument
	ScanChecks   input.StringSliceFlag // restrict the scan to these check IDs
	Concurrency  int                   // scanner processes running at once
	ScanTimeout  time.Duration         // wall-clock budget per project

	// Audit settings
	AuditRoot    string // directory tree the audit sweeps
	RulesFile    string // YAML audit-rule overrides
	AuditWorkers int    // matching pool size (0 = GOMAXPROCS)

	// Store settings
	CacheTTL   time.Duration // how long an aggregated snapshot stays fresh
	ReportDir  string        // directory of scanner reports to ingest
	ChecksFile string        // YAML check-registry overrides

	// Filter settings
	Severities   input.StringSliceFlag
	Statuses     input.StringSliceFlag
	Frameworks   input.StringSliceFlag
	Services     input.StringSliceFlag
	Search       string
	OnlyFailures bool

	// Remote scan API settings
	RemoteURL   string // base URL of the hosted scan service (empty = local only)
	RemoteToken string // bearer token for the hosted scan service
	Proxy       string // HTTP/SOCKS5 proxy for remote calls

	// Output settings
	OutputFile   string // report destination (empty = stdout)
	Format       string // table, json, jsonl, csv, markdown, pdf, template
	TemplateFile string // template for -format template
	Verbose      bool
	Silent       bool
	NoColor      bool

	// Hook settings
	MetricsAddr  string // Prometheus exposition listen address (empty = off)
	OTelEndpoint string // OTLP gRPC collector endpoint (empty = off)

	ConfigFile string // YAML config file layered under explicit flags
}

// Default returns a Config carrying the canonical defaults. Flag
// registration and config files layer on top of it.
func Default() *Config {
	return &Config{
		Provider:    defaults.ScannerProvider,
		ScannerPath: defaults.ScannerBinary,
		ArtifactDir: defaults.ScanOutputDir,
		OutputMode:  defaults.ScanOutputMode,
		Concurrency: defaults.ConcurrencyScans,
		ScanTimeout: duration.ScanTimeout,
		AuditRoot:   ".",
		CacheTTL:    duration.CacheTTL,
		ReportDir:   defaults.ScanOutputDir,
		Format:      FormatTable,
	}
}

// Output formats accepted by -format.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatJSONL    = "jsonl"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
	FormatTemplate = "template"
)

var validFormats = map[string]bool{
	FormatTable:    true,
	FormatJSON:     true,
	FormatJSONL:    true,
	FormatCSV:      true,
	FormatMarkdown: true,
	FormatPDF:      true,
	FormatTemplate: true,
}

// RegisterCommonFlags binds the flags every subcommand shares.
func (c *Config) RegisterCommonFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", "", "YAML config file (flags override it)")
	fs.BoolVar(&c.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&c.Verbose, "v", false, "Verbose output (alias)")
	fs.BoolVar(&c.Silent, "silent", false, "Silent mode - errors only")
	fs.BoolVar(&c.Silent, "s", false, "Silent mode (alias)")
	fs.BoolVar(&c.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&c.NoColor, "nc", false, "No color (alias)")
}

// RegisterScanFlags binds the scan orchestration flags.
func (c *Config) RegisterScanFlags(fs *flag.FlagSet) {
	fs.Var(&c.Projects, "p", "Project ID(s) - comma-separated or repeated")
	fs.Var(&c.Projects, "project", "Project ID(s)")
	fs.StringVar(&c.ProjectsFile, "projects-file", "", "File containing project IDs")
	fs.BoolVar(&c.StdinInput, "stdin", false, "Read project IDs from stdin")
	fs.StringVar(&c.Provider, "provider", c.Provider, "Cloud provider passed to the scanner")
	fs.StringVar(&c.OrgID, "org", "", "Organization ID for remote scans")
	fs.StringVar(&c.ScannerPath, "scanner", c.ScannerPath, "Scanner binary name or path")
	fs.StringVar(&c.ArtifactDir, "artifacts", c.ArtifactDir, "Directory for scanner reports")
	fs.StringVar(&c.OutputMode, "output-mode", c.OutputMode, "Scanner report format argument")
	fs.Var(&c.ScanChecks, "check", "Restrict the scan to these check IDs")
	fs.IntVar(&c.Concurrency, "concurrency", c.Concurrency, "Concurrent scans")
	fs.IntVar(&c.Concurrency, "c", c.Concurrency, "Concurrent scans (alias)")
	fs.DurationVar(&c.ScanTimeout, "timeout", c.ScanTimeout, "Per-project scan timeout")
}

// RegisterAuditFlags binds the local static-audit flags.
func (c *Config) RegisterAuditFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.AuditRoot, "root", c.AuditRoot, "Directory tree to audit")
	fs.StringVar(&c.RulesFile, "rules", "", "YAML audit-rule overrides")
	fs.IntVar(&c.AuditWorkers, "workers", c.AuditWorkers, "Audit worker count (0 = auto)")
}

// RegisterStoreFlags binds the findings-store flags.
func (c *Config) RegisterStoreFlags(fs *flag.FlagSet) {
	fs.DurationVar(&c.CacheTTL, "ttl", c.CacheTTL, "Findings cache TTL")
	fs.StringVar(&c.ReportDir, "reports", c.ReportDir, "Directory of scanner reports to load")
	fs.StringVar(&c.ChecksFile, "checks-file", "", "YAML check-registry overrides")
}

// RegisterFilterFlags binds the finding-filter flags.
func (c *Config) RegisterFilterFlags(fs *flag.FlagSet) {
	fs.Var(&c.Severities, "severity", "Keep findings with these severities")
	fs.Var(&c.Statuses, "status", "Keep findings with these statuses")
	fs.Var(&c.Frameworks, "framework", "Keep findings for these frameworks")
	fs.Var(&c.Services, "service", "Keep findings for these services")
	fs.StringVar(&c.Search, "search", "", "Case-insensitive substring search")
	fs.BoolVar(&c.OnlyFailures, "only-failures", false, "Hide passing findings")
}

// RegisterRemoteFlags binds the hosted scan API flags.
func (c *Config) RegisterRemoteFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.RemoteURL, "remote-url", "", "Hosted scan service base URL")
	fs.StringVar(&c.RemoteToken, "remote-token", "", "Hosted scan service bearer token")
	fs.StringVar(&c.Proxy, "proxy", "", "HTTP/SOCKS5 proxy URL")
	fs.StringVar(&c.Proxy, "x", "", "Proxy (alias)")
}

// RegisterOutputFlags binds the report output flags.
func (c *Config) RegisterOutputFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.OutputFile, "output", "", "Output file path (empty = stdout)")
	fs.StringVar(&c.OutputFile, "o", "", "Output file (alias)")
	fs.StringVar(&c.Format, "format", c.Format, "Output format: table,json,jsonl,csv,markdown,pdf,template")
	fs.StringVar(&c.TemplateFile, "template", "", "Template file for -format template")
}

// RegisterHookFlags binds the observability hook flags.
func (c *Config) RegisterHookFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.MetricsAddr, "metrics", "", "Prometheus listen address (empty = off)")
	fs.StringVar(&c.OTelEndpoint, "otel", "", "OTLP gRPC collector endpoint (empty = off)")
}

// ProjectSource bundles the project-bearing flags for input resolution.
func (c *Config) ProjectSource() *input.ProjectSource {
	return &input.ProjectSource{
		IDs:      c.Projects,
		ListFile: c.ProjectsFile,
		Stdin:    c.StdinInput,
	}
}

// Validate canonicalizes the format field, then checks cross-field
// invariants. Call it after flags and the config file are applied.
func (c *Config) Validate() error {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "md" {
		c.Format = FormatMarkdown
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("%w: scan timeout must be positive, got %s", ErrInvalidConfig, c.ScanTimeout)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("%w: cache TTL must be positive, got %s", ErrInvalidConfig, c.CacheTTL)
	}
	if c.AuditWorkers < 0 {
		return fmt.Errorf("%w: audit workers cannot be negative, got %d", ErrInvalidConfig, c.AuditWorkers)
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("%w: unknown format %q (valid: table, json, jsonl, csv, markdown, pdf, template)", ErrInvalidConfig, c.Format)
	}
	if c.Format == FormatTemplate && c.TemplateFile == "" {
		return fmt.Errorf("%w: -format template requires -template", ErrInvalidConfig)
	}
	if c.Silent && c.Verbose {
		return fmt.Errorf("%w: -silent and -verbose are mutually exclusive", ErrInvalidConfig)
	}
	return nil
}
