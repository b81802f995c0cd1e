package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can say "10m" or "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// File mirrors Config for YAML config files. Every field is optional;
// Apply copies only the keys the file actually set.
type File struct {
	Scan struct {
		Projects    []string  `yaml:"projects"`
		Provider    *string   `yaml:"provider"`
		OrgID       *string   `yaml:"org_id"`
		Scanner     *string   `yaml:"scanner"`
		ArtifactDir *string   `yaml:"artifact_dir"`
		OutputMode  *string   `yaml:"output_mode"`
		Checks      []string  `yaml:"checks"`
		Concurrency *int      `yaml:"concurrency"`
		Timeout     *Duration `yaml:"timeout"`
	} `yaml:"scan"`

	Audit struct {
		Root    *string `yaml:"root"`
		Rules   *string `yaml:"rules"`
		Workers *int    `yaml:"workers"`
	} `yaml:"audit"`

	Store struct {
		TTL        *Duration `yaml:"ttl"`
		ReportDir  *string   `yaml:"report_dir"`
		ChecksFile *string   `yaml:"checks_file"`
	} `yaml:"store"`

	Filters struct {
		Severities   []string `yaml:"severities"`
		Statuses     []string `yaml:"statuses"`
		Frameworks   []string `yaml:"frameworks"`
		Services     []string `yaml:"services"`
		Search       *string  `yaml:"search"`
		OnlyFailures *bool    `yaml:"only_failures"`
	} `yaml:"filters"`

	Remote struct {
		URL   *string `yaml:"url"`
		Token *string `yaml:"token"`
		Proxy *string `yaml:"proxy"`
	} `yaml:"remote"`

	Output struct {
		File     *string `yaml:"file"`
		Format   *string `yaml:"format"`
		Template *string `yaml:"template"`
		NoColor  *bool   `yaml:"no_color"`
	} `yaml:"output"`

	Hooks struct {
		MetricsAddr  *string `yaml:"metrics_addr"`
		OTelEndpoint *string `yaml:"otel_endpoint"`
	} `yaml:"hooks"`
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}
	return &f, nil
}

// ExplicitFlags reports which flags were passed on the command line,
// for layering config-file values under them.
func ExplicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return set
}

// Apply lays the file's values onto cfg. Fields whose flag (any alias)
// appears in setFlags keep their command-line value; flags always win.
// A nil setFlags applies everything the file set.
func (f *File) Apply(cfg *Config, setFlags map[string]bool) {
	set := func(names ...string) bool {
		for _, n := range names {
			if setFlags[n] {
				return true
			}
		}
		return false
	}

	// Scan
	if len(f.Scan.Projects) > 0 && !set("p", "project") {
		cfg.Projects = append([]string(nil), f.Scan.Projects...)
	}
	if f.Scan.Provider != nil && !set("provider") {
		cfg.Provider = *f.Scan.Provider
	}
	if f.Scan.OrgID != nil && !set("org") {
		cfg.OrgID = *f.Scan.OrgID
	}
	if f.Scan.Scanner != nil && !set("scanner") {
		cfg.ScannerPath = *f.Scan.Scanner
	}
	if f.Scan.ArtifactDir != nil && !set("artifacts") {
		cfg.ArtifactDir = *f.Scan.ArtifactDir
	}
	if f.Scan.OutputMode != nil && !set("output-mode") {
		cfg.OutputMode = *f.Scan.OutputMode
	}
	if len(f.Scan.Checks) > 0 && !set("check") {
		cfg.ScanChecks = append([]string(nil), f.Scan.Checks...)
	}
	if f.Scan.Concurrency != nil && !set("concurrency", "c") {
		cfg.Concurrency = *f.Scan.Concurrency
	}
	if f.Scan.Timeout != nil && !set("timeout") {
		cfg.ScanTimeout = time.Duration(*f.Scan.Timeout)
	}

	// Audit
	if f.Audit.Root != nil && !set("root") {
		cfg.AuditRoot = *f.Audit.Root
	}
	if f.Audit.Rules != nil && !set("rules") {
		cfg.RulesFile = *f.Audit.Rules
	}
	if f.Audit.Workers != nil && !set("workers") {
		cfg.AuditWorkers = *f.Audit.Workers
	}

	// Store
	if f.Store.TTL != nil && !set("ttl") {
		cfg.CacheTTL = time.Duration(*f.Store.TTL)
	}
	if f.Store.ReportDir != nil && !set("reports") {
		cfg.ReportDir = *f.Store.ReportDir
	}
	if f.Store.ChecksFile != nil && !set("checks-file") {
		cfg.ChecksFile = *f.Store.ChecksFile
	}

	// Filters
	if len(f.Filters.Severities) > 0 && !set("severity") {
		cfg.Severities = append([]string(nil), f.Filters.Severities...)
	}
	if len(f.Filters.Statuses) > 0 && !set("status") {
		cfg.Statuses = append([]string(nil), f.Filters.Statuses...)
	}
	if len(f.Filters.Frameworks) > 0 && !set("framework") {
		cfg.Frameworks = append([]string(nil), f.Filters.Frameworks...)
	}
	if len(f.Filters.Services) > 0 && !set("service") {
		cfg.Services = append([]string(nil), f.Filters.Services...)
	}
	if f.Filters.Search != nil && !set("search") {
		cfg.Search = *f.Filters.Search
	}
	if f.Filters.OnlyFailures != nil && !set("only-failures") {
		cfg.OnlyFailures = *f.Filters.OnlyFailures
	}

	// Remote
	if f.Remote.URL != nil && !set("remote-url") {
		cfg.RemoteURL = *f.Remote.URL
	}
	if f.Remote.Token != nil && !set("remote-token") {
		cfg.RemoteToken = *f.Remote.Token
	}
	if f.Remote.Proxy != nil && !set("proxy", "x") {
		cfg.Proxy = *f.Remote.Proxy
	}

	// Output
	if f.Output.File != nil && !set("output", "o") {
		cfg.OutputFile = *f.Output.File
	}
	if f.Output.Format != nil && !set("format") {
		cfg.Format = *f.Output.Format
	}
	if f.Output.Template != nil && !set("template") {
		cfg.TemplateFile = *f.Output.Template
	}
	if f.Output.NoColor != nil && !set("no-color", "nc") {
		cfg.NoColor = *f.Output.NoColor
	}

	// Hooks
	if f.Hooks.MetricsAddr != nil && !set("metrics") {
		cfg.MetricsAddr = *f.Hooks.MetricsAddr
	}
	if f.Hooks.OTelEndpoint != nil && !set("otel") {
		cfg.OTelEndpoint = *f.Hooks.OTelEndpoint
	}
}

// Load is the standard post-parse sequence: apply the config file named
// by -config (if any) under the explicitly set flags, then validate.
func (c *Config) Load(fs *flag.FlagSet) error {
	if c.ConfigFile != "" {
		f, err := LoadFile(c.ConfigFile)
		if err != nil {
			return err
		}
		f.Apply(c, ExplicitFlags(fs))
	}
	return c.Validate()
}
