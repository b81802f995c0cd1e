package store

import (
	"context"
	"log/slog"

	"github.com/fleetscan/fleetscan/pkg/checks"
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/ingest"
)

// Compile-time interface checks.
var (
	_ Source = (*ReportSource)(nil)
	_ Source = (*FileSource)(nil)
	_ Source = (*StaticSource)(nil)
)

// ReportSource reads the OCSF reports a scan batch left in its output
// directory. A directory with no reports yields no findings; that is
// the normal state before the first scan.
type ReportSource struct {
	dir    string
	parser *ingest.Parser
}

// NewReportSource creates a source over dir.
func NewReportSource(dir string, logger *slog.Logger) *ReportSource {
	return &ReportSource{dir: dir, parser: ingest.NewParser(logger)}
}

// Name identifies the source in logs.
func (r *ReportSource) Name() string { return "scan-reports" }

// Findings parses every OCSF report under the directory.
func (r *ReportSource) Findings(ctx context.Context) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.parser.ParseOCSFDir(r.dir), nil
}

// FileSource normalizes explicitly named report files (JSON array,
// wrapped JSON, or CSV) through the alias-resolution pipeline. OCSF
// files are routed to the structural OCSF parser instead.
type FileSource struct {
	name       string
	sources    []ingest.Source
	parser     *ingest.Parser
	normalizer *ingest.Normalizer
}

// NewFileSource creates a source over the given paths. Formats are
// detected from file names.
func NewFileSource(name string, registry *checks.Registry, logger *slog.Logger, paths ...string) *FileSource {
	srcs := make([]ingest.Source, 0, len(paths))
	for _, p := range paths {
		srcs = append(srcs, ingest.Source{Format: ingest.DetectFormat(p), Path: p})
	}
	return &FileSource{
		name:       name,
		sources:    srcs,
		parser:     ingest.NewParser(logger),
		normalizer: ingest.NewNormalizer(registry),
	}
}

// Name identifies the source in logs.
func (f *FileSource) Name() string { return f.name }

// Findings parses and normalizes every registered file.
func (f *FileSource) Findings(ctx context.Context) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []finding.Finding
	var raw []ingest.Source
	for _, src := range f.sources {
		if src.Format == ingest.FormatOCSF {
			out = append(out, f.parser.ParseOCSFFile(src.Path)...)
			continue
		}
		raw = append(raw, src)
	}
	if len(raw) > 0 {
		out = append(out, f.normalizer.Normalize(f.parser.Parse(raw))...)
	}
	return out, nil
}

// StaticSource serves a fixed finding slice. Useful for tests and for
// feeding pre-normalized findings (e.g. remote API results) into the
// store.
type StaticSource struct {
	SourceName string
	Items      []finding.Finding
	Err        error
}

// Name identifies the source in logs.
func (s *StaticSource) Name() string {
	if s.SourceName == "" {
		return "static"
	}
	return s.SourceName
}

// Findings returns the fixed slice, or the configured error.
func (s *StaticSource) Findings(ctx context.Context) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Items, nil
}
