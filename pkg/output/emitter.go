// Package output assembles the export pipeline for one command
// invocation: it opens the destination, builds the writer the operator
// asked for, attaches the logging and telemetry hooks, and hands back
// an emitter that owns the lifetime of all of them.
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
	"github.com/fleetscan/fleetscan/pkg/output/hooks"
	"github.com/fleetscan/fleetscan/pkg/output/writers"
)

// Config selects the writer and hooks for an emitter, mapped straight
// from CLI flags.
type Config struct {
	// OutputPath is the export destination. Empty writes to stdout.
	OutputPath string

	// Format selects the writer: json, jsonl, csv, markdown, pdf, or
	// template. Empty or "table" registers no writer; table rendering
	// stays in the CLI layer.
	Format string

	// TemplateFile is the template path for the template format.
	TemplateFile string

	// OmitEvidence blanks evidence fields on exported findings.
	OmitEvidence bool

	// OnlyFailures narrows streaming output to failed findings.
	OnlyFailures bool

	// Verbose forwards per-event detail to the logger hook.
	Verbose bool

	// Logger receives event logs and dispatch diagnostics.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// MetricsAddr enables the Prometheus hook, "[host]:port".
	MetricsAddr string

	// OTelEndpoint enables the OTLP trace hook, "host:port".
	OTelEndpoint string

	// OTelInsecure disables TLS on the OTLP connection.
	OTelInsecure bool
}

// Emitter is a configured dispatcher plus every file handle and hook
// opened for it. Close releases all of them in dependency order.
type Emitter struct {
	d       *dispatcher.Dispatcher
	files   []*os.File
	closers []io.Closer
}

// NewEmitter builds the dispatcher for cfg. On error, everything
// opened so far is released; on success the caller must Close.
func NewEmitter(cfg Config) (*Emitter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Emitter{
		d: dispatcher.New(dispatcher.Config{
			Async:  true, // a slow hook must never stall the scan loop
			Logger: logger,
		}),
	}

	w, err := e.buildWriter(cfg)
	if err != nil {
		e.release()
		return nil, err
	}
	if w != nil {
		e.d.RegisterWriter(w)
	}

	e.d.RegisterHook(hooks.NewLoggerHook(logger, cfg.Verbose))

	if cfg.MetricsAddr != "" {
		port, err := metricsPort(cfg.MetricsAddr)
		if err != nil {
			e.release()
			return nil, err
		}
		hook, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{Port: port})
		if err != nil {
			e.release()
			return nil, fmt.Errorf("failed to start metrics hook: %w", err)
		}
		e.d.RegisterHook(hook)
		e.closers = append(e.closers, hook)
		logger.Info("metrics exposed", slog.String("addr", hook.MetricsAddr()))
	}

	if cfg.OTelEndpoint != "" {
		hook, err := hooks.NewOTelHook(hooks.OTelOptions{
			Endpoint: cfg.OTelEndpoint,
			Insecure: cfg.OTelInsecure,
		})
		if err != nil {
			e.release()
			return nil, fmt.Errorf("failed to start otel hook: %w", err)
		}
		e.d.RegisterHook(hook)
		e.closers = append(e.closers, hook)
	}

	return e, nil
}

// RegisterHook attaches an extra hook to the event stream, e.g. the
// exit-code manager. The caller keeps ownership of the hook's shutdown.
func (e *Emitter) RegisterHook(h dispatcher.Hook) {
	e.d.RegisterHook(h)
}

// Dispatch forwards an event to every registered writer and hook.
func (e *Emitter) Dispatch(ctx context.Context, event events.Event) error {
	return e.d.Dispatch(ctx, event)
}

// Flush flushes all registered writers.
func (e *Emitter) Flush() error {
	return e.d.Flush()
}

// Close drains outstanding hook deliveries, closes the writers, shuts
// down the hooks, then closes the files the emitter opened. The first
// error wins; later stages still run.
func (e *Emitter) Close() error {
	err := e.d.Close()
	if rerr := e.release(); err == nil {
		err = rerr
	}
	return err
}

// release closes hooks and opened files, first error wins. Safe to
// call twice: both slices are cleared as they are drained. A writer
// that owns its file handle closes it during dispatcher.Close, so an
// already-closed file is not an error here.
func (e *Emitter) release() error {
	var first error
	for _, c := range e.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	for _, f := range e.files {
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) && first == nil {
			first = err
		}
	}
	e.files = nil
	return first
}

// buildWriter constructs the writer for cfg.Format, opening the
// destination file when one is named. A nil writer with nil error
// means the format needs no writer.
func (e *Emitter) buildWriter(cfg Config) (dispatcher.Writer, error) {
	switch cfg.Format {
	case "", "table":
		return nil, nil
	}

	out, err := e.openOutput(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	switch cfg.Format {
	case "json":
		return writers.NewJSONWriter(out, writers.JSONOptions{
			OmitEvidence: cfg.OmitEvidence,
			Pretty:       true,
		}), nil
	case "jsonl":
		return writers.NewJSONLWriter(out, writers.JSONLOptions{
			OmitEvidence: cfg.OmitEvidence,
			OnlyFailures: cfg.OnlyFailures,
		}), nil
	case "csv":
		return writers.NewCSVWriter(out, writers.CSVOptions{
			IncludeHeader:    true,
			SanitizeFormulas: true,
		}), nil
	case "markdown":
		return writers.NewMarkdownWriter(out, writers.MarkdownConfig{
			IncludeTOC:      true,
			IncludeEvidence: !cfg.OmitEvidence,
		}), nil
	case "pdf":
		return writers.NewPDFWriter(out, writers.PDFConfig{
			IncludeTOC:      true,
			IncludeEvidence: !cfg.OmitEvidence,
		}), nil
	case "template":
		w, err := writers.NewTemplateWriter(out, writers.TemplateConfig{
			TemplatePath: cfg.TemplateFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load template %s: %w", cfg.TemplateFile, err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Format)
	}
}

// openOutput opens path for writing, or returns stdout when path is
// empty. Only created files are tracked for closing.
func (e *Emitter) openOutput(path string) (io.Writer, error) {
	if path == "" {
		return os.Stdout, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	e.files = append(e.files, f)
	return f, nil
}

// metricsPort extracts the port from a "[host]:port" metrics address.
func metricsPort(addr string) (int, error) {
	s := strings.TrimSpace(addr)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid metrics address %q: want [host]:port", addr)
	}
	return port, nil
}
