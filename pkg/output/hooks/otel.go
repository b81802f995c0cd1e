package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/duration"
	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*OTelHook)(nil)

// OTelHook exports scan telemetry to an OpenTelemetry collector.
// A batch run becomes a single root span; per-target results, failed
// findings, and pipeline errors are recorded as span events, and the
// final summary lands as span attributes.
type OTelHook struct {
	opts           OTelOptions
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	// Active span tracking
	mu       sync.Mutex
	rootSpan trace.Span
	rootCtx  context.Context
	closed   bool

	// Batch metadata for attributes
	runID     string
	provider  string
	startTime time.Time
}

// OTelOptions configures the OpenTelemetry hook behavior.
type OTelOptions struct {
	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: "fleetscan").
	ServiceName string

	// Insecure uses insecure connection (no TLS).
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ShutdownTimeout is the timeout for graceful shutdown (default: 5s).
	ShutdownTimeout time.Duration

	// ConnectionTimeout is the timeout for establishing connection (default: 10s).
	ConnectionTimeout time.Duration
}

// NewOTelHook creates a new OpenTelemetry hook that exports telemetry to the configured endpoint.
// The exporter connects immediately but handles connection failures gracefully without blocking scans.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	// Apply defaults
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.Endpoint == "" {
		opts.Endpoint = "localhost:4317"
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = duration.HookShutdown
	}
	if opts.ConnectionTimeout == 0 {
		opts.ConnectionTimeout = duration.HookTimeout
	}

	// Build gRPC options
	grpcOpts := []grpc.DialOption{}
	if opts.Insecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	// Build exporter options
	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
		otlptracegrpc.WithDialOption(grpcOpts...),
	}

	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}

	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	// Create exporter with context timeout for connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}

	// Create resource with service info (avoid merging with Default to prevent schema conflicts)
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "scanner"),
	)

	// Create tracer provider with batch processor for efficiency
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	// Set as global provider
	otel.SetTracerProvider(tracerProvider)

	hook := &OTelHook{
		opts:           opts,
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer("fleetscan/scanner"),
		startTime:      time.Now(),
	}

	return hook, nil
}

// OnEvent processes events and exports telemetry to the OpenTelemetry collector.
func (h *OTelHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.StartEvent:
		return h.handleStart(ctx, e)
	case *events.ProgressEvent:
		return h.handleProgress(e)
	case *events.ResultEvent:
		return h.handleResult(e)
	case *events.FindingEvent:
		return h.handleFinding(e)
	case *events.ErrorEvent:
		return h.handleError(e)
	case *events.SummaryEvent:
		return h.handleSummary(e)
	case *events.CompleteEvent:
		return h.handleComplete(e)
	default:
		return nil
	}
}

// handleStart creates the root span for the scan batch.
func (h *OTelHook) handleStart(ctx context.Context, start *events.StartEvent) error {
	h.runID = start.RunID()
	h.provider = start.Provider
	h.startTime = start.Timestamp()

	// Create root span for the entire batch
	spanCtx, span := h.tracer.Start(ctx, "fleetscan.batch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run_id", h.runID),
			attribute.String("provider", h.provider),
			attribute.StringSlice("targets", start.Targets),
			attribute.Int("target_count", len(start.Targets)),
			attribute.Int("concurrency", start.Config.Concurrency),
			attribute.Int("timeout_sec", start.Config.TimeoutSec),
		),
	)

	h.rootSpan = span
	h.rootCtx = spanCtx

	// Add span event for batch start
	span.AddEvent("batch_started", trace.WithAttributes(
		attribute.String("provider", h.provider),
		attribute.Int("target_count", len(start.Targets)),
	))

	return nil
}

// handleProgress adds span events for per-target progress updates.
func (h *OTelHook) handleProgress(progress *events.ProgressEvent) error {
	if h.rootSpan == nil {
		return nil
	}

	h.rootSpan.AddEvent("progress_update", trace.WithAttributes(
		attribute.String("target", progress.Target),
		attribute.Int("completed", progress.Counts.Completed),
		attribute.Int("total", progress.Counts.Total),
		attribute.Int("successful", progress.Counts.Successful),
		attribute.Int("failed", progress.Counts.Failed),
		attribute.Float64("percentage", progress.Counts.Percentage),
	))

	return nil
}

// handleResult records per-target scan outcomes as span events.
func (h *OTelHook) handleResult(result *events.ResultEvent) error {
	if h.rootSpan == nil {
		return nil
	}

	eventName := "scan_completed"
	if !result.Success {
		eventName = "scan_failed"
	}

	attrs := []attribute.KeyValue{
		attribute.String("run_id", h.runID),
		attribute.String("target", result.Target),
		attribute.Bool("success", result.Success),
		attribute.Float64("duration_ms", result.DurationMs),
	}
	if result.ReportPath != "" {
		attrs = append(attrs, attribute.String("report_path", result.ReportPath))
	}
	if result.Error != "" {
		attrs = append(attrs, attribute.String("error", result.Error))
	}

	h.rootSpan.AddEvent(eventName, trace.WithAttributes(attrs...))

	// Mark span with error status for failed targets
	if !result.Success {
		h.rootSpan.SetStatus(codes.Error, "target scan failed")
	}

	return nil
}

// handleFinding records failed findings as span events. Passing checks
// are omitted to keep span payloads bounded on large fleets.
func (h *OTelHook) handleFinding(fe *events.FindingEvent) error {
	if h.rootSpan == nil {
		return nil
	}

	f := fe.Finding
	if !f.IsFailed() {
		return nil
	}

	h.rootSpan.AddEvent("finding_detected", trace.WithAttributes(
		attribute.String("run_id", h.runID),
		attribute.String("check_id", f.CheckID),
		attribute.String("severity", string(f.Severity)),
		attribute.String("status", string(f.Status)),
		attribute.String("project_id", f.ProjectID),
		attribute.String("service", f.Service),
	))

	return nil
}

// handleError records pipeline errors as span events.
func (h *OTelHook) handleError(errEvent *events.ErrorEvent) error {
	if h.rootSpan == nil {
		return nil
	}

	h.rootSpan.AddEvent("pipeline_error", trace.WithAttributes(
		attribute.String("target", errEvent.Target),
		attribute.String("stage", errEvent.Stage),
		attribute.String("message", errEvent.Message),
		attribute.Bool("fatal", errEvent.Fatal),
	))

	if errEvent.Fatal {
		h.rootSpan.SetStatus(codes.Error, errEvent.Message)
	}

	return nil
}

// handleSummary adds posture attributes to the root span.
func (h *OTelHook) handleSummary(summary *events.SummaryEvent) error {
	if h.rootSpan == nil {
		return nil
	}

	s := summary.Summary

	// Add comprehensive summary attributes to root span
	h.rootSpan.SetAttributes(
		attribute.Int("security_score", s.SecurityScore),
		attribute.String("risk_level", string(s.RiskLevel)),
		attribute.Int("findings.total", s.Stats.Total),
		attribute.Int("findings.passed", s.Stats.Passed),
		attribute.Int("findings.failed", s.Stats.Failed),
		attribute.Int("targets.scanned", s.TargetsScanned),
		attribute.Int("targets.failed", s.TargetsFailed),
		attribute.Float64("duration_sec", s.DurationSec),
	)

	// Add summary event
	h.rootSpan.AddEvent("security_summary", trace.WithAttributes(
		attribute.Int("security_score", s.SecurityScore),
		attribute.String("risk_level", string(s.RiskLevel)),
		attribute.Int("findings_failed", s.Stats.Failed),
		attribute.Float64("duration_sec", s.DurationSec),
	))

	// Set final span status based on results
	if s.TargetsFailed > 0 {
		h.rootSpan.SetStatus(codes.Error, "batch completed with scan failures")
	} else {
		h.rootSpan.SetStatus(codes.Ok, "batch completed successfully")
	}

	return nil
}

// handleComplete finalizes the batch span.
func (h *OTelHook) handleComplete(complete *events.CompleteEvent) error {
	if h.rootSpan == nil {
		return nil
	}

	// Add completion event
	h.rootSpan.AddEvent("batch_completed", trace.WithAttributes(
		attribute.Bool("success", complete.Success),
		attribute.Int("targets", complete.Targets),
		attribute.Int("successful", complete.Successful),
		attribute.Int("failed", complete.Failed),
		attribute.Int("findings", complete.Findings),
		attribute.Float64("duration_sec", complete.DurationSec),
	))

	// Set final status based on success
	if complete.Success {
		h.rootSpan.SetStatus(codes.Ok, "Completed successfully")
	} else {
		h.rootSpan.SetStatus(codes.Error, fmt.Sprintf("%d of %d targets failed", complete.Failed, complete.Targets))
	}

	// End the root span
	h.rootSpan.End()
	h.rootSpan = nil

	return nil
}

// EventTypes returns the event types this hook handles.
func (h *OTelHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypeProgress,
		events.EventTypeResult,
		events.EventTypeFinding,
		events.EventTypeError,
		events.EventTypeSummary,
		events.EventTypeComplete,
	}
}

// Close shuts down the tracer provider and flushes any pending telemetry.
func (h *OTelHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	// End any active span
	if h.rootSpan != nil {
		h.rootSpan.End()
		h.rootSpan = nil
	}

	// Shutdown tracer provider with timeout
	if h.tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
		defer cancel()

		if err := h.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("otel: shutdown tracer provider: %w", err)
		}
	}

	return nil
}

// Endpoint returns the OTLP endpoint being used.
// Useful for testing and logging.
func (h *OTelHook) Endpoint() string {
	return h.opts.Endpoint
}

// ServiceName returns the service name being used.
func (h *OTelHook) ServiceName() string {
	return h.opts.ServiceName
}
