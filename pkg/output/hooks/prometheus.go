package hooks

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/fleetscan/fleetscan/pkg/duration"
	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*PrometheusHook)(nil)

// PrometheusHook exposes scan metrics for Prometheus scraping.
// It starts an HTTP server that serves metrics at the configured path.
// Metrics include counters for scans and findings, gauges for the
// security score and per-framework compliance, and a histogram for
// scan duration.
type PrometheusHook struct {
	server   *http.Server
	registry *prometheus.Registry
	opts     PrometheusOptions

	// Counters
	scansTotal    *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec

	// Gauges
	securityScore     prometheus.Gauge
	compliancePercent *prometheus.GaugeVec

	// Histograms
	scanDurationSeconds *prometheus.HistogramVec

	mu     sync.Mutex
	closed bool
}

// PrometheusOptions configures the Prometheus hook behavior.
type PrometheusOptions struct {
	// Port for the metrics server (default: 9090).
	Port int

	// Path for the metrics endpoint (default: "/metrics").
	Path string

	// ReadTimeout for the HTTP server (default: 5s).
	ReadTimeout time.Duration

	// WriteTimeout for the HTTP server (default: 10s).
	WriteTimeout time.Duration
}

// NewPrometheusHook creates a new Prometheus hook that exposes metrics at the
// configured endpoint. The metrics server starts immediately and runs until
// Close() is called.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Port == 0 {
		opts.Port = 9090
	}
	if opts.Path == "" {
		opts.Path = "/metrics"
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = duration.HookShutdown
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = duration.HookTimeout
	}

	// Custom registry, don't pollute the default one.
	registry := prometheus.NewRegistry()

	hook := &PrometheusHook{
		registry: registry,
		opts:     opts,
	}

	if err := hook.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if err := hook.startServer(); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	return hook, nil
}

// initMetrics creates and registers all Prometheus metrics.
func (h *PrometheusHook) initMetrics() error {
	h.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetscan_scans_total",
			Help: "Total number of target scans by outcome",
		},
		[]string{"target", "outcome"},
	)

	h.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetscan_findings_total",
			Help: "Total number of findings by classification",
		},
		[]string{"service", "severity", "status"},
	)

	h.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetscan_errors_total",
			Help: "Total number of errors by pipeline stage",
		},
		[]string{"stage"},
	)

	h.securityScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetscan_security_score",
			Help: "Aggregated security score (0-100)",
		},
	)

	h.compliancePercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetscan_compliance_percent",
			Help: "Compliance percentage per framework",
		},
		[]string{"framework"},
	)

	h.scanDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetscan_scan_duration_seconds",
			Help:    "Per-target scan duration distribution in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"target"},
	)

	collectors := []prometheus.Collector{
		h.scansTotal,
		h.findingsTotal,
		h.errorsTotal,
		h.securityScore,
		h.compliancePercent,
		h.scanDurationSeconds,
	}

	for _, c := range collectors {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// startServer starts the HTTP server for metrics.
func (h *PrometheusHook) startServer() error {
	mux := http.NewServeMux()
	mux.Handle(h.opts.Path, promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.opts.Port),
		Handler:      mux,
		ReadTimeout:  h.opts.ReadTimeout,
		WriteTimeout: h.opts.WriteTimeout,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("prometheus: metrics server error: %v", err)
		}
	}()

	return nil
}

// OnEvent processes events and updates Prometheus metrics.
func (h *PrometheusHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.ResultEvent:
		outcome := "ok"
		if !e.Success {
			outcome = "failed"
		}
		h.scansTotal.WithLabelValues(e.Target, outcome).Inc()
		if e.DurationMs > 0 {
			h.scanDurationSeconds.WithLabelValues(e.Target).Observe(e.DurationMs / 1000.0)
		}
	case *events.FindingEvent:
		f := e.Finding
		h.findingsTotal.WithLabelValues(f.Service, string(f.Severity), string(f.Status)).Inc()
	case *events.ErrorEvent:
		h.errorsTotal.WithLabelValues(e.Stage).Inc()
	case *events.SummaryEvent:
		h.securityScore.Set(float64(e.Summary.SecurityScore))
		for _, cs := range e.Summary.Compliance {
			h.compliancePercent.WithLabelValues(cs.Framework.String()).Set(cs.Percentage)
		}
	}
	return nil
}

// EventTypes returns the event types this hook handles.
func (h *PrometheusHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeResult,
		events.EventTypeFinding,
		events.EventTypeError,
		events.EventTypeSummary,
	}
}

// Close shuts down the metrics server and releases resources.
func (h *PrometheusHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), duration.HookShutdown)
		defer cancel()
		return h.server.Shutdown(ctx)
	}

	return nil
}

// MetricsAddr returns the URL where metrics are served.
// Useful for testing and logging.
func (h *PrometheusHook) MetricsAddr() string {
	return fmt.Sprintf("http://localhost:%d%s", h.opts.Port, h.opts.Path)
}
