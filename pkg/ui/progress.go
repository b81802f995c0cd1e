package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fleetscan/fleetscan/pkg/duration"
)

// OutputMode determines how progress is displayed.
type OutputMode int

const (
	// OutputModeInteractive animates in place with ANSI escape codes.
	OutputModeInteractive OutputMode = iota
	// OutputModeStreaming emits plain line-by-line updates for CI logs.
	OutputModeStreaming
	// OutputModeSilent suppresses progress entirely.
	OutputModeSilent
)

// DefaultOutputMode returns Interactive when stderr is a terminal,
// Streaming otherwise. Use this instead of hardcoding Interactive so
// redirected output never receives ANSI escape codes.
func DefaultOutputMode() OutputMode {
	if StderrIsTerminal() {
		return OutputModeInteractive
	}
	return OutputModeStreaming
}

// Metric defines a named counter shown next to the progress bar.
type Metric struct {
	Name      string // tracking key
	Label     string // display label (e.g. "Failed", "Findings")
	Highlight bool   // render in red once the value is non-zero
}

// ProgressConfig configures a Progress display.
type ProgressConfig struct {
	// Total number of items (0 = indeterminate).
	Total int

	// Mode defaults to DefaultOutputMode().
	Mode OutputMode

	// Writer defaults to os.Stderr.
	Writer io.Writer

	// BarWidth defaults to 30.
	BarWidth int

	// Title shown next to the spinner (e.g. "Scanning projects").
	Title string

	// Unit names the items (e.g. "projects", "files").
	Unit string

	// Metrics to track and display.
	Metrics []Metric

	// StreamInterval is how often streaming mode emits a line
	// (default duration.StreamFast).
	StreamInterval time.Duration
}

// Progress is a live-updating display for long-running commands. All
// counter methods are safe for concurrent use.
type Progress struct {
	config    ProgressConfig
	startTime time.Time

	completed int64
	total     int64

	metricsMu sync.RWMutex
	metrics   map[string]*int64

	status atomic.Value

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup

	frameIdx int
}

// NewProgress creates a progress display.
func NewProgress(config ProgressConfig) *Progress {
	if config.Writer == nil {
		config.Writer = os.Stderr
	}
	if config.BarWidth == 0 {
		config.BarWidth = 30
	}
	if config.Unit == "" {
		config.Unit = "items"
	}
	if config.StreamInterval == 0 {
		config.StreamInterval = duration.StreamFast
	}

	p := &Progress{
		config:  config,
		total:   int64(config.Total),
		metrics: make(map[string]*int64),
		done:    make(chan struct{}),
	}
	for _, m := range config.Metrics {
		val := int64(0)
		p.metrics[m.Name] = &val
	}
	p.status.Store(config.Title)
	return p
}

// Start begins rendering. Safe to call once; extra calls are no-ops.
func (p *Progress) Start() {
	p.mu.Lock()
	if p.running || p.config.Mode == OutputModeSilent {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.startTime = time.Now()
	p.done = make(chan struct{})
	p.mu.Unlock()

	if p.config.Mode == OutputModeInteractive {
		// Reserve the two display lines the render loop repaints.
		fmt.Fprint(p.config.Writer, "\n\n")
	}

	p.wg.Add(1)
	go p.renderLoop()
}

// Stop halts rendering and clears the progress lines.
func (p *Progress) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()

	if p.config.Mode == OutputModeInteractive {
		fmt.Fprintf(p.config.Writer, "\033[2A\033[J")
	}
}

// Increment adds one completed item.
func (p *Progress) Increment() {
	atomic.AddInt64(&p.completed, 1)
}

// IncrementBy adds n completed items.
func (p *Progress) IncrementBy(n int) {
	atomic.AddInt64(&p.completed, int64(n))
}

// SetTotal updates the total for dynamic workloads.
func (p *Progress) SetTotal(n int) {
	atomic.StoreInt64(&p.total, int64(n))
}

// AddMetric increments a named metric by 1. Unknown names are ignored.
func (p *Progress) AddMetric(name string) {
	p.AddMetricBy(name, 1)
}

// AddMetricBy increments a named metric by n.
func (p *Progress) AddMetricBy(name string, n int64) {
	p.metricsMu.RLock()
	if ptr, ok := p.metrics[name]; ok {
		atomic.AddInt64(ptr, n)
	}
	p.metricsMu.RUnlock()
}

// SetMetric sets a named metric.
func (p *Progress) SetMetric(name string, value int64) {
	p.metricsMu.RLock()
	if ptr, ok := p.metrics[name]; ok {
		atomic.StoreInt64(ptr, value)
	}
	p.metricsMu.RUnlock()
}

// GetMetric returns the current value of a named metric.
func (p *Progress) GetMetric(name string) int64 {
	p.metricsMu.RLock()
	defer p.metricsMu.RUnlock()
	if ptr, ok := p.metrics[name]; ok {
		return atomic.LoadInt64(ptr)
	}
	return 0
}

// SetStatus updates the status text next to the spinner.
func (p *Progress) SetStatus(status string) {
	p.status.Store(status)
}

// Completed returns the completed count.
func (p *Progress) Completed() int64 {
	return atomic.LoadInt64(&p.completed)
}

// Total returns the current total.
func (p *Progress) Total() int64 {
	return atomic.LoadInt64(&p.total)
}

// Elapsed returns the time since Start.
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.startTime)
}

func (p *Progress) renderLoop() {
	defer p.wg.Done()

	spinner := DefaultSpinner()
	interval := spinner.Interval
	if p.config.Mode == OutputModeStreaming {
		interval = p.config.StreamInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			switch p.config.Mode {
			case OutputModeInteractive:
				p.renderInteractive(spinner)
			case OutputModeStreaming:
				p.renderStreaming()
			}
		}
	}
}

func (p *Progress) renderInteractive(spinner Spinner) {
	completed := atomic.LoadInt64(&p.completed)
	total := atomic.LoadInt64(&p.total)
	elapsed := time.Since(p.startTime)
	status, _ := p.status.Load().(string)

	percent := float64(0)
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}

	rate := float64(0)
	if elapsed.Seconds() > 0 {
		rate = float64(completed) / elapsed.Seconds()
	}

	eta := "..."
	switch {
	case total > 0 && completed >= total:
		eta = "done"
	case rate > 0 && total > 0:
		remaining := time.Duration(float64(total-completed)/rate) * time.Second
		eta = formatElapsedCompact(remaining)
	}

	frame := spinner.Frames[p.frameIdx%len(spinner.Frames)]
	p.frameIdx++

	fmt.Fprintf(p.config.Writer, "\033[2A\033[J")

	if total > 0 {
		fmt.Fprintf(p.config.Writer, "  %s %s %s %.1f%% (%d/%d %s)\n",
			frame, status, p.buildBar(percent), percent, completed, total, p.config.Unit)
	} else {
		fmt.Fprintf(p.config.Writer, "  %s %s... (%d %s)\n",
			frame, status, completed, p.config.Unit)
	}

	line2 := fmt.Sprintf("  %s  %.1f %s/s  %s elapsed  ETA %s",
		p.buildMetrics(), rate, p.config.Unit, formatElapsedCompact(elapsed), eta)
	fmt.Fprintln(p.config.Writer, line2)
}

// renderStreaming emits one plain line per interval. No ANSI codes:
// this is the mode CI logs and redirected stderr see.
func (p *Progress) renderStreaming() {
	completed := atomic.LoadInt64(&p.completed)
	total := atomic.LoadInt64(&p.total)
	elapsed := time.Since(p.startTime)

	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", formatElapsedCompact(elapsed)))
	if total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d %s (%.1f%%)",
			completed, total, p.config.Unit, float64(completed)/float64(total)*100))
	} else {
		parts = append(parts, fmt.Sprintf("%d %s", completed, p.config.Unit))
	}
	for _, m := range p.config.Metrics {
		if val := p.GetMetric(m.Name); val > 0 || m.Highlight {
			parts = append(parts, fmt.Sprintf("%s=%d", m.Label, val))
		}
	}

	fmt.Fprintln(p.config.Writer, strings.Join(parts, " "))
}

func (p *Progress) buildBar(percent float64) string {
	width := p.config.BarWidth
	fillWidth := int(float64(width) * percent / 100)
	if fillWidth > width {
		fillWidth = width
	}

	fill := Icon("█", "#")
	empty := Icon("░", "-")
	return fmt.Sprintf("[%s%s]",
		strings.Repeat(fill, fillWidth),
		strings.Repeat(empty, width-fillWidth))
}

func (p *Progress) buildMetrics() string {
	if len(p.config.Metrics) == 0 {
		return ""
	}

	var parts []string
	for _, m := range p.config.Metrics {
		val := p.GetMetric(m.Name)
		text := fmt.Sprintf("%s: %d", m.Label, val)
		if m.Highlight && val > 0 {
			text = FailStyle.Render(text)
		} else {
			text = StatLabelStyle.Render(text)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "  ")
}

func formatElapsedCompact(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", mins, secs)
}

// NewScanProgress creates the progress display for fleet scans.
func NewScanProgress(projectCount int) *Progress {
	return NewProgress(ProgressConfig{
		Total: projectCount,
		Mode:  DefaultOutputMode(),
		Title: "Scanning projects",
		Unit:  "projects",
		Metrics: []Metric{
			{Name: "ok", Label: "OK"},
			{Name: "failed", Label: "Failed", Highlight: true},
		},
	})
}

// NewAuditProgress creates the progress display for local audits.
func NewAuditProgress(fileCount int) *Progress {
	return NewProgress(ProgressConfig{
		Total: fileCount,
		Mode:  DefaultOutputMode(),
		Title: "Auditing files",
		Unit:  "files",
		Metrics: []Metric{
			{Name: "findings", Label: "Findings", Highlight: true},
		},
	})
}
