// Package scan launches an external cloud-security scanner against a
// set of projects with bounded concurrency, a hard per-scan timeout,
// and full failure isolation: one scan blowing up never takes down the
// batch, and callers always get exactly one result per target.
package scan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/duration"
)

// ErrScannerUnavailable is returned when the scanner binary cannot be
// executed at all, as opposed to executing and failing.
var ErrScannerUnavailable = errors.New("scan: scanner unavailable")

// ProgressFunc receives one line of scanner output as it streams.
// Panics inside the callback are recovered and logged; they never
// affect the scan itself.
type ProgressFunc func(target, line string)

// ResultFunc is called once per target as its scan completes, in
// completion order.
type ResultFunc func(Result)

// Options configures a Scanner. The zero value is usable; empty fields
// fall back to package defaults.
type Options struct {
	// ScannerPath is the scanner executable. A bare name is resolved
	// against ~/.local/bin first, then PATH.
	ScannerPath string

	// Provider is the cloud provider argument passed to the scanner.
	Provider string

	// OutputDir is where the scanner writes its reports. Created at
	// construction time.
	OutputDir string

	// OutputMode is the scanner report format argument.
	OutputMode string

	// Checks restricts the scan to the given check ids. Empty means
	// the scanner's full suite.
	Checks []string

	// Concurrency bounds the number of scanner processes running at
	// once.
	Concurrency int

	// Timeout is the wall-clock budget per target. On expiry the
	// scanner's whole process group is killed.
	Timeout time.Duration

	// SuccessExitCodes are scanner exit codes treated as a completed
	// scan. Scanners conventionally exit non-zero when findings exist.
	SuccessExitCodes []int

	OnProgress ProgressFunc
	OnResult   ResultFunc

	Logger *slog.Logger
}

// Result is the outcome of scanning one target. Exactly one Result is
// produced per requested target, success or not.
type Result struct {
	Target      string        `json:"target"`
	Success     bool          `json:"success"`
	ReportPath  string        `json:"report_path,omitempty"`
	Error       string        `json:"error,omitempty"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration,omitzero"`
}

// Stats tracks batch progress. Fields are updated atomically while a
// batch runs and may be read concurrently.
type Stats struct {
	Total      int64
	Completed  int64
	Successful int64
	Failed     int64
	StartTime  time.Time
}

// Scanner supervises scanner subprocesses. Safe for concurrent use.
type Scanner struct {
	Stats Stats

	opts   Options
	runID  string
	path   string
	logger *slog.Logger
	sem    chan struct{}
}

// New builds a Scanner and creates its output directory.
func New(opts Options) (*Scanner, error) {
	if opts.ScannerPath == "" {
		opts.ScannerPath = defaults.ScannerBinary
	}
	if opts.Provider == "" {
		opts.Provider = defaults.ScannerProvider
	}
	if opts.OutputDir == "" {
		opts.OutputDir = defaults.ScanOutputDir
	}
	if opts.OutputMode == "" {
		opts.OutputMode = defaults.ScanOutputMode
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.ConcurrencyScans
	}
	if opts.Timeout <= 0 {
		opts.Timeout = duration.ScanTimeout
	}
	if len(opts.SuccessExitCodes) == 0 {
		opts.SuccessExitCodes = defaults.ScannerSuccessExitCodes()
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &Scanner{
		opts:   opts,
		runID:  uuid.NewString(),
		path:   resolveScannerPath(opts.ScannerPath),
		logger: orDefault(opts.Logger),
		sem:    make(chan struct{}, opts.Concurrency),
	}, nil
}

// RunID identifies this scanner instance's batch in logs and events.
func (s *Scanner) RunID() string { return s.runID }

// OutputDir is where completed reports can be collected from.
func (s *Scanner) OutputDir() string { return s.opts.OutputDir }

// ScanAll scans every target and returns one Result per target, in
// input order. The context cancels scans that have not started and
// kills those in flight.
func (s *Scanner) ScanAll(ctx context.Context, targets []string) []Result {
	if len(targets) == 0 {
		return nil
	}

	s.Stats = Stats{Total: int64(len(targets)), StartTime: time.Now()}
	s.logger.Info("scan: batch start",
		slog.String("run_id", s.runID),
		slog.Int("targets", len(targets)),
		slog.Int("concurrency", s.opts.Concurrency))

	results := make([]Result, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			results[i] = s.ScanTarget(ctx, target)
		}(i, target)
	}
	wg.Wait()

	s.logger.Info("scan: batch done",
		slog.String("run_id", s.runID),
		slog.Int64("successful", atomic.LoadInt64(&s.Stats.Successful)),
		slog.Int64("failed", atomic.LoadInt64(&s.Stats.Failed)))
	return results
}

// ScanTarget scans a single target, blocking until a concurrency slot
// is free. It never returns an error: failures of any kind, including
// panics in the supervision path, are folded into the Result.
func (s *Scanner) ScanTarget(ctx context.Context, target string) (res Result) {
	res = Result{Target: target}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scan: supervisor panic",
				slog.String("target", target),
				slog.String("panic", fmt.Sprintf("%v", r)))
			res.Success = false
			res.Error = fmt.Sprintf("panic: %v", r)
		}
		if res.CompletedAt.IsZero() {
			res.CompletedAt = time.Now()
		}
		atomic.AddInt64(&s.Stats.Completed, 1)
		if res.Success {
			atomic.AddInt64(&s.Stats.Successful, 1)
		} else {
			atomic.AddInt64(&s.Stats.Failed, 1)
		}
		s.notifyResult(res)
	}()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		res.Error = "scan canceled before start"
		return res
	}

	start := time.Now()
	s.logger.Info("scan: start", slog.String("target", target))

	scanCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	err := s.runScanner(scanCtx, target)
	res.CompletedAt = time.Now()
	res.Duration = res.CompletedAt.Sub(start)

	switch {
	case err == nil:
		res.Success = true
		res.ReportPath = s.opts.OutputDir
		s.logger.Info("scan: done",
			slog.String("target", target),
			slog.Duration("took", res.Duration))
	case errors.Is(scanCtx.Err(), context.DeadlineExceeded):
		res.Error = "Timeout exceeded"
		s.logger.Error("scan: timeout",
			slog.String("target", target),
			slog.Duration("after", s.opts.Timeout))
	case errors.Is(scanCtx.Err(), context.Canceled):
		res.Error = "scan canceled"
		s.logger.Warn("scan: canceled", slog.String("target", target))
	default:
		res.Error = err.Error()
		s.logger.Error("scan: failed",
			slog.String("target", target),
			slog.String("error", res.Error))
	}
	return res
}

// runScanner starts one scanner process and waits for it. The process
// runs in its own group so a timeout kill reaches its workers too.
func (s *Scanner) runScanner(ctx context.Context, target string) error {
	cmd := exec.CommandContext(ctx, s.path, s.commandArgs(target)...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = duration.ScanKillGrace

	stderr := newTailBuffer(defaults.StderrTailLimit)
	cmd.Stderr = stderr

	var stdout io.ReadCloser
	if s.opts.OnProgress != nil {
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("spawn scanner: %w", err)
		}
		stdout = pipe
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn scanner: %w", err)
	}
	if stdout != nil {
		s.streamLines(target, stdout)
	}
	return s.classifyExit(cmd.Wait(), stderr)
}

// classifyExit maps process termination to the result contract: exit
// codes on the success list are a completed scan, anything else is a
// failure carrying the stderr tail.
func (s *Scanner) classifyExit(err error, stderr *tailBuffer) error {
	if err == nil {
		return nil
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		code := exit.ExitCode()
		for _, ok := range s.opts.SuccessExitCodes {
			if code == ok {
				return nil
			}
		}
		return &exitError{code: code, tail: strings.TrimSpace(stderr.String())}
	}
	return err
}

// streamLines forwards scanner stdout to the progress callback one
// line at a time, draining the pipe even when scanning stops early so
// the process never blocks on a full pipe.
func (s *Scanner) streamLines(target string, r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, defaults.BufferSmall), defaults.BufferLarge)
	for sc.Scan() {
		s.emitLine(target, sc.Text())
	}
	if err := sc.Err(); err != nil {
		s.logger.Debug("scan: output stream ended early",
			slog.String("target", target),
			slog.String("error", err.Error()))
		io.Copy(io.Discard, r)
	}
}

func (s *Scanner) emitLine(target, line string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("scan: progress callback panicked",
				slog.String("target", target),
				slog.String("panic", fmt.Sprintf("%v", r)))
		}
	}()
	s.opts.OnProgress(target, line)
}

func (s *Scanner) notifyResult(res Result) {
	if s.opts.OnResult == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("scan: result callback panicked",
				slog.String("target", res.Target),
				slog.String("panic", fmt.Sprintf("%v", r)))
		}
	}()
	s.opts.OnResult(res)
}

// ListChecks asks the scanner binary for its check inventory.
func (s *Scanner) ListChecks(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, s.path, s.opts.Provider, "--list-checks")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScannerUnavailable, err)
	}
	var checks []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			checks = append(checks, line)
		}
	}
	return checks, nil
}

// exitError reports a scanner exit outside the success set. Its text
// is part of the result contract consumed by report tooling.
type exitError struct {
	code int
	tail string
}

func (e *exitError) Error() string {
	return fmt.Sprintf("Exit %d: %s", e.code, e.tail)
}

// resolveScannerPath prefers an explicit path, then a user-local
// install, then plain PATH lookup.
func resolveScannerPath(name string) string {
	if strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	if home, err := os.UserHomeDir(); err == nil {
		local := filepath.Join(home, ".local", "bin", name)
		if _, err := os.Stat(local); err == nil {
			return local
		}
	}
	return name
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
