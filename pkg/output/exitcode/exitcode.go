// Package exitcode maps scan outcomes to semantic exit codes so CI
// pipelines can branch on what happened without parsing output.
//
// Exit codes:
//   - 0: Success (no failed findings)
//   - 1: Failed findings detected (configurable)
//   - 2: Scan errors (projects could not be scanned)
//   - 3: Invalid configuration
//   - 4: Scanner unavailable (binary missing or remote API down)
//   - 5: Interrupted
package exitcode

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleetscan/fleetscan/pkg/output/dispatcher"
	"github.com/fleetscan/fleetscan/pkg/output/events"
)

// Code is a semantic exit code for CI/CD pipelines.
type Code int

const (
	// Success indicates every project scanned and no finding failed.
	Success Code = 0
	// FailedFindings indicates one or more checks failed.
	FailedFindings Code = 1
	// ScanErrors indicates projects that could not be scanned.
	ScanErrors Code = 2
	// Configuration indicates invalid configuration was provided.
	Configuration Code = 3
	// ScannerUnavailable indicates neither the local scanner binary nor
	// the remote API could run the scan.
	ScannerUnavailable Code = 4
	// Interrupted indicates the run was interrupted by a signal.
	Interrupted Code = 5
)

var codeStrings = map[Code]string{
	Success:            "success",
	FailedFindings:     "failed_findings",
	ScanErrors:         "scan_errors",
	Configuration:      "invalid_configuration",
	ScannerUnavailable: "scanner_unavailable",
	Interrupted:        "interrupted",
}

var codeDescriptions = map[Code]string{
	Success:            "All projects scanned, no failed findings",
	FailedFindings:     "One or more security checks failed",
	ScanErrors:         "One or more projects could not be scanned",
	Configuration:      "Invalid configuration provided",
	ScannerUnavailable: "No scanner available to run the scan",
	Interrupted:        "Run was interrupted by user or signal",
}

// Config holds thresholds for the exit code manager.
type Config struct {
	// FailedFindingsCode is the exit code returned when checks failed.
	// Default: 1.
	FailedFindingsCode int

	// ExitOnScanError enables the ScanErrors exit when enough projects
	// fail to scan.
	ExitOnScanError bool

	// ScanErrorThreshold is the number of failed project scans that
	// triggers the ScanErrors exit. Default: 1 — a project that did
	// not scan is missing coverage, which a pipeline should notice.
	ScanErrorThreshold int
}

// DefaultConfig returns the default exit code configuration.
func DefaultConfig() Config {
	return Config{
		FailedFindingsCode: 1,
		ExitOnScanError:    true,
		ScanErrorThreshold: 1,
	}
}

// Compile-time interface check: the manager taps the event stream.
var _ dispatcher.Hook = (*Manager)(nil)

// Manager tracks run outcomes and resolves the final exit code. It is
// registered as a dispatcher hook, so every finding and per-project
// result it needs flows in through the same stream the writers see.
type Manager struct {
	cfg            Config
	failedFindings int
	scanErrors     int
	mu             sync.Mutex

	configError bool
	unavailable bool
	interrupted bool
}

// New creates an exit code manager with the given configuration.
func New(cfg Config) *Manager {
	if cfg.FailedFindingsCode == 0 {
		cfg.FailedFindingsCode = 1
	}
	if cfg.ScanErrorThreshold == 0 {
		cfg.ScanErrorThreshold = 1
	}
	return &Manager{cfg: cfg}
}

// OnEvent counts failed findings and failed project scans from the
// event stream. It never returns an error.
func (m *Manager) OnEvent(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e := event.(type) {
	case *events.FindingEvent:
		if e.Finding.IsFailed() {
			m.failedFindings++
		}
	case *events.ResultEvent:
		if !e.Success {
			m.scanErrors++
		}
	case *events.ErrorEvent:
		if e.Fatal {
			m.scanErrors++
		}
	}
	return nil
}

// EventTypes returns the event types the manager consumes.
func (m *Manager) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeFinding,
		events.EventTypeResult,
		events.EventTypeError,
	}
}

// RecordFailedFinding increments the failed finding counter directly,
// for callers not wired through a dispatcher.
func (m *Manager) RecordFailedFinding() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedFindings++
}

// RecordScanError increments the failed scan counter directly.
func (m *Manager) RecordScanError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanErrors++
}

// SetConfigError marks that a configuration error occurred.
func (m *Manager) SetConfigError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configError = true
}

// SetScannerUnavailable marks that no scanner could run at all.
func (m *Manager) SetScannerUnavailable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = true
}

// SetInterrupted marks that the run was interrupted.
func (m *Manager) SetInterrupted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupted = true
}

// ExitCode resolves the exit code from everything recorded, plus a
// human-readable reason.
//
// Priority order (highest to lowest):
//  1. Interrupted
//  2. Configuration error
//  3. Scanner unavailable
//  4. Scan errors over threshold (if enabled)
//  5. Failed findings
//  6. Success
func (m *Manager) ExitCode() (Code, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.interrupted {
		return Interrupted, codeDescriptions[Interrupted]
	}
	if m.configError {
		return Configuration, codeDescriptions[Configuration]
	}
	if m.unavailable {
		return ScannerUnavailable, codeDescriptions[ScannerUnavailable]
	}
	if m.cfg.ExitOnScanError && m.scanErrors >= m.cfg.ScanErrorThreshold {
		return ScanErrors, fmt.Sprintf("%s (threshold: %d, actual: %d)",
			codeDescriptions[ScanErrors], m.cfg.ScanErrorThreshold, m.scanErrors)
	}
	if m.failedFindings > 0 {
		return Code(m.cfg.FailedFindingsCode), fmt.Sprintf("%s (count: %d)",
			codeDescriptions[FailedFindings], m.failedFindings)
	}
	return Success, codeDescriptions[Success]
}

// Stats returns the current failed finding and scan error counts.
func (m *Manager) Stats() (failedFindings, scanErrors int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failedFindings, m.scanErrors
}

// Reset clears all recorded outcomes and state flags.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedFindings = 0
	m.scanErrors = 0
	m.configError = false
	m.unavailable = false
	m.interrupted = false
}

// CodeString returns the short machine name of an exit code.
func CodeString(code Code) string {
	if s, ok := codeStrings[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown_code_%d", code)
}

// CodeDescription returns a detailed description of an exit code.
func CodeDescription(code Code) string {
	if s, ok := codeDescriptions[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown exit code: %d", code)
}
