// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.ScanTimeout)
//	Interval: duration.StreamStd,
//
// DO NOT use hardcoded time.Duration values like `10 * time.Minute` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// SCAN LIFECYCLE
// ============================================================================

const (
	// ScanTimeout bounds one external scan process (10min). A full-account
	// scan of a large project routinely takes several minutes; anything past
	// ten is a hung scanner.
	ScanTimeout = 10 * time.Minute

	// ScanKillGrace is how long the supervisor waits after killing a timed
	// out process group before abandoning the wait (5s).
	ScanKillGrace = 5 * time.Second

	// CacheTTL is how long an aggregated SecurityData snapshot stays valid
	// before the next Load triggers recomputation (5min).
	CacheTTL = 5 * time.Minute
)

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

const (
	// HTTPProbe is for quick availability checks (5s)
	HTTPProbe = 5 * time.Second

	// HTTPDefault is the standard request timeout (30s)
	HTTPDefault = 30 * time.Second

	// HTTPResults is for result downloads, which can be tens of MB (2min)
	HTTPResults = 2 * time.Minute

	// DialTimeout bounds TCP connection establishment (10s)
	DialTimeout = 10 * time.Second

	// TLSHandshakeTimeout bounds the TLS handshake (10s)
	TLSHandshakeTimeout = 10 * time.Second

	// IdleConnTimeout is how long idle connections stay pooled (90s)
	IdleConnTimeout = 90 * time.Second
)

// ============================================================================
// RETRY / BACKOFF
// ============================================================================

const (
	// BackoffInitial is the first retry delay (500ms)
	BackoffInitial = 500 * time.Millisecond

	// BackoffMax caps any single retry delay (30s)
	BackoffMax = 30 * time.Second
)

// ============================================================================
// UI / STREAMING INTERVALS
// ============================================================================

const (
	// StreamFast is for real-time updates (1s)
	StreamFast = 1 * time.Second

	// StreamStd is for normal progress reporting (3s)
	StreamStd = 3 * time.Second
)

// ============================================================================
// HOOK / TELEMETRY TIMEOUTS
// ============================================================================

const (
	// HookTimeout bounds a single hook delivery (10s)
	HookTimeout = 10 * time.Second

	// HookShutdown bounds hook flush on close (5s)
	HookShutdown = 5 * time.Second
)
