// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all runtime configuration defaults.
//
// Usage:
//
//	opts.Concurrency = defaults.ConcurrencyScans
//	opts.MaxRetries = defaults.RetryMedium
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
//
// DO NOT use hardcoded values like `Concurrency: 3` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

// Version is the current fleetscan version
const Version = "1.3.0"

// ToolName is the canonical tool name used in banners, user agents,
// telemetry service names, and report footers.
const ToolName = "fleetscan"

// ============================================================================
// CONCURRENCY SETTINGS
// ============================================================================
//
// Use these for worker pools, semaphores, and parallel operations.
// Choose based on the weight of the operation.
// ============================================================================

const (
	// ConcurrencyMinimal is for single-threaded operations (1)
	ConcurrencyMinimal = 1

	// ConcurrencyScans is the cap on simultaneously running external scan
	// processes (3). Each scan process is heavyweight: it holds API quota
	// against the scanned account and hundreds of MB of RSS.
	ConcurrencyScans = 3

	// ConcurrencyLow is for light parallel operations (5)
	ConcurrencyLow = 5

	// ConcurrencyMedium is for standard parallel operations (10)
	ConcurrencyMedium = 10

	// ConcurrencyHigh is for aggressive parallelism such as audit file
	// matching on large trees (20)
	ConcurrencyHigh = 20
)

// ============================================================================
// RETRY SETTINGS
// ============================================================================

const (
	// RetryNone disables retries (0)
	RetryNone = 0

	// RetryLow is for quick operations (2)
	RetryLow = 2

	// RetryMedium is the standard retry count for remote API calls (3)
	RetryMedium = 3

	// RetryHigh is for flaky endpoints (5)
	RetryHigh = 5
)

// ============================================================================
// BUFFER AND SIZE LIMITS
// ============================================================================

const (
	// BufferSmall is for typical reads (4KB)
	BufferSmall = 4 * 1024

	// BufferMedium is for larger reads (32KB)
	BufferMedium = 32 * 1024

	// BufferLarge is for bulk reads (64KB)
	BufferLarge = 64 * 1024

	// StderrTailLimit caps how much captured scanner stderr is attached to a
	// failed result (8KB). Scanner stack traces easily exceed this; only the
	// tail carries the actionable message.
	StderrTailLimit = 8 * 1024

	// AuditFileSizeCap is the size above which audit switches from
	// whole-file reads to line streaming (1MB).
	AuditFileSizeCap = 1 * 1024 * 1024

	// AuditLineCap bounds a single matched line (64KB). Minified bundles
	// pack megabytes onto one line; matching past this yields noise.
	AuditLineCap = 64 * 1024

	// AuditSnippetLen is how many characters of a matched line are kept as
	// evidence (50).
	AuditSnippetLen = 50

	// MaxResponseBody caps remote API response reads (10MB).
	MaxResponseBody = 10 * 1024 * 1024

	// ReportSizeCap bounds a single scanner report file read by the
	// ingest parser (64MB). Reports beyond this are almost always a
	// scanner malfunction, not real findings.
	ReportSizeCap = 64 * 1024 * 1024
)

// ============================================================================
// CHANNEL SIZES
// ============================================================================

const (
	// ChannelTiny is for small buffers (10)
	ChannelTiny = 10

	// ChannelSmall is for typical buffers (100)
	ChannelSmall = 100

	// ChannelMedium is for larger buffers (1000)
	ChannelMedium = 1000
)

// ============================================================================
// SCANNER PROCESS
// ============================================================================

const (
	// ScannerBinary is the external scan tool looked up on PATH (with a
	// user-local install fallback) when no explicit path is configured.
	ScannerBinary = "prowler"

	// ScannerProvider is the default cloud provider argument.
	ScannerProvider = "gcp"

	// ScanOutputDir is where scanner reports land by default.
	ScanOutputDir = "fleetscan-reports"

	// ScanOutputMode is the default scanner report format argument.
	ScanOutputMode = "json-ocsf"
)

// ============================================================================
// HTTP
// ============================================================================

const (
	// ContentTypeJSON is application/json
	ContentTypeJSON = "application/json"

	// AcceptJSON accepts JSON
	AcceptJSON = "application/json"

	// HTTPMaxIdleConns is the pool-wide idle connection cap (100)
	HTTPMaxIdleConns = 100

	// HTTPMaxConnsPerHost caps connections per host (10). The tool talks
	// to a single API host per run; wider fan-out buys nothing.
	HTTPMaxConnsPerHost = 10

	// RateLimitRemote caps requests per second against the hosted scan
	// API (5). The API meters per key; bursting past the meter converts
	// directly into 429 retry churn.
	RateLimitRemote = 5
)

// UserAgent returns the canonical User-Agent header value.
func UserAgent() string {
	return ToolName + "/" + Version
}
