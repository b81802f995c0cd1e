package finding

import "errors"

// Sentinel errors for common scan and ingestion failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrTimeout indicates a scanner process was killed because it
	// exceeded its deadline.
	ErrTimeout = errors.New("finding: scan timeout")

	// ErrScannerFailed indicates a scanner process exited with a code
	// outside its success set.
	ErrScannerFailed = errors.New("finding: scanner failed")

	// ErrUnparsableOutput indicates scanner output matched none of the
	// supported formats.
	ErrUnparsableOutput = errors.New("finding: unparsable scanner output")

	// ErrServiceUnavailable indicates the remote scan service could not
	// be reached or refused the request.
	ErrServiceUnavailable = errors.New("finding: scan service unavailable")
)
