package defaults

// Exit codes for the fleetscan CLI.
const (
	ExitSuccess       = 0 // Clean exit, no failed findings
	ExitFindingsFound = 1 // Scan completed with FAIL findings
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitScanError     = 3 // One or more scan targets failed
	ExitInternalError = 4 // Unexpected internal error
)

// Exit codes of the external scan tool. The tool signals "completed, found
// findings" with a dedicated non-zero code, so both values mean the scan ran
// to completion. These are scanner-version-specific; override via
// scan.Options.SuccessExitCodes when a different tool version is in play.
const (
	// ScannerExitClean means the scan completed with no failed checks.
	ScannerExitClean = 0

	// ScannerExitFindings means the scan completed and failed checks exist.
	ScannerExitFindings = 3
)

// ScannerSuccessExitCodes returns the default exit-code allow-list for the
// external scan tool. Callers may replace it wholesale.
func ScannerSuccessExitCodes() []int {
	return []int{ScannerExitClean, ScannerExitFindings}
}
