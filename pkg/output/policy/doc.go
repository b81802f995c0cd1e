// Package policy provides a quality gate engine that evaluates scan
// results against user-defined rules to determine CI/CD pass/fail
// outcomes.
//
// The engine parses YAML policy files that define conditions under
// which a run should be considered a failure. Security teams can set
// gates based on:
//   - Failed finding thresholds (total, by severity)
//   - Service-specific failures (any failed check in iam, kms, ...)
//   - Security score floors
//   - Scan error rate ceilings
//
// # Policy File Format
//
// Policy files are YAML documents with the following structure:
//
//	version: "1.0"
//	name: "production-gate"
//
//	fail_on:
//	  findings:
//	    total: 50          # Fail if more than 50 failed findings
//	    critical: 0        # Fail on any critical failure
//	    high: 3            # Fail if more than 3 high severity
//	  services:
//	    - iam              # Fail on any failed finding in IAM
//	    - kms
//	  score_below: 70.0            # Fail if security score below 70
//	  scan_error_rate_above: 10.0  # Fail if over 10% of projects did not scan
//
//	ignore:
//	  check_ids:
//	    - "compute_default_service_account"  # Accepted risk
//	  services:
//	    - "dns"
//
// # Usage
//
//	gate, err := policy.LoadPolicy("gate.yaml")
//	if err != nil {
//	    return err
//	}
//
//	result := gate.Evaluate(policy.Input{
//	    Findings:      findings,
//	    SecurityScore: score,
//	    ScanErrorRate: errorRate,
//	})
//	if !result.Pass {
//	    for _, f := range result.Failures {
//	        fmt.Println(f)
//	    }
//	    os.Exit(result.ExitCode)
//	}
//
// # Thread Safety
//
// Policy evaluation is thread-safe. A single Policy instance can be
// used concurrently from multiple goroutines.
package policy
