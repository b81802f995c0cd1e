// Package baseline provides a comparison engine for tracking failed
// finding regressions across scan runs.
//
// The baseline engine supports CI/CD workflows where you want to:
//   - Fail only on NEW failed findings (not accepted known issues)
//   - Track when findings get fixed
//   - Update the baseline on main branch merges
//
// # Baseline File Format
//
// Baseline files are JSON documents recording the known failed
// findings from a reference run:
//
//	{
//	  "version": "1.0",
//	  "created_at": "2026-01-15T10:30:00Z",
//	  "updated_at": "2026-01-20T14:45:00Z",
//	  "run_id": "8f14e45f-ceea-4e47-8fbe-d21f9f5113a5",
//	  "provider": "gcp",
//	  "findings": [
//	    {
//	      "fingerprint": "mmh3:-1208763131",
//	      "check_id": "bc_gcp_iam_1",
//	      "project_id": "prod-billing",
//	      "resource_id": "//iam.googleapis.com/projects/prod-billing/serviceAccounts/sa-1",
//	      "service": "iam",
//	      "severity": "high",
//	      "first_seen": "2026-01-15T10:30:00Z"
//	    }
//	  ],
//	  "summary": {
//	    "total_failed": 15,
//	    "security_score": 72
//	  }
//	}
//
// # Finding Identity
//
// Entries are keyed by the finding fingerprint, the stable hash of the
// (project, check, resource) identity tuple. The same misconfiguration
// is tracked consistently across runs, and the same check failing on a
// new resource counts as a new finding.
//
// # Usage
//
// Loading an existing baseline:
//
//	base, err := baseline.Load("baseline.json")
//	if errors.Is(err, baseline.ErrBaselineNotFound) {
//	    // First run - no baseline exists yet
//	    base = baseline.New()
//	}
//
// Creating a baseline from a run:
//
//	base := baseline.CreateFromFindings(findings, runID, "gcp")
//	if err := base.Save("baseline.json"); err != nil {
//	    return err
//	}
//
// Comparing the current run against the baseline:
//
//	current := baseline.ExtractFailed(findings)
//	comparison := base.Compare(current)
//
//	if comparison.HasNewFindings {
//	    fmt.Printf("Found %d new failed findings!\n", len(comparison.NewFindings))
//	    os.Exit(1)
//	}
//
// # Thread Safety
//
// All Baseline methods are safe for concurrent use.
package baseline
