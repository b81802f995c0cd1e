// Package finding provides the canonical security finding types shared
// across the scan, ingest, audit, and store packages.
//
// Raw scanner output arrives with inconsistent field names and loose
// vocabulary; this package fixes the enumerations (Status, Severity,
// Framework), the canonical Finding record every downstream reader
// consumes, and the permissive Raw record the normalizer resolves
// aliases from.
//
// Usage:
//
//	f := finding.Finding{
//	    CheckID:  "gcp_storage_bucket_public",
//	    Status:   finding.StatusFail,
//	    Severity: finding.SeverityHigh,
//	}
package finding
