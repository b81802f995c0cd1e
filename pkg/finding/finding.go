package finding

import (
	"fmt"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
)

// Finding is the canonical, normalized security observation consumed by
// every downstream reader. It is immutable once produced by the
// normalizer: aggregation and filtering copy slices, never fields.
//
// Identity is the (ProjectID, CheckID, ResourceID) tuple. Duplicates
// with the same identity may coexist and are treated as independent
// observations; no dedup is performed.
type Finding struct {
	ProjectID      string    `json:"project_id"`
	ResourceID     string    `json:"resource_id"`
	CheckID        string    `json:"check_id"`
	Service        string    `json:"service"`
	Status         Status    `json:"status"`
	Severity       Severity  `json:"severity"`
	Framework      Framework `json:"framework"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
	Category       string    `json:"category"`
	Evidence       string    `json:"evidence"`
	Timestamp      time.Time `json:"timestamp"`

	// Source-location fields populated only by the local audit source.
	File         string `json:"file,omitempty"`
	Line         int    `json:"line,omitzero"`
	MatchSnippet string `json:"match_snippet,omitempty"`
}

// Key returns the identity tuple as a single string, usable as a map key.
func (f Finding) Key() string {
	return f.ProjectID + "\x1f" + f.CheckID + "\x1f" + f.ResourceID
}

// Fingerprint returns a stable 32-bit hash of the identity tuple in
// "mmh3:<signed decimal>" form. Baseline and suppression tooling keys
// on this value across scans, so the format must never change.
func (f Finding) Fingerprint() string {
	h := murmur3.Sum32([]byte(f.Key()))
	return fmt.Sprintf("mmh3:%d", int32(h))
}

// SearchText returns the lowercase haystack the filter substring search
// runs over: description, check id, service, and resource id.
func (f Finding) SearchText() string {
	return strings.ToLower(f.Description + " " + f.CheckID + " " + f.Service + " " + f.ResourceID)
}

// IsFailed reports whether the finding is a failed check.
func (f Finding) IsFailed() bool {
	return f.Status == StatusFail
}
