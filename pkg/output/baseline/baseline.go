package baseline

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/jsonutil"
	"github.com/fleetscan/fleetscan/pkg/scoring"
)

// Version is the current baseline file format version.
const Version = "1.0"

// ErrBaselineNotFound is returned when a baseline file does not exist.
var ErrBaselineNotFound = errors.New("baseline file not found")

// ErrInvalidBaseline is returned when a baseline file is malformed.
var ErrInvalidBaseline = errors.New("invalid baseline file")

// Baseline records the known failed findings from a reference run.
type Baseline struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	RunID     string    `json:"run_id"`
	Provider  string    `json:"provider"`
	Findings  []Entry   `json:"findings"`
	Summary   Summary   `json:"summary"`

	mu sync.RWMutex
}

// Summary contains aggregate statistics from the baseline run.
type Summary struct {
	TotalFailed   int `json:"total_failed"`
	SecurityScore int `json:"security_score"`
}

// Entry is a single known failed finding in the baseline.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	CheckID     string    `json:"check_id"`
	ProjectID   string    `json:"project_id"`
	ResourceID  string    `json:"resource_id"`
	Service     string    `json:"service"`
	Severity    string    `json:"severity"`
	FirstSeen   time.Time `json:"first_seen"`
}

// Comparison contains the outcome of comparing a current run against a
// baseline.
type Comparison struct {
	// NewFindings are failed findings in the current run but not in
	// the baseline: the regressions a pipeline should fail on.
	NewFindings []Entry

	// FixedFindings are baseline findings absent from the current run.
	FixedFindings []Entry

	// KnownFindings are present in both.
	KnownFindings []Entry

	// HasNewFindings is true if there are any new failed findings.
	HasNewFindings bool

	// Summary is a human-readable summary of the comparison.
	Summary string
}

// New creates a new empty baseline.
func New() *Baseline {
	now := time.Now().UTC()
	return &Baseline{
		Version:   Version,
		CreatedAt: now,
		UpdatedAt: now,
		Findings:  []Entry{},
	}
}

// Load loads and parses a baseline file from the given path.
// Returns ErrBaselineNotFound if the file doesn't exist and
// ErrInvalidBaseline if it is malformed.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBaselineNotFound
		}
		return nil, fmt.Errorf("reading baseline file: %w", err)
	}

	var b Baseline
	if err := jsonutil.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseline, err)
	}
	if b.Version == "" {
		return nil, fmt.Errorf("%w: missing version field", ErrInvalidBaseline)
	}
	return &b, nil
}

// Save writes the baseline to the given path.
func (b *Baseline) Save(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.UpdatedAt = time.Now().UTC()

	data, err := jsonutil.MarshalIndent(b, "  ")
	if err != nil {
		return fmt.Errorf("marshaling baseline: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing baseline file: %w", err)
	}
	return nil
}

// Compare compares the current run's failed findings against the
// baseline, keyed by fingerprint.
func (b *Baseline) Compare(current []Entry) Comparison {
	b.mu.RLock()
	defer b.mu.RUnlock()

	baselineSet := make(map[string]Entry, len(b.Findings))
	for _, entry := range b.Findings {
		baselineSet[entry.Fingerprint] = entry
	}
	currentSet := make(map[string]Entry, len(current))
	for _, entry := range current {
		currentSet[entry.Fingerprint] = entry
	}

	result := Comparison{
		NewFindings:   []Entry{},
		FixedFindings: []Entry{},
		KnownFindings: []Entry{},
	}

	for _, entry := range current {
		if known, exists := baselineSet[entry.Fingerprint]; exists {
			// Keep the baseline's FirstSeen on known findings.
			entry.FirstSeen = known.FirstSeen
			result.KnownFindings = append(result.KnownFindings, entry)
		} else {
			result.NewFindings = append(result.NewFindings, entry)
		}
	}
	for _, entry := range b.Findings {
		if _, exists := currentSet[entry.Fingerprint]; !exists {
			result.FixedFindings = append(result.FixedFindings, entry)
		}
	}

	result.HasNewFindings = len(result.NewFindings) > 0
	result.Summary = summarize(result)
	return result
}

// summarize renders the one-line comparison outcome.
func summarize(result Comparison) string {
	var summary string
	if result.HasNewFindings {
		summary = fmt.Sprintf("REGRESSION: %d new failed finding(s) detected", len(result.NewFindings))
	} else {
		summary = "No new failed findings"
	}
	if len(result.FixedFindings) > 0 {
		summary += fmt.Sprintf(", %d fixed", len(result.FixedFindings))
	}
	if len(result.KnownFindings) > 0 {
		summary += fmt.Sprintf(", %d known", len(result.KnownFindings))
	}
	return summary
}

// CreateFromFindings creates a baseline from a run's canonical finding
// set. Failed findings become entries; the summary scores the full set.
func CreateFromFindings(findings []finding.Finding, runID, provider string) *Baseline {
	now := time.Now().UTC()

	entries := ExtractFailed(findings)
	for i := range entries {
		entries[i].FirstSeen = now
	}

	return &Baseline{
		Version:   Version,
		CreatedAt: now,
		UpdatedAt: now,
		RunID:     runID,
		Provider:  provider,
		Findings:  entries,
		Summary: Summary{
			TotalFailed:   len(entries),
			SecurityScore: scoring.Score(findings),
		},
	}
}

// ExtractFailed converts the failed findings of a run into baseline
// entries, deduplicated by fingerprint and sorted for deterministic
// output.
func ExtractFailed(findings []finding.Finding) []Entry {
	entries := []Entry{}
	seen := make(map[string]bool)

	for _, f := range findings {
		if !f.IsFailed() {
			continue
		}
		fp := f.Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		entries = append(entries, FromFinding(f))
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Service != entries[j].Service {
			return entries[i].Service < entries[j].Service
		}
		if entries[i].CheckID != entries[j].CheckID {
			return entries[i].CheckID < entries[j].CheckID
		}
		return entries[i].ResourceID < entries[j].ResourceID
	})
	return entries
}

// FromFinding converts one finding into a baseline entry.
func FromFinding(f finding.Finding) Entry {
	return Entry{
		Fingerprint: f.Fingerprint(),
		CheckID:     f.CheckID,
		ProjectID:   f.ProjectID,
		ResourceID:  f.ResourceID,
		Service:     f.Service,
		Severity:    string(f.Severity),
	}
}

// Add inserts an entry unless its fingerprint is already present.
// Thread-safe.
func (b *Baseline) Add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.Findings {
		if existing.Fingerprint == entry.Fingerprint {
			return
		}
	}
	if entry.FirstSeen.IsZero() {
		entry.FirstSeen = time.Now().UTC()
	}
	b.Findings = append(b.Findings, entry)
	b.Summary.TotalFailed = len(b.Findings)
	b.UpdatedAt = time.Now().UTC()
}

// Remove deletes an entry by fingerprint, reporting whether it existed.
// Thread-safe.
func (b *Baseline) Remove(fingerprint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.Findings {
		if entry.Fingerprint == fingerprint {
			b.Findings = append(b.Findings[:i], b.Findings[i+1:]...)
			b.Summary.TotalFailed = len(b.Findings)
			b.UpdatedAt = time.Now().UTC()
			return true
		}
	}
	return false
}

// Get returns an entry by fingerprint. Thread-safe.
func (b *Baseline) Get(fingerprint string) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, entry := range b.Findings {
		if entry.Fingerprint == fingerprint {
			return entry, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries in the baseline. Thread-safe.
func (b *Baseline) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.Findings)
}

// Merge merges another baseline into this one, preserving the earliest
// FirstSeen per fingerprint. Thread-safe.
func (b *Baseline) Merge(other *Baseline) {
	if other == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	existing := make(map[string]*Entry, len(b.Findings))
	for i := range b.Findings {
		existing[b.Findings[i].Fingerprint] = &b.Findings[i]
	}

	for _, entry := range other.Findings {
		if have, ok := existing[entry.Fingerprint]; ok {
			if entry.FirstSeen.Before(have.FirstSeen) {
				have.FirstSeen = entry.FirstSeen
			}
		} else {
			b.Findings = append(b.Findings, entry)
		}
	}

	b.Summary.TotalFailed = len(b.Findings)
	b.UpdatedAt = time.Now().UTC()
}
