// Package checks holds the check registry: the mapping from scanner
// check IDs to compliance framework and default severity, plus the
// allow-list of checks with an automated remediation. The built-in
// table covers the bundled scanner version; deployments extend or
// override it from a YAML or JSON file.
package checks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fleetscan/fleetscan/pkg/finding"
)

// Entry is the registry record for one check ID. Framework tags the
// check for compliance rollups; Severity applies only when a raw
// finding carries no severity of its own.
type Entry struct {
	// Framework is the compliance framework the check belongs to.
	// Values outside the known framework set normalize to "unknown"
	// but are still usable as a category label.
	Framework string `json:"framework" yaml:"framework"`
	// Severity is the default severity for findings of this check.
	Severity string `json:"severity" yaml:"severity"`
	// Title is an optional human-readable check name.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// DefaultEntry is returned for check IDs absent from the registry.
// The "Unmapped" framework token is not a valid framework, so such
// findings roll up under the unknown framework while keeping a
// category label that says why.
var DefaultEntry = Entry{Framework: "Unmapped", Severity: "medium"}

// Registry maps check IDs to their metadata. Build it once (Builtin,
// optionally merged with loaded files) before handing it to readers;
// it is safe for concurrent reads but not for concurrent mutation.
type Registry struct {
	entries map[string]Entry
	fixable map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		fixable: make(map[string]struct{}),
	}
}

// Builtin returns a registry preloaded with the bundled check table
// and auto-fixable allow-list.
func Builtin() *Registry {
	r := NewRegistry()
	for id, e := range builtinChecks {
		r.entries[id] = e
	}
	for _, id := range builtinAutoFixable {
		r.fixable[id] = struct{}{}
	}
	return r
}

// Register adds or replaces the entry for a check ID.
func (r *Registry) Register(checkID string, e Entry) {
	r.entries[checkID] = e
}

// Lookup returns the entry for a check ID, or DefaultEntry when the
// check is not registered.
func (r *Registry) Lookup(checkID string) Entry {
	if e, ok := r.entries[checkID]; ok {
		return e
	}
	return DefaultEntry
}

// Contains reports whether the check ID is registered.
func (r *Registry) Contains(checkID string) bool {
	_, ok := r.entries[checkID]
	return ok
}

// MarkAutoFixable adds a check ID to the auto-fixable allow-list.
func (r *Registry) MarkAutoFixable(checkID string) {
	r.fixable[checkID] = struct{}{}
}

// IsAutoFixable reports whether the check has an automated remediation.
// The fix itself lives outside this package; membership here only
// gates what remediation tooling is offered.
func (r *Registry) IsAutoFixable(checkID string) bool {
	_, ok := r.fixable[checkID]
	return ok
}

// Len returns the number of registered checks.
func (r *Registry) Len() int {
	return len(r.entries)
}

// CheckIDs returns the registered check IDs in unspecified order.
func (r *Registry) CheckIDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// File is the on-disk registry extension format.
type File struct {
	Version     string           `json:"version" yaml:"version"`
	Checks      map[string]Entry `json:"checks" yaml:"checks"`
	AutoFixable []string         `json:"auto_fixable,omitempty" yaml:"auto_fixable,omitempty"`
}

// Validate checks the file for entries the registry cannot use.
func (f *File) Validate() error {
	for id, e := range f.Checks {
		if id == "" {
			return fmt.Errorf("checks: entry with empty check id")
		}
		if e.Severity != "" {
			if s := finding.Severity(strings.ToLower(e.Severity)); !s.IsValid() {
				return fmt.Errorf("checks: %s: unknown severity %q", id, e.Severity)
			}
		}
	}
	return nil
}

// Merge overlays the file's checks and allow-list onto the registry.
// File entries win over existing ones.
func (r *Registry) Merge(f *File) {
	for id, e := range f.Checks {
		r.entries[id] = e
	}
	for _, id := range f.AutoFixable {
		r.fixable[id] = struct{}{}
	}
}

// LoadFile loads a registry extension from a YAML or JSON file.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer fh.Close()

	return Load(fh, path)
}

// Load loads a registry extension from a reader. The filename selects
// the format: .json parses as JSON, anything else as YAML.
func Load(r io.Reader, filename string) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}

	f := &File{Checks: make(map[string]Entry)}

	if strings.HasSuffix(filename, ".json") {
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return f, nil
}
