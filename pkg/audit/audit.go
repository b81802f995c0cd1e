// Package audit runs the local static-analysis pass: a rule-driven
// sweep over a source tree for committed secrets and credential
// material. Matching is CPU-bound regex work fanned out over a bounded
// worker pool; hits surface as canonical findings (service "source",
// status FAIL) carrying file, line, and a truncated snippet, and feed
// the same aggregation store as scanner-derived findings.
package audit

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/workerpool"
)

// DefaultIgnoreDirs are directory names never descended into. Vendored
// and generated trees are full of things that look like secrets.
var DefaultIgnoreDirs = []string{".git", "__pycache__", "venv", "node_modules", "vendor"}

// DefaultIgnoreFiles are file names never scanned.
var DefaultIgnoreFiles = []string{"package-lock.json", "yarn.lock"}

// Progress is a point-in-time view of a running audit.
type Progress struct {
	FilesScanned int64
	FilesTotal   int64
	Findings     int64
	CurrentFile  string
}

// Percent returns completion as 0-100.
func (p Progress) Percent() float64 {
	if p.FilesTotal == 0 {
		return 0
	}
	return float64(p.FilesScanned) / float64(p.FilesTotal) * 100
}

// ProgressFunc receives progress snapshots as files complete. Panics
// are recovered; they never affect the audit.
type ProgressFunc func(Progress)

// Options configures an Auditor. The zero value scans nothing useful;
// Root is required.
type Options struct {
	// Root is the directory tree to sweep.
	Root string

	// Project tags emitted findings; audits have no cloud project of
	// their own.
	Project string

	// Rules to match. Empty means BuiltinRules.
	Rules []Rule

	// IgnoreDirs/IgnoreFiles replace the defaults when non-nil.
	IgnoreDirs  []string
	IgnoreFiles []string

	// Workers bounds the matching pool. Non-positive means GOMAXPROCS.
	Workers int

	OnProgress ProgressFunc

	Logger *slog.Logger
}

// Auditor sweeps one tree. Safe for a single Scan at a time.
type Auditor struct {
	opts        Options
	regexRules  []Rule
	scriptRules []Rule
	ignoreDirs  map[string]struct{}
	ignoreFiles map[string]struct{}
	logger      *slog.Logger

	scanned int64
	total   int64
	found   int64
}

// New builds an Auditor over the given tree.
func New(opts Options) *Auditor {
	rules := opts.Rules
	if len(rules) == 0 {
		rules = BuiltinRules()
	}
	a := &Auditor{
		opts:        opts,
		ignoreDirs:  toSet(opts.IgnoreDirs, DefaultIgnoreDirs),
		ignoreFiles: toSet(opts.IgnoreFiles, DefaultIgnoreFiles),
		logger:      orDefault(opts.Logger),
	}
	for _, r := range rules {
		if r.scripted() {
			a.scriptRules = append(a.scriptRules, r)
		} else {
			a.regexRules = append(a.regexRules, r)
		}
	}
	return a
}

// Scan sweeps the tree and returns every rule hit as a finding. A
// canceled context stops scheduling new files; findings matched so far
// are returned alongside the context error.
func (a *Auditor) Scan(ctx context.Context) ([]finding.Finding, error) {
	files, err := a.collectFiles()
	if err != nil {
		return nil, fmt.Errorf("audit: walk %s: %w", a.opts.Root, err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	atomic.StoreInt64(&a.total, int64(len(files)))
	atomic.StoreInt64(&a.scanned, 0)
	atomic.StoreInt64(&a.found, 0)

	a.logger.Info("audit: start",
		slog.String("root", a.opts.Root),
		slog.Int("files", len(files)),
		slog.Int("rules", len(a.regexRules)+len(a.scriptRules)))

	now := time.Now().UTC()
	pool := workerpool.New(a.opts.Workers)
	defer pool.Close()

	perFile := workerpool.Map(pool, files, func(path string) []finding.Finding {
		if ctx.Err() != nil {
			return nil
		}
		hits := a.scanFile(path, now)

		scanned := atomic.AddInt64(&a.scanned, 1)
		found := atomic.AddInt64(&a.found, int64(len(hits)))
		a.notifyProgress(path)
		if scanned%100 == 0 {
			a.logger.Debug("audit: progress",
				slog.Int64("files_scanned", scanned),
				slog.Int64("findings", found))
		}
		return hits
	})

	var findings []finding.Finding
	for _, hits := range perFile {
		findings = append(findings, hits...)
	}

	a.logger.Info("audit: done",
		slog.String("root", a.opts.Root),
		slog.Int64("files_scanned", atomic.LoadInt64(&a.scanned)),
		slog.Int("findings", len(findings)))
	return findings, ctx.Err()
}

// Progress returns the current counters. Valid while Scan runs.
func (a *Auditor) Progress() Progress {
	return Progress{
		FilesScanned: atomic.LoadInt64(&a.scanned),
		FilesTotal:   atomic.LoadInt64(&a.total),
		Findings:     atomic.LoadInt64(&a.found),
	}
}

// Name identifies the auditor as a finding source in the aggregation
// store.
func (a *Auditor) Name() string { return "audit" }

// Findings implements the store's source contract.
func (a *Auditor) Findings(ctx context.Context) ([]finding.Finding, error) {
	return a.Scan(ctx)
}

// collectFiles walks the tree up front so progress has a denominator.
// Unreadable directories are skipped, matching the tolerance of the
// rest of the pipeline: a permission hole must not sink the audit.
func (a *Auditor) collectFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(a.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == a.opts.Root {
				return err
			}
			a.logger.Debug("audit: skipping unreadable entry",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}
		if d.IsDir() {
			if path != a.opts.Root {
				if _, skip := a.ignoreDirs[d.Name()]; skip {
					return fs.SkipDir
				}
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, skip := a.ignoreFiles[d.Name()]; skip {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// scanFile matches every rule against one file. Files under the size
// cap are read whole so multi-line regex hits keep exact positions;
// larger files are streamed line by line to bound memory.
func (a *Auditor) scanFile(path string, now time.Time) []finding.Finding {
	info, err := os.Stat(path)
	if err != nil {
		a.logger.Warn("audit: file skipped",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil
	}
	if info.Size() < defaults.AuditFileSizeCap {
		return a.scanWhole(path, now)
	}
	return a.scanStream(path, now)
}

func (a *Auditor) scanWhole(path string, now time.Time) []finding.Finding {
	data, err := os.ReadFile(path)
	if err != nil {
		a.logger.Warn("audit: file skipped",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil
	}
	content := string(data)

	var hits []finding.Finding
	for _, rule := range a.regexRules {
		for _, loc := range rule.findAll(content) {
			line := 1 + strings.Count(content[:loc[0]], "\n")
			snippet := clip(content[loc[0]:loc[1]], defaults.AuditSnippetLen) + "..."
			hits = append(hits, a.newFinding(rule, path, line, snippet, now))
		}
	}

	if len(a.scriptRules) > 0 {
		for i, ln := range strings.Split(content, "\n") {
			for _, rule := range a.scriptRules {
				if rule.matchLine(ln) {
					snippet := clip(strings.TrimSpace(ln), defaults.AuditSnippetLen)
					hits = append(hits, a.newFinding(rule, path, i+1, snippet, now))
				}
			}
		}
	}
	return hits
}

func (a *Auditor) scanStream(path string, now time.Time) []finding.Finding {
	fh, err := os.Open(path)
	if err != nil {
		a.logger.Warn("audit: file skipped",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil
	}
	defer fh.Close()

	var hits []finding.Finding
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, defaults.BufferSmall), defaults.AuditLineCap)

	lineNum := 0
	for sc.Scan() {
		lineNum++
		ln := sc.Text()
		for _, rule := range a.regexRules {
			if rule.matchLine(ln) {
				snippet := clip(strings.TrimSpace(ln), defaults.AuditSnippetLen)
				hits = append(hits, a.newFinding(rule, path, lineNum, snippet, now))
			}
		}
		for _, rule := range a.scriptRules {
			if rule.matchLine(ln) {
				snippet := clip(strings.TrimSpace(ln), defaults.AuditSnippetLen)
				hits = append(hits, a.newFinding(rule, path, lineNum, snippet, now))
			}
		}
	}
	if err := sc.Err(); err != nil {
		// Oversized lines land here; what matched so far still counts.
		a.logger.Debug("audit: stream ended early",
			slog.String("file", path),
			slog.String("error", err.Error()))
	}
	return hits
}

func (a *Auditor) newFinding(rule Rule, path string, line int, snippet string, now time.Time) finding.Finding {
	rel := path
	if r, err := filepath.Rel(a.opts.Root, path); err == nil {
		rel = r
	}
	return finding.Finding{
		ProjectID:      a.opts.Project,
		ResourceID:     fmt.Sprintf("%s:%d", rel, line),
		CheckID:        rule.Name,
		Service:        "source",
		Status:         finding.StatusFail,
		Severity:       rule.Severity,
		Framework:      finding.FrameworkUnknown,
		Description:    rule.Description,
		Recommendation: rule.Recommendation,
		Category:       "code",
		Evidence:       snippet,
		Timestamp:      now,
		File:           rel,
		Line:           line,
		MatchSnippet:   snippet,
	}
}

func (a *Auditor) notifyProgress(path string) {
	if a.opts.OnProgress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("audit: progress callback panicked",
				slog.String("panic", fmt.Sprintf("%v", r)))
		}
	}()
	p := a.Progress()
	p.CurrentFile = path
	a.opts.OnProgress(p)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func toSet(names, fallback []string) map[string]struct{} {
	if names == nil {
		names = fallback
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
