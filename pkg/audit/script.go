package audit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/fleetscan/fleetscan/pkg/finding"
)

// safeModules are the only Tengo stdlib modules available to rule
// scripts.
var safeModules = stdlib.GetModuleMap("text", "fmt", "math", "times")

// scriptMaxAllocs bounds VM allocations per evaluation so a buggy
// script cannot balloon a worker.
const scriptMaxAllocs = 10_000_000

// ScriptRule is a Rule backed by a compiled Tengo script, for checks a
// regex cannot express (entropy thresholds, multi-token heuristics).
// The script runs in a sandboxed VM with only safe stdlib modules: no
// file I/O, no network, no OS access. It must define: name (string),
// match (function taking a line, returning bool). Optional: severity,
// description, recommendation (strings).
type ScriptRule struct {
	compiled *tengo.Compiled
}

// LoadScriptRule compiles a .tengo file into a line-matching rule.
func LoadScriptRule(path string) (Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rule{}, fmt.Errorf("read rule script %s: %w", path, err)
	}

	script := tengo.NewScript(data)
	script.SetImports(safeModules)
	script.SetMaxAllocs(scriptMaxAllocs)

	compiled, err := script.Run()
	if err != nil {
		return Rule{}, fmt.Errorf("compile rule script %s: %w", path, err)
	}

	nameVar := compiled.Get("name")
	if nameVar.IsUndefined() {
		return Rule{}, fmt.Errorf("rule script %s: missing 'name' variable", path)
	}
	if compiled.Get("match").IsUndefined() {
		return Rule{}, fmt.Errorf("rule script %s: missing 'match' function", path)
	}

	sev := finding.SeverityMedium
	if v := compiled.Get("severity"); !v.IsUndefined() {
		s := finding.Severity(strings.ToLower(v.String()))
		if !s.IsValid() {
			return Rule{}, fmt.Errorf("rule script %s: unknown severity %q", path, v.String())
		}
		sev = s
	}
	desc := "Scripted rule match"
	if v := compiled.Get("description"); !v.IsUndefined() {
		desc = v.String()
	}
	var rec string
	if v := compiled.Get("recommendation"); !v.IsUndefined() {
		rec = v.String()
	}

	sr, err := precompile(data, path)
	if err != nil {
		return Rule{}, err
	}

	return Rule{
		Name:           nameVar.String(),
		Severity:       sev,
		Description:    desc,
		Recommendation: rec,
		lineFn:         sr.matchLine,
	}, nil
}

// precompile wraps the script so evaluation only needs Clone + Run,
// never recompilation. Compile (not Run) so 'match' is not invoked at
// load time.
func precompile(src []byte, path string) (*ScriptRule, error) {
	wrapper := fmt.Sprintf(`%s
__hit__ := match(__line__)
`, string(src))

	script := tengo.NewScript([]byte(wrapper))
	script.SetImports(safeModules)
	script.SetMaxAllocs(scriptMaxAllocs)
	_ = script.Add("__line__", "")

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("precompile rule script %s: %w", path, err)
	}
	return &ScriptRule{compiled: compiled}, nil
}

// matchLine evaluates the script against one line. Clone makes this
// safe to call from every pool worker at once. Script errors and
// panics count as no match.
func (s *ScriptRule) matchLine(line string) (hit bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("audit: rule script panicked", slog.String("panic", fmt.Sprintf("%v", r)))
			hit = false
		}
	}()

	c := s.compiled.Clone()
	if err := c.Set("__line__", line); err != nil {
		return false
	}
	if err := c.Run(); err != nil {
		return false
	}

	result := c.Get("__hit__")
	if result.IsUndefined() {
		return false
	}
	return result.Bool()
}

// LoadScriptDir loads every .tengo rule in a directory. Scripts that
// fail to load are reported as errors without blocking the others.
func LoadScriptDir(dir string) ([]Rule, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("read rule dir %s: %w", dir, err)}
	}

	var rules []Rule
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tengo") {
			continue
		}
		rule, err := LoadScriptRule(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, errs
}
