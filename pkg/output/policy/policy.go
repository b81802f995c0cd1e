package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fleetscan/fleetscan/pkg/finding"
)

// ErrPolicyNotFound is returned when a policy file does not exist.
var ErrPolicyNotFound = errors.New("policy file not found")

// ErrInvalidPolicy is returned when a policy file is malformed.
var ErrInvalidPolicy = errors.New("invalid policy file")

// Policy represents a parsed quality gate configuration.
type Policy struct {
	Version string     `yaml:"version"`
	Name    string     `yaml:"name"`
	FailOn  FailOn     `yaml:"fail_on"`
	Ignore  IgnoreSpec `yaml:"ignore"`

	mu sync.RWMutex // protects evaluation
}

// FailOn defines conditions that cause a run to fail the gate.
type FailOn struct {
	Findings           FindingThresholds `yaml:"findings"`
	Services           []string          `yaml:"services"`
	ScoreBelow         *float64          `yaml:"score_below"`
	ScanErrorRateAbove *float64          `yaml:"scan_error_rate_above"`
}

// FindingThresholds defines maximum allowed failed findings by
// severity. An unset field means no threshold; a value of N means fail
// the gate when the count exceeds N, so 0 forbids any.
type FindingThresholds struct {
	Total         *int `yaml:"total"`
	Critical      *int `yaml:"critical"`
	High          *int `yaml:"high"`
	Medium        *int `yaml:"medium"`
	Low           *int `yaml:"low"`
	Informational *int `yaml:"informational"`
}

// IgnoreSpec names findings excluded from evaluation: accepted risks
// tracked elsewhere.
type IgnoreSpec struct {
	CheckIDs []string `yaml:"check_ids"`
	Services []string `yaml:"services"`
}

// Input carries one run's outcome for evaluation. Findings is the full
// canonical set; only failed findings count against thresholds.
type Input struct {
	Findings []finding.Finding

	// SecurityScore is the 0-100 aggregate score for the set.
	SecurityScore int

	// ScanErrorRate is the percentage of projects that could not be
	// scanned (0-100).
	ScanErrorRate float64
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	// Pass is true when no fail_on condition was met.
	Pass bool

	// Failures contains human-readable gate failure messages.
	Failures []string

	// ExitCode is the recommended exit code: 0 = pass, 1 = gate failed.
	ExitCode int

	// PolicyName is the name of the evaluated policy.
	PolicyName string
}

// LoadPolicy loads and parses a policy file from the given path.
// Returns ErrPolicyNotFound if the file doesn't exist and
// ErrInvalidPolicy if it is malformed.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, path)
		}
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy parses policy YAML data.
// Returns ErrInvalidPolicy if the data is malformed.
func ParsePolicy(data []byte) (*Policy, error) {
	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	if policy.Version == "" {
		policy.Version = "1.0"
	}

	for i := range policy.FailOn.Services {
		policy.FailOn.Services[i] = strings.ToLower(policy.FailOn.Services[i])
	}
	for i := range policy.Ignore.Services {
		policy.Ignore.Services[i] = strings.ToLower(policy.Ignore.Services[i])
	}

	return &policy, nil
}

// Evaluate evaluates the policy against one run's findings. Ignore
// rules are applied per finding, so an ignored check never counts
// against any threshold. This method is thread-safe.
func (p *Policy) Evaluate(input Input) Result {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := Result{
		Pass:       true,
		Failures:   make([]string, 0),
		PolicyName: p.Name,
	}

	ignoreChecks := make(map[string]bool, len(p.Ignore.CheckIDs))
	for _, id := range p.Ignore.CheckIDs {
		ignoreChecks[id] = true
	}
	ignoreServices := make(map[string]bool, len(p.Ignore.Services))
	for _, svc := range p.Ignore.Services {
		ignoreServices[svc] = true
	}

	total := 0
	bySeverity := make(map[finding.Severity]int)
	byService := make(map[string]int)
	for _, f := range input.Findings {
		if !f.IsFailed() {
			continue
		}
		if ignoreChecks[f.CheckID] || ignoreServices[strings.ToLower(f.Service)] {
			continue
		}
		total++
		bySeverity[f.Severity]++
		byService[strings.ToLower(f.Service)]++
	}

	p.checkFindingThresholds(&result, total, bySeverity)
	p.checkServices(&result, byService)
	p.checkScore(&result, input.SecurityScore)
	p.checkScanErrorRate(&result, input.ScanErrorRate)

	if len(result.Failures) > 0 {
		result.Pass = false
		result.ExitCode = 1
	}
	return result
}

// checkFindingThresholds checks failed finding count thresholds.
func (p *Policy) checkFindingThresholds(result *Result, total int, bySeverity map[finding.Severity]int) {
	thresholds := p.FailOn.Findings

	if thresholds.Total != nil && total > *thresholds.Total {
		result.Failures = append(result.Failures,
			fmt.Sprintf("failed findings (%d) exceeds threshold (%d)",
				total, *thresholds.Total))
	}

	severityChecks := []struct {
		threshold *int
		severity  finding.Severity
	}{
		{thresholds.Critical, finding.SeverityCritical},
		{thresholds.High, finding.SeverityHigh},
		{thresholds.Medium, finding.SeverityMedium},
		{thresholds.Low, finding.SeverityLow},
		{thresholds.Informational, finding.SeverityInformational},
	}
	for _, sc := range severityChecks {
		if sc.threshold == nil {
			continue
		}
		if count := bySeverity[sc.severity]; count > *sc.threshold {
			result.Failures = append(result.Failures,
				fmt.Sprintf("%s findings (%d) exceeds threshold (%d)",
					sc.severity, count, *sc.threshold))
		}
	}
}

// checkServices fails the gate on any failed finding in a fail_on
// service.
func (p *Policy) checkServices(result *Result, byService map[string]int) {
	for _, svc := range p.FailOn.Services {
		if count := byService[svc]; count > 0 {
			result.Failures = append(result.Failures,
				fmt.Sprintf("failed findings in service '%s' (%d found)",
					svc, count))
		}
	}
}

// checkScore checks the security score floor.
func (p *Policy) checkScore(result *Result, score int) {
	if p.FailOn.ScoreBelow == nil {
		return
	}
	if float64(score) < *p.FailOn.ScoreBelow {
		result.Failures = append(result.Failures,
			fmt.Sprintf("security score (%d) is below threshold (%.1f)",
				score, *p.FailOn.ScoreBelow))
	}
}

// checkScanErrorRate checks the scan error rate ceiling.
func (p *Policy) checkScanErrorRate(result *Result, rate float64) {
	if p.FailOn.ScanErrorRateAbove == nil {
		return
	}
	if rate > *p.FailOn.ScanErrorRateAbove {
		result.Failures = append(result.Failures,
			fmt.Sprintf("scan error rate (%.1f%%) exceeds threshold (%.1f%%)",
				rate, *p.FailOn.ScanErrorRateAbove))
	}
}

// String returns a human-readable representation of the policy.
func (p *Policy) String() string {
	if p.Name != "" {
		return fmt.Sprintf("Policy(%s v%s)", p.Name, p.Version)
	}
	return fmt.Sprintf("Policy(v%s)", p.Version)
}
