package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fleetscan/fleetscan/pkg/audit"
	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/duration"
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/scan"
	"github.com/fleetscan/fleetscan/pkg/scoring"
	"github.com/fleetscan/fleetscan/pkg/store"
)

// registerTools adds the fleet scanning tools to the MCP server.
func (s *Server) registerTools() {
	s.addRunScanTool()
	s.addRunAuditTool()
	s.addGetFindingsTool()
	s.addSecuritySummaryTool()
}

// ═══════════════════════════════════════════════════════════════════════════
// run_scan — Scan cloud projects with the external scanner
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addRunScanTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "run_scan",
			Title: "Run Fleet Scan",
			Description: `Run the external cloud scanner against one or more projects and ingest the findings. This is the core scanning tool.

USE THIS TOOL WHEN:
• The user says "scan these projects" or "check the security of project X"
• You need fresh findings — the store only knows about reports already on disk
• The user wants per-project cloud configuration checks (IAM, storage, network)

DO NOT USE THIS TOOL WHEN:
• You want to inspect local source code for secrets — use 'run_audit' instead
• Findings already exist and you just need to read them — use 'get_findings'
• You only need the aggregate posture — use 'security_summary'

Each project is scanned by its own scanner process with a bounded number
running at once. A timed-out project is killed and reported as failed;
other projects are unaffected. Completed reports are ingested into the
session findings store automatically.

EXAMPLE INPUTS:
• One project: {"projects": ["prod-billing"]}
• A fleet: {"projects": ["prod-billing", "staging-web", "dev-api"], "concurrency": 3}
• Specific checks: {"projects": ["prod-billing"], "checks": ["iam_public_access", "bucket_public_read"]}
• Tight budget: {"projects": ["dev-api"], "timeout_sec": 120}

Returns: run id, per-project outcomes, and the refreshed security posture
(score, risk level, failed findings count).

SYNCHRONOUS: a full scan takes minutes per project. The call blocks until
every project completes or fails.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"projects": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Project IDs to scan. At least one is required.",
					},
					"provider": map[string]any{
						"type":        "string",
						"description": "Cloud provider argument passed to the scanner. Defaults to the server's configured provider.",
					},
					"checks": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Restrict the scan to these check IDs. Empty means the scanner's full suite.",
					},
					"concurrency": map[string]any{
						"type":        "integer",
						"description": "Scanner processes running at once.",
						"default":     defaults.ConcurrencyScans,
						"minimum":     1,
						"maximum":     16,
					},
					"timeout_sec": map[string]any{
						"type":        "integer",
						"description": "Wall-clock budget per project, in seconds. On expiry the scanner's whole process group is killed.",
						"default":     int(duration.ScanTimeout.Seconds()),
						"minimum":     30,
						"maximum":     3600,
					},
				},
				"required": []string{"projects"},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:    false,
				IdempotentHint:  false,
				OpenWorldHint:   boolPtr(true),
				DestructiveHint: boolPtr(false),
				Title:           "Run Fleet Scan",
			},
		},
		s.handleRunScan,
	)
}

type runScanArgs struct {
	Projects    []string `json:"projects"`
	Provider    string   `json:"provider"`
	Checks      []string `json:"checks"`
	Concurrency int      `json:"concurrency"`
	TimeoutSec  int      `json:"timeout_sec"`
}

type scanFailure struct {
	Project string `json:"project"`
	Error   string `json:"error"`
}

type runScanResult struct {
	Summary        string            `json:"summary"`
	RunID          string            `json:"run_id"`
	Provider       string            `json:"provider"`
	TargetsScanned int               `json:"targets_scanned"`
	Succeeded      int               `json:"succeeded"`
	Failed         []scanFailure     `json:"failed,omitempty"`
	SecurityScore  int               `json:"security_score"`
	RiskLevel      scoring.RiskLevel `json:"risk_level"`
	FailedFindings int               `json:"failed_findings"`
	NextSteps      []string          `json:"next_steps"`
}

func (s *Server) handleRunScan(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args runScanArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	if len(args.Projects) == 0 {
		return errorResult(`at least one project is required. Example: {"projects": ["prod-billing"]}`), nil
	}
	if args.Concurrency <= 0 {
		args.Concurrency = defaults.ConcurrencyScans
	}
	if args.Concurrency > 16 {
		args.Concurrency = 16
	}
	timeout := time.Duration(args.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = duration.ScanTimeout
	}
	if timeout > time.Hour {
		timeout = time.Hour
	}
	provider := args.Provider
	if provider == "" {
		provider = s.config.Provider
	}

	scanner, err := scan.New(scan.Options{
		ScannerPath: s.config.ScannerPath,
		Provider:    provider,
		OutputDir:   s.config.ArtifactDir,
		Checks:      args.Checks,
		Concurrency: args.Concurrency,
		Timeout:     timeout,
		Logger:      s.logger,
	})
	if err != nil {
		return enrichedError(
			fmt.Sprintf("failed to prepare scan: %v", err),
			[]string{
				"Verify the artifact directory is writable.",
				"Check the server's -artifacts configuration.",
			}), nil
	}

	results := scanner.ScanAll(ctx, args.Projects)

	out := runScanResult{
		RunID:          scanner.RunID(),
		Provider:       provider,
		TargetsScanned: len(results),
	}
	for _, r := range results {
		if r.Success {
			out.Succeeded++
			continue
		}
		out.Failed = append(out.Failed, scanFailure{Project: r.Target, Error: r.Error})
	}

	// A batch where nothing even spawned means the scanner binary is
	// missing, which deserves recovery guidance rather than a result.
	if out.Succeeded == 0 && len(out.Failed) > 0 && strings.Contains(out.Failed[0].Error, "spawn scanner") {
		return enrichedError(
			fmt.Sprintf("scanner unavailable: %s", out.Failed[0].Error),
			[]string{
				fmt.Sprintf("Install the %q binary or point the server at it with -scanner.", s.config.ScannerPath),
				"Use 'run_audit' for local static analysis; it needs no external scanner.",
			}), nil
	}

	// Fold the new reports into the session store.
	s.store.Invalidate()
	data, err := s.store.Load(ctx, false)
	if err != nil {
		return errorResult(fmt.Sprintf("scan finished but ingestion failed: %v", err)), nil
	}

	out.SecurityScore = data.SecurityScore
	out.RiskLevel = data.RiskLevel
	out.FailedFindings = data.Stats.Failed
	out.Summary = fmt.Sprintf("Scanned %d project(s): %d succeeded, %d failed. Security score %d/100 (%s).",
		out.TargetsScanned, out.Succeeded, len(out.Failed), out.SecurityScore, out.RiskLevel)
	out.NextSteps = []string{
		"Call 'security_summary' for the full posture breakdown.",
		"Call 'get_findings' with {\"only_failures\": true} to triage the failures.",
	}
	return jsonResult(out)
}

// ═══════════════════════════════════════════════════════════════════════════
// run_audit — Local static analysis sweep
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addRunAuditTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "run_audit",
			Title: "Run Local Audit",
			Description: `Sweep a local directory tree for hardcoded secrets and insecure patterns. No network, no external scanner.

USE THIS TOOL WHEN:
• The user asks "are there secrets in this repo?" or "audit this directory"
• The external scanner is unavailable and you still need findings
• You want source-level findings (file, line, matched snippet) alongside cloud ones

DO NOT USE THIS TOOL WHEN:
• You need cloud configuration checks — use 'run_scan' instead
• You just want to re-read existing findings — use 'get_findings'

The sweep matches every file against the audit rules (hardcoded
passwords, API keys, private key blocks, weak hashes, and so on) with a
bounded worker pool. Findings carry file, line, and a match snippet,
and join the session findings store next to scan results. Re-auditing
the same root replaces its previous findings.

EXAMPLE INPUTS:
• Audit the configured root: {}
• Audit a specific tree: {"root": "/src/payments-service"}
• Tag findings with a project: {"root": "/src/payments-service", "project": "prod-billing"}

Returns: files scanned, findings by severity, and the refreshed posture.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"root": map[string]any{
						"type":        "string",
						"description": "Directory tree to sweep. Defaults to the server's configured audit root.",
					},
					"project": map[string]any{
						"type":        "string",
						"description": "Project ID to tag the findings with. Defaults to the root's base name.",
					},
					"workers": map[string]any{
						"type":        "integer",
						"description": "Matching pool size. 0 means one per CPU.",
						"default":     0,
						"minimum":     0,
						"maximum":     64,
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Run Local Audit",
			},
		},
		s.handleRunAudit,
	)
}

type runAuditArgs struct {
	Root    string `json:"root"`
	Project string `json:"project"`
	Workers int    `json:"workers"`
}

type runAuditResult struct {
	Summary       string            `json:"summary"`
	Root          string            `json:"root"`
	FilesScanned  int64             `json:"files_scanned"`
	Findings      int               `json:"findings"`
	BySeverity    map[string]int    `json:"by_severity,omitempty"`
	SecurityScore int               `json:"security_score"`
	RiskLevel     scoring.RiskLevel `json:"risk_level"`
	NextSteps     []string          `json:"next_steps,omitempty"`
}

func (s *Server) handleRunAudit(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args runAuditArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	root := args.Root
	if root == "" {
		root = s.config.AuditRoot
	}

	var rules []audit.Rule
	if s.config.RulesFile != "" {
		loaded, err := audit.LoadRulesFile(s.config.RulesFile)
		if err != nil {
			return errorResult(fmt.Sprintf("failed to load audit rules from %s: %v", s.config.RulesFile, err)), nil
		}
		rules = loaded
	}

	auditor := audit.New(audit.Options{
		Root:    root,
		Project: args.Project,
		Rules:   rules,
		Workers: args.Workers,
		Logger:  s.logger,
	})

	findings, err := auditor.Scan(ctx)
	if err != nil {
		return enrichedError(
			fmt.Sprintf("audit of %s failed: %v", root, err),
			[]string{
				"Verify the root directory exists and is readable.",
				"Pass an absolute path in the 'root' argument.",
			}), nil
	}

	s.audits.Set(root, findings)
	s.store.Invalidate()
	data, err := s.store.Load(ctx, false)
	if err != nil {
		return errorResult(fmt.Sprintf("audit finished but ingestion failed: %v", err)), nil
	}

	progress := auditor.Progress()
	out := runAuditResult{
		Root:          root,
		FilesScanned:  progress.FilesScanned,
		Findings:      len(findings),
		SecurityScore: data.SecurityScore,
		RiskLevel:     data.RiskLevel,
	}
	if len(findings) > 0 {
		out.BySeverity = make(map[string]int)
		for _, f := range findings {
			out.BySeverity[string(f.Severity)]++
		}
		out.NextSteps = []string{
			"Call 'get_findings' with {\"services\": [\"source\"]} to see each match with file and line.",
		}
	}
	out.Summary = fmt.Sprintf("Audited %d file(s) under %s: %d finding(s). Security score %d/100 (%s).",
		progress.FilesScanned, root, len(findings), out.SecurityScore, out.RiskLevel)
	return jsonResult(out)
}

// ═══════════════════════════════════════════════════════════════════════════
// get_findings — Query the findings store
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addGetFindingsTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "get_findings",
			Title: "Get Findings",
			Description: `Query the session findings store with filters. READ-ONLY — never triggers a scan.

USE THIS TOOL WHEN:
• Triaging after 'run_scan' or 'run_audit': {"only_failures": true}
• The user asks "show me the critical findings" or "what failed in storage?"
• Drilling into one project, service, severity, or compliance framework

DO NOT USE THIS TOOL WHEN:
• No scan or audit has run and no reports exist — the store will be empty
• You only need aggregate numbers — use 'security_summary' (cheaper output)

All filter dimensions are optional and combine as AND. 'search' is a
case-insensitive substring match over description, check id, service,
and resource id.

EXAMPLE INPUTS:
• Everything that failed: {"only_failures": true}
• Critical + high failures: {"severities": ["critical", "high"], "only_failures": true}
• One project's IAM problems: {"projects": ["prod-billing"], "services": ["iam"]}
• CIS violations mentioning buckets: {"frameworks": ["cis"], "search": "bucket"}

SEVERITIES: critical, high, medium, low, informational
STATUSES: PASS, FAIL, WARNING, UNKNOWN
FRAMEWORKS: cis, hipaa, gdpr, soc2, pci, nist, iso27001

Returns: matching findings (newest scan data first ingested) with full
detail — check id, resource, severity, status, description,
recommendation, evidence, and file/line for audit findings.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"severities": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string", "enum": []string{"critical", "high", "medium", "low", "informational"}},
						"description": "Keep findings with these severities.",
					},
					"statuses": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string", "enum": []string{"PASS", "FAIL", "WARNING", "UNKNOWN"}},
						"description": "Keep findings with these statuses.",
					},
					"frameworks": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string", "enum": []string{"cis", "hipaa", "gdpr", "soc2", "pci", "nist", "iso27001"}},
						"description": "Keep findings tagged to these compliance frameworks.",
					},
					"services": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Keep findings for these services (e.g. iam, storage, source).",
					},
					"projects": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Keep findings for these project IDs.",
					},
					"search": map[string]any{
						"type":        "string",
						"description": "Case-insensitive substring over description, check id, service, and resource id.",
					},
					"only_failures": map[string]any{
						"type":        "boolean",
						"description": "Hide passing findings. Warnings and unknowns stay visible.",
						"default":     false,
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum findings to return.",
						"default":     50,
						"minimum":     1,
						"maximum":     500,
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Get Findings",
			},
		},
		s.handleGetFindings,
	)
}

type getFindingsArgs struct {
	Severities   []string `json:"severities"`
	Statuses     []string `json:"statuses"`
	Frameworks   []string `json:"frameworks"`
	Services     []string `json:"services"`
	Projects     []string `json:"projects"`
	Search       string   `json:"search"`
	OnlyFailures bool     `json:"only_failures"`
	Limit        int      `json:"limit"`
}

type findingsPage struct {
	Total     int               `json:"total"`
	Returned  int               `json:"returned"`
	Truncated bool              `json:"truncated"`
	Findings  []finding.Finding `json:"findings"`
}

func (s *Server) handleGetFindings(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args getFindingsArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	filters := store.Filters{
		Services:     args.Services,
		Projects:     args.Projects,
		Search:       args.Search,
		OnlyFailures: args.OnlyFailures,
	}
	for _, raw := range args.Severities {
		filters.Severities = append(filters.Severities, finding.ParseSeverity(raw))
	}
	for _, raw := range args.Statuses {
		filters.Statuses = append(filters.Statuses, finding.ParseStatus(raw))
	}
	for _, raw := range args.Frameworks {
		filters.Frameworks = append(filters.Frameworks, finding.ParseFramework(raw))
	}

	matched, err := s.store.Filtered(ctx, filters)
	if err != nil {
		return errorResult(fmt.Sprintf("loading findings: %v", err)), nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	page := findingsPage{Total: len(matched), Findings: matched}
	if len(matched) > limit {
		page.Findings = matched[:limit]
		page.Truncated = true
	}
	page.Returned = len(page.Findings)
	return jsonResult(page)
}

// ═══════════════════════════════════════════════════════════════════════════
// security_summary — Aggregate posture snapshot
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addSecuritySummaryTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "security_summary",
			Title: "Security Summary",
			Description: `The aggregate security posture over every ingested finding: 0-100 score, risk level, counts, and compliance rollups.

USE THIS TOOL WHEN:
• The user asks "how secure are we?" or "what's the security score?"
• Right after 'run_scan' or 'run_audit' to see the effect
• You need per-framework compliance rates (CIS, PCI, SOC2, …)

DO NOT USE THIS TOOL WHEN:
• You need individual findings — use 'get_findings' instead

The snapshot is cached with a TTL. Pass {"force_refresh": true} to
re-ingest every source first, e.g. after reports were copied into the
artifact directory by hand.

SCORE MEANINGS:
• 90-100 MINIMAL — posture is clean, keep watching
• 75-89  LOW — a few non-critical failures
• 50-74  MEDIUM — real exposure, plan remediation
• 25-49  HIGH — serious exposure, remediate now
• 0-24   CRITICAL — act immediately
Any failed critical check pins the risk level to CRITICAL regardless of score.

Returns: score, risk level, pass/fail counts by severity/service/framework,
compliance rollups, distinct projects and services, and how many failed
findings have an automated fix.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"force_refresh": map[string]any{
						"type":        "boolean",
						"description": "Re-ingest every source even if the cached snapshot is still fresh.",
						"default":     false,
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Security Summary",
			},
		},
		s.handleSecuritySummary,
	)
}

type securitySummaryArgs struct {
	ForceRefresh bool `json:"force_refresh"`
}

type securitySummaryResult struct {
	Summary        string                    `json:"summary"`
	SecurityScore  int                       `json:"security_score"`
	RiskLevel      scoring.RiskLevel         `json:"risk_level"`
	Interpretation string                    `json:"interpretation"`
	Stats          finding.Stats             `json:"stats"`
	Compliance     []scoring.ComplianceScore `json:"compliance,omitempty"`
	Projects       []string                  `json:"projects,omitempty"`
	Services       []string                  `json:"services,omitempty"`
	AutoFixable    int                       `json:"auto_fixable"`
	LoadedAt       time.Time                 `json:"loaded_at"`
	NextSteps      []string                  `json:"next_steps,omitempty"`
}

func (s *Server) handleSecuritySummary(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args securitySummaryArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	data, err := s.store.Load(ctx, args.ForceRefresh)
	if err != nil {
		return errorResult(fmt.Sprintf("loading snapshot: %v", err)), nil
	}

	fixable, err := s.store.AutoFixable(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("resolving auto-fixable findings: %v", err)), nil
	}

	out := securitySummaryResult{
		SecurityScore:  data.SecurityScore,
		RiskLevel:      data.RiskLevel,
		Interpretation: interpretRisk(data),
		Stats:          data.Stats,
		Compliance:     data.ComplianceList(),
		Projects:       data.Projects,
		Services:       data.Services,
		AutoFixable:    len(fixable),
		LoadedAt:       data.LoadedAt,
	}
	out.Summary = fmt.Sprintf("Security score %d/100 (%s): %d finding(s), %d failed, across %d project(s).",
		data.SecurityScore, data.RiskLevel, data.Stats.Total, data.Stats.Failed, len(data.Projects))

	if data.Stats.Total == 0 {
		out.NextSteps = []string{
			"The store is empty. Call 'run_scan' to scan cloud projects or 'run_audit' to sweep local code.",
		}
	} else if data.Stats.Failed > 0 {
		out.NextSteps = []string{
			"Call 'get_findings' with {\"only_failures\": true, \"severities\": [\"critical\", \"high\"]} to triage the worst failures.",
		}
		if len(fixable) > 0 {
			out.NextSteps = append(out.NextSteps,
				fmt.Sprintf("%d failed finding(s) have an automated fix; surface them to the user.", len(fixable)))
		}
	}
	return jsonResult(out)
}

// interpretRisk renders the posture in one plain sentence.
func interpretRisk(data *store.SecurityData) string {
	if data.Stats.Total == 0 {
		return "No findings ingested yet; the score reflects an empty store, not a clean fleet."
	}
	if crit := data.FailedCritical(); crit > 0 {
		return fmt.Sprintf("%d failed critical check(s) pin the risk level to CRITICAL; fix those first.", crit)
	}
	switch data.RiskLevel {
	case scoring.RiskMinimal:
		return "Posture is clean; no action required beyond routine re-scans."
	case scoring.RiskLow:
		return "A few non-critical failures; schedule remediation."
	case scoring.RiskMedium:
		return "Real exposure across the fleet; plan remediation this cycle."
	case scoring.RiskHigh:
		return "Serious exposure; remediate the highest-severity failures now."
	default:
		return "Severe exposure; treat remediation as an incident."
	}
}
