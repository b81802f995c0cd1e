package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fleetscan/fleetscan/pkg/checks"
	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/jsonutil"
	"github.com/fleetscan/fleetscan/pkg/store"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds MCP server configuration. Zero-value fields fall back
// to the package defaults the CLI uses.
type Config struct {
	// ScannerPath is the external scan tool binary name or path.
	ScannerPath string

	// Provider is the default cloud provider argument for run_scan.
	Provider string

	// ArtifactDir is where scan reports are written and ingested from.
	ArtifactDir string

	// AuditRoot is the default directory tree run_audit sweeps.
	AuditRoot string

	// RulesFile optionally replaces the built-in audit rules.
	RulesFile string

	// ChecksFile optionally extends the built-in check registry.
	ChecksFile string

	// CacheTTL is the findings snapshot lifetime.
	CacheTTL time.Duration

	// Logger receives server-side logs. Tool results go to the client;
	// the logger must never write to stdout, which carries the protocol.
	Logger *slog.Logger
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

// Server wraps the MCP server with the fleetscan engine: a findings
// store shared by every tool in the session, the check registry, and
// the scan/audit orchestration the tools drive.
type Server struct {
	mcp      *mcp.Server
	config   *Config
	registry *checks.Registry
	store    *store.Store
	audits   *auditResults
	logger   *slog.Logger
}

// MCPServer returns the underlying MCP server for direct access (e.g., testing).
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// Store returns the session findings store shared by the tools.
func (s *Server) Store() *store.Store { return s.store }

// New creates an MCP server with all tools and resources registered.
// The findings store starts with one source over the artifact
// directory, so reports from earlier CLI runs are visible immediately.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ScannerPath == "" {
		cfg.ScannerPath = defaults.ScannerBinary
	}
	if cfg.Provider == "" {
		cfg.Provider = defaults.ScannerProvider
	}
	if cfg.ArtifactDir == "" {
		cfg.ArtifactDir = defaults.ScanOutputDir
	}
	if cfg.AuditRoot == "" {
		cfg.AuditRoot = "."
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := checks.Builtin()
	if cfg.ChecksFile != "" {
		file, err := checks.LoadFile(cfg.ChecksFile)
		if err != nil {
			return nil, fmt.Errorf("loading checks file: %w", err)
		}
		registry.Merge(file)
	}

	s := &Server{
		config:   cfg,
		registry: registry,
		audits:   &auditResults{byRoot: make(map[string][]finding.Finding)},
		logger:   logger,
	}

	s.store = store.New(store.Options{
		TTL:      cfg.CacheTTL,
		Registry: registry,
		Logger:   logger,
	})
	s.store.AddSource(store.NewReportSource(cfg.ArtifactDir, logger))
	s.store.AddSource(s.audits)

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    defaults.ToolName,
			Title:   "Fleetscan MCP Server",
			Version: defaults.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// RunStdio runs the MCP server over stdio transport, the mode IDE and
// assistant integrations use. Tools execute synchronously: each client
// connection maps to a single process, so there is no task state to
// hand back across invocations.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("mcp: serving over stdio",
		slog.String("artifacts", s.config.ArtifactDir),
		slog.String("provider", s.config.Provider))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// ---------------------------------------------------------------------------
// Audit results source
// ---------------------------------------------------------------------------

// auditResults feeds run_audit findings into the store, keyed by root
// so re-auditing a tree replaces its findings instead of duplicating
// them across the session.
type auditResults struct {
	mu     sync.RWMutex
	byRoot map[string][]finding.Finding
}

// Set replaces the findings recorded for one audited root.
func (a *auditResults) Set(root string, findings []finding.Finding) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byRoot[root] = findings
}

// Name identifies the source in logs.
func (a *auditResults) Name() string { return "local-audit" }

// Findings flattens the per-root results for store ingestion.
func (a *auditResults) Findings(ctx context.Context) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []finding.Finding
	for _, fs := range a.byRoot {
		out = append(out, fs...)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Result helpers
// ---------------------------------------------------------------------------

// textResult creates a CallToolResult with a single text content block.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// jsonResult marshals v to indented JSON and wraps it in a CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult creates an IsError CallToolResult so the model can see
// the error and self-correct rather than raising a protocol-level
// exception.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// enrichedError creates a structured error response with recovery
// guidance. The JSON envelope matches the success responses so clients
// can use the same parsing logic for both paths.
func enrichedError(msg string, recoverySteps []string) *mcp.CallToolResult {
	type errResponse struct {
		Error         string   `json:"error"`
		RecoverySteps []string `json:"recovery_steps"`
	}
	data, _ := jsonutil.MarshalIndent(errResponse{
		Error:         msg,
		RecoverySteps: recoverySteps,
	}, "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
		IsError: true,
	}
}

// boolPtr returns a pointer to b. Used for optional bool fields in the SDK.
func boolPtr(b bool) *bool { return &b }

// parseArgs unmarshals the raw JSON arguments from a tool call into dst.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Server instructions
// ---------------------------------------------------------------------------

const serverInstructions = `You are operating fleetscan — a security-scan orchestrator that runs cloud
configuration scans across project fleets, normalizes the findings, and
aggregates them into a scored security posture.

TOOLS:

• run_scan — scan cloud projects with the external scanner (prowler by
  default). Long-running: one scanner process per project, bounded
  concurrency. Results are ingested into the session findings store.
• run_audit — sweep a local directory tree for hardcoded secrets and
  insecure patterns. Fast, no network. Findings join the same store.
• get_findings — query the findings store with filters (severity,
  status, service, framework, project, substring search).
• security_summary — the aggregate posture: 0-100 security score, risk
  level, per-severity/service/framework counts, compliance rollups.

TYPICAL WORKFLOW: run_scan (or run_audit) → security_summary →
get_findings with only_failures=true to triage the failures.

SCORING: 100 means no failed findings. Failures subtract severity-
weighted penalties. Any failed critical check pins the risk level to
CRITICAL regardless of the score.

The findings store is shared across tools and cached with a TTL, so a
security_summary right after run_scan reflects that scan. Reports left
in the artifact directory by earlier CLI runs are ingested too.`
