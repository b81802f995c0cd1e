package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/jsonutil"
)

// registerResources adds the domain-knowledge resources to the MCP server.
func (s *Server) registerResources() {
	s.addVersionResource()
	s.addChecksResource()
}

// ═══════════════════════════════════════════════════════════════════════════
// fleetscan://version — Server capabilities and version
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addVersionResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         "fleetscan://version",
			Name:        "Fleetscan Version",
			Description: "Server version, capabilities, and tool inventory.",
			MIMEType:    "application/json",
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			info := map[string]any{
				"name":    defaults.ToolName,
				"version": defaults.Version,
				"tools": []string{
					"run_scan", "run_audit", "get_findings", "security_summary",
				},
				"scanner":      s.config.ScannerPath,
				"provider":     s.config.Provider,
				"artifact_dir": s.config.ArtifactDir,
				"severities": []string{
					"critical", "high", "medium", "low", "informational",
				},
				"frameworks": []string{
					"cis", "hipaa", "gdpr", "soc2", "pci", "nist", "iso27001",
				},
			}
			return resourceJSON("fleetscan://version", info)
		},
	)
}

// ═══════════════════════════════════════════════════════════════════════════
// fleetscan://checks — Check registry
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addChecksResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         "fleetscan://checks",
			Name:        "Check Registry",
			Description: "Known check IDs with framework, default severity, and whether an automated fix exists.",
			MIMEType:    "application/json",
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			type checkInfo struct {
				CheckID     string `json:"check_id"`
				Framework   string `json:"framework"`
				Severity    string `json:"severity"`
				Title       string `json:"title,omitempty"`
				AutoFixable bool   `json:"auto_fixable,omitempty"`
			}
			ids := s.registry.CheckIDs()
			out := struct {
				Total  int         `json:"total"`
				Checks []checkInfo `json:"checks"`
			}{Total: len(ids)}
			for _, id := range ids {
				e := s.registry.Lookup(id)
				out.Checks = append(out.Checks, checkInfo{
					CheckID:     id,
					Framework:   e.Framework,
					Severity:    e.Severity,
					Title:       e.Title,
					AutoFixable: s.registry.IsAutoFixable(id),
				})
			}
			return resourceJSON("fleetscan://checks", out)
		},
	)
}

// resourceJSON marshals v and wraps it as a single JSON resource.
func resourceJSON(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := jsonutil.MarshalIndent(v, "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}
