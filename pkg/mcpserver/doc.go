// Package mcpserver exposes fleetscan as a Model Context Protocol (MCP)
// server, so AI assistants can drive fleet scans, local audits, and
// findings triage through natural conversation.
//
// # Architecture
//
// The server is built on the official MCP Go SDK and shares one
// findings store across the session: run_scan and run_audit feed it,
// get_findings and security_summary read from it. The store starts
// with a source over the artifact directory, so reports left by
// earlier CLI runs are queryable before any tool has run.
//
//   - Tools:     run_scan, run_audit, get_findings, security_summary
//   - Resources: fleetscan://version, fleetscan://checks
//
// # Tool Design
//
// Every tool ships a detailed description with usage guidance and
// examples, a complete JSON schema with enums and bounds, proper
// annotations (readOnlyHint, openWorldHint, …), and actionable errors
// that suggest the correct next step. Results are indented JSON.
//
// # Transport
//
// The server speaks stdio, the mode IDE and assistant integrations
// use. Tools run synchronously: a client connection maps to a single
// process, so there is no task state to hand back across invocations.
//
// # Usage
//
//	srv, err := mcpserver.New(&mcpserver.Config{ArtifactDir: "./scan-artifacts"})
//	if err != nil {
//		return err
//	}
//	err = srv.RunStdio(ctx)
package mcpserver
