package main

import (
	"fmt"
	"os"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/ui"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan":
		runScan()
	case "audit":
		runAudit()
	case "report", "findings":
		runReport()
	case "checks":
		runChecks()
	case "mcp":
		runMCP()
	case "-v", "--version", "version":
		fmt.Printf("%s v%s (commit %s, built %s)\n", defaults.ToolName, defaults.Version, ui.Commit, ui.BuildDate)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s v%s - concurrent security-scan orchestration

USAGE:
  %s <command> [flags]

COMMANDS:
  scan       Scan cloud projects with the external scanner
  audit      Sweep a local source tree for embedded credentials
  report     Aggregate, filter, and export collected findings
  checks     List the check registry and auto-fixable checks
  mcp        Serve the engine over MCP stdio for assistant clients
  version    Print version information
  help       Show this help

EXAMPLES:
  %s scan -p prod-api,prod-web -concurrency 5 -timeout 10m
  %s scan -projects-file projects.txt -format json -o scan.json
  %s audit -root ./services -format markdown -o audit.md
  %s report -reports ./fleetscan-reports -only-failures -format csv -o failures.csv
  %s checks -auto-fixable

Run '%s <command> -h' for command flags.
`, defaults.ToolName, defaults.Version,
		defaults.ToolName, defaults.ToolName, defaults.ToolName, defaults.ToolName,
		defaults.ToolName, defaults.ToolName, defaults.ToolName)
}
