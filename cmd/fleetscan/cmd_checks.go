package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/fleetscan/fleetscan/pkg/config"
	"github.com/fleetscan/fleetscan/pkg/jsonutil"
	"github.com/fleetscan/fleetscan/pkg/ui"
)

func runChecks() {
	fs := flag.NewFlagSet("checks", flag.ExitOnError)
	cfg := config.Default()
	cfg.RegisterCommonFlags(fs)
	checksFile := fs.String("checks-file", "", "YAML check-registry overrides")
	fixableOnly := fs.Bool("auto-fixable", false, "List only checks with automated remediations")
	asJSON := fs.Bool("json", false, "Emit the registry as JSON")
	fs.Parse(os.Args[2:])

	cfg.ChecksFile = *checksFile
	if err := cfg.Load(fs); err != nil {
		fatalConfig(err)
	}
	setupLogging(cfg)

	registry, err := buildRegistry(cfg)
	if err != nil {
		fatalConfig(err)
	}

	ids := registry.CheckIDs()
	sort.Strings(ids)

	if *asJSON {
		type row struct {
			CheckID     string `json:"check_id"`
			Framework   string `json:"framework"`
			Severity    string `json:"severity"`
			Title       string `json:"title,omitempty"`
			AutoFixable bool   `json:"auto_fixable"`
		}
		rows := make([]row, 0, len(ids))
		for _, id := range ids {
			if *fixableOnly && !registry.IsAutoFixable(id) {
				continue
			}
			e := registry.Lookup(id)
			rows = append(rows, row{
				CheckID:     id,
				Framework:   e.Framework,
				Severity:    e.Severity,
				Title:       e.Title,
				AutoFixable: registry.IsAutoFixable(id),
			})
		}
		if err := jsonutil.MarshalWriteIndent(os.Stdout, rows, "  "); err != nil {
			ui.PrintError(err.Error())
			os.Exit(1)
		}
		fmt.Println()
		return
	}

	ui.PrintSection(fmt.Sprintf("Check registry (%d checks)", len(ids)))
	for _, id := range ids {
		if *fixableOnly && !registry.IsAutoFixable(id) {
			continue
		}
		e := registry.Lookup(id)
		marker := "  "
		if registry.IsAutoFixable(id) {
			marker = ui.Icon("⚡", "*") + " "
		}
		fmt.Printf("%s%-45s %-10s %s\n", marker, id, e.Framework, e.Severity)
	}
}
