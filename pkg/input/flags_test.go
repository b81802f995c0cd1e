package input

import (
	"flag"
	"testing"
)

func TestStringSliceFlag_SingleValue(t *testing.T) {
	var projects StringSliceFlag
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&projects, "p", "project IDs")

	err := fs.Parse([]string{"-p", "prod-billing"})
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(projects) != 1 || projects[0] != "prod-billing" {
		t.Errorf("expected [prod-billing], got %v", projects)
	}
}

func TestStringSliceFlag_RepeatedFlag(t *testing.T) {
	var projects StringSliceFlag
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&projects, "p", "project IDs")

	err := fs.Parse([]string{"-p", "prod-billing", "-p", "staging-web"})
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(projects) != 2 {
		t.Errorf("expected 2 projects, got %d: %v", len(projects), projects)
	}
}

func TestStringSliceFlag_CommaSeparated(t *testing.T) {
	var projects StringSliceFlag
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&projects, "p", "project IDs")

	err := fs.Parse([]string{"-p", "prod-billing,staging-web,dev-sandbox"})
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(projects) != 3 {
		t.Errorf("expected 3 projects, got %d: %v", len(projects), projects)
	}
}

func TestStringSliceFlag_Mixed(t *testing.T) {
	var projects StringSliceFlag
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&projects, "p", "project IDs")

	err := fs.Parse([]string{"-p", "prod-billing,staging-web", "-p", "dev-sandbox"})
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(projects) != 3 {
		t.Errorf("expected 3 projects, got %d: %v", len(projects), projects)
	}
}

func TestStringSliceFlag_TrimsAndSkipsEmpty(t *testing.T) {
	var projects StringSliceFlag
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&projects, "p", "project IDs")

	err := fs.Parse([]string{"-p", " prod-billing , ,staging-web,"})
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if len(projects) != 2 || projects[0] != "prod-billing" || projects[1] != "staging-web" {
		t.Errorf("expected [prod-billing staging-web], got %v", projects)
	}
}

func TestStringSliceFlag_String(t *testing.T) {
	projects := StringSliceFlag{"a", "b"}
	if got := projects.String(); got != "a,b" {
		t.Errorf("expected a,b, got %s", got)
	}
}
