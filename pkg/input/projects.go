// Package input consolidates the ways a command receives its project
// list: repeated flags, a newline-delimited file, and piped stdin.
package input

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ProjectSource bundles every project input method a command accepts.
type ProjectSource struct {
	IDs      []string // from -p flags (repeated or comma-separated via StringSliceFlag)
	ListFile string   // from -projects-file
	Stdin    bool     // read piped stdin when set
}

// Projects returns the deduplicated project list in first-seen order.
// Blank lines and #-comment lines in file and stdin input are skipped.
func (ps *ProjectSource) Projects() ([]string, error) {
	var projects []string
	seen := make(map[string]bool)

	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			return
		}
		if !seen[p] {
			seen[p] = true
			projects = append(projects, p)
		}
	}

	for _, id := range ps.IDs {
		add(id)
	}

	if ps.ListFile != "" {
		lines, err := readLines(ps.ListFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read projects file: %w", err)
		}
		for _, line := range lines {
			add(line)
		}
	}

	if ps.Stdin {
		lines, err := readStdin()
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		for _, line := range lines {
			add(line)
		}
	}

	return projects, nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func readStdin() ([]string, error) {
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		// Not a pipe.
		return nil, nil
	}

	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
