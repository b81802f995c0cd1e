package scan

import (
	"fmt"
	"path/filepath"
)

// commandArgs builds the scanner invocation for one target. Report
// filenames embed the target so concurrent scans never clobber each
// other inside the shared output directory.
func (s *Scanner) commandArgs(target string) []string {
	args := []string{
		s.opts.Provider,
		"--project-ids", target,
	}
	if len(s.opts.Checks) > 0 {
		args = append(args, "--checks")
		args = append(args, s.opts.Checks...)
	}
	return append(args,
		"--output-directory", s.opts.OutputDir,
		"--output-filename", s.outputFilename(target),
		"--output-modes", s.opts.OutputMode,
	)
}

// outputFilename derives a deterministic report basename for a target.
// The scanner appends its own format extension.
func (s *Scanner) outputFilename(target string) string {
	return fmt.Sprintf("%s-%s", filepath.Base(s.path), target)
}
