package ui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/fleetscan/fleetscan/pkg/defaults"
)

// Build information, overridable at build time via ldflags:
//
//	go build -ldflags "-X github.com/fleetscan/fleetscan/pkg/ui.Commit=$(git rev-parse --short HEAD)"
var (
	BuildDate = "unknown"
	Commit    = "dev"
)

// Global UI state
var (
	silentMode  bool
	noColorMode bool
	uiMu        sync.RWMutex
)

// SetSilent enables or disables silent mode (suppresses most output).
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled.
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output.
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled.
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

const bannerSeparator = "________________________________________________"

// PrintBanner prints the application banner with version info to
// stderr, keeping stdout clean for report data.
func PrintBanner() {
	if IsSilent() {
		return
	}
	fmt.Fprintln(os.Stderr, DividerStyle.Render(bannerSeparator))
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "  %s %s\n",
		BannerStyle.Render(defaults.ToolName),
		VersionStyle.Render("v"+defaults.Version))
	fmt.Fprintf(os.Stderr, "  %s\n", SubtitleStyle.Render("fleet-wide cloud security scanning"))
	fmt.Fprintln(os.Stderr, DividerStyle.Render(bannerSeparator))
	fmt.Fprintln(os.Stderr)
}

// PrintMiniBanner prints a single-line banner for subcommands that
// produce mostly machine output.
func PrintMiniBanner() {
	if IsSilent() {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n\n",
		BannerStyle.Render(defaults.ToolName),
		VersionStyle.Render("v"+defaults.Version))
}

// printOption prints one configuration option.
// Format:  :: Option              : Value
func printOption(name, value string) {
	fmt.Fprintf(os.Stderr, " :: %-20s : %s\n", ConfigLabelStyle.Render(name), ConfigValueStyle.Render(value))
}

// PrintConfigBanner shows the effective settings before a run starts.
// Known keys print in a stable order; anything else follows.
func PrintConfigBanner(options map[string]string) {
	if IsSilent() {
		return
	}

	order := []string{
		"Projects", "Provider", "Scanner", "Concurrency", "Timeout",
		"Remote", "Reports", "Root", "Rules", "Workers",
		"Output", "Format", "Proxy",
	}

	printed := make(map[string]bool)
	for _, name := range order {
		if value, ok := options[name]; ok && value != "" {
			printOption(name, value)
			printed[name] = true
		}
	}

	for name, value := range options {
		if !printed[name] && value != "" {
			printOption(name, value)
		}
	}

	fmt.Fprintf(os.Stderr, "%s\n\n", DividerStyle.Render(bannerSeparator))
}

// PrintDivider prints a stylized divider (to stderr).
func PrintDivider() {
	divider := strings.Repeat("-", 75)
	fmt.Fprintln(os.Stderr, DividerStyle.Render(divider))
}

// PrintSection prints a section header (to stderr).
func PrintSection(title string) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, SectionStyle.Render("> "+title))
	PrintDivider()
}

// PrintConfigLine prints a single config line.
func PrintConfigLine(key, value string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(os.Stderr, "  %s %s\n",
		ConfigLabelStyle.Render(key+":"),
		ConfigValueStyle.Render(value),
	)
}

// BracketPart is one piece of a nuclei-style bracketed line.
type BracketPart struct {
	Text  string
	Style lipgloss.Style
}

// SeverityBracket renders a severity badge part.
func SeverityBracket(severity string) BracketPart {
	return BracketPart{Text: severity, Style: SeverityStyle(severity)}
}

// StatusBracket renders a finding status part.
func StatusBracket(status string) BracketPart {
	return BracketPart{Text: status, Style: StatusStyle(status)}
}

// ServiceBracket renders a service badge part.
func ServiceBracket(service string) BracketPart {
	return BracketPart{Text: service, Style: ServiceStyle}
}

// TextBracket renders plain text.
func TextBracket(text string) BracketPart {
	return BracketPart{Text: text, Style: ConfigValueStyle}
}

// MutedBracket renders de-emphasized text.
func MutedBracket(text string) BracketPart {
	return BracketPart{Text: text, Style: StatLabelStyle}
}

// PrintBracketedInfo prints bracketed information to stderr.
// Example: [critical] [iam] check-id project [FAIL]
func PrintBracketedInfo(parts ...BracketPart) {
	if IsSilent() {
		return
	}

	var output strings.Builder
	for _, part := range parts {
		output.WriteString(BracketStyle.Render("["))
		output.WriteString(part.Style.Render(SanitizeString(part.Text)))
		output.WriteString(BracketStyle.Render("] "))
	}
	fmt.Fprintln(os.Stderr, output.String())
}

// PrintFinding prints one live finding line in bracketed style.
// Format: [severity] [service] check-id project [status]
func PrintFinding(severity, service, checkID, project, status string) {
	if IsSilent() {
		return
	}

	var output strings.Builder
	output.WriteString(BracketStyle.Render("["))
	output.WriteString(SeverityStyle(severity).Render(severity))
	output.WriteString(BracketStyle.Render("] "))

	if service != "" {
		output.WriteString(BracketStyle.Render("["))
		output.WriteString(ServiceStyle.Render(service))
		output.WriteString(BracketStyle.Render("] "))
	}

	output.WriteString(ConfigValueStyle.Render(checkID))
	if project != "" {
		output.WriteString(" ")
		output.WriteString(StatLabelStyle.Render(project))
	}

	output.WriteString(" ")
	output.WriteString(BracketStyle.Render("["))
	output.WriteString(StatusStyle(status).Render(status))
	output.WriteString(BracketStyle.Render("]"))

	fmt.Fprintln(os.Stderr, output.String())
}

// PrintHelp prints contextual help (to stderr).
func PrintHelp(text string) {
	fmt.Fprintln(os.Stderr, HelpStyle.Render(SanitizeString("  [i] "+text)))
}

// PrintSuccess prints a success message (to stderr).
func PrintSuccess(message string) {
	fmt.Fprintln(os.Stderr, PassStyle.Render(SanitizeString("  [+] "+message)))
}

// PrintError prints an error message (to stderr).
func PrintError(message string) {
	fmt.Fprintln(os.Stderr, FailStyle.Render(SanitizeString("  [X] "+message)))
}

// PrintWarning prints a warning message (to stderr).
func PrintWarning(message string) {
	fmt.Fprintln(os.Stderr, WarnStyle.Render(SanitizeString("  [!] "+message)))
}

// PrintInfo prints an info message (to stderr).
func PrintInfo(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(os.Stderr, "  %s %s\n", SpinnerStyle.Render("*"), SanitizeString(message))
}
