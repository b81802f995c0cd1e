package ui

import (
	"bytes"
	"strings"
	"testing"
)

// The test runner pipes stderr, so UnicodeTerminal() is false in every
// test below.

func TestIcon_PipedStderrUsesASCII(t *testing.T) {
	if StderrIsTerminal() {
		t.Skip("stderr is a real terminal")
	}
	if got := Icon("█", "#"); got != "#" {
		t.Errorf("Icon = %q, want ASCII fallback", got)
	}
}

func TestDefaultSpinner_PipedStderrIsASCII(t *testing.T) {
	if StderrIsTerminal() {
		t.Skip("stderr is a real terminal")
	}
	s := DefaultSpinner()
	for _, frame := range s.Frames {
		for _, r := range frame {
			if r > 0x7F {
				t.Errorf("spinner frame %q is not ASCII", frame)
			}
		}
	}
}

func TestSanitizeString_StripsEmoji(t *testing.T) {
	if StderrIsTerminal() {
		t.Skip("stderr is a real terminal")
	}

	got := SanitizeString("scan done ✅ 3 findings 🔴")
	if strings.ContainsRune(got, '✅') || strings.ContainsRune(got, '🔴') {
		t.Errorf("emoji survived sanitization: %q", got)
	}
	if !strings.Contains(got, "scan done") || !strings.Contains(got, "3 findings") {
		t.Errorf("ASCII text mangled: %q", got)
	}
}

func TestSanitizeString_KeepsLatin(t *testing.T) {
	if StderrIsTerminal() {
		t.Skip("stderr is a real terminal")
	}

	got := SanitizeString("café déjà-vu")
	if got != "café déjà-vu" {
		t.Errorf("latin text mangled: %q", got)
	}
}

func TestSanitizef(t *testing.T) {
	if StderrIsTerminal() {
		t.Skip("stderr is a real terminal")
	}

	got := Sanitizef("found %d ⚠️ issues", 2)
	if !strings.Contains(got, "found 2") || !strings.Contains(got, "issues") {
		t.Errorf("Sanitizef = %q", got)
	}
	if strings.Contains(got, "⚠") {
		t.Errorf("emoji survived: %q", got)
	}
}

func TestFprintf_Sanitizes(t *testing.T) {
	if StderrIsTerminal() {
		t.Skip("stderr is a real terminal")
	}

	var buf bytes.Buffer
	Fprintf(&buf, "done █ %s", "ok")
	out := buf.String()
	if strings.Contains(out, "█") {
		t.Errorf("block char survived: %q", out)
	}
	if !strings.Contains(out, "done") || !strings.Contains(out, "ok") {
		t.Errorf("text mangled: %q", out)
	}
}

func TestTerminalWidth_FallbackWhenPiped(t *testing.T) {
	if StdoutIsTerminal() {
		t.Skip("stdout is a real terminal")
	}
	if got := TerminalWidth(80); got != 80 {
		t.Errorf("TerminalWidth fallback = %d, want 80", got)
	}
}
