package finding

import "strings"

// Framework identifies the compliance framework a check is tagged to.
// Values are lowercase strings matching the check registry format.
type Framework string

const (
	FrameworkCIS      Framework = "cis"
	FrameworkHIPAA    Framework = "hipaa"
	FrameworkGDPR     Framework = "gdpr"
	FrameworkSOC2     Framework = "soc2"
	FrameworkPCI      Framework = "pci"
	FrameworkNIST     Framework = "nist"
	FrameworkISO27001 Framework = "iso27001"
	FrameworkUnknown  Framework = "unknown"
)

// Frameworks lists the known frameworks, excluding FrameworkUnknown.
// Compliance rollups iterate this slice so every framework appears in
// the report even with zero observed checks. The slice is shared;
// callers must not mutate it.
var Frameworks = []Framework{
	FrameworkCIS,
	FrameworkHIPAA,
	FrameworkGDPR,
	FrameworkSOC2,
	FrameworkPCI,
	FrameworkNIST,
	FrameworkISO27001,
}

// IsValid reports whether f is a recognized framework.
func (f Framework) IsValid() bool {
	switch f {
	case FrameworkCIS, FrameworkHIPAA, FrameworkGDPR, FrameworkSOC2,
		FrameworkPCI, FrameworkNIST, FrameworkISO27001, FrameworkUnknown:
		return true
	}
	return false
}

// String returns the framework as a string.
func (f Framework) String() string {
	return string(f)
}

// ParseFramework maps a raw framework string case-insensitively.
// Unrecognized or empty input falls back to FrameworkUnknown.
func ParseFramework(raw string) Framework {
	f := Framework(strings.ToLower(strings.TrimSpace(raw)))
	if f.IsValid() {
		return f
	}
	return FrameworkUnknown
}
