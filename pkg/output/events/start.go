package events

// StartEvent is emitted when a scan batch begins. It carries the
// target list and the knobs the orchestrator will run under, so a
// report reader can reconstruct what was asked for.
type StartEvent struct {
	BaseEvent
	Provider string     `json:"provider"`
	Targets  []string   `json:"targets"`
	Config   ScanConfig `json:"config"`
}

// ScanConfig captures the orchestrator settings for a batch.
type ScanConfig struct {
	Concurrency int      `json:"concurrency"`
	TimeoutSec  int      `json:"timeout_sec"`
	OutputDir   string   `json:"output_dir,omitempty"`
	OutputMode  string   `json:"output_mode,omitempty"`
	Checks      []string `json:"checks,omitempty"`
}
