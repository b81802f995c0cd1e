package events

// ProgressEvent is a point-in-time view of a running batch. The scan
// orchestrator's line callback feeds Line; Counts track batch-level
// completion for status displays.
type ProgressEvent struct {
	BaseEvent
	Target string `json:"target,omitempty"`
	Line   string `json:"line,omitempty"`
	Counts Counts `json:"counts"`
}

// Counts are the batch completion counters at the time of the event.
type Counts struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Successful int     `json:"successful"`
	Failed     int     `json:"failed"`
	Percentage float64 `json:"percentage"`
}
