package events

// CompleteEvent is emitted when a scan batch finishes. Success means
// every target scanned cleanly; partial failures leave Success false
// while the per-target detail lives in the preceding ResultEvents.
type CompleteEvent struct {
	BaseEvent
	Targets     int     `json:"targets"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	Findings    int     `json:"findings"`
	Success     bool    `json:"success"`
	DurationSec float64 `json:"duration_sec"`
}
