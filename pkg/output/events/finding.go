package events

import "github.com/fleetscan/fleetscan/pkg/finding"

// FindingEvent carries one canonical finding. Exports pump the
// filtered finding set through writers as a stream of these; live
// hooks use them to count and alert as findings arrive.
type FindingEvent struct {
	BaseEvent
	Finding finding.Finding `json:"finding"`
}
