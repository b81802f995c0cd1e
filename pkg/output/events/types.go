// Package events defines the event types flowing through the output
// pipeline. Every stage of a scan run — batch start, per-target scan
// results, normalized findings, aggregation summaries — is expressed as
// an event so writers and hooks can consume a single stream without
// knowing which subsystem produced it. All events are designed for JSON
// serialization.
package events

import "time"

// EventType discriminates events on the wire.
type EventType string

const (
	// EventTypeStart indicates a scan batch has started.
	EventTypeStart EventType = "start"
	// EventTypeResult indicates one target's scan finished.
	EventTypeResult EventType = "result"
	// EventTypeProgress indicates a progress update while a batch runs.
	EventTypeProgress EventType = "progress"
	// EventTypeFinding carries one canonical finding.
	EventTypeFinding EventType = "finding"
	// EventTypeError indicates a localized failure (target, source, record).
	EventTypeError EventType = "error"
	// EventTypeSummary carries the aggregated security posture.
	EventTypeSummary EventType = "summary"
	// EventTypeComplete indicates a scan batch has finished.
	EventTypeComplete EventType = "complete"
)

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	RunID() string
}

// BaseEvent contains the fields common to all events. It is embedded
// in the concrete event types.
type BaseEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"timestamp"`
	Run  string    `json:"run_id"`
}

// EventType returns the type of this event.
func (e BaseEvent) EventType() EventType { return e.Type }

// Timestamp returns when this event occurred.
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// RunID returns the identifier of the scan run that produced this event.
func (e BaseEvent) RunID() string { return e.Run }
