package events

// ErrorEvent is emitted for a localized failure: a target that could
// not be scanned, a report file that could not be parsed, a remote
// call that gave up. Fatal marks the rare errors that end the run.
type ErrorEvent struct {
	BaseEvent
	Target  string `json:"target,omitempty"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}
