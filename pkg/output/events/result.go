package events

// ResultEvent is emitted once per target as its scan completes, in
// completion order. A failed target still produces a ResultEvent; the
// Error field carries why.
type ResultEvent struct {
	BaseEvent
	Target     string  `json:"target"`
	Success    bool    `json:"success"`
	ReportPath string  `json:"report_path,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"duration_ms"`
}
