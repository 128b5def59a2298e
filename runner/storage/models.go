package storage

import "time"

// Run represents one stored workflow run
type Run struct {
	ID         string     `json:"id"`
	LookupKey  string     `json:"lookup_key"`
	Status     string     `json:"status"` // "success" or "failed"
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Duration   *string    `json:"duration,omitempty"`
	Steps      []*Outcome `json:"steps,omitempty"`
}

// Outcome represents one stored step outcome of a run
type Outcome struct {
	ID         int       `json:"id"`
	RunID      string    `json:"run_id"`
	Position   int       `json:"position"`
	Step       string    `json:"step"`
	Succeeded  bool      `json:"succeeded"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}
