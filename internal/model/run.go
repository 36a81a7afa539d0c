package model

import "time"

// RunStatus represents the state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one row in the sync_log table.
type Run struct {
	ID          string         `json:"id"`
	Pipeline    string         `json:"pipeline"`
	Status      RunStatus      `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Extracted   int            `json:"extracted"`
	Inserted    int            `json:"inserted"`
	Skipped     int            `json:"skipped"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RunResult holds the outcome of a completed run, passed to CompleteRun.
type RunResult struct {
	Extracted int            `json:"extracted"`
	Inserted  int            `json:"inserted"`
	Skipped   int            `json:"skipped"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
