package models

import "time"

// RunStatus represents the state of a scraping run
type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusError      RunStatus = "error"
)

// RunLog is the audit record of one processing attempt against a Source.
//
// A RunLog is opened when an item is dispatched and finalized exactly once
// when the attempt ends; it is immutable afterwards. Each attempt gets its
// own RunLog, and its ID is a distinct identity from the QueueItem that
// triggered the attempt; the two are never interchangeable.
type RunLog struct {
	ID                string     `json:"id"`
	SourceID          string     `json:"source_id"`
	Status            RunStatus  `json:"status"`
	PropertiesFound   int        `json:"properties_found"`
	PropertiesAdded   int        `json:"properties_added"`
	PropertiesUpdated int        `json:"properties_updated"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// IsFinalized reports whether the run has been finalized.
func (r *RunLog) IsFinalized() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusError
}

// RunCounts bundles the counters written when a run is finalized.
type RunCounts struct {
	Found   int `json:"found"`
	Added   int `json:"added"`
	Updated int `json:"updated"`
}
