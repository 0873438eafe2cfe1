package models

import (
	"fmt"
	"time"
)

// QueueStatus represents the state of a queue item
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueItem represents one scheduled unit of work against a Source.
//
// Lifecycle: pending -> processing -> {completed, failed}. The pipeline is
// the only writer once an item exists; terminal items are never mutated
// again. Retrying a failed source means enqueuing a new item, not reviving
// an old one.
type QueueItem struct {
	ID           string      `json:"id"`
	SourceID     string      `json:"source_id"`
	Priority     int         `json:"priority"` // Higher values are claimed first
	ScheduledFor time.Time   `json:"scheduled_for"`
	Status       QueueStatus `json:"status"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Validate validates the queue item
func (q *QueueItem) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("queue item ID is required")
	}
	if q.SourceID == "" {
		return fmt.Errorf("queue item source ID is required")
	}
	if q.ScheduledFor.IsZero() {
		return fmt.Errorf("queue item scheduled time is required")
	}
	switch q.Status {
	case QueueStatusPending, QueueStatusProcessing, QueueStatusCompleted, QueueStatusFailed:
	default:
		return fmt.Errorf("invalid queue status: %s", q.Status)
	}
	return nil
}

// IsTerminal reports whether the item has reached a final state.
func (q *QueueItem) IsTerminal() bool {
	return q.Status == QueueStatusCompleted || q.Status == QueueStatusFailed
}

// IsDue reports whether the item is eligible for selection at the given time.
func (q *QueueItem) IsDue(now time.Time) bool {
	return q.Status == QueueStatusPending && !q.ScheduledFor.After(now)
}
