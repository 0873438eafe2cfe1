package common

import (
	"github.com/google/uuid"
)

// NewSourceID generates a unique source ID with the "src_" prefix
func NewSourceID() string {
	return "src_" + uuid.New().String()
}

// NewQueueID generates a unique queue item ID with the "queue_" prefix
func NewQueueID() string {
	return "queue_" + uuid.New().String()
}

// NewRunID generates a unique run log ID with the "run_" prefix.
// The prefix keeps run IDs visually distinct from queue IDs so the two can
// never be conflated in log operations.
func NewRunID() string {
	return "run_" + uuid.New().String()
}
