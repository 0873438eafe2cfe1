package interfaces

import (
	"context"

	"github.com/propstream/propstream/internal/models"
)

// RunRecorder receives incremental progress while an adapter is fetching.
// RunLogStorage satisfies this; adapters only see the narrow surface.
type RunRecorder interface {
	RecordProgress(ctx context.Context, runID string, found int) error
}

// SourceAdapter fetches raw content from one source family and normalizes it
// into listing candidates. An adapter owns all source-specific concerns
// (authentication, pagination, rate limiting, payload shape) and must not
// leak them into the dispatcher.
//
// Fetch fails as a whole only on configuration, transport, or upstream
// errors; an individual malformed listing is skipped, recorded via the
// RunRecorder as found, and never aborts the run.
type SourceAdapter interface {
	// Kind returns the source kind this adapter serves ("website", "social").
	Kind() string

	Fetch(ctx context.Context, source *models.Source, runID string, rec RunRecorder) ([]models.ListingCandidate, error)
}
