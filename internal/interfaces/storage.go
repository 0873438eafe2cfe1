package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/propstream/propstream/internal/models"
)

// ErrPropertyExists is returned by PropertyStorage.Insert when a property
// with the same natural key is already persisted. Callers treat it as the
// expected outcome of the dedup race, not a failure.
var ErrPropertyExists = errors.New("property already exists")

// SourceStorage - interface for property source persistence
type SourceStorage interface {
	SaveSource(ctx context.Context, source *models.Source) error
	GetSource(ctx context.Context, id string) (*models.Source, error)
	ListSources(ctx context.Context) ([]*models.Source, error)
	ListActiveSources(ctx context.Context) ([]*models.Source, error)
	// TouchLastScraped stamps the time the source was last enqueued for scraping.
	TouchLastScraped(ctx context.Context, id string, at time.Time) error
}

// QueueStorage - interface for the scraping queue
type QueueStorage interface {
	SaveItem(ctx context.Context, item *models.QueueItem) error
	GetItem(ctx context.Context, id string) (*models.QueueItem, error)

	// FetchDueItems returns pending items with scheduled_for <= now, highest
	// priority first (FIFO by scheduled_for within equal priority), capped at
	// limit. Selection is read-only; claiming is a separate step.
	FetchDueItems(ctx context.Context, now time.Time, limit int) ([]*models.QueueItem, error)

	// ClaimItem atomically transitions an item from pending to processing.
	// Returns false when the item was already claimed, completed, or missing.
	ClaimItem(ctx context.Context, id string, startedAt time.Time) (bool, error)

	// FinalizeItem transitions a processing item to completed or failed.
	FinalizeItem(ctx context.Context, id string, status models.QueueStatus, completedAt time.Time) error

	// ResetProcessingItems returns items stranded in processing (e.g. by a
	// crash) to pending. Returns the number of items reset.
	ResetProcessingItems(ctx context.Context) (int, error)

	ListItems(ctx context.Context, status models.QueueStatus, limit int) ([]*models.QueueItem, error)
	CountByStatus(ctx context.Context, status models.QueueStatus) (int, error)
	// HasOpenItem reports whether the source already has a pending or
	// processing item, so the scheduler does not pile up duplicate work.
	HasOpenItem(ctx context.Context, sourceID string) (bool, error)
}

// RunLogStorage - interface for scraping run audit records
type RunLogStorage interface {
	// OpenRun creates a new run log in processing state for the source.
	OpenRun(ctx context.Context, sourceID string) (*models.RunLog, error)

	// RecordProgress overwrites the found-so-far counter of an open run.
	// Safe to call repeatedly; idempotent for the same value.
	RecordProgress(ctx context.Context, runID string, found int) error

	// FinalizeRun closes a run exactly once with its terminal status, final
	// counters, and error message (empty on success). Finalizing an already
	// finalized run is an error.
	FinalizeRun(ctx context.Context, runID string, status models.RunStatus, counts models.RunCounts, errMsg string) error

	GetRun(ctx context.Context, runID string) (*models.RunLog, error)
	ListRuns(ctx context.Context, limit int) ([]*models.RunLog, error)
	ListRunsBySource(ctx context.Context, sourceID string, limit int) ([]*models.RunLog, error)

	// FinalizeInterrupted marks runs left in processing state (e.g. by a
	// crash) as errored. Returns the number of runs finalized.
	FinalizeInterrupted(ctx context.Context, reason string) (int, error)
}

// PropertyStorage - interface for persisted listings, keyed by natural key
type PropertyStorage interface {
	// Exists reports whether a property with the natural key is persisted.
	Exists(ctx context.Context, naturalKey string) (bool, error)

	// Insert persists a new property. Returns ErrPropertyExists when the
	// natural key is already taken; the insert is atomic, so two concurrent
	// inserts of the same key cannot both succeed.
	Insert(ctx context.Context, property *models.Property) error

	GetByKey(ctx context.Context, naturalKey string) (*models.Property, error)
	Count(ctx context.Context) (int, error)
}
