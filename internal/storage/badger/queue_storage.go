package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
)

// QueueStorage implements the QueueStorage interface for Badger
type QueueStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewQueueStorage creates a new QueueStorage instance
func NewQueueStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QueueStorage {
	return &QueueStorage{
		db:     db,
		logger: logger,
	}
}

func (s *QueueStorage) SaveItem(ctx context.Context, item *models.QueueItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid queue item: %w", err)
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(item.ID, item); err != nil {
		return fmt.Errorf("failed to save queue item: %w", err)
	}
	return nil
}

func (s *QueueStorage) GetItem(ctx context.Context, id string) (*models.QueueItem, error) {
	var item models.QueueItem
	if err := s.db.Store().Get(id, &item); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("queue item not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}
	return &item, nil
}

// FetchDueItems selects pending items due at or before now, highest priority
// first. Equal-priority items are returned FIFO by scheduled time, so an
// older request is never starved by a newer one of the same priority.
func (s *QueueStorage) FetchDueItems(ctx context.Context, now time.Time, limit int) ([]*models.QueueItem, error) {
	var items []models.QueueItem
	query := badgerhold.Where("Status").Eq(models.QueueStatusPending).And("ScheduledFor").Le(now)
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to fetch due items: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].ScheduledFor.Before(items[j].ScheduledFor)
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	result := make([]*models.QueueItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

// ClaimItem performs the compare-and-swap claim: the transition to
// processing happens inside a single badger transaction conditioned on the
// item still being pending, so two concurrent claimers cannot both win.
func (s *QueueStorage) ClaimItem(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	claimed := false
	err := s.db.Store().UpdateMatching(&models.QueueItem{},
		badgerhold.Where(badgerhold.Key).Eq(id).And("Status").Eq(models.QueueStatusPending),
		func(record interface{}) error {
			item, ok := record.(*models.QueueItem)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			item.Status = models.QueueStatusProcessing
			item.StartedAt = &startedAt
			claimed = true
			return nil
		})
	if err != nil {
		return false, fmt.Errorf("failed to claim queue item %s: %w", id, err)
	}
	return claimed, nil
}

// FinalizeItem transitions a processing item to its terminal state. Items
// not in processing are left untouched and reported as an error, so a
// terminal item can never be finalized twice.
func (s *QueueStorage) FinalizeItem(ctx context.Context, id string, status models.QueueStatus, completedAt time.Time) error {
	if status != models.QueueStatusCompleted && status != models.QueueStatusFailed {
		return fmt.Errorf("invalid terminal status: %s", status)
	}

	finalized := false
	err := s.db.Store().UpdateMatching(&models.QueueItem{},
		badgerhold.Where(badgerhold.Key).Eq(id).And("Status").Eq(models.QueueStatusProcessing),
		func(record interface{}) error {
			item, ok := record.(*models.QueueItem)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			item.Status = status
			item.CompletedAt = &completedAt
			finalized = true
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to finalize queue item %s: %w", id, err)
	}
	if !finalized {
		return fmt.Errorf("queue item %s is not in processing state", id)
	}
	return nil
}

func (s *QueueStorage) ResetProcessingItems(ctx context.Context) (int, error) {
	count := 0
	err := s.db.Store().UpdateMatching(&models.QueueItem{},
		badgerhold.Where("Status").Eq(models.QueueStatusProcessing),
		func(record interface{}) error {
			item, ok := record.(*models.QueueItem)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			item.Status = models.QueueStatusPending
			item.StartedAt = nil
			count++
			return nil
		})
	if err != nil {
		return 0, fmt.Errorf("failed to reset processing items: %w", err)
	}
	return count, nil
}

func (s *QueueStorage) ListItems(ctx context.Context, status models.QueueStatus, limit int) ([]*models.QueueItem, error) {
	query := badgerhold.Where("ID").Ne("")
	if status != "" {
		query = badgerhold.Where("Status").Eq(status)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var items []models.QueueItem
	if err := s.db.Store().Find(&items, query); err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}

	result := make([]*models.QueueItem, len(items))
	for i := range items {
		result[i] = &items[i]
	}
	return result, nil
}

func (s *QueueStorage) CountByStatus(ctx context.Context, status models.QueueStatus) (int, error) {
	count, err := s.db.Store().Count(&models.QueueItem{}, badgerhold.Where("Status").Eq(status))
	if err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return int(count), nil
}

func (s *QueueStorage) HasOpenItem(ctx context.Context, sourceID string) (bool, error) {
	count, err := s.db.Store().Count(&models.QueueItem{},
		badgerhold.Where("SourceID").Eq(sourceID).And("Status").In(models.QueueStatusPending, models.QueueStatusProcessing))
	if err != nil {
		return false, fmt.Errorf("failed to check open items for source %s: %w", sourceID, err)
	}
	return count > 0, nil
}
