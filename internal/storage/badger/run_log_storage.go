package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/propstream/propstream/internal/common"
	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
)

// RunLogStorage implements the RunLogStorage interface for Badger
type RunLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunLogStorage creates a new RunLogStorage instance
func NewRunLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunLogStorage {
	return &RunLogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RunLogStorage) OpenRun(ctx context.Context, sourceID string) (*models.RunLog, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("source ID is required")
	}

	run := &models.RunLog{
		ID:        common.NewRunID(),
		SourceID:  sourceID,
		Status:    models.RunStatusProcessing,
		StartedAt: time.Now(),
	}

	if err := s.db.Store().Insert(run.ID, run); err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	s.logger.Debug().
		Str("run_id", run.ID).
		Str("source_id", sourceID).
		Msg("Run log opened")

	return run, nil
}

func (s *RunLogStorage) RecordProgress(ctx context.Context, runID string, found int) error {
	err := s.db.Store().UpdateMatching(&models.RunLog{},
		badgerhold.Where(badgerhold.Key).Eq(runID).And("Status").Eq(models.RunStatusProcessing),
		func(record interface{}) error {
			run, ok := record.(*models.RunLog)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			run.PropertiesFound = found
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to record progress for run %s: %w", runID, err)
	}
	return nil
}

// FinalizeRun closes a run with its terminal status and counters. A run can
// be finalized once; finalizing a completed or errored run is an error.
func (s *RunLogStorage) FinalizeRun(ctx context.Context, runID string, status models.RunStatus, counts models.RunCounts, errMsg string) error {
	if status != models.RunStatusCompleted && status != models.RunStatusError {
		return fmt.Errorf("invalid terminal run status: %s", status)
	}

	finalized := false
	err := s.db.Store().UpdateMatching(&models.RunLog{},
		badgerhold.Where(badgerhold.Key).Eq(runID).And("Status").Eq(models.RunStatusProcessing),
		func(record interface{}) error {
			run, ok := record.(*models.RunLog)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			now := time.Now()
			run.Status = status
			run.PropertiesFound = counts.Found
			run.PropertiesAdded = counts.Added
			run.PropertiesUpdated = counts.Updated
			run.ErrorMessage = errMsg
			run.CompletedAt = &now
			finalized = true
			return nil
		})
	if err != nil {
		return fmt.Errorf("failed to finalize run %s: %w", runID, err)
	}
	if !finalized {
		return fmt.Errorf("run %s is not in processing state", runID)
	}
	return nil
}

func (s *RunLogStorage) GetRun(ctx context.Context, runID string) (*models.RunLog, error) {
	var run models.RunLog
	if err := s.db.Store().Get(runID, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("run log not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get run log: %w", err)
	}
	return &run, nil
}

func (s *RunLogStorage) ListRuns(ctx context.Context, limit int) ([]*models.RunLog, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []models.RunLog
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list run logs: %w", err)
	}

	result := make([]*models.RunLog, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

func (s *RunLogStorage) ListRunsBySource(ctx context.Context, sourceID string, limit int) ([]*models.RunLog, error) {
	query := badgerhold.Where("SourceID").Eq(sourceID).SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []models.RunLog
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list run logs for source %s: %w", sourceID, err)
	}

	result := make([]*models.RunLog, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

func (s *RunLogStorage) FinalizeInterrupted(ctx context.Context, reason string) (int, error) {
	count := 0
	err := s.db.Store().UpdateMatching(&models.RunLog{},
		badgerhold.Where("Status").Eq(models.RunStatusProcessing),
		func(record interface{}) error {
			run, ok := record.(*models.RunLog)
			if !ok {
				return fmt.Errorf("unexpected record type %T", record)
			}
			now := time.Now()
			run.Status = models.RunStatusError
			run.ErrorMessage = reason
			run.CompletedAt = &now
			count++
			return nil
		})
	if err != nil {
		return 0, fmt.Errorf("failed to finalize interrupted runs: %w", err)
	}
	return count, nil
}
