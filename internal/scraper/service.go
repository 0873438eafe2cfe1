package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/propstream/propstream/internal/common"
	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
)

// Outcome summarizes one processed queue item. The run and queue identities
// are carried separately end-to-end; the run ID is never derived from the
// item ID.
type Outcome struct {
	ItemID   string             `json:"item_id"`
	RunID    string             `json:"run_id,omitempty"`
	SourceID string             `json:"source_id"`
	Status   models.QueueStatus `json:"status"`
	Found    int                `json:"found"`
	Added    int                `json:"added"`
	Error    string             `json:"error,omitempty"`
}

// Service is the ingestion pipeline core: it selects due queue items,
// claims them, dispatches to the matching source adapter, deduplicates the
// returned candidates, and finalizes the run log and queue item.
type Service struct {
	sources    interfaces.SourceStorage
	queue      interfaces.QueueStorage
	runs       interfaces.RunLogStorage
	properties interfaces.PropertyStorage
	registry   *Registry
	logger     arbor.ILogger

	batchLimit     int
	concurrency    int
	adapterTimeout time.Duration
}

// NewService creates the pipeline service
func NewService(
	cfg *common.ScraperConfig,
	sources interfaces.SourceStorage,
	queue interfaces.QueueStorage,
	runs interfaces.RunLogStorage,
	properties interfaces.PropertyStorage,
	registry *Registry,
	logger arbor.ILogger,
) (*Service, error) {
	timeout, err := cfg.GetAdapterTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid adapter timeout: %w", err)
	}

	return &Service{
		sources:        sources,
		queue:          queue,
		runs:           runs,
		properties:     properties,
		registry:       registry,
		logger:         logger,
		batchLimit:     cfg.BatchLimit,
		concurrency:    cfg.Concurrency,
		adapterTimeout: timeout,
	}, nil
}

// ProcessBatch drains one bounded batch of due items. Items are processed
// through a worker pool sized by scraper.concurrency; each item's outcome is
// isolated, so one adapter failure never aborts the rest of the batch.
func (s *Service) ProcessBatch(ctx context.Context) ([]*Outcome, error) {
	items, err := s.queue.FetchDueItems(ctx, time.Now(), s.batchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due items: %w", err)
	}
	if len(items) == 0 {
		s.logger.Debug().Msg("No due queue items")
		return nil, nil
	}

	s.logger.Info().
		Int("items", len(items)).
		Int("concurrency", s.concurrency).
		Msg("Processing batch")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []*Outcome
	)
	sem := make(chan struct{}, s.concurrency)

	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(item *models.QueueItem) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := s.ProcessItem(ctx, item)
			if outcome == nil {
				return
			}
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		}(item)
	}
	wg.Wait()

	completed, failed := 0, 0
	for _, o := range outcomes {
		if o.Status == models.QueueStatusCompleted {
			completed++
		} else {
			failed++
		}
	}
	s.logger.Info().
		Int("completed", completed).
		Int("failed", failed).
		Msg("Batch finished")

	return outcomes, nil
}

// ProcessItem runs one queue item through claim, dispatch, dedup, and
// finalize. Returns nil when the claim was lost to a concurrent worker.
func (s *Service) ProcessItem(ctx context.Context, item *models.QueueItem) *Outcome {
	claimed, err := s.queue.ClaimItem(ctx, item.ID, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Str("item_id", item.ID).Msg("Claim failed")
		return &Outcome{ItemID: item.ID, SourceID: item.SourceID, Status: models.QueueStatusFailed, Error: err.Error()}
	}
	if !claimed {
		s.logger.Debug().Str("item_id", item.ID).Msg("Item already claimed, skipping")
		return nil
	}

	run, err := s.runs.OpenRun(ctx, item.SourceID)
	if err != nil {
		// No run log to finalize; the item still reaches a terminal state.
		s.failItem(ctx, item.ID)
		s.logger.Error().Err(err).Str("item_id", item.ID).Msg("Failed to open run log")
		return &Outcome{ItemID: item.ID, SourceID: item.SourceID, Status: models.QueueStatusFailed, Error: err.Error()}
	}

	s.logger.Info().
		Str("item_id", item.ID).
		Str("run_id", run.ID).
		Str("source_id", item.SourceID).
		Msg("Item claimed")

	source, err := s.sources.GetSource(ctx, item.SourceID)
	if err != nil {
		return s.failRun(ctx, item, run.ID, 0, 0, fmt.Sprintf("Configuration: %v", err))
	}

	adapter, err := s.registry.Resolve(source)
	if err != nil {
		return s.failRun(ctx, item, run.ID, 0, 0, fmt.Sprintf("Configuration: %v", err))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
	defer cancel()

	candidates, err := adapter.Fetch(fetchCtx, source, run.ID, s.runs)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("Timeout: adapter call exceeded %s", s.adapterTimeout)
		}
		return s.failRun(ctx, item, run.ID, 0, 0, msg)
	}

	added, persistErr := s.persistCandidates(ctx, candidates)
	found := s.foundCount(ctx, run.ID, len(candidates))
	if persistErr != nil {
		return s.failRun(ctx, item, run.ID, found, added, fmt.Sprintf("Persistence: %v", persistErr))
	}

	counts := models.RunCounts{Found: found, Added: added}
	if err := s.runs.FinalizeRun(ctx, run.ID, models.RunStatusCompleted, counts, ""); err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to finalize run log")
	}
	if err := s.queue.FinalizeItem(ctx, item.ID, models.QueueStatusCompleted, time.Now()); err != nil {
		s.logger.Error().Err(err).Str("item_id", item.ID).Msg("Failed to finalize queue item")
	}

	s.logger.Info().
		Str("item_id", item.ID).
		Str("run_id", run.ID).
		Int("found", found).
		Int("added", added).
		Msg("Item completed")

	return &Outcome{
		ItemID:   item.ID,
		RunID:    run.ID,
		SourceID: item.SourceID,
		Status:   models.QueueStatusCompleted,
		Found:    found,
		Added:    added,
	}
}

// persistCandidates deduplicates and inserts candidates. A candidate that
// already exists (including one that loses the insert race) is skipped; any
// other persistence error is fatal for the run.
func (s *Service) persistCandidates(ctx context.Context, candidates []models.ListingCandidate) (int, error) {
	added := 0
	for i := range candidates {
		candidate := &candidates[i]
		if !candidate.IsComplete() {
			continue
		}

		exists, err := s.properties.Exists(ctx, candidate.NaturalKey)
		if err != nil {
			return added, err
		}
		if exists {
			continue
		}

		property := models.PropertyFromCandidate(candidate, time.Now())
		if err := s.properties.Insert(ctx, property); err != nil {
			if errors.Is(err, interfaces.ErrPropertyExists) {
				// Lost the insert race to a concurrent run of the same source.
				continue
			}
			return added, err
		}
		added++
	}
	return added, nil
}

// foundCount reconciles the adapter-recorded found counter with the number
// of returned candidates. An adapter that skipped malformed listings records
// a higher found count than it returns candidates.
func (s *Service) foundCount(ctx context.Context, runID string, returned int) int {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return returned
	}
	if run.PropertiesFound > returned {
		return run.PropertiesFound
	}
	return returned
}

// failRun finalizes both the run log and the queue item for a failed
// attempt. This is the single place terminal failure states are written.
func (s *Service) failRun(ctx context.Context, item *models.QueueItem, runID string, found, added int, msg string) *Outcome {
	counts := models.RunCounts{Found: found, Added: added}
	if err := s.runs.FinalizeRun(ctx, runID, models.RunStatusError, counts, msg); err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to finalize run log")
	}
	s.failItem(ctx, item.ID)

	s.logger.Warn().
		Str("item_id", item.ID).
		Str("run_id", runID).
		Str("error", msg).
		Msg("Item failed")

	return &Outcome{
		ItemID:   item.ID,
		RunID:    runID,
		SourceID: item.SourceID,
		Status:   models.QueueStatusFailed,
		Found:    found,
		Added:    added,
		Error:    msg,
	}
}

func (s *Service) failItem(ctx context.Context, itemID string) {
	if err := s.queue.FinalizeItem(ctx, itemID, models.QueueStatusFailed, time.Now()); err != nil {
		s.logger.Error().Err(err).Str("item_id", itemID).Msg("Failed to finalize queue item")
	}
}

// RecoverInterrupted returns items stranded in processing to pending and
// errors out their orphaned run logs. Called once on startup.
func (s *Service) RecoverInterrupted(ctx context.Context) error {
	items, err := s.queue.ResetProcessingItems(ctx)
	if err != nil {
		return err
	}
	runs, err := s.runs.FinalizeInterrupted(ctx, "interrupted by shutdown")
	if err != nil {
		return err
	}
	if items > 0 || runs > 0 {
		s.logger.Warn().
			Int("items_reset", items).
			Int("runs_failed", runs).
			Msg("Recovered interrupted work from previous run")
	}
	return nil
}
