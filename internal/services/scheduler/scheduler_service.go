// Package scheduler drives the recurring ingestion cycle: it enqueues
// queue items for sources that have become due and then lets the pipeline
// drain one batch.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/propstream/propstream/internal/common"
	"github.com/propstream/propstream/internal/interfaces"
	"github.com/propstream/propstream/internal/models"
	"github.com/propstream/propstream/internal/scraper"
)

// Service implements SchedulerService
type Service struct {
	sources interfaces.SourceStorage
	queue   interfaces.QueueStorage
	scraper *scraper.Service
	cron    *cron.Cron
	logger  arbor.ILogger

	schedule        string
	defaultPriority int

	mu           sync.Mutex
	isProcessing bool
	running      bool
}

// NewService creates a new scheduler service
func NewService(
	cfg *common.Config,
	sources interfaces.SourceStorage,
	queue interfaces.QueueStorage,
	scraperSvc *scraper.Service,
	logger arbor.ILogger,
) interfaces.SchedulerService {
	return &Service{
		sources:         sources,
		queue:           queue,
		scraper:         scraperSvc,
		cron:            cron.New(),
		logger:          logger,
		schedule:        cfg.Scheduler.Schedule,
		defaultPriority: cfg.Scraper.DefaultPriority,
	}
}

// Start registers the cron entry and begins scheduling.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	schedule := s.schedule
	if schedule == "" {
		schedule = "*/5 * * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.runCycle); err != nil {
		return fmt.Errorf("failed to add cron entry: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Msg("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for an in-flight cycle to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	// cron.Stop returns a context that is done once running entries finish
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// TriggerNow runs one enqueue-and-process cycle immediately.
func (s *Service) TriggerNow() {
	go s.runCycle()
}

// runCycle enqueues due sources and drains one batch. Overlapping cycles
// are skipped rather than queued.
func (s *Service) runCycle() {
	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		s.logger.Debug().Msg("Previous cycle still running, skipping")
		return
	}
	s.isProcessing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
	}()

	ctx := context.Background()

	if err := s.enqueueDueSources(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to enqueue due sources")
	}

	if _, err := s.scraper.ProcessBatch(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Batch processing failed")
	}
}

// enqueueDueSources creates a pending queue item for every active source
// whose scrape interval has elapsed and that has no open item yet.
func (s *Service) enqueueDueSources(ctx context.Context) error {
	sources, err := s.sources.ListActiveSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active sources: %w", err)
	}

	now := time.Now()
	enqueued := 0
	for _, source := range sources {
		if due := source.DueAt(); !due.IsZero() && due.After(now) {
			continue
		}

		open, err := s.queue.HasOpenItem(ctx, source.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("source_id", source.ID).Msg("Failed to check open items")
			continue
		}
		if open {
			continue
		}

		item := &models.QueueItem{
			ID:           common.NewQueueID(),
			SourceID:     source.ID,
			Priority:     s.defaultPriority,
			ScheduledFor: now,
			Status:       models.QueueStatusPending,
			CreatedAt:    now,
		}
		if err := s.queue.SaveItem(ctx, item); err != nil {
			s.logger.Error().Err(err).Str("source_id", source.ID).Msg("Failed to enqueue source")
			continue
		}
		if err := s.sources.TouchLastScraped(ctx, source.ID, now); err != nil {
			s.logger.Warn().Err(err).Str("source_id", source.ID).Msg("Failed to stamp last scraped time")
		}
		enqueued++
	}

	if enqueued > 0 {
		s.logger.Info().Int("enqueued", enqueued).Msg("Due sources enqueued")
	}
	return nil
}
