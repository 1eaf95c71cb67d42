package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/renovo/internal/common"
	"github.com/ternarybob/renovo/internal/interfaces"
	"github.com/ternarybob/renovo/internal/models"
	"github.com/ternarybob/renovo/internal/services/catalog"
)

// Service runs the periodic staleness sweep: it pages through entities whose
// LastFetchedAt is missing or older than the threshold and enqueues a minimal
// scrape for each. The sweep is the system's retry mechanism, so it has to
// keep running even when individual pages or enqueues fail.
type Service struct {
	catalogService *catalog.Service
	storage        interfaces.CatalogStorage
	config         common.SchedulerConfig
	cron           *cron.Cron
	logger         arbor.ILogger

	mu           sync.Mutex // Protects isProcessing
	isProcessing bool
	running      bool

	lastRun      time.Time
	lastEnqueued int
}

// NewService creates a scheduler service.
func NewService(catalogService *catalog.Service, storage interfaces.CatalogStorage, config common.SchedulerConfig, logger arbor.ILogger) *Service {
	return &Service{
		catalogService: catalogService,
		storage:        storage,
		config:         config,
		cron:           cron.New(),
		logger:         logger,
	}
}

// Start begins the periodic sweep.
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	interval := s.config.SweepIntervalDuration()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.runSweep); err != nil {
		return fmt.Errorf("failed to add sweep cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("sweep_interval", interval.String()).
		Str("staleness_threshold", s.config.StalenessThresholdDuration().String()).
		Int("page_size", s.config.PageSize).
		Msg("Staleness scheduler started")

	return nil
}

// Stop halts the scheduler. A sweep already in progress finishes.
func (s *Service) Stop() error {
	if !s.running {
		return nil
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	s.logger.Info().Msg("Staleness scheduler stopped")
	return nil
}

// runSweep is the cron entrypoint. Overlapping runs are skipped rather than
// queued; a slow sweep must not stack up behind itself.
func (s *Service) runSweep() {
	s.mu.Lock()
	if s.isProcessing {
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous sweep still running, skipping this run")
		return
	}
	s.isProcessing = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in staleness sweep")
		}
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
	}()

	enqueued, err := s.Sweep(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("Staleness sweep failed")
		return
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastEnqueued = enqueued
	s.mu.Unlock()
}

// Sweep performs one staleness pass and returns the number of scrape jobs
// enqueued. Pages through the store with a fixed cutoff so entities written
// mid-sweep are judged against the same moment.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := common.StaleCutoff(start, s.config.StalenessThresholdDuration())

	pageSize := s.config.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	enqueued := 0
	scanned := 0
	afterID := ""
	for {
		entities, err := s.storage.ListStale(ctx, cutoff, pageSize, afterID)
		if err != nil {
			return enqueued, fmt.Errorf("failed to list stale entities after %q: %w", afterID, err)
		}
		if len(entities) == 0 {
			break
		}
		scanned += len(entities)

		for _, entity := range entities {
			if err := s.catalogService.EnqueueScrape(ctx, entity, models.ScrapeModeMinimal); err != nil {
				// One bad entity or a transient queue error must not abort
				// the sweep; the entity stays stale and the next run retries
				s.logger.Warn().
					Err(err).
					Str("entity_id", entity.ID).
					Msg("Failed to enqueue refresh for stale entity")
				continue
			}
			enqueued++
		}

		afterID = entities[len(entities)-1].ID
		if len(entities) < pageSize {
			break
		}
	}

	s.logger.Info().
		Int("scanned", scanned).
		Int("enqueued", enqueued).
		Dur("duration", time.Since(start)).
		Msg("Staleness sweep complete")

	return enqueued, nil
}

// LastRun returns when the last successful sweep finished and how many jobs
// it enqueued.
func (s *Service) LastRun() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastEnqueued
}
