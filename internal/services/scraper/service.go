package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/renovo/internal/interfaces"
	"github.com/ternarybob/renovo/internal/models"
)

// Service processes scrape jobs: it calls the page extractor and reconciles
// the result (or the failure) into the catalog store.
//
// Failure policy: nothing a single job does can escape it. Extraction
// failures are recorded into the entity's ErrorState, reconciliation
// failures are logged and dropped, and the staleness sweep is the retry
// mechanism for both. A systemic extractor outage therefore marks entities
// as errored instead of taking down the pool.
type Service struct {
	extractor interfaces.PageExtractor
	catalog   interfaces.CatalogStorage
	logger    arbor.ILogger
	now       func() time.Time
}

// NewService creates a scrape service.
func NewService(extractor interfaces.PageExtractor, catalog interfaces.CatalogStorage, logger arbor.ILogger) *Service {
	return &Service{
		extractor: extractor,
		catalog:   catalog,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleJob processes one delivered scrape job end to end. The returned
// error is informational for worker logging; the delivery is terminal
// either way.
func (s *Service) HandleJob(ctx context.Context, job *models.ScrapeJob) error {
	if err := job.Validate(); err != nil {
		s.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Msg("Discarding malformed scrape job")
		return nil
	}

	page, extractErr := s.extractor.Extract(ctx, job.SourceURL)

	var update *models.ScrapeUpdate
	if extractErr != nil {
		update = s.buildFailureUpdate(extractErr)
	} else {
		update = s.buildSuccessUpdate(job.Mode, job.EntityKind, page)
	}

	if _, err := s.catalog.ApplyScrapeUpdate(ctx, job.EntityID, update); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			// Entity deleted between enqueue and execution; drop the result
			s.logger.Info().
				Str("job_id", job.ID).
				Str("entity_id", job.EntityID).
				Msg("Entity gone before reconciliation, discarding scrape result")
			return nil
		}
		s.logger.Error().
			Err(err).
			Str("job_id", job.ID).
			Str("entity_id", job.EntityID).
			Msg("Failed to write scrape reconciliation")
		return nil
	}

	if extractErr != nil {
		s.logger.Warn().
			Err(extractErr).
			Str("job_id", job.ID).
			Str("entity_id", job.EntityID).
			Str("url", job.SourceURL).
			Msg("Extraction failed, error state recorded")
	}

	return nil
}

// buildSuccessUpdate maps the extracted record onto the mode's field set.
// Full refreshes everything and stamps LastFullScrapedAt; Minimal touches
// only the volatile fields. Both clear the error state and advance
// LastFetchedAt.
func (s *Service) buildSuccessUpdate(mode models.ScrapeMode, kind models.EntityKind, page *models.ExtractedPage) *models.ScrapeUpdate {
	now := s.now()
	empty := ""

	update := &models.ScrapeUpdate{
		Price:         &page.Price,
		Description:   &page.Description,
		LastFetchedAt: &now,
		ErrorState:    &empty,
	}
	if page.Currency != "" {
		update.Currency = &page.Currency
	}
	// Availability is a product-only field
	if kind == models.EntityKindProduct {
		update.Availability = &page.Availability
	}

	if mode == models.ScrapeModeFull {
		update.Name = &page.Name
		update.Images = &page.Images
		update.Platform = &page.Platform
		update.LastFullScrapedAt = &now
	}

	return update
}

// buildFailureUpdate records the failure and advances LastFetchedAt so the
// attempt is visible, leaving all scraped fields at their last good values.
func (s *Service) buildFailureUpdate(extractErr error) *models.ScrapeUpdate {
	now := s.now()
	errMsg := extractErr.Error()

	return &models.ScrapeUpdate{
		ErrorState:    &errMsg,
		LastFetchedAt: &now,
	}
}
