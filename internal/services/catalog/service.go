package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/renovo/internal/common"
	"github.com/ternarybob/renovo/internal/interfaces"
	"github.com/ternarybob/renovo/internal/models"
)

// Service owns the catalog entity lifecycle: create, read, delete, and the
// enqueue side of the refresh engine. Creation kicks off an immediate full
// scrape so a new entity does not sit empty until the first sweep.
type Service struct {
	storage  interfaces.CatalogStorage
	enqueuer interfaces.JobEnqueuer
	logger   arbor.ILogger
}

// NewService creates a catalog service.
func NewService(storage interfaces.CatalogStorage, enqueuer interfaces.JobEnqueuer, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Create persists a new catalog entity and enqueues its initial full scrape.
// The entity write is authoritative; an enqueue failure is logged and the
// entity is left for the staleness sweep to pick up (LastFetchedAt is zero,
// so it counts as stale immediately).
func (s *Service) Create(ctx context.Context, entity *models.CatalogEntity) (*models.CatalogEntity, error) {
	if entity == nil {
		return nil, fmt.Errorf("entity is required")
	}
	if !entity.Kind.IsValid() {
		return nil, fmt.Errorf("invalid entity kind %q", entity.Kind)
	}
	if entity.SourceURL == "" {
		return nil, fmt.Errorf("source_url is required")
	}
	if entity.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	if entity.ID == "" {
		switch entity.Kind {
		case models.EntityKindOffer:
			entity.ID = common.NewOfferID()
		default:
			entity.ID = common.NewProductID()
		}
	}

	if err := s.storage.Save(ctx, entity); err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	s.logger.Info().
		Str("entity_id", entity.ID).
		Str("tenant_id", entity.TenantID).
		Str("kind", string(entity.Kind)).
		Msg("Catalog entity created")

	if err := s.EnqueueScrape(ctx, entity, models.ScrapeModeFull); err != nil {
		s.logger.Warn().
			Err(err).
			Str("entity_id", entity.ID).
			Msg("Failed to enqueue initial scrape, sweep will retry")
	}

	return entity, nil
}

// EnqueueScrape builds and enqueues a scrape job for the entity. Duplicate
// jobs for the same entity are allowed; reconciliation tolerates them.
func (s *Service) EnqueueScrape(ctx context.Context, entity *models.CatalogEntity, mode models.ScrapeMode) error {
	job := &models.ScrapeJob{
		ID:         common.NewJobID(),
		EntityID:   entity.ID,
		EntityKind: entity.Kind,
		SourceURL:  entity.SourceURL,
		TenantID:   entity.TenantID,
		Mode:       mode,
		EnqueuedAt: time.Now(),
	}
	if err := job.Validate(); err != nil {
		return err
	}

	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue scrape job: %w", err)
	}

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("entity_id", entity.ID).
		Str("mode", string(mode)).
		Msg("Scrape job enqueued")

	return nil
}

// Get returns one entity by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.CatalogEntity, error) {
	return s.storage.Get(ctx, id)
}

// List returns entities filtered by the options.
func (s *Service) List(ctx context.Context, opts *interfaces.ListOptions) ([]*models.CatalogEntity, error) {
	return s.storage.List(ctx, opts)
}

// Delete removes an entity. In-flight scrape jobs for it become no-ops at
// reconciliation time.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.storage.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("entity_id", id).Msg("Catalog entity deleted")
	return nil
}
