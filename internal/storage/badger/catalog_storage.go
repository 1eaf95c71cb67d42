package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/renovo/internal/interfaces"
	"github.com/ternarybob/renovo/internal/models"
)

// CatalogStorage implements the CatalogStorage interface for Badger
type CatalogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCatalogStorage creates a new CatalogStorage instance
func NewCatalogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CatalogStorage {
	return &CatalogStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CatalogStorage) Save(ctx context.Context, entity *models.CatalogEntity) error {
	if entity.ID == "" {
		return fmt.Errorf("entity ID is required")
	}
	if !entity.Kind.IsValid() {
		return fmt.Errorf("invalid entity kind %q", entity.Kind)
	}

	now := time.Now()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	if err := s.db.Store().Upsert(entity.ID, entity); err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}
	return nil
}

func (s *CatalogStorage) Get(ctx context.Context, id string) (*models.CatalogEntity, error) {
	var entity models.CatalogEntity
	if err := s.db.Store().Get(id, &entity); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return &entity, nil
}

// ApplyScrapeUpdate performs the read-merge-write reconciliation primitive.
// The merge is a blind per-field overwrite: no versioning, last write wins,
// which makes re-applying the same update idempotent and lets concurrent
// full/minimal jobs interleave additively.
func (s *CatalogStorage) ApplyScrapeUpdate(ctx context.Context, id string, update *models.ScrapeUpdate) (*models.CatalogEntity, error) {
	var entity models.CatalogEntity
	if err := s.db.Store().Get(id, &entity); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load entity for update: %w", err)
	}

	update.ApplyTo(&entity)
	entity.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(id, &entity); err != nil {
		return nil, fmt.Errorf("failed to write scrape update: %w", err)
	}

	return &entity, nil
}

// ListStale returns entities due for a refresh: never fetched, or last
// fetched before the cutoff. Keyset-paginated on the entity key so the sweep
// never loads the whole catalog at once and a row turning fresh between
// pages cannot shift entities out of later pages.
func (s *CatalogStorage) ListStale(ctx context.Context, cutoff time.Time, limit int, afterID string) ([]*models.CatalogEntity, error) {
	query := badgerhold.Where(badgerhold.Key).Gt(afterID).And("LastFetchedAt").Lt(cutoff).
		Or(badgerhold.Where(badgerhold.Key).Gt(afterID).And("LastFetchedAt").Eq(time.Time{})).
		SortBy("ID")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entities []models.CatalogEntity
	if err := s.db.Store().Find(&entities, query); err != nil {
		return nil, fmt.Errorf("failed to query stale entities: %w", err)
	}

	result := make([]*models.CatalogEntity, len(entities))
	for i := range entities {
		result[i] = &entities[i]
	}
	return result, nil
}

func (s *CatalogStorage) List(ctx context.Context, opts *interfaces.ListOptions) ([]*models.CatalogEntity, error) {
	query := badgerhold.Where("ID").Ne("") // Select all

	if opts != nil {
		if opts.Kind != "" {
			query = query.And("Kind").Eq(opts.Kind)
		}
		if opts.TenantID != "" {
			query = query.And("TenantID").Eq(opts.TenantID)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}

	var entities []models.CatalogEntity
	if err := s.db.Store().Find(&entities, query); err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	result := make([]*models.CatalogEntity, len(entities))
	for i := range entities {
		result[i] = &entities[i]
	}
	return result, nil
}

func (s *CatalogStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.CatalogEntity{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	return nil
}

func (s *CatalogStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.CatalogEntity{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return int(count), nil
}
