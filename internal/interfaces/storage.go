package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/renovo/internal/models"
)

// ErrNotFound is returned when a catalog entity does not exist, e.g. when a
// worker reconciles a job for an entity deleted mid-flight.
var ErrNotFound = errors.New("entity not found")

// ListOptions controls pagination for catalog listings.
type ListOptions struct {
	Kind     models.EntityKind // Empty means all kinds
	TenantID string            // Empty means all tenants
	Limit    int
	Offset   int
}

// CatalogStorage defines operations on the persistent product/offer store.
type CatalogStorage interface {
	// Save inserts or overwrites an entity, stamping CreatedAt/UpdatedAt.
	Save(ctx context.Context, entity *models.CatalogEntity) error

	// Get retrieves an entity by ID, returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (*models.CatalogEntity, error)

	// ApplyScrapeUpdate merges a partial update into the stored entity and
	// returns the updated record. Returns ErrNotFound if the entity no
	// longer exists. The merge is blind last-write-wins per field.
	ApplyScrapeUpdate(ctx context.Context, id string, update *models.ScrapeUpdate) (*models.CatalogEntity, error)

	// ListStale returns up to limit entities whose LastFetchedAt is zero or
	// before the cutoff, in ID order, starting after afterID (empty for the
	// first page). Keyset pagination: rows refreshed mid-sweep drop out of
	// the result set without shifting later pages.
	ListStale(ctx context.Context, cutoff time.Time, limit int, afterID string) ([]*models.CatalogEntity, error)

	// List returns entities matching the options.
	List(ctx context.Context, opts *ListOptions) ([]*models.CatalogEntity, error)

	// Delete removes an entity. Deleting a missing entity is not an error.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored entities.
	Count(ctx context.Context) (int, error)
}
