package scraper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/renovo/internal/common"
	"github.com/ternarybob/renovo/internal/interfaces"
	"github.com/ternarybob/renovo/internal/models"
	badgerstore "github.com/ternarybob/renovo/internal/storage/badger"
)

// stubExtractor returns a canned page or error without touching a browser.
type stubExtractor struct {
	pages map[string]*models.ExtractedPage
	errs  map[string]error
	calls int
}

func (s *stubExtractor) Extract(ctx context.Context, url string) (*models.ExtractedPage, error) {
	s.calls++
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if page, ok := s.pages[url]; ok {
		return page, nil
	}
	return nil, interfaces.NewExtractionError(url, "missing selector: product name not found", nil)
}

func (s *stubExtractor) Close() error { return nil }

func newTestCatalog(t *testing.T) interfaces.CatalogStorage {
	t.Helper()
	db, err := badgerstore.NewBadgerDB(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return badgerstore.NewCatalogStorage(db, common.GetLogger())
}

func seedEntity(t *testing.T, catalog interfaces.CatalogStorage, id string, kind models.EntityKind) *models.CatalogEntity {
	t.Helper()
	entity := &models.CatalogEntity{
		ID:        id,
		TenantID:  "tenant_1",
		Kind:      kind,
		SourceURL: "https://shop.example.com/p/" + id,
	}
	require.NoError(t, catalog.Save(context.Background(), entity))
	return entity
}

func newJob(entity *models.CatalogEntity, mode models.ScrapeMode) *models.ScrapeJob {
	return &models.ScrapeJob{
		ID:         common.NewJobID(),
		EntityID:   entity.ID,
		EntityKind: entity.Kind,
		SourceURL:  entity.SourceURL,
		TenantID:   entity.TenantID,
		Mode:       mode,
		EnqueuedAt: time.Now(),
	}
}

func samplePage() *models.ExtractedPage {
	return &models.ExtractedPage{
		Name:         "Trail Running Shoe",
		Price:        129.95,
		Currency:     "EUR",
		Availability: models.AvailabilityInStock,
		Description:  "Lightweight shoe for rough terrain.",
		Images:       []string{"https://cdn.example.com/shoe.jpg"},
		Platform:     "shopify",
	}
}

func TestHandleJobFullScrapeSuccess(t *testing.T) {
	catalog := newTestCatalog(t)
	entity := seedEntity(t, catalog, "prd_1", models.EntityKindProduct)

	extractor := &stubExtractor{pages: map[string]*models.ExtractedPage{entity.SourceURL: samplePage()}}
	service := NewService(extractor, catalog, common.GetLogger())

	require.NoError(t, service.HandleJob(context.Background(), newJob(entity, models.ScrapeModeFull)))

	got, err := catalog.Get(context.Background(), "prd_1")
	require.NoError(t, err)
	assert.Equal(t, "Trail Running Shoe", got.Name)
	assert.Equal(t, 129.95, got.Price)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, models.AvailabilityInStock, got.Availability)
	assert.Equal(t, "Lightweight shoe for rough terrain.", got.Description)
	assert.Equal(t, []string{"https://cdn.example.com/shoe.jpg"}, got.Images)
	assert.Equal(t, "shopify", got.Platform)
	assert.Empty(t, got.ErrorState)
	assert.False(t, got.LastFetchedAt.IsZero())
	assert.False(t, got.LastFullScrapedAt.IsZero())
}

func TestHandleJobMinimalScrapePreservesFullFields(t *testing.T) {
	catalog := newTestCatalog(t)
	entity := seedEntity(t, catalog, "prd_1", models.EntityKindProduct)

	extractor := &stubExtractor{pages: map[string]*models.ExtractedPage{entity.SourceURL: samplePage()}}
	service := NewService(extractor, catalog, common.GetLogger())

	// Full scrape first, then a minimal refresh with changed volatile fields
	require.NoError(t, service.HandleJob(context.Background(), newJob(entity, models.ScrapeModeFull)))
	afterFull, err := catalog.Get(context.Background(), "prd_1")
	require.NoError(t, err)

	changed := samplePage()
	changed.Name = "RENAMED, MUST NOT APPLY"
	changed.Price = 99.95
	changed.Availability = models.AvailabilityOutOfStock
	changed.Description = "On sale."
	changed.Images = []string{"https://cdn.example.com/other.jpg"}
	extractor.pages[entity.SourceURL] = changed

	require.NoError(t, service.HandleJob(context.Background(), newJob(entity, models.ScrapeModeMinimal)))

	got, err := catalog.Get(context.Background(), "prd_1")
	require.NoError(t, err)
	assert.Equal(t, 99.95, got.Price)
	assert.Equal(t, models.AvailabilityOutOfStock, got.Availability)
	assert.Equal(t, "On sale.", got.Description)

	// Full-scrape-only fields untouched by the minimal run
	assert.Equal(t, "Trail Running Shoe", got.Name)
	assert.Equal(t, []string{"https://cdn.example.com/shoe.jpg"}, got.Images)
	assert.True(t, got.LastFullScrapedAt.Equal(afterFull.LastFullScrapedAt))
	assert.True(t, got.LastFetchedAt.After(afterFull.LastFetchedAt) || got.LastFetchedAt.Equal(afterFull.LastFetchedAt))
}

func TestHandleJobFailureRecordsErrorState(t *testing.T) {
	catalog := newTestCatalog(t)
	entity := seedEntity(t, catalog, "prd_1", models.EntityKindProduct)

	extractor := &stubExtractor{pages: map[string]*models.ExtractedPage{entity.SourceURL: samplePage()}}
	service := NewService(extractor, catalog, common.GetLogger())

	require.NoError(t, service.HandleJob(context.Background(), newJob(entity, models.ScrapeModeFull)))
	beforeFailure, err := catalog.Get(context.Background(), "prd_1")
	require.NoError(t, err)

	extractor.errs = map[string]error{
		entity.SourceURL: interfaces.NewExtractionError(entity.SourceURL, "navigation timeout", context.DeadlineExceeded),
	}

	// The failure must not escape the handler
	require.NoError(t, service.HandleJob(context.Background(), newJob(entity, models.ScrapeModeMinimal)))

	got, err := catalog.Get(context.Background(), "prd_1")
	require.NoError(t, err)
	assert.Contains(t, got.ErrorState, "navigation timeout")
	assert.True(t, got.LastFetchedAt.After(beforeFailure.LastFetchedAt) || got.LastFetchedAt.Equal(beforeFailure.LastFetchedAt))

	// Last good values survive the failed attempt
	assert.Equal(t, beforeFailure.Name, got.Name)
	assert.Equal(t, beforeFailure.Price, got.Price)
	assert.Equal(t, beforeFailure.Availability, got.Availability)
	assert.True(t, got.LastFullScrapedAt.Equal(beforeFailure.LastFullScrapedAt))
}

func TestHandleJobSuccessClearsErrorState(t *testing.T) {
	catalog := newTestCatalog(t)
	entity := seedEntity(t, catalog, "prd_1", models.EntityKindProduct)

	extractor := &stubExtractor{
		errs: map[string]error{entity.SourceURL: interfaces.NewExtractionError(entity.SourceURL, "navigation failed", nil)},
	}
	service := NewService(extractor, catalog, common.GetLogger())

	require.NoError(t, service.HandleJob(context.Background(), newJob(entity, models.ScrapeModeMinimal)))
	got, err := catalog.Get(context.Background(), "prd_1")
	require.NoError(t, err)
	require.NotEmpty(t, got.ErrorState)

	extractor.errs = nil
	extractor.pages = map[string]*models.ExtractedPage{entity.SourceURL: samplePage()}

	require.NoError(t, service.HandleJob(context.Background(), newJob(entity, models.ScrapeModeMinimal)))
	got, err = catalog.Get(context.Background(), "prd_1")
	require.NoError(t, err)
	assert.Empty(t, got.ErrorState)
}

func TestHandleJobEntityGoneIsDiscarded(t *testing.T) {
	catalog := newTestCatalog(t)
	extractor := &stubExtractor{pages: map[string]*models.ExtractedPage{
		"https://shop.example.com/p/prd_gone": samplePage(),
	}}
	service := NewService(extractor, catalog, common.GetLogger())

	job := &models.ScrapeJob{
		ID:         common.NewJobID(),
		EntityID:   "prd_gone",
		EntityKind: models.EntityKindProduct,
		SourceURL:  "https://shop.example.com/p/prd_gone",
		TenantID:   "tenant_1",
		Mode:       models.ScrapeModeFull,
		EnqueuedAt: time.Now(),
	}
	require.NoError(t, service.HandleJob(context.Background(), job))
}

func TestHandleJobDiscardsMalformedJob(t *testing.T) {
	catalog := newTestCatalog(t)
	extractor := &stubExtractor{}
	service := NewService(extractor, catalog, common.GetLogger())

	require.NoError(t, service.HandleJob(context.Background(), &models.ScrapeJob{ID: "job_bad"}))
	assert.Zero(t, extractor.calls)
}

func TestHandleJobIsIdempotent(t *testing.T) {
	catalog := newTestCatalog(t)
	entity := seedEntity(t, catalog, "prd_1", models.EntityKindProduct)

	extractor := &stubExtractor{pages: map[string]*models.ExtractedPage{entity.SourceURL: samplePage()}}
	service := NewService(extractor, catalog, common.GetLogger())

	// Pin the clock so duplicate deliveries produce identical updates
	fixed := time.Now().UTC().Truncate(time.Millisecond)
	service.now = func() time.Time { return fixed }

	job := newJob(entity, models.ScrapeModeFull)
	require.NoError(t, service.HandleJob(context.Background(), job))
	first, err := catalog.Get(context.Background(), "prd_1")
	require.NoError(t, err)

	require.NoError(t, service.HandleJob(context.Background(), job))
	second, err := catalog.Get(context.Background(), "prd_1")
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.Price, second.Price)
	assert.True(t, first.LastFetchedAt.Equal(second.LastFetchedAt))
	assert.True(t, first.LastFullScrapedAt.Equal(second.LastFullScrapedAt))
}

func TestHandleJobFailureIsolationAcrossBatch(t *testing.T) {
	catalog := newTestCatalog(t)
	extractor := &stubExtractor{pages: map[string]*models.ExtractedPage{}, errs: map[string]error{}}
	service := NewService(extractor, catalog, common.GetLogger())

	var entities []*models.CatalogEntity
	for i := 0; i < 5; i++ {
		entity := seedEntity(t, catalog, fmt.Sprintf("prd_%d", i), models.EntityKindProduct)
		entities = append(entities, entity)
		if i == 2 {
			extractor.errs[entity.SourceURL] = interfaces.NewExtractionError(entity.SourceURL, "navigation failed", nil)
		} else {
			extractor.pages[entity.SourceURL] = samplePage()
		}
	}

	for _, entity := range entities {
		require.NoError(t, service.HandleJob(context.Background(), newJob(entity, models.ScrapeModeFull)))
	}

	for i, entity := range entities {
		got, err := catalog.Get(context.Background(), entity.ID)
		require.NoError(t, err)
		if i == 2 {
			assert.NotEmpty(t, got.ErrorState)
			assert.Empty(t, got.Name)
		} else {
			assert.Empty(t, got.ErrorState)
			assert.Equal(t, "Trail Running Shoe", got.Name)
		}
	}
}

func TestHandleJobOfferSkipsAvailability(t *testing.T) {
	catalog := newTestCatalog(t)
	entity := seedEntity(t, catalog, "off_1", models.EntityKindOffer)

	extractor := &stubExtractor{pages: map[string]*models.ExtractedPage{entity.SourceURL: samplePage()}}
	service := NewService(extractor, catalog, common.GetLogger())

	require.NoError(t, service.HandleJob(context.Background(), newJob(entity, models.ScrapeModeFull)))

	got, err := catalog.Get(context.Background(), "off_1")
	require.NoError(t, err)
	assert.Equal(t, "Trail Running Shoe", got.Name)
	assert.Equal(t, models.AvailabilityUnknown, got.Availability)
}
