package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyToMergesOnlySetFields(t *testing.T) {
	entity := &CatalogEntity{
		ID:           "prd_1",
		Name:         "Widget",
		Price:        19.99,
		Description:  "original",
		Availability: AvailabilityInStock,
	}

	price := 24.50
	availability := AvailabilityOutOfStock
	update := &ScrapeUpdate{
		Price:        &price,
		Availability: &availability,
	}
	update.ApplyTo(entity)

	assert.Equal(t, 24.50, entity.Price)
	assert.Equal(t, AvailabilityOutOfStock, entity.Availability)
	assert.Equal(t, "Widget", entity.Name)
	assert.Equal(t, "original", entity.Description)
}

func TestApplyToCanSetZeroValues(t *testing.T) {
	entity := &CatalogEntity{
		ID:         "prd_1",
		ErrorState: "navigation timeout",
	}

	// A set pointer to the zero value clears the field; only nil means
	// "leave alone"
	empty := ""
	update := &ScrapeUpdate{ErrorState: &empty}
	update.ApplyTo(entity)

	assert.Empty(t, entity.ErrorState)
}

func TestApplyToDisjointUpdatesAreAdditive(t *testing.T) {
	entity := &CatalogEntity{ID: "prd_1"}
	now := time.Now()

	name := "Widget"
	images := []string{"https://cdn.example.com/a.jpg"}
	full := &ScrapeUpdate{Name: &name, Images: &images, LastFullScrapedAt: &now}

	price := 9.99
	minimal := &ScrapeUpdate{Price: &price, LastFetchedAt: &now}

	// Either application order yields the union
	full.ApplyTo(entity)
	minimal.ApplyTo(entity)

	assert.Equal(t, "Widget", entity.Name)
	assert.Equal(t, 9.99, entity.Price)
	assert.Equal(t, images, entity.Images)
	assert.True(t, entity.LastFetchedAt.Equal(now))
	assert.True(t, entity.LastFullScrapedAt.Equal(now))
}

func TestScrapeJobValidate(t *testing.T) {
	valid := &ScrapeJob{
		ID:         "job_1",
		EntityID:   "prd_1",
		EntityKind: EntityKindProduct,
		SourceURL:  "https://shop.example.com/p/1",
		TenantID:   "tenant_1",
		Mode:       ScrapeModeFull,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(j *ScrapeJob)
	}{
		{"missing entity id", func(j *ScrapeJob) { j.EntityID = "" }},
		{"bad kind", func(j *ScrapeJob) { j.EntityKind = "basket" }},
		{"missing url", func(j *ScrapeJob) { j.SourceURL = "" }},
		{"bad mode", func(j *ScrapeJob) { j.Mode = "partial" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			job := *valid
			tc.mutate(&job)
			assert.Error(t, job.Validate())
		})
	}
}

func TestScrapeJobJSONRoundTrip(t *testing.T) {
	job := &ScrapeJob{
		ID:         "job_1",
		EntityID:   "prd_1",
		EntityKind: EntityKindProduct,
		SourceURL:  "https://shop.example.com/p/1",
		TenantID:   "tenant_1",
		Mode:       ScrapeModeMinimal,
		EnqueuedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	data, err := job.ToJSON()
	require.NoError(t, err)

	decoded, err := ScrapeJobFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, job.EntityID, decoded.EntityID)
	assert.Equal(t, job.Mode, decoded.Mode)
	assert.True(t, job.EnqueuedAt.Equal(decoded.EnqueuedAt))

	_, err = ScrapeJobFromJSON([]byte("{not json"))
	assert.Error(t, err)
}
