package models

import (
	"time"
)

// EntityKind distinguishes the two catalog record types served by the
// refresh engine. Products and offers share one engine; the kind only
// affects which fields a scrape is allowed to touch.
type EntityKind string

const (
	EntityKindProduct EntityKind = "product"
	EntityKindOffer   EntityKind = "offer"
)

// IsValid returns true for a known entity kind.
func (k EntityKind) IsValid() bool {
	return k == EntityKindProduct || k == EntityKindOffer
}

// Availability represents the stock state reported by a merchant page.
type Availability string

const (
	AvailabilityUnknown    Availability = ""
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
)

// CatalogEntity is a product or offer record subject to periodic re-scraping.
//
// ID, TenantID, Kind and SourceURL are identity and immutable after creation.
// The scraped fields are refreshed by the worker pool according to the job
// mode. LastFetchedAt advances on every attempt that reached reconciliation,
// successful or not; LastFullScrapedAt only on a successful full scrape.
type CatalogEntity struct {
	ID        string     `json:"id" badgerhold:"key"`
	TenantID  string     `json:"tenant_id" badgerholdIndex:"TenantID"`
	Kind      EntityKind `json:"kind" badgerholdIndex:"Kind"`
	SourceURL string     `json:"source_url"`

	// Scraped fields
	Name         string       `json:"name,omitempty"`
	Price        float64      `json:"price,omitempty"`
	Currency     string       `json:"currency,omitempty"`
	Description  string       `json:"description,omitempty"`
	Images       []string     `json:"images,omitempty"`
	Platform     string       `json:"platform,omitempty"`
	Availability Availability `json:"availability,omitempty"` // products only

	// Scrape bookkeeping
	LastFetchedAt     time.Time `json:"last_fetched_at,omitempty"`
	LastFullScrapedAt time.Time `json:"last_full_scraped_at,omitempty"`
	ErrorState        string    `json:"error_state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScrapeUpdate is the partial merge payload applied to a catalog entity
// after a scrape attempt. Nil pointers mean "leave the field alone", so
// concurrent updates interleave additively per field.
type ScrapeUpdate struct {
	Name         *string       `json:"name,omitempty"`
	Price        *float64      `json:"price,omitempty"`
	Currency     *string       `json:"currency,omitempty"`
	Description  *string       `json:"description,omitempty"`
	Images       *[]string     `json:"images,omitempty"`
	Platform     *string       `json:"platform,omitempty"`
	Availability *Availability `json:"availability,omitempty"`

	LastFetchedAt     *time.Time `json:"last_fetched_at,omitempty"`
	LastFullScrapedAt *time.Time `json:"last_full_scraped_at,omitempty"`
	ErrorState        *string    `json:"error_state,omitempty"`
}

// ApplyTo merges the update into the entity in place. The merge is blind
// last-write-wins per field and idempotent.
func (u *ScrapeUpdate) ApplyTo(e *CatalogEntity) {
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Price != nil {
		e.Price = *u.Price
	}
	if u.Currency != nil {
		e.Currency = *u.Currency
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Images != nil {
		e.Images = *u.Images
	}
	if u.Platform != nil {
		e.Platform = *u.Platform
	}
	if u.Availability != nil {
		e.Availability = *u.Availability
	}
	if u.LastFetchedAt != nil {
		e.LastFetchedAt = *u.LastFetchedAt
	}
	if u.LastFullScrapedAt != nil {
		e.LastFullScrapedAt = *u.LastFullScrapedAt
	}
	if u.ErrorState != nil {
		e.ErrorState = *u.ErrorState
	}
}

// ExtractedPage is the structured record returned by a page extractor.
type ExtractedPage struct {
	Name         string       `json:"name"`
	Price        float64      `json:"price"`
	Currency     string       `json:"currency,omitempty"`
	Availability Availability `json:"availability,omitempty"`
	Description  string       `json:"description,omitempty"`
	Images       []string     `json:"images,omitempty"`
	Platform     string       `json:"platform,omitempty"`
}
