package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScrapeMode selects the field set a scrape job refreshes.
type ScrapeMode string

const (
	// ScrapeModeFull refreshes name, price, description, images, platform
	// and availability, and stamps both LastFetchedAt and LastFullScrapedAt.
	ScrapeModeFull ScrapeMode = "full"

	// ScrapeModeMinimal refreshes only the volatile fields (price,
	// availability, description) and stamps LastFetchedAt only.
	ScrapeModeMinimal ScrapeMode = "minimal"
)

// IsValid returns true for a known scrape mode.
func (m ScrapeMode) IsValid() bool {
	return m == ScrapeModeFull || m == ScrapeModeMinimal
}

// ScrapeJob is the queue payload for one refresh attempt.
//
// SourceURL is captured at enqueue time, not re-read from the store, so a
// job reflects the URL known when it was queued. Delivery is at-least-once;
// duplicate and overlapping jobs for the same entity are expected and
// tolerated by the idempotent merge on the reconciliation side.
type ScrapeJob struct {
	ID         string     `json:"id"`
	EntityID   string     `json:"entity_id"`
	EntityKind EntityKind `json:"entity_kind"`
	SourceURL  string     `json:"source_url"`
	TenantID   string     `json:"tenant_id"`
	Mode       ScrapeMode `json:"mode"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
}

// Validate checks the job carries everything a worker needs.
func (j *ScrapeJob) Validate() error {
	if j.EntityID == "" {
		return fmt.Errorf("scrape job: entity_id is required")
	}
	if !j.EntityKind.IsValid() {
		return fmt.Errorf("scrape job: invalid entity kind %q", j.EntityKind)
	}
	if j.SourceURL == "" {
		return fmt.Errorf("scrape job: source_url is required")
	}
	if !j.Mode.IsValid() {
		return fmt.Errorf("scrape job: invalid mode %q", j.Mode)
	}
	return nil
}

// ToJSON serializes the job for queue transport.
func (j *ScrapeJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// ScrapeJobFromJSON deserializes a queue payload.
func ScrapeJobFromJSON(data []byte) (*ScrapeJob, error) {
	var job ScrapeJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode scrape job: %w", err)
	}
	return &job, nil
}
