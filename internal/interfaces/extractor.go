package interfaces

import (
	"context"
	"fmt"

	"github.com/ternarybob/renovo/internal/models"
)

// ExtractionError is a page fetch/parse failure with a human-readable cause
// (navigation timeout, missing selector, parse failure). The engine never
// retries on it; the cause is recorded into the entity's error state and the
// next staleness sweep re-attempts naturally.
type ExtractionError struct {
	URL   string
	Cause string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed for %s: %s: %v", e.URL, e.Cause, e.Err)
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.URL, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates an ExtractionError.
func NewExtractionError(url, cause string, err error) *ExtractionError {
	return &ExtractionError{URL: url, Cause: cause, Err: err}
}

// PageExtractor fetches a merchant page and extracts the structured product
// record. Implementations must honor the context deadline; a blocked page
// load is treated as a failed attempt by the caller.
type PageExtractor interface {
	Extract(ctx context.Context, url string) (*models.ExtractedPage, error)

	// Close releases browser resources.
	Close() error
}
