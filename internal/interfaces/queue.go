package interfaces

import (
	"context"

	"github.com/ternarybob/renovo/internal/models"
)

// JobEnqueuer is the enqueue side of the scrape queue, consumed by the
// catalog service and the staleness scheduler. An enqueue failure means the
// queue store is unreachable; callers log and continue — the entity exists
// without a pending scrape until the next sweep.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job *models.ScrapeJob) error
}

// JobHandler processes one delivered scrape job. The handler owns all
// failure reconciliation; returning an error marks the delivery as handled
// regardless (no automatic requeue).
type JobHandler func(ctx context.Context, job *models.ScrapeJob) error

// WorkerPool manages concurrent job processing.
type WorkerPool interface {
	Start() error
	Stop() error
}
