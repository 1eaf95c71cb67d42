package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/renovo/internal/interfaces"
	"github.com/ternarybob/renovo/internal/models"
)

// WorkerPool consumes scrape jobs with bounded concurrency. Each worker
// runs its job to completion in isolation: a handler error or panic never
// reaches the other workers, and the message is deleted either way — the
// handler owns failure reconciliation, the queue does not retry.
type WorkerPool struct {
	manager *Manager
	handler interfaces.JobHandler
	config  Config
	logger  arbor.ILogger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorkerPool creates a worker pool bound to a queue manager.
func NewWorkerPool(manager *Manager, config Config, handler interfaces.JobHandler, logger arbor.ILogger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		manager: manager,
		handler: handler,
		config:  config,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the worker goroutines.
func (wp *WorkerPool) Start() error {
	if wp.handler == nil {
		return fmt.Errorf("worker pool requires a job handler")
	}

	wp.logger.Info().
		Int("concurrency", wp.config.Concurrency).
		Dur("poll_interval", wp.config.PollInterval).
		Msg("Starting scrape worker pool")

	for i := 0; i < wp.config.Concurrency; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	return nil
}

// Stop cancels all workers and waits for in-flight jobs to finish.
func (wp *WorkerPool) Stop() error {
	wp.logger.Info().Msg("Stopping scrape worker pool")
	wp.cancel()
	wp.wg.Wait()
	return nil
}

// worker is the main loop: poll, claim, handle, delete.
func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	// Stagger worker starts to spread polling across the interval
	staggerDelay := (wp.config.PollInterval / time.Duration(wp.config.Concurrency)) * time.Duration(workerID)
	if staggerDelay > 0 {
		select {
		case <-wp.ctx.Done():
			return
		case <-time.After(staggerDelay):
		}
	}

	wp.logger.Debug().
		Int("worker_id", workerID).
		Msg("Worker started")

	ticker := time.NewTicker(wp.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			if err := wp.processOne(workerID); err != nil && err != ErrNoMessage {
				wp.logger.Warn().
					Err(err).
					Int("worker_id", workerID).
					Msg("Error processing job")
			}
		}
	}
}

// processOne receives and handles a single job.
func (wp *WorkerPool) processOne(workerID int) error {
	job, deleteFn, err := wp.manager.Receive(wp.ctx)
	if err != nil {
		return err
	}

	wp.logger.Debug().
		Str("job_id", job.ID).
		Str("entity_id", job.EntityID).
		Str("mode", string(job.Mode)).
		Int("worker_id", workerID).
		Msg("Processing scrape job")

	startTime := time.Now()
	handlerErr := wp.runHandler(job)
	duration := time.Since(startTime)

	if handlerErr != nil {
		// The handler already reconciled the failure into the entity; the
		// delivery is terminal either way. The next staleness sweep retries.
		wp.logger.Error().
			Err(handlerErr).
			Str("job_id", job.ID).
			Str("entity_id", job.EntityID).
			Dur("duration", duration).
			Int("worker_id", workerID).
			Msg("Scrape job handler failed")
	} else {
		wp.logger.Info().
			Str("job_id", job.ID).
			Str("entity_id", job.EntityID).
			Str("mode", string(job.Mode)).
			Dur("duration", duration).
			Int("worker_id", workerID).
			Msg("Scrape job completed")
	}

	if err := deleteFn(); err != nil {
		wp.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Msg("Failed to delete job after processing")
		return err
	}

	return handlerErr
}

// runHandler invokes the handler with panic isolation so one bad job cannot
// take down the pool.
func (wp *WorkerPool) runHandler(job *models.ScrapeJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error().
				Str("job_id", job.ID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in scrape job handler")
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return wp.handler(wp.ctx, job)
}
