package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/renovo/internal/common"
	"github.com/ternarybob/renovo/internal/interfaces"
	"github.com/ternarybob/renovo/internal/queue"
	"github.com/ternarybob/renovo/internal/services/catalog"
	"github.com/ternarybob/renovo/internal/services/scheduler"
	"github.com/ternarybob/renovo/internal/services/scraper"
	badgerstore "github.com/ternarybob/renovo/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB             *badgerstore.BadgerDB
	CatalogStorage interfaces.CatalogStorage

	QueueManager *queue.Manager
	WorkerPool   *queue.WorkerPool

	Extractor      interfaces.PageExtractor
	ScraperService *scraper.Service
	CatalogService *catalog.Service
	Scheduler      *scheduler.Service
}

// New initializes the application: storage, queue, extractor, services, and
// the refresh engine. Nothing is running yet; call Start.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: config,
		Logger: logger,
	}

	// Storage first: catalog documents and the queue share one Badger store
	db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.DB = db
	app.CatalogStorage = badgerstore.NewCatalogStorage(db, logger)

	queueManager, err := queue.NewManager(
		db.Badger(),
		config.Queue.QueueName,
		config.Queue.VisibilityTimeoutDuration(),
		config.Queue.MaxReceive,
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}
	app.QueueManager = queueManager

	extractor, err := scraper.NewChromeDPExtractor(config.Scraper, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize page extractor: %w", err)
	}
	app.Extractor = extractor

	app.ScraperService = scraper.NewService(extractor, app.CatalogStorage, logger)

	queueConfig := queue.Config{
		PollInterval:      config.Queue.PollIntervalDuration(),
		Concurrency:       config.Queue.Concurrency,
		VisibilityTimeout: config.Queue.VisibilityTimeoutDuration(),
		MaxReceive:        config.Queue.MaxReceive,
		QueueName:         config.Queue.QueueName,
	}
	app.WorkerPool = queue.NewWorkerPool(queueManager, queueConfig, app.ScraperService.HandleJob, logger)

	app.CatalogService = catalog.NewService(app.CatalogStorage, queueManager, logger)
	app.Scheduler = scheduler.NewService(app.CatalogService, app.CatalogStorage, config.Scheduler, logger)

	logger.Info().
		Str("badger_path", config.Storage.Badger.Path).
		Str("queue_name", config.Queue.QueueName).
		Msg("Application initialized")

	return app, nil
}

// Start brings up the worker pool and the staleness scheduler.
func (a *App) Start() error {
	if err := a.WorkerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Close shuts down components in reverse dependency order. In-flight scrape
// jobs finish before the extractor and store go away.
func (a *App) Close() {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}
	if a.WorkerPool != nil {
		if err := a.WorkerPool.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop worker pool")
		}
	}
	if a.Extractor != nil {
		if err := a.Extractor.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close page extractor")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
