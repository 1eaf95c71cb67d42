package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
//
// Everything the engine needs is carried in here explicitly and passed to
// constructors; nothing reads ambient process state after startup.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Queue       QueueConfig     `toml:"queue"`
	Scraper     ScraperConfig   `toml:"scraper"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type QueueConfig struct {
	// PollInterval is how often workers poll for jobs, e.g. "1s"
	PollInterval string `toml:"poll_interval"`
	// Concurrency is the number of concurrent scrape workers
	Concurrency int `toml:"concurrency" validate:"min=1,max=64"`
	// VisibilityTimeout is the message visibility timeout for redelivery, e.g. "5m"
	VisibilityTimeout string `toml:"visibility_timeout"`
	// MaxReceive is the max deliveries before a message is dropped
	MaxReceive int `toml:"max_receive" validate:"min=1"`
	// QueueName is the queue key prefix in Badger
	QueueName string `toml:"queue_name" validate:"required"`
}

// ScraperConfig controls the page extractor.
type ScraperConfig struct {
	UserAgent          string `toml:"user_agent"`
	PageLoadTimeout    string `toml:"page_load_timeout"`    // e.g. "30s" - extraction deadline; a timeout is recorded as a failed attempt
	JavaScriptWaitTime string `toml:"javascript_wait_time"` // e.g. "3s" - time to wait for JavaScript to render
	RateLimit          string `toml:"rate_limit"`           // e.g. "1s" - minimum delay between extractions per host
	BrowserInstances   int    `toml:"browser_instances" validate:"min=1,max=20"`
	Headless           bool   `toml:"headless"`
}

// SchedulerConfig controls the staleness sweep.
type SchedulerConfig struct {
	// SweepInterval is how often the sweep runs, e.g. "10m"
	SweepInterval string `toml:"sweep_interval"`
	// StalenessThreshold is the max age of LastFetchedAt before re-scrape, e.g. "10m"
	StalenessThreshold string `toml:"staleness_threshold"`
	// PageSize is the number of entities loaded per storage page during a sweep
	PageSize int `toml:"page_size" validate:"min=1"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in renovo.toml; technical defaults
// live here.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			Concurrency:       5,
			VisibilityTimeout: "5m",
			MaxReceive:        3,
			QueueName:         "renovo_scrape",
		},
		Scraper: ScraperConfig{
			UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			PageLoadTimeout:    "30s",
			JavaScriptWaitTime: "3s",
			RateLimit:          "1s",
			BrowserInstances:   2,
			Headless:           true,
		},
		Scheduler: SchedulerConfig{
			SweepInterval:      "10m",
			StalenessThreshold: "10m",
			PageSize:           500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier ones; environment variables
// override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for structurally invalid values.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Duration strings are validated by parsing so a typo fails at startup,
	// not on first use.
	for name, val := range map[string]string{
		"queue.poll_interval":           c.Queue.PollInterval,
		"queue.visibility_timeout":      c.Queue.VisibilityTimeout,
		"scraper.page_load_timeout":     c.Scraper.PageLoadTimeout,
		"scraper.javascript_wait_time":  c.Scraper.JavaScriptWaitTime,
		"scraper.rate_limit":            c.Scraper.RateLimit,
		"scheduler.sweep_interval":      c.Scheduler.SweepInterval,
		"scheduler.staleness_threshold": c.Scheduler.StalenessThreshold,
	} {
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("invalid configuration: %s=%q: %w", name, val, err)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("RENOVO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Storage configuration
	if badgerPath := os.Getenv("RENOVO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Queue configuration
	if pollInterval := os.Getenv("RENOVO_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if concurrency := os.Getenv("RENOVO_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}
	if visibilityTimeout := os.Getenv("RENOVO_QUEUE_VISIBILITY_TIMEOUT"); visibilityTimeout != "" {
		config.Queue.VisibilityTimeout = visibilityTimeout
	}
	if maxReceive := os.Getenv("RENOVO_QUEUE_MAX_RECEIVE"); maxReceive != "" {
		if mr, err := strconv.Atoi(maxReceive); err == nil {
			config.Queue.MaxReceive = mr
		}
	}
	if queueName := os.Getenv("RENOVO_QUEUE_NAME"); queueName != "" {
		config.Queue.QueueName = queueName
	}

	// Scraper configuration
	if userAgent := os.Getenv("RENOVO_SCRAPER_USER_AGENT"); userAgent != "" {
		config.Scraper.UserAgent = userAgent
	}
	if pageLoadTimeout := os.Getenv("RENOVO_SCRAPER_PAGE_LOAD_TIMEOUT"); pageLoadTimeout != "" {
		config.Scraper.PageLoadTimeout = pageLoadTimeout
	}
	if jsWait := os.Getenv("RENOVO_SCRAPER_JAVASCRIPT_WAIT_TIME"); jsWait != "" {
		config.Scraper.JavaScriptWaitTime = jsWait
	}
	if rateLimit := os.Getenv("RENOVO_SCRAPER_RATE_LIMIT"); rateLimit != "" {
		config.Scraper.RateLimit = rateLimit
	}
	if browserInstances := os.Getenv("RENOVO_SCRAPER_BROWSER_INSTANCES"); browserInstances != "" {
		if bi, err := strconv.Atoi(browserInstances); err == nil {
			config.Scraper.BrowserInstances = bi
		}
	}
	if headless := os.Getenv("RENOVO_SCRAPER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Scraper.Headless = h
		}
	}

	// Scheduler configuration
	if sweepInterval := os.Getenv("RENOVO_SCHEDULER_SWEEP_INTERVAL"); sweepInterval != "" {
		config.Scheduler.SweepInterval = sweepInterval
	}
	if threshold := os.Getenv("RENOVO_SCHEDULER_STALENESS_THRESHOLD"); threshold != "" {
		config.Scheduler.StalenessThreshold = threshold
	}
	if pageSize := os.Getenv("RENOVO_SCHEDULER_PAGE_SIZE"); pageSize != "" {
		if ps, err := strconv.Atoi(pageSize); err == nil {
			config.Scheduler.PageSize = ps
		}
	}

	// Logging configuration
	if level := os.Getenv("RENOVO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("RENOVO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// PollIntervalDuration returns the parsed queue poll interval.
func (c *QueueConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 1 * time.Second
	}
	return d
}

// VisibilityTimeoutDuration returns the parsed visibility timeout.
func (c *QueueConfig) VisibilityTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.VisibilityTimeout)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// SweepIntervalDuration returns the parsed sweep interval.
func (c *SchedulerConfig) SweepIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// StalenessThresholdDuration returns the parsed staleness threshold.
func (c *SchedulerConfig) StalenessThresholdDuration() time.Duration {
	d, err := time.ParseDuration(c.StalenessThreshold)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// PageLoadTimeoutDuration returns the parsed extraction deadline.
func (c *ScraperConfig) PageLoadTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.PageLoadTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// JavaScriptWaitTimeDuration returns the parsed render wait.
func (c *ScraperConfig) JavaScriptWaitTimeDuration() time.Duration {
	d, err := time.ParseDuration(c.JavaScriptWaitTime)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// RateLimitDuration returns the parsed per-host delay.
func (c *ScraperConfig) RateLimitDuration() time.Duration {
	d, err := time.ParseDuration(c.RateLimit)
	if err != nil {
		return time.Second
	}
	return d
}
