package queue

import "time"

// Config holds configuration for the scrape queue.
type Config struct {
	// PollInterval is how often workers poll for jobs
	PollInterval time.Duration

	// Concurrency is the number of concurrent scrape workers
	Concurrency int

	// VisibilityTimeout is the message visibility timeout for redelivery.
	// A worker that dies mid-job releases the message back after this long.
	VisibilityTimeout time.Duration

	// MaxReceive is the maximum times a message can be delivered before it
	// is dropped as a poison pill
	MaxReceive int

	// QueueName is the key prefix of the queue in Badger
	QueueName string
}

// NewDefaultConfig creates a queue configuration with sensible defaults
func NewDefaultConfig() Config {
	return Config{
		PollInterval:      1 * time.Second,
		Concurrency:       5,
		VisibilityTimeout: 5 * time.Minute,
		MaxReceive:        3,
		QueueName:         "renovo_scrape",
	}
}
