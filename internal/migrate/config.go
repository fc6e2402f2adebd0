package migrate

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"aggregate-mapper/options"
)

const (
	DefaultConsumers = 2
	// DefaultAwait is the ceiling on one pipeline run; batch jobs treat it as unbounded.
	DefaultAwait = 24 * time.Hour
)

// Config tunes a pipeline.
type Config struct {
	// BatchSize is the number of records created in the target at once.
	BatchSize int
	// Consumers is the number of batch writers.
	Consumers int
	// QueueSize bounds the records buffered between producer and consumers.
	QueueSize int
	// Await bounds a whole pipeline run. An interrupted run is reported, not retried.
	Await time.Duration
	// Registerer receives the pipeline metrics when set.
	Registerer prometheus.Registerer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize: options.DefaultBatchSize,
		Consumers: DefaultConsumers,
		QueueSize: 2 * options.DefaultBatchSize,
		Await:     DefaultAwait,
	}
}

// Validate checks the config for consistency.
func (c Config) Validate() error {
	var errs []error
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}

	if c.Consumers <= 0 {
		errs = append(errs, fmt.Errorf("consumer count must be positive, got %d", c.Consumers))
	}

	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue size must be positive, got %d", c.QueueSize))
	}

	if c.Await <= 0 {
		errs = append(errs, errors.New("await ceiling must be positive"))
	}

	return errors.Join(errs...)
}
