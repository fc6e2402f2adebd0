package migrate

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics of the migration pipelines. With a nil registerer they are
// collected but not exported.
type Metrics struct {
	RecordsRead    *prometheus.CounterVec
	RecordsWritten *prometheus.CounterVec
	Batches        *prometheus.CounterVec
	BatchSize      *prometheus.HistogramVec
	QueueDepth     *prometheus.GaugeVec
}

// NewMetrics registers the pipeline metrics with reg. Metrics already
// registered by an earlier call are reused, so pipelines sharing a
// registerer report into the same series.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RecordsRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregate_mapper_migration_records_read_total",
				Help: "Records scrolled from the migration source",
			},
			[]string{"type"},
		),
		RecordsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregate_mapper_migration_records_written_total",
				Help: "Records created in the migration target",
			},
			[]string{"type"},
		),
		Batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aggregate_mapper_migration_batches_total",
				Help: "Batches persisted by the migration consumers",
			},
			[]string{"type", "status"}, // status: success/error
		),
		BatchSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aggregate_mapper_migration_batch_size",
				Help:    "Records per persisted batch",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"type"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aggregate_mapper_migration_queue_depth",
				Help: "Records waiting in the pipeline queue",
			},
			[]string{"type"},
		),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.RecordsRead, err = register(reg, m.RecordsRead); err != nil {
		return nil, err
	}
	if m.RecordsWritten, err = register(reg, m.RecordsWritten); err != nil {
		return nil, err
	}
	if m.Batches, err = register(reg, m.Batches); err != nil {
		return nil, err
	}
	if m.BatchSize, err = register(reg, m.BatchSize); err != nil {
		return nil, err
	}
	if m.QueueDepth, err = register(reg, m.QueueDepth); err != nil {
		return nil, err
	}

	return m, nil
}

// register returns c, or the equal collector reg already holds.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, fmt.Errorf("register migration metrics: %w", err)
}
