package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"aggregate-mapper/internal/common"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/persist"
)

// Source scrolls the flat records of one entity type.
type Source interface {
	Scroll(ctx context.Context, t *model.Type) (persist.Cursor, error)
}

// Target creates a batch of flat records of one type and returns the
// identifiers it assigned, in batch order.
type Target interface {
	CreateBatch(ctx context.Context, t *model.Type, recs []model.Record) ([]any, error)
}

// Result reports one pipeline run.
type Result struct {
	Type    string
	Read    int
	Written int
	// Failed counts the records of failed batches.
	Failed int
	// Batches holds the sizes of the persisted batches in completion order.
	Batches []int
	// Errors aggregates source and batch failures. Failed batches are not
	// retried and written batches are not rolled back.
	Errors *multierror.Error
}

// Err returns the aggregated failures or nil.
func (r *Result) Err() error {
	return r.Errors.ErrorOrNil()
}

// Pipeline moves the records of one type from a Source to a Target through
// a bounded queue: one producer, Config.Consumers consumers.
type Pipeline struct {
	source     Source
	target     Target
	cfg        Config
	surrogates *SurrogateMap
	metrics    *Metrics
	log        logrus.FieldLogger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithSurrogates shares a surrogate map between pipelines of related types.
func WithSurrogates(s *SurrogateMap) PipelineOption {
	return func(p *Pipeline) { p.surrogates = s }
}

func WithMetrics(m *Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

func WithLogger(l logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

func NewPipeline(src Source, dst Target, cfg Config, opts ...PipelineOption) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	p := &Pipeline{source: src, target: dst, cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}

	if p.surrogates == nil {
		p.surrogates = NewSurrogateMap()
	}

	if p.metrics == nil {
		m, err := NewMetrics(cfg.Registerer)
		if err != nil {
			return nil, err
		}
		p.metrics = m
	}

	if p.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		p.log = l
	}

	return p, nil
}

func (p *Pipeline) Surrogates() *SurrogateMap { return p.surrogates }

// entry is a queued record; eos marks the end of the stream.
type entry struct {
	rec model.Record
	eos bool
}

// run is the state of one Pipeline.Run.
type run struct {
	*Pipeline
	typ   *model.Type
	queue chan entry
	log   logrus.FieldLogger

	mu  sync.Mutex
	res *Result
}

// Run migrates every record of t. Batch and source failures are collected in
// the result; the returned error reports a run that could not start or was
// interrupted by ctx or the await ceiling.
func (p *Pipeline) Run(ctx context.Context, t *model.Type) (*Result, error) {
	log := p.log.WithField("action", "migrate_type").WithField("type", t.Name)

	cursor, err := p.source.Scroll(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("scroll %s: %w", t.Name, err)
	}
	defer cursor.Close()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Await)
	defer cancel()

	r := &run{
		Pipeline: p,
		typ:      t,
		queue:    make(chan entry, p.cfg.QueueSize),
		log:      log,
		res:      &Result{Type: t.Name},
	}

	g, gctx := common.NewErrorGroup(ctx, log)
	g.Go(func() error { return r.produce(gctx, cursor) }, logrus.Fields{"role": "producer", "type": t.Name})

	for i := range p.cfg.Consumers {
		g.Go(func() error { return r.consume(gctx) }, logrus.Fields{"role": "consumer", "consumer": i, "type": t.Name})
	}

	err = g.Wait()
	p.metrics.QueueDepth.WithLabelValues(t.Name).Set(0)

	log.WithField("read", r.res.Read).
		WithField("written", r.res.Written).
		WithField("failed", r.res.Failed).
		Info("migration finished")

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("migration of %s interrupted after %s: %w", t.Name, p.cfg.Await, err)
		}

		log.WithError(err).Error("migration interrupted")

		return r.res, err
	}

	return r.res, nil
}

// produce pushes every source record and then exactly one end-of-stream
// marker. Pushing blocks while the queue is full.
func (r *run) produce(ctx context.Context, cursor persist.Cursor) error {
	for {
		rec, err := cursor.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			r.fail(fmt.Errorf("scroll %s: %w", r.typ.Name, err), 0)

			break
		}

		if err := r.push(ctx, entry{rec: rec}); err != nil {
			return err
		}

		r.mu.Lock()
		r.res.Read++
		r.mu.Unlock()
		r.metrics.RecordsRead.WithLabelValues(r.typ.Name).Inc()
	}

	return r.push(ctx, entry{eos: true})
}

func (r *run) push(ctx context.Context, e entry) error {
	select {
	case r.queue <- e:
		r.metrics.QueueDepth.WithLabelValues(r.typ.Name).Set(float64(len(r.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// consume pulls batches until it meets the end-of-stream marker, which it
// pushes back for the other consumers before persisting its last batch.
func (r *run) consume(ctx context.Context) error {
	for {
		batch := make([]model.Record, 0, r.cfg.BatchSize)
		done := false

		for len(batch) < r.cfg.BatchSize && !done {
			select {
			case e := <-r.queue:
				r.metrics.QueueDepth.WithLabelValues(r.typ.Name).Set(float64(len(r.queue)))
				if e.eos {
					// only one marker ever circulates, so the queue has room
					r.queue <- e
					done = true

					continue
				}

				batch = append(batch, e.rec)
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if len(batch) > 0 {
			r.write(ctx, batch)

			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if done {
			return nil
		}
	}
}

// write persists one batch: relabel, rewrite foreign keys, create, then
// publish the new identifiers.
func (r *run) write(ctx context.Context, batch []model.Record) {
	log := r.log.WithField("batch", len(batch))

	if err := r.create(ctx, batch); err != nil {
		r.fail(fmt.Errorf("batch of %d %s records: %w", len(batch), r.typ.Name, err), len(batch))
		r.metrics.Batches.WithLabelValues(r.typ.Name, "error").Inc()
		log.WithError(err).Error("batch failed")

		return
	}

	r.mu.Lock()
	r.res.Written += len(batch)
	r.res.Batches = append(r.res.Batches, len(batch))
	r.mu.Unlock()

	r.metrics.Batches.WithLabelValues(r.typ.Name, "success").Inc()
	r.metrics.RecordsWritten.WithLabelValues(r.typ.Name).Add(float64(len(batch)))
	r.metrics.BatchSize.WithLabelValues(r.typ.Name).Observe(float64(len(batch)))
	log.Debug("batch written")
}

func (r *run) create(ctx context.Context, batch []model.Record) error {
	sources := make([]any, len(batch))
	for i, rec := range batch {
		sources[i] = Relabel(r.typ, rec)

		if err := r.surrogates.Rewrite(r.typ, rec); err != nil {
			return err
		}
	}

	ids, err := r.target.CreateBatch(ctx, r.typ, batch)
	if err != nil {
		return err
	}

	if len(ids) != len(batch) {
		return fmt.Errorf("target returned %d identifiers for %d records", len(ids), len(batch))
	}

	for i, id := range ids {
		if sources[i] != nil && id != nil {
			r.surrogates.Put(r.typ, sources[i], id)
		}
	}

	return nil
}

func (r *run) fail(err error, records int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.res.Failed += records
	r.res.Errors = multierror.Append(r.res.Errors, err)
}
