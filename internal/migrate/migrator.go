package migrate

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"aggregate-mapper/internal/model"
)

// Migrator runs one pipeline per entity type, referenced types first, with a
// surrogate map shared by all of them.
type Migrator struct {
	model      *model.Model
	source     Source
	target     Target
	cfg        Config
	surrogates *SurrogateMap
	metrics    *Metrics
	log        logrus.FieldLogger
}

func NewMigrator(m *model.Model, src Source, dst Target, cfg Config, log logrus.FieldLogger) (*Migrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	metrics, err := NewMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}

	return &Migrator{
		model:      m,
		source:     src,
		target:     dst,
		cfg:        cfg,
		surrogates: NewSurrogateMap(),
		metrics:    metrics,
		log:        log,
	}, nil
}

func (mg *Migrator) Surrogates() *SurrogateMap { return mg.surrogates }

// Run migrates the named types, or every entity type when none is named,
// in EntitiesInOrder. A type whose batches fail does not stop the following
// types; all failures are returned together.
func (mg *Migrator) Run(ctx context.Context, names ...string) ([]*Result, error) {
	types, err := EntitiesInOrder(mg.model)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if _, err := mg.model.Type(name); err != nil {
			return nil, err
		}
	}

	var (
		results []*Result
		errs    *multierror.Error
	)

	for _, t := range types {
		if len(names) > 0 && !slices.Contains(names, t.Name) {
			continue
		}

		p, err := NewPipeline(mg.source, mg.target, mg.cfg,
			WithSurrogates(mg.surrogates), WithMetrics(mg.metrics), WithLogger(mg.log))
		if err != nil {
			return results, err
		}

		res, err := p.Run(ctx, t)
		if err != nil {
			return append(results, res), err
		}

		results = append(results, res)
		if res.Errors != nil {
			errs = multierror.Append(errs, res.Errors.Errors...)
		}
	}

	return results, errs.ErrorOrNil()
}
