// Package engine is the entry point of the aggregate mapper: it accepts
// objects or external records, runs one traversal per call and renders
// external records for TO_EXTERNAL.
package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"aggregate-mapper/internal/codec"
	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/persist"
	"aggregate-mapper/internal/walk"
	"aggregate-mapper/node"
	"aggregate-mapper/options"
)

// Engine binds a resolved model to a persister.
type Engine struct {
	model   *model.Model
	walker  *walk.Walker
	casters node.Casters
	log     logrus.FieldLogger
}

type config struct {
	hooks   *walk.Hooks
	casters node.Casters
	log     logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*config)

func WithHooks(h *walk.Hooks) Option {
	return func(c *config) { c.hooks = h }
}

// WithCasters installs custom scalar conversions for decoding and copying.
func WithCasters(cs node.Casters) Option {
	return func(c *config) { c.casters = cs }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) { c.log = l }
}

// New resolves m when needed and creates an engine over p. p may be nil for
// READ, QUERY, CLONE and TO_EXTERNAL.
func New(m *model.Model, p persist.Persister, opts ...Option) (*Engine, error) {
	if !m.Resolved() {
		if err := m.Resolve(); err != nil {
			return nil, fmt.Errorf("resolve model: %w", err)
		}
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.log = l
	}

	wopts := []walk.Option{walk.WithLogger(cfg.log), walk.WithCasters(cfg.casters)}
	if cfg.hooks != nil {
		wopts = append(wopts, walk.WithHooks(cfg.hooks))
	}

	return &Engine{
		model:   m,
		walker:  walk.New(m, p, wopts...),
		casters: cfg.casters,
		log:     cfg.log,
	}, nil
}

func (e *Engine) Model() *model.Model { return e.model }

// Walker exposes the engine's walker, e.g. for a migrate.GraphTarget.
func (e *Engine) Walker() *walk.Walker { return e.walker }

// Records is record input decoded as roots of Type. When Type is empty each
// record must name its type in the "$type" field.
type Records struct {
	Type  string
	Items []model.Record
}

// Execute runs one traversal. input is a *model.Object, a []*model.Object,
// a Records, a model.Record or a []model.Record; records are decoded first.
// TO_EXTERNAL additionally encodes the outputs into Result.Records.
func (e *Engine) Execute(ctx context.Context, s options.Settings, input any) (*walk.Result, error) {
	var diags diagnostic.Diagnostics

	roots, err := e.roots(s, input, &diags)
	if err != nil {
		return nil, fmt.Errorf("%s input: %w", s.Action, err)
	}

	res, err := e.walker.Execute(ctx, s, roots...)
	if err != nil {
		return nil, err
	}

	diags.Merge(res.Diagnostics)
	res.Diagnostics = diags

	if s.Action == options.ActionToExternal {
		follow := func(p *model.Property) bool { return s.Requested(p.Owner.Name, p.Name) }
		res.Records = codec.NewEncoder(follow).Encode(res.Outputs...)
	}

	e.log.WithField("action", "execute").
		WithField("operation", s.Action.String()).
		WithField("roots", len(roots)).
		Debug("executed")

	return res, nil
}

func (e *Engine) roots(s options.Settings, input any, diags *diagnostic.Diagnostics) ([]*model.Object, error) {
	switch in := input.(type) {
	case *model.Object:
		return []*model.Object{in}, nil
	case []*model.Object:
		return in, nil
	case Records:
		return e.decode(s, in.Type, in.Items, diags)
	case model.Record:
		return e.decode(s, "", []model.Record{in}, diags)
	case []model.Record:
		return e.decode(s, "", in, diags)
	case map[string]any:
		return e.decode(s, "", []model.Record{model.Record(in)}, diags)
	default:
		return nil, fmt.Errorf("unsupported input %T", input)
	}
}

func (e *Engine) decode(s options.Settings, typeName string, recs []model.Record, diags *diagnostic.Diagnostics) ([]*model.Object, error) {
	dec := codec.NewDecoder(e.model, s, e.casters, diags)

	res := make([]*model.Object, 0, len(recs))
	for i, rec := range recs {
		name := typeName
		if name == "" {
			name, _ = rec[model.TypeField].(string)
		}

		if name == "" {
			return nil, fmt.Errorf("record %d: no type given and no %s field", i, model.TypeField)
		}

		base, err := e.model.Type(name)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		o, err := dec.Decode(base, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		res = append(res, o)
	}

	return res, nil
}
