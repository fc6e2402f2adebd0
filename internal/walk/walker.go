package walk

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"aggregate-mapper/internal/action"
	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/persist"
	"aggregate-mapper/node"
	"aggregate-mapper/options"
)

// Walker runs traversals over one model. It holds no per-traversal state.
type Walker struct {
	model     *model.Model
	persister persist.Persister
	hooks     *Hooks
	casters   node.Casters
	log       logrus.FieldLogger
}

// Option configures a Walker.
type Option func(*Walker)

func WithHooks(h *Hooks) Option {
	return func(w *Walker) { w.hooks = h }
}

// WithCasters installs custom scalar conversions.
func WithCasters(c node.Casters) Option {
	return func(w *Walker) { w.casters = c }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(w *Walker) { w.log = l }
}

// New creates a walker. The persister may be nil for variants that do not
// write: read, load without references, query and clone.
func New(m *model.Model, p persist.Persister, opts ...Option) *Walker {
	w := &Walker{model: m, persister: p, hooks: NewHooks()}
	for _, opt := range opts {
		opt(w)
	}

	if w.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		w.log = l
	}

	return w
}

func (w *Walker) Model() *model.Model { return w.model }

// Execute runs the CREATE and UPDATE stages over inputs, flushes the queued
// actions and, when enabled, runs the POSTLOGIC stage. Any error aborts the
// traversal; no partial result is returned.
func (w *Walker) Execute(ctx context.Context, s options.Settings, inputs ...*model.Object) (*Result, error) {
	log := w.log.WithField("action", "execute_traversal").WithField("operation", s.Action.String())

	res, err := w.execute(ctx, s, inputs, log)
	if err != nil {
		log.WithError(err).Error("traversal failed")
		return nil, err
	}

	log.WithField("roots", res.Stats.Roots).
		WithField("visited", res.Stats.Visited).
		WithField("actions", res.Stats.Actions).
		Debug("traversal done")

	return res, nil
}

func (w *Walker) execute(ctx context.Context, s options.Settings, inputs []*model.Object, log logrus.FieldLogger) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	v, err := VariantFor(s.Action)
	if err != nil {
		return nil, err
	}

	if w.persister == nil && (v.deferred() || isLoad(v)) {
		return nil, fmt.Errorf("%s requires a persister", v.Name())
	}

	t := &traversal{
		ctx:      ctx,
		walker:   w,
		settings: s,
		variant:  v,
		log:      log,
		arena:    node.NewArena(),
		registry: node.NewRegistry(),
		queue:    action.NewQueue(log, s.Merge),
		outputs:  make(map[*model.Object]*node.Node),
		skip:     make(map[*model.Object]bool),
		active:   make(map[*model.Object]bool),
		reported: make(map[string]bool),
		res:      &Result{},
	}

	if err := t.run(inputs); err != nil {
		return nil, err
	}

	return t.res, nil
}

func isLoad(v Variant) bool {
	r, ok := v.(readVariant)
	return ok && r.load
}

// traversal is the state of one Execute.
type traversal struct {
	ctx      context.Context
	walker   *Walker
	settings options.Settings
	variant  Variant
	log      logrus.FieldLogger

	arena    *node.Arena
	registry *node.Registry
	visited  node.Visited
	dealer   node.Dealer
	queue    *action.Queue

	// outputs maps every resolved input to its output node.
	outputs map[*model.Object]*node.Node
	// skip holds inputs whose subtree is never walked: discarded duplicates
	// and references merged into an existing node.
	skip map[*model.Object]bool
	// active guards reference inputs, which are not marked visited, against
	// recursion.
	active   map[*model.Object]bool
	reported map[string]bool

	roots []*model.Object
	stage Stage
	res   *Result
}

func (t *traversal) run(inputs []*model.Object) error {
	roots, err := t.prepare(inputs)
	if err != nil {
		return err
	}

	t.roots = roots
	t.res.Stats.Roots = len(roots)

	if err := t.pass(StageCreate); err != nil {
		return err
	}

	if t.variant.deferred() && t.dealer.Pending() > 0 {
		return t.unresolved()
	}

	if err := t.pass(StageUpdate); err != nil {
		return err
	}

	if t.variant.deferred() {
		t.res.Stats.Actions = t.queue.Len()

		stats, err := t.queue.Flush(t.ctx, t.walker.persister, t.arena)
		if err != nil {
			return fmt.Errorf("flush: %w", err)
		}

		t.res.Flush = stats
	}

	if t.settings.PostLogic {
		if err := t.pass(StagePostLogic); err != nil {
			return err
		}
	}

	for _, in := range t.roots {
		t.res.Outputs = append(t.res.Outputs, t.outputs[in].Object)
	}

	return nil
}

// prepare applies the Offset/Limit window to the inputs of reading actions
// and resolves root references for LOAD.
func (t *traversal) prepare(inputs []*model.Object) ([]*model.Object, error) {
	roots := inputs
	if !t.settings.Action.Mutating() {
		roots = nil
		for i, in := range inputs {
			ok, done := t.settings.Window(i)
			if done {
				break
			}
			if ok {
				roots = append(roots, in)
			}
		}
	}

	if !isLoad(t.variant) {
		return roots, nil
	}

	res := make([]*model.Object, 0, len(roots))
	for _, in := range roots {
		if !in.IsReference() {
			res = append(res, in)
			continue
		}

		loaded, err := t.load(in)
		if err != nil {
			return nil, err
		}
		res = append(res, loaded)
	}

	return res, nil
}

func (t *traversal) load(in *model.Object) (*model.Object, error) {
	for _, k := range model.Keys(in) {
		found, err := t.walker.persister.Find(t.ctx, in.Type(), k)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", k, err)
		}

		if found != nil {
			return found, nil
		}
	}

	return nil, fmt.Errorf("load %s: %w", in, persist.ErrNotFound)
}

func (t *traversal) pass(stage Stage) error {
	t.stage = stage
	t.visited.Reset()
	t.log.WithField("stage", stage.String()).Debug("stage started")

	bulk := len(t.roots) > 1
	for _, in := range t.roots {
		if err := t.ctx.Err(); err != nil {
			return err
		}

		n, walk, err := t.resolve(in, nil, nil)
		if err != nil {
			return err
		}

		if !walk {
			continue
		}

		f := &CallFrame{Input: in, Output: n, Stage: stage, Phase: PhasePre, Bulk: bulk}
		if err := t.walkObject(f); err != nil {
			return err
		}
	}

	return nil
}

func (t *traversal) unresolved() error {
	var names []string
	for {
		o, ok := t.dealer.NextNeeds()
		if !ok {
			break
		}
		names = append(names, o.String())
	}

	return fmt.Errorf("%w: %s", diagnostic.ErrUnresolvedReference, strings.Join(names, ", "))
}

// follows reports whether values of p are walked: cascaded, embedded or
// explicitly requested associations.
func (t *traversal) follows(p *model.Property) bool {
	return p.Cascadable() || t.settings.Requested(p.Owner.Name, p.Name)
}

// writable reports whether the output of n may be written in this traversal.
func (t *traversal) writable(n *node.Node) bool {
	return n.Status == node.StatusTransient || t.variant.supportsUpdate()
}

// touch records the entity owning an embedded node as modified.
func (t *traversal) touch(n *node.Node) {
	for cur := n; cur != nil; cur = cur.Container {
		if cur.Type().IsEntity() {
			if cur != n {
				t.queue.Touch(cur.Object)
			}

			return
		}
	}
}

// resolve returns the output node of in, creating and registering it on
// first sight. walk is false when the subtree of in must not be walked.
func (t *traversal) resolve(in *model.Object, p *model.Property, parent *node.Node) (*node.Node, bool, error) {
	if n, ok := t.outputs[in]; ok {
		return n, !t.skip[in], nil
	}

	var keys []model.Key
	if in.Type().IsEntity() {
		keys = model.Keys(in)
		if n, k, ok := t.lookup(keys); ok {
			return t.dedup(in, n, k)
		}
	}

	out, status, err := t.variant.newTarget(t, in, p)
	if err != nil {
		return nil, false, err
	}

	if out.Type().IsEntity() {
		outKeys := model.Keys(out)
		if n, k, ok := t.lookup(outKeys); ok {
			return t.dedup(in, n, k)
		}

		keys = append(keys, outKeys...)
	}

	n := t.arena.Wrap(out, status)
	if parent != nil && p.Cascadable() {
		t.arena.Attach(out, parent, p)
	}

	if out.Type().IsEntity() {
		t.registry.RegisterKeys(n, keys)

		if status == node.StatusTransient {
			t.res.Stats.Created++
		} else {
			t.res.Stats.Found++
		}
	}

	t.outputs[in] = n
	if out.IsReference() {
		t.dealer.Needs(out)
	}

	return n, true, nil
}

func (t *traversal) lookup(keys []model.Key) (*node.Node, model.Key, bool) {
	for _, k := range keys {
		if n, ok := t.registry.Lookup(k); ok {
			return n, k, true
		}
	}

	return nil, "", false
}

// dedup maps in onto the registered node n sharing key k. A reference input
// merges into n; a full input completes n when n is a placeholder. Two full
// objects are duplicates and the later one is discarded.
func (t *traversal) dedup(in *model.Object, n *node.Node, k model.Key) (*node.Node, bool, error) {
	t.outputs[in] = n

	if in.IsReference() {
		t.skip[in] = true
		return n, false, nil
	}

	if n.Object.IsReference() {
		return n, true, nil
	}

	if t.settings.StrictDuplicates {
		return nil, false, &diagnostic.AmbiguousMatchError{
			Type:       in.Type().Name,
			Path:       string(k),
			Candidates: []string{n.Object.String(), in.String()},
		}
	}

	t.skip[in] = true
	t.res.Stats.Duplicates++
	t.res.Diagnostics.AddWarning(diagnostic.CodeDuplicateDiscarded,
		fmt.Sprintf("duplicate of %s discarded", n.Object), in.Type().Name, string(k))
	t.log.WithField("key", string(k)).Warn("duplicate input discarded")

	return n, false, nil
}
