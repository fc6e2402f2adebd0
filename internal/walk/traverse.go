package walk

import (
	"fmt"
	"sort"

	"aggregate-mapper/internal/codec"
	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/node"
)

// walkObject visits the properties of one node depth-first, natural-key
// properties first. Inputs are visited once per stage; reference inputs are
// never marked visited and only guarded against recursion.
func (t *traversal) walkObject(f *CallFrame) error {
	in := f.Input
	if in.IsReference() {
		if t.active[in] {
			return nil
		}

		t.active[in] = true
		defer delete(t.active, in)
	} else if !t.visited.Visit(in) {
		return nil
	}

	out := f.Output.Object
	if t.stage == StageCreate && !in.IsReference() && out.IsReference() {
		out.Retype(in.Type())
		out.Complete()
		t.dealer.Done(out)
	}

	if t.stage == StageUpdate && in.Type().IsEntity() {
		t.res.Stats.Visited++
	}

	capture, err := t.walker.hooks.run(t.ctx, f, &t.settings)
	if err != nil {
		return err
	}

	if !capture {
		for _, p := range in.Type().Ordered() {
			if err := t.processAttribute(f.child(p)); err != nil {
				return err
			}
		}
	}

	if _, ok := t.variant.(queryVariant); ok && t.stage == StageUpdate && in.Type().IsEntity() {
		t.res.Records = append(t.res.Records, codec.Flatten(in))
	}

	post := *f
	post.Phase = PhasePost
	_, err = t.walker.hooks.run(t.ctx, &post, &t.settings)

	return err
}

// processAttribute runs the PRE hooks of a property, processes its value
// unless a hook captured it, then runs the POST hooks.
func (t *traversal) processAttribute(f *CallFrame) error {
	capture, err := t.walker.hooks.run(t.ctx, f, &t.settings)
	if err != nil {
		return err
	}

	if capture {
		return nil
	}

	if err := t.processValue(f); err != nil {
		return err
	}

	post := *f
	post.Phase = PhasePost
	_, err = t.walker.hooks.run(t.ctx, &post, &t.settings)

	return err
}

func (t *traversal) processValue(f *CallFrame) error {
	p := f.Property

	if p.ReadOnly && t.settings.Action.Mutating() {
		if t.stage == StageUpdate && f.Input.Has(p.Name) {
			t.reportOnce(diagnostic.CodeReadOnlySkipped, p, "read-only property not written")
		}

		return nil
	}

	if t.variant.isIdentifier(p) {
		return nil
	}

	switch node.Dispatch(p) {
	case node.DispatcherScalar:
		return t.copyScalar(f)
	case node.DispatcherEmbedded:
		return t.processEmbedded(f)
	case node.DispatcherEntity:
		return t.processReference(f)
	case node.DispatcherCollection, node.DispatcherMap:
		return t.processCollection(f)
	default:
		return fmt.Errorf("%s: unsupported property shape", p.Path())
	}
}

// updating reports whether the frame's output is written in this stage.
func (t *traversal) updating(f *CallFrame) bool {
	return t.stage == StageUpdate && t.writable(f.Output)
}

// clear applies the unlink policy to a property absent from the input.
func (t *traversal) clear(f *CallFrame) error {
	if !t.updating(f) || !t.variant.shouldUnlink(t, f) {
		return nil
	}

	p, out := f.Property, f.Output.Object
	if !out.Has(p.Name) {
		return nil
	}

	if p.IsMany() {
		if len(out.Elements(p.Name)) > 0 {
			t.variant.setElements(t, f, nil, nil)
		}

		return nil
	}

	return t.variant.setPropertyTarget(t, f, nil)
}

// copyScalar converts the input value and assigns it only when it differs
// from the output's current value.
func (t *traversal) copyScalar(f *CallFrame) error {
	p, in := f.Property, f.Input
	if !in.Has(p.Name) {
		return t.clear(f)
	}

	if !t.updating(f) {
		return nil
	}

	v, err := node.Scalar(p, in.Get(p.Name), t.settings.Conversions, t.walker.casters)
	if err != nil {
		if !t.variant.bestEffort() {
			return err
		}

		t.res.Diagnostics.AddWarning(diagnostic.CodeCopyFailed, err.Error(), p.Owner.Name, f.Path())
		t.log.WithError(err).WithField("path", f.Path()).Warn("value not copied")

		return nil
	}

	if !node.Changed(f.Output.Object.Get(p.Name), v) {
		return nil
	}

	return t.variant.setPropertyTarget(t, f, v)
}

func (t *traversal) processEmbedded(f *CallFrame) error {
	p := f.Property
	in := f.Input.Ref(p.Name)
	if in == nil {
		return t.clear(f)
	}

	n, ok := t.outputs[in]
	if !ok {
		n = t.arena.Wrap(t.variant.newEmbedded(t, f, in), f.Output.Status)
		t.arena.Attach(n.Object, f.Output, p)
		t.outputs[in] = n
	}

	if err := t.walkObject(f.nested(in, n)); err != nil {
		return err
	}

	if t.updating(f) && f.Output.Object.Ref(p.Name) != n.Object {
		return t.variant.setPropertyTarget(t, f, n.Object)
	}

	return nil
}

func (t *traversal) processReference(f *CallFrame) error {
	p := f.Property
	in := f.Input.Ref(p.Name)
	if in == nil {
		return t.clear(f)
	}

	n, err := t.element(f, in)
	if err != nil {
		return err
	}

	if t.updating(f) && f.Output.Object.Ref(p.Name) != n.Object {
		return t.variant.setPropertyTarget(t, f, n.Object)
	}

	return nil
}

// processCollection resolves every element of a list, set or map. Followed
// elements are walked, the others only resolved. In UPDATE the resolved
// outputs are handed to the variant as the desired membership.
func (t *traversal) processCollection(f *CallFrame) error {
	p, in := f.Property, f.Input
	if !in.Has(p.Name) {
		return t.clear(f)
	}

	var (
		els  []*model.Object
		keys []string
	)

	if p.Multiplicity == model.MultiplicityMap {
		entries := in.Entries(p.Name)
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			els = append(els, entries[k])
		}
	} else {
		els = in.Elements(p.Name)
	}

	outs := make([]*model.Object, 0, len(els))
	for _, el := range els {
		n, err := t.element(f, el)
		if err != nil {
			return err
		}

		outs = append(outs, n.Object)
	}

	if t.updating(f) {
		t.variant.setElements(t, f, outs, keys)
	}

	return nil
}

// element resolves the output of an associated input and walks it when the
// property is followed.
func (t *traversal) element(f *CallFrame, in *model.Object) (*node.Node, error) {
	p := f.Property

	n, walk, err := t.resolve(in, p, f.Output)
	if err != nil {
		return nil, err
	}

	if walk && t.follows(p) {
		if err := t.walkObject(f.nested(in, n)); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func (t *traversal) reportOnce(code string, p *model.Property, msg string) {
	k := code + " " + p.Path()
	if t.reported[k] {
		return
	}

	t.reported[k] = true
	t.res.Diagnostics.AddInfo(code, msg, p.Owner.Name, p.Path())
}
