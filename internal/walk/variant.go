package walk

import (
	"fmt"

	"aggregate-mapper/internal/action"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/persist"
	"aggregate-mapper/node"
	"aggregate-mapper/options"
)

// Variant specializes the decision points of the walker. The set is closed:
// read, query, clone, modify and migrate.
type Variant interface {
	Name() string

	// supportsCreate reports whether a missing output may be created for an
	// input reached through p; p is nil for roots.
	supportsCreate(t *traversal, p *model.Property) bool
	// supportsUpdate reports whether persistent outputs are written.
	supportsUpdate() bool
	// isIdentifier reports whether p is skipped as an identifier.
	isIdentifier(p *model.Property) bool
	// shouldUnlink reports whether an absent input value clears the output.
	shouldUnlink(t *traversal, f *CallFrame) bool
	// setPropertyTarget assigns a scalar, embedded or referenced value.
	setPropertyTarget(t *traversal, f *CallFrame, value any) error
	// setElements assigns the members of a collection property.
	setElements(t *traversal, f *CallFrame, els []*model.Object, keys []string)

	// newTarget produces the output for an input without one.
	newTarget(t *traversal, in *model.Object, p *model.Property) (*model.Object, node.Status, error)
	// newEmbedded produces the output of an embedded input value.
	newEmbedded(t *traversal, f *CallFrame, in *model.Object) *model.Object

	// deferred reports whether writes go through the action queue.
	deferred() bool
	// bestEffort reports whether scalar copy failures are tolerated.
	bestEffort() bool
}

// VariantFor returns the variant serving action a.
func VariantFor(a options.Action) (Variant, error) {
	switch a {
	case options.ActionRead, options.ActionToExternal:
		return readVariant{}, nil
	case options.ActionLoad:
		return readVariant{load: true}, nil
	case options.ActionQuery:
		return queryVariant{}, nil
	case options.ActionClone:
		return cloneVariant{}, nil
	case options.ActionCreate:
		return modifyVariant{create: true}, nil
	case options.ActionUpdate:
		return modifyVariant{update: true}, nil
	case options.ActionMerge, options.ActionToDomain:
		return modifyVariant{create: true, update: true}, nil
	case options.ActionMigrate:
		return migrateVariant{modifyVariant{create: true, update: true}}, nil
	default:
		return nil, fmt.Errorf("no traversal variant for action %s", a)
	}
}

// structural holds the direct-assignment behavior shared by read and clone.
type structural struct{}

func (structural) supportsCreate(*traversal, *model.Property) bool { return true }

func (structural) supportsUpdate() bool { return true }

func (structural) shouldUnlink(*traversal, *CallFrame) bool { return false }

func (structural) setPropertyTarget(_ *traversal, f *CallFrame, value any) error {
	f.Output.Object.Set(f.Property.Name, value)
	return nil
}

func (structural) setElements(_ *traversal, f *CallFrame, els []*model.Object, keys []string) {
	out, p := f.Output.Object, f.Property
	if p.Multiplicity == model.MultiplicityMap {
		for i, el := range els {
			out.Put(p.Name, keys[i], el)
		}

		return
	}

	out.SetElements(p.Name, node.Dedup(els))
}

func (structural) newEmbedded(_ *traversal, _ *CallFrame, in *model.Object) *model.Object {
	return model.NewObject(in.Type())
}

func (structural) deferred() bool { return false }

func (structural) bestEffort() bool { return false }

// readVariant copies the input graph into detached outputs, identifiers
// included. Associations that are neither cascaded nor requested become
// reference placeholders. With load set, root references are first
// resolved through the persister.
type readVariant struct {
	structural
	load bool
}

func (r readVariant) Name() string {
	if r.load {
		return "load"
	}

	return "read"
}

func (readVariant) isIdentifier(*model.Property) bool { return false }

func (readVariant) newTarget(t *traversal, in *model.Object, p *model.Property) (*model.Object, node.Status, error) {
	if p != nil && !t.follows(p) || in.IsReference() {
		ref := model.NewReference(in.Type())
		copyKeys(in, ref)

		return ref, node.StatusPersistent, nil
	}

	return model.NewObject(in.Type()), node.StatusPersistent, nil
}

// queryVariant walks the input graph without copying it and emits one flat
// record per visited entity.
type queryVariant struct {
	structural
}

func (queryVariant) Name() string { return "query" }

func (queryVariant) isIdentifier(*model.Property) bool { return false }

func (queryVariant) setPropertyTarget(*traversal, *CallFrame, any) error { return nil }

func (queryVariant) setElements(*traversal, *CallFrame, []*model.Object, []string) {}

func (queryVariant) newTarget(_ *traversal, in *model.Object, _ *model.Property) (*model.Object, node.Status, error) {
	return in, node.StatusPersistent, nil
}

func (queryVariant) newEmbedded(_ *traversal, _ *CallFrame, in *model.Object) *model.Object {
	return in
}

// cloneVariant deep-copies the aggregate: cascaded and requested parts are
// copied without identifiers, other associations keep pointing at the
// original targets.
type cloneVariant struct {
	structural
}

func (cloneVariant) Name() string { return "clone" }

func (cloneVariant) isIdentifier(p *model.Property) bool { return p.Identifier || p.Generated }

func (cloneVariant) newTarget(t *traversal, in *model.Object, p *model.Property) (*model.Object, node.Status, error) {
	if p != nil && !t.follows(p) {
		return in, node.StatusPersistent, nil
	}

	return model.NewObject(in.Type()), node.StatusTransient, nil
}

// modifyVariant applies the input graph onto the persistent graph through
// the action queue. Outputs are found by key in the persister; missing ones
// are created when the action allows it.
type modifyVariant struct {
	create bool
	update bool
}

func (m modifyVariant) Name() string {
	switch {
	case m.create && m.update:
		return "merge"
	case m.create:
		return "create"
	default:
		return "update"
	}
}

// supportsCreate: UPDATE still creates new parts of an existing aggregate.
func (m modifyVariant) supportsCreate(_ *traversal, p *model.Property) bool {
	return m.create || (p != nil && p.Cascadable())
}

func (m modifyVariant) supportsUpdate() bool { return m.update }

func (modifyVariant) isIdentifier(p *model.Property) bool { return p.Identifier || p.Generated }

// shouldUnlink clears values in replace mode only. Non-cascaded
// associations are cleared only when requested, because they belong to
// another aggregate.
func (modifyVariant) shouldUnlink(t *traversal, f *CallFrame) bool {
	if t.settings.Merge || f.Input.IsReference() {
		return false
	}

	p := f.Property

	return p.IsDataType() || p.Cascadable() || t.settings.Requested(p.Owner.Name, p.Name)
}

func (modifyVariant) setPropertyTarget(t *traversal, f *CallFrame, value any) error {
	out, p := f.Output.Object, f.Property

	switch node.Dispatch(p) {
	case node.DispatcherEntity:
		target, _ := value.(*model.Object)
		t.queue.SetReference(out, p, target)
	case node.DispatcherScalar, node.DispatcherEmbedded:
		t.queue.Add(action.NewSetter(out, p, value))
		t.touch(f.Output)
	default:
		return fmt.Errorf("%s: cannot set a collection property", p.Path())
	}

	return nil
}

func (modifyVariant) setElements(t *traversal, f *CallFrame, els []*model.Object, keys []string) {
	m := t.queue.MigratorAction(action.PropertyKey{Object: f.Output.Object, Property: f.Property})

	if f.Property.Multiplicity == model.MultiplicityMap {
		for i, el := range els {
			m.RetainEntry(keys[i], el)
		}

		return
	}

	for _, el := range els {
		m.Retain(el)
	}
}

func (m modifyVariant) newTarget(t *traversal, in *model.Object, p *model.Property) (*model.Object, node.Status, error) {
	for _, k := range model.Keys(in) {
		found, err := t.walker.persister.Find(t.ctx, in.Type(), k)
		if err != nil {
			return nil, 0, fmt.Errorf("find %s: %w", k, err)
		}

		if found != nil {
			return found, node.StatusPersistent, nil
		}
	}

	// references and values of associations that are not walked must be
	// completed by another input or fail as unresolved
	if in.IsReference() || (p != nil && !t.follows(p)) {
		ref := model.NewReference(in.Type())
		copyKeys(in, ref)

		return ref, node.StatusTransient, nil
	}

	if !m.supportsCreate(t, p) {
		return nil, 0, fmt.Errorf("%s: %w", in, persist.ErrNotFound)
	}

	if in.Type().Abstract {
		return nil, 0, fmt.Errorf("%s: cannot create an instance of abstract type %s", in, in.Type().Name)
	}

	return model.NewObject(in.Type()), node.StatusTransient, nil
}

// newEmbedded reuses the embedded value already held by the output.
func (modifyVariant) newEmbedded(_ *traversal, f *CallFrame, in *model.Object) *model.Object {
	if cur := f.Output.Object.Ref(f.Property.Name); cur != nil {
		return cur
	}

	return model.NewObject(in.Type())
}

func (modifyVariant) deferred() bool { return true }

func (modifyVariant) bestEffort() bool { return false }

// migrateVariant is merge with best-effort scalar copies: a value that
// cannot be converted is reported and skipped.
type migrateVariant struct {
	modifyVariant
}

func (migrateVariant) Name() string { return "migrate" }

func (migrateVariant) bestEffort() bool { return true }

// copyKeys copies the natural key and identifier values of src into dst.
func copyKeys(src, dst *model.Object) {
	for _, p := range src.Type().Properties {
		if p.NaturalKey || p.Identifier {
			if v := src.Get(p.Name); v != nil {
				dst.Set(p.Name, v)
			}
		}
	}
}
