package codec

import (
	"fmt"
	"strings"

	"aggregate-mapper/internal/model"
	"aggregate-mapper/node"
	"aggregate-mapper/primitive"
)

// PathSeparator joins embedded property names in flat records.
const PathSeparator = "."

// Flatten renders o as one flat record: scalars by name, single embedded
// values under "outer.inner" paths and foreign keys as target identifiers.
// Embedded collections become lists of element records, maps become
// records keyed by entry key. Only the side of an association that holds
// the foreign key is written; targets without an identifier are left out.
func Flatten(o *model.Object) model.Record {
	return flattenAs(o, o.Type().Root())
}

// flattenAs names the concrete type of o when it differs from declared.
func flattenAs(o *model.Object, declared *model.Type) model.Record {
	rec := make(model.Record)
	if o.Type() != declared {
		rec[model.TypeField] = o.Type().Name
	}

	flattenInto(rec, "", o)

	return rec
}

func flattenInto(rec model.Record, prefix string, o *model.Object) {
	for _, p := range o.Type().Properties {
		name := prefix + p.Name

		switch node.Dispatch(p) {
		case node.DispatcherScalar:
			if v := o.Get(p.Name); v != nil {
				rec[name] = v
			}

		case node.DispatcherEmbedded:
			if inner := o.Ref(p.Name); inner != nil {
				flattenInto(rec, name+PathSeparator, inner)
			}

		case node.DispatcherEntity:
			if !p.HoldsForeignKey() {
				continue
			}

			if ref := o.Ref(p.Name); ref != nil && ref.ID() != nil {
				rec[name] = ref.ID()
			}

		case node.DispatcherCollection:
			if !p.IsEmbedded() && !p.HoldsForeignKey() {
				continue
			}

			var vals []any
			for _, el := range o.Elements(p.Name) {
				if v := flatValue(p, el); v != nil {
					vals = append(vals, v)
				}
			}

			if len(vals) > 0 {
				rec[name] = vals
			}

		case node.DispatcherMap:
			if !p.IsEmbedded() && !p.HoldsForeignKey() {
				continue
			}

			entries := make(model.Record)
			for k, el := range o.Entries(p.Name) {
				if v := flatValue(p, el); v != nil {
					entries[k] = v
				}
			}

			if len(entries) > 0 {
				rec[name] = entries
			}
		}
	}
}

// flatValue is the element record of an embedded element or the identifier
// of an entity element.
func flatValue(p *model.Property, el *model.Object) any {
	if el == nil {
		return nil
	}

	if p.IsEmbedded() {
		return flattenAs(el, p.Target)
	}

	return el.ID()
}

// Unflatten builds an object of base type (or the subtype named by the
// record) from a flat record. Foreign keys become reference placeholders
// carrying the target identifier. Reserved fields are ignored.
func Unflatten(m *model.Model, base *model.Type, rec model.Record, allowed primitive.CategoryEnum) (*model.Object, error) {
	u := unflattener{model: m, allowed: allowed}
	return u.record(base, nil, rec)
}

type unflattener struct {
	model   *model.Model
	allowed primitive.CategoryEnum
}

func (u unflattener) record(base *model.Type, p *model.Property, rec model.Record) (*model.Object, error) {
	t, err := u.model.Narrow(base, p, flatKeys(rec))
	if err != nil {
		return nil, err
	}

	o := model.NewObject(t)

	for _, key := range sortedKeys(rec) {
		if strings.HasPrefix(key, model.ReservedPrefix) {
			continue
		}

		if err := u.into(o, strings.Split(key, PathSeparator), rec[key]); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	return o, nil
}

// flatKeys reduces embedded paths to their first segment so that narrowing
// sees property names.
func flatKeys(rec model.Record) model.Record {
	res := make(model.Record, len(rec))
	for k, v := range rec {
		head, _, _ := strings.Cut(k, PathSeparator)
		res[head] = v
	}

	return res
}

func (u unflattener) into(o *model.Object, path []string, v any) error {
	p, err := o.Type().Property(path[0])
	if err != nil {
		return err
	}

	if v == nil {
		return nil
	}

	switch node.Dispatch(p) {
	case node.DispatcherScalar:
		val, err := node.Scalar(p, v, u.allowed, nil)
		if err != nil {
			return err
		}
		o.Set(p.Name, val)

	case node.DispatcherEmbedded:
		if len(path) < 2 {
			return fmt.Errorf("%s: embedded value needs a nested path", p.Path())
		}

		inner := o.Ref(p.Name)
		if inner == nil {
			inner = model.NewObject(p.Target)
			o.Set(p.Name, inner)
		}

		return u.into(inner, path[1:], v)

	case node.DispatcherEntity:
		ref, err := reference(p.Target, v, u.allowed)
		if err != nil {
			return err
		}
		o.Set(p.Name, ref)

	case node.DispatcherCollection:
		list, ok := AsList(v)
		if !ok {
			return fmt.Errorf("%s: expected a list, got %T", p.Path(), v)
		}

		els := make([]*model.Object, 0, len(list))
		for i, ev := range list {
			el, err := u.element(p, ev)
			if err != nil {
				return fmt.Errorf("%d: %w", i, err)
			}
			els = append(els, el)
		}
		o.SetElements(p.Name, els)

	case node.DispatcherMap:
		entries, ok := AsRecord(v)
		if !ok {
			return fmt.Errorf("%s: expected a record of entries, got %T", p.Path(), v)
		}

		for _, k := range sortedKeys(entries) {
			el, err := u.element(p, entries[k])
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			o.Put(p.Name, k, el)
		}

	default:
		return fmt.Errorf("%s: not representable in a flat record", p.Path())
	}

	return nil
}

// element reads one value of a collection or map property.
func (u unflattener) element(p *model.Property, v any) (*model.Object, error) {
	if !p.IsEmbedded() {
		return reference(p.Target, v, u.allowed)
	}

	rec, ok := AsRecord(v)
	if !ok {
		return nil, fmt.Errorf("%s: expected an element record, got %T", p.Path(), v)
	}

	return u.record(p.Target, p, rec)
}

// reference creates a placeholder of t holding identifier id.
func reference(t *model.Type, id any, allowed primitive.CategoryEnum) (*model.Object, error) {
	idp := t.Identifier()
	if idp == nil {
		return nil, fmt.Errorf("type %s has no identifier", t.Name)
	}

	val, err := node.Scalar(idp, id, allowed, nil)
	if err != nil {
		return nil, err
	}

	ref := model.NewReference(t)
	ref.Set(idp.Name, val)

	return ref, nil
}
