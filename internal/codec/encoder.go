package codec

import (
	"aggregate-mapper/internal/model"
	"aggregate-mapper/node"
)

// Encoder renders object graphs as nested records. Every object is emitted
// in full once; later occurrences become reference records, so cyclic
// graphs terminate.
type Encoder struct {
	follow  func(p *model.Property) bool
	stem    *node.Stem
	seen    map[*model.Object]int
	emitted map[*model.Object]struct{}
}

// NewEncoder creates an encoder. Cascaded and embedded associations are
// always emitted in full; follow decides for the others and may be nil.
func NewEncoder(follow func(p *model.Property) bool) *Encoder {
	return &Encoder{
		follow:  follow,
		stem:    node.NewStem("o", nil),
		seen:    make(map[*model.Object]int),
		emitted: make(map[*model.Object]struct{}),
	}
}

// Encode renders the roots in order. Objects reachable from several roots
// are emitted in full under the first one.
func (e *Encoder) Encode(roots ...*model.Object) []model.Record {
	for _, o := range roots {
		e.count(o)
	}

	res := make([]model.Record, 0, len(roots))
	for _, o := range roots {
		res = append(res, e.object(o, o.Type().Root(), true))
	}

	return res
}

func (e *Encoder) full(p *model.Property) bool {
	return p.Cascadable() || (e.follow != nil && e.follow(p))
}

// count records how often each object is reached, to anchor shared objects
// that have no key.
func (e *Encoder) count(o *model.Object) {
	e.seen[o]++
	if e.seen[o] > 1 {
		return
	}

	for _, p := range o.Type().Properties {
		if p.IsDataType() {
			continue
		}

		for _, ref := range values(o, p) {
			if p.IsEmbedded() || e.full(p) {
				e.count(ref)
			} else {
				e.seen[ref]++
			}
		}
	}
}

func (e *Encoder) object(o *model.Object, declared *model.Type, full bool) model.Record {
	if _, done := e.emitted[o]; done || !full {
		return e.reference(o, declared)
	}

	if o.Type().IsEntity() {
		e.emitted[o] = struct{}{}
	}

	rec := make(model.Record)
	if o.Type() != declared {
		rec[model.TypeField] = o.Type().Name
	}

	if _, hasKey := model.KeyOf(o); !hasKey && e.seen[o] > 1 {
		rec[AnchorField], _ = e.stem.Name(o)
	}

	for _, p := range o.Type().Properties {
		v := o.Get(p.Name)
		if v == nil {
			continue
		}

		switch node.Dispatch(p) {
		case node.DispatcherScalar:
			rec[p.Name] = v
		case node.DispatcherEmbedded, node.DispatcherEntity:
			rec[p.Name] = e.object(o.Ref(p.Name), p.Target, e.full(p))
		case node.DispatcherCollection:
			els := o.Elements(p.Name)
			list := make([]model.Record, 0, len(els))
			for _, el := range els {
				list = append(list, e.object(el, p.Target, e.full(p)))
			}
			rec[p.Name] = list
		case node.DispatcherMap:
			entries := make(map[string]any, len(o.Entries(p.Name)))
			for k, el := range o.Entries(p.Name) {
				entries[k] = e.object(el, p.Target, e.full(p))
			}
			rec[p.Name] = entries
		}
	}

	return rec
}

// reference renders the identifying properties of o plus RefField.
func (e *Encoder) reference(o *model.Object, declared *model.Type) model.Record {
	rec := make(model.Record)
	if o.Type() != declared {
		rec[model.TypeField] = o.Type().Name
	}

	if k, ok := model.KeyOf(o); ok {
		rec[RefField] = string(k)
	} else {
		rec[RefField], _ = e.stem.Name(o)
	}

	for _, p := range o.Type().Properties {
		if !p.NaturalKey && !p.Identifier {
			continue
		}

		switch v := o.Get(p.Name).(type) {
		case nil:
		case *model.Object:
			rec[p.Name] = e.reference(v, p.Target)
		default:
			rec[p.Name] = v
		}
	}

	return rec
}

func values(o *model.Object, p *model.Property) []*model.Object {
	if p.IsMany() {
		return o.Elements(p.Name)
	}

	if ref := o.Ref(p.Name); ref != nil {
		return []*model.Object{ref}
	}

	return nil
}
