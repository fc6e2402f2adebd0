package migrate

import (
	"fmt"
	"sync"

	"aggregate-mapper/internal/codec"
	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/node"
)

// SurrogateField carries the source identifier of a migrated record.
const SurrogateField = model.ReservedPrefix + "surrogate_id"

// SurrogateMap maps source identifiers to the identifiers the target
// assigned, per root type. It is safe for concurrent use.
type SurrogateMap struct {
	mu  sync.RWMutex
	ids map[model.Key]any
}

func NewSurrogateMap() *SurrogateMap {
	return &SurrogateMap{ids: make(map[model.Key]any)}
}

// Put records that the source identifier of t was migrated to target.
func (s *SurrogateMap) Put(t *model.Type, source, target any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids[model.IdentityKey(t, source)] = target
}

func (s *SurrogateMap) Lookup(t *model.Type, source any) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.ids[model.IdentityKey(t, source)]

	return id, ok
}

func (s *SurrogateMap) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ids)
}

// Relabel moves the identifier of rec into SurrogateField and returns it.
// It returns nil when t has no identifier or rec holds none.
func Relabel(t *model.Type, rec model.Record) any {
	idp := t.Identifier()
	if idp == nil {
		return nil
	}

	id, ok := rec[idp.Name]
	if !ok || id == nil {
		return nil
	}

	delete(rec, idp.Name)
	rec[SurrogateField] = id

	return id
}

// foreignKeys lists the properties of t, its embedded values included,
// whose flat records hold target identifiers.
func foreignKeys(t *model.Type) []*model.Property {
	var res []*model.Property

	seen := make(map[*model.Type]bool)

	var walk func(cur *model.Type)
	walk = func(cur *model.Type) {
		if seen[cur] {
			return
		}
		seen[cur] = true

		for _, p := range cur.Properties {
			switch {
			case p.IsEmbedded():
				walk(p.Target)
				for _, sub := range p.Target.Concrete() {
					walk(sub)
				}
			case p.Target != nil && p.HoldsForeignKey():
				res = append(res, p)
			}
		}
	}
	walk(t)

	return res
}

// Rewrite replaces every foreign key of rec with the surrogate of the
// referenced source identifier, inside embedded values, embedded
// collections and maps too. A key without a surrogate is an
// UnmappedSurrogateError; rec is left partially rewritten in that case.
func (s *SurrogateMap) Rewrite(t *model.Type, rec model.Record) error {
	r := rewriter{surrogates: s, owner: t}
	return r.record(t, "", "", rec, 0)
}

type rewriter struct {
	surrogates *SurrogateMap
	owner      *model.Type
}

// record rewrites the fields of cur stored in rec under prefix; label
// prefixes the property path reported on error.
func (r rewriter) record(cur *model.Type, prefix, label string, rec model.Record, depth int) error {
	if name, ok := rec[model.TypeField].(string); ok && prefix == "" {
		if sub := subtype(cur, name); sub != nil {
			cur = sub
		}
	}

	for _, p := range cur.Properties {
		key := prefix + p.Name
		path := label + key

		v, ok := rec[key]

		switch node.Dispatch(p) {
		case node.DispatcherEmbedded:
			if depth < maxEmbeddedDepth {
				if err := r.record(p.Target, key+codec.PathSeparator, label, rec, depth+1); err != nil {
					return err
				}
			}

		case node.DispatcherEntity:
			if !ok || v == nil || !p.HoldsForeignKey() {
				continue
			}

			mapped, err := r.mapped(p, path, v)
			if err != nil {
				return err
			}
			rec[key] = mapped

		case node.DispatcherCollection:
			list, isList := codec.AsList(v)
			if !ok || !isList {
				continue
			}

			res := make([]any, 0, len(list))
			for i, ev := range list {
				mapped, err := r.element(p, fmt.Sprintf("%s%s%d", path, codec.PathSeparator, i), ev, depth)
				if err != nil {
					return err
				}
				res = append(res, mapped)
			}
			rec[key] = res

		case node.DispatcherMap:
			entries, isRecord := codec.AsRecord(v)
			if !ok || !isRecord {
				continue
			}

			res := make(model.Record, len(entries))
			for k, ev := range entries {
				mapped, err := r.element(p, path+codec.PathSeparator+k, ev, depth)
				if err != nil {
					return err
				}
				res[k] = mapped
			}
			rec[key] = res
		}
	}

	return nil
}

// element rewrites one value of a collection or map property: an element
// record of an embedded type, or a target identifier.
func (r rewriter) element(p *model.Property, path string, v any, depth int) (any, error) {
	if p.IsEmbedded() {
		el, ok := codec.AsRecord(v)
		if !ok || depth >= maxEmbeddedDepth {
			return v, nil
		}

		return el, r.record(p.Target, "", path+codec.PathSeparator, el, depth+1)
	}

	if !p.HoldsForeignKey() {
		return v, nil
	}

	return r.mapped(p, path, v)
}

func (r rewriter) mapped(p *model.Property, path string, id any) (any, error) {
	if mapped, ok := r.surrogates.Lookup(p.Target, id); ok {
		return mapped, nil
	}

	return nil, &diagnostic.UnmappedSurrogateError{
		Type:     r.owner.Name,
		Property: path,
		SourceID: id,
	}
}

const maxEmbeddedDepth = 8

// subtype returns the type named name among t and its descendants.
func subtype(t *model.Type, name string) *model.Type {
	if t.Name == name {
		return t
	}

	for _, sub := range t.Subtypes {
		if found := subtype(sub, name); found != nil {
			return found
		}
	}

	return nil
}
