package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/match"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/node"
	"aggregate-mapper/options"
	"aggregate-mapper/primitive"
)

// Decoder builds object graphs from nested records. Record keys are matched
// to properties by exact name first, then by normalized similarity.
// Non-cascaded association values become reference placeholders that the
// walker resolves against the persister.
type Decoder struct {
	model   *model.Model
	allowed primitive.CategoryEnum
	strict  bool
	casters node.Casters
	diags   *diagnostic.Diagnostics

	anchors map[string]*model.Object
}

// NewDecoder creates a decoder honoring the conversion categories and the
// StrictKeys flag of s. Unknown keys are reported to diags when not strict.
func NewDecoder(m *model.Model, s options.Settings, casters node.Casters, diags *diagnostic.Diagnostics) *Decoder {
	if diags == nil {
		diags = &diagnostic.Diagnostics{}
	}

	return &Decoder{
		model:   m,
		allowed: s.Conversions,
		strict:  s.StrictKeys,
		casters: casters,
		diags:   diags,
		anchors: make(map[string]*model.Object),
	}
}

// Decode builds one root object of base type (or a subtype) from rec.
func (d *Decoder) Decode(base *model.Type, rec model.Record) (*model.Object, error) {
	return d.decode(base, nil, rec, true)
}

// DecodeAll decodes every record as a root of base type.
func (d *Decoder) DecodeAll(base *model.Type, recs []model.Record) ([]*model.Object, error) {
	res := make([]*model.Object, 0, len(recs))
	for i, rec := range recs {
		o, err := d.Decode(base, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		res = append(res, o)
	}

	return res, nil
}

func (d *Decoder) decode(base *model.Type, p *model.Property, rec model.Record, cascade bool) (*model.Object, error) {
	if ref, ok := rec[RefField].(string); ok {
		if o, ok := d.anchors[ref]; ok {
			return o, nil
		}
	}

	t, err := d.model.Narrow(base, p, rec)
	if err != nil {
		// a reference only needs to identify its target
		if !IsReference(rec) || !errors.Is(err, diagnostic.ErrMultipleClassForProperty) {
			return nil, err
		}
		t = base
	}

	o := model.NewObject(t)
	if !cascade || IsReference(rec) {
		o.MarkReference()
	}

	if anchor, ok := rec[AnchorField].(string); ok {
		d.anchors[anchor] = o
	}

	mapped, err := d.resolveKeys(t, rec)
	if err != nil {
		return nil, err
	}

	for _, key := range sortedKeys(mapped) {
		prop := mapped[key]
		if err := d.assign(o, prop, rec[key]); err != nil {
			return nil, err
		}
	}

	return o, nil
}

func (d *Decoder) assign(o *model.Object, p *model.Property, v any) error {
	if v == nil {
		return nil
	}

	switch node.Dispatch(p) {
	case node.DispatcherScalar:
		val, err := node.Scalar(p, v, d.allowed, d.casters)
		if err != nil {
			return err
		}
		o.Set(p.Name, val)

	case node.DispatcherEmbedded, node.DispatcherEntity:
		el, err := d.element(p, v)
		if err != nil {
			return err
		}
		o.Set(p.Name, el)

	case node.DispatcherCollection:
		list, ok := AsList(v)
		if !ok {
			return fmt.Errorf("%s: expected a list, got %T", p.Path(), v)
		}

		els := make([]*model.Object, 0, len(list))
		for _, item := range list {
			el, err := d.element(p, item)
			if err != nil {
				return err
			}
			els = append(els, el)
		}
		o.SetElements(p.Name, node.Dedup(els))

	case node.DispatcherMap:
		entries, ok := AsRecord(v)
		if !ok {
			return fmt.Errorf("%s: expected an object, got %T", p.Path(), v)
		}

		for _, k := range sortedKeys(entries) {
			el, err := d.element(p, entries[k])
			if err != nil {
				return err
			}
			o.Put(p.Name, k, el)
		}

	default:
		return fmt.Errorf("%s: unsupported property shape", p.Path())
	}

	return nil
}

// element decodes one association value: a nested record, or a bare
// identifier standing for a reference.
func (d *Decoder) element(p *model.Property, v any) (*model.Object, error) {
	if rec, ok := AsRecord(v); ok {
		return d.decode(p.Target, p, rec, p.Cascadable())
	}

	id := p.Target.Identifier()
	if id == nil || p.IsEmbedded() {
		return nil, fmt.Errorf("%s: expected an object, got %T", p.Path(), v)
	}

	val, err := node.Scalar(id, v, d.allowed, d.casters)
	if err != nil {
		return nil, err
	}

	o := model.NewReference(p.Target)
	o.Set(id.Name, val)

	return o, nil
}

// resolveKeys maps the record keys of rec to properties of t. Exact names
// win; the remaining properties pick among the remaining keys by
// similarity. Two properties picking the same key is an AmbiguousMatch.
func (d *Decoder) resolveKeys(t *model.Type, rec model.Record) (map[string]*model.Property, error) {
	mapped := make(map[string]*model.Property, len(rec))
	taken := make(map[*model.Property]struct{}, len(rec))
	var rest []string

	for _, key := range sortedKeys(rec) {
		if strings.HasPrefix(key, model.ReservedPrefix) {
			continue
		}

		if p, ok := t.Lookup(key); ok {
			mapped[key] = p
			taken[p] = struct{}{}

			continue
		}

		rest = append(rest, key)
	}

	if len(rest) == 0 {
		return mapped, nil
	}

	fields := make([]match.Field, 0, len(rest))
	for _, key := range rest {
		fields = append(fields, match.Field{Name: key, Kind: primitive.FromValue(rec[key])})
	}

	for _, p := range t.Properties {
		if _, ok := taken[p]; ok {
			continue
		}

		cand, err := match.Pick(t.Name, match.Field{Name: p.Name, Kind: p.DataKind()}, fields, d.allowed)
		if err != nil {
			return nil, err
		}

		if cand == nil {
			continue
		}

		key := cand.Source.Name
		if prev, ok := mapped[key]; ok {
			return nil, &diagnostic.AmbiguousMatchError{
				Type:       t.Name,
				Path:       key,
				Candidates: []string{prev.Name, p.Name},
			}
		}

		mapped[key] = p
	}

	for _, key := range rest {
		if _, ok := mapped[key]; ok {
			continue
		}

		if d.strict {
			_, err := t.Property(key)
			return nil, err
		}

		d.diags.AddInfo(diagnostic.CodeUnknownKey, fmt.Sprintf("key %q matches no property", key), t.Name, key)
	}

	return mapped, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
