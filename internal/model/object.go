package model

import (
	"fmt"
	"slices"
	"sort"
)

// Record is the external representation of one object: scalars, nested
// records, slices of records and the reserved "$" fields.
type Record map[string]any

// Object is a dynamic instance of a Type. Values are stored per property:
// scalars as-is, single associations as *Object, lists and sets as []*Object
// and maps as map[string]*Object.
type Object struct {
	typ       *Type
	values    map[string]any
	reference bool
}

// NewObject creates an empty instance of t.
func NewObject(t *Type) *Object {
	return &Object{typ: t, values: make(map[string]any)}
}

// NewReference creates a placeholder for t that carries only identifying
// properties. It is completed when the full object is materialized.
func NewReference(t *Type) *Object {
	o := NewObject(t)
	o.reference = true

	return o
}

func (o *Object) Type() *Type { return o.typ }

// IsReference reports whether o is a placeholder not yet completed.
func (o *Object) IsReference() bool { return o.reference }

// MarkReference flags o as a placeholder.
func (o *Object) MarkReference() { o.reference = true }

// Complete clears the placeholder flag.
func (o *Object) Complete() { o.reference = false }

// Retype changes the concrete type of a placeholder once it is narrowed.
func (o *Object) Retype(t *Type) {
	if t.IsA(o.typ) {
		o.typ = t
	}
}

func (o *Object) Has(name string) bool {
	_, ok := o.values[name]
	return ok
}

func (o *Object) Get(name string) any {
	return o.values[name]
}

// Set stores v; a nil v removes the value.
func (o *Object) Set(name string, v any) {
	if v == nil {
		delete(o.values, name)
		return
	}

	if ref, ok := v.(*Object); ok && ref == nil {
		delete(o.values, name)
		return
	}

	o.values[name] = v
}

// Ref returns the single associated object or nil.
func (o *Object) Ref(name string) *Object {
	ref, _ := o.values[name].(*Object)
	return ref
}

// Elements returns the elements of a list or set property, or the values of
// a map property ordered by key.
func (o *Object) Elements(name string) []*Object {
	switch v := o.values[name].(type) {
	case []*Object:
		return v
	case map[string]*Object:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		res := make([]*Object, 0, len(v))
		for _, k := range keys {
			res = append(res, v[k])
		}

		return res
	default:
		return nil
	}
}

// Entries returns the entries of a map property.
func (o *Object) Entries(name string) map[string]*Object {
	m, _ := o.values[name].(map[string]*Object)
	return m
}

// SetElements replaces the elements of a list or set property.
func (o *Object) SetElements(name string, els []*Object) {
	o.values[name] = els
}

// IndexOf returns the position of el in a list or set property, or -1.
func (o *Object) IndexOf(name string, el *Object) int {
	for i, cur := range o.Elements(name) {
		if cur == el {
			return i
		}
	}

	return -1
}

// Contains reports whether el is an element of the collection property.
func (o *Object) Contains(name string, el *Object) bool {
	if m := o.Entries(name); m != nil {
		for _, cur := range m {
			if cur == el {
				return true
			}
		}

		return false
	}

	return o.IndexOf(name, el) >= 0
}

// Add inserts el into a list or set property at pos; pos < 0 appends.
// An element already present is moved to pos when pos >= 0 and kept
// otherwise. Add reports whether the collection changed.
func (o *Object) Add(name string, el *Object, pos int) bool {
	els, _ := o.values[name].([]*Object)

	if i := slices.Index(els, el); i >= 0 {
		if pos < 0 || pos == i {
			return false
		}

		els = slices.Delete(els, i, i+1)
	}

	if pos < 0 || pos >= len(els) {
		els = append(els, el)
	} else {
		els = slices.Insert(els, pos, el)
	}

	o.values[name] = els

	return true
}

// Put stores el under key in a map property and reports whether it changed.
func (o *Object) Put(name, key string, el *Object) bool {
	m := o.Entries(name)
	if m == nil {
		m = make(map[string]*Object)
		o.values[name] = m
	}

	if m[key] == el {
		return false
	}

	m[key] = el

	return true
}

// RemoveKey deletes the entry under key of a map property and reports
// whether it was present.
func (o *Object) RemoveKey(name, key string) bool {
	m := o.Entries(name)
	if _, ok := m[key]; !ok {
		return false
	}

	delete(m, key)

	return true
}

// Remove deletes el from a collection property and reports whether it was present.
func (o *Object) Remove(name string, el *Object) bool {
	if m := o.Entries(name); m != nil {
		for k, cur := range m {
			if cur == el {
				delete(m, k)
				return true
			}
		}

		return false
	}

	els, _ := o.values[name].([]*Object)
	i := slices.Index(els, el)
	if i < 0 {
		return false
	}

	o.values[name] = slices.Delete(els, i, i+1)

	return true
}

// ID returns the identifier value or nil.
func (o *Object) ID() any {
	if id := o.typ.Identifier(); id != nil {
		return o.values[id.Name]
	}

	return nil
}

// Names returns the names of the properties holding a value, in metadata order.
func (o *Object) Names() []string {
	res := make([]string, 0, len(o.values))
	for _, p := range o.typ.Properties {
		if _, ok := o.values[p.Name]; ok {
			res = append(res, p.Name)
		}
	}

	return res
}

// String returns "Type{natural|key}", "Type#id" or "Type@pointer".
func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}

	if k, ok := KeyOf(o); ok {
		return o.typ.Name + string(k[len(o.typ.Root().Name):])
	}

	return fmt.Sprintf("%s@%p", o.typ.Name, o)
}
