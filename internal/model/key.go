package model

import (
	"strings"

	"aggregate-mapper/primitive"
)

// Key identifies an object within its root type: "Root{a|b}" for a natural
// key or "Root#id" for an identifier.
type Key string

const maxKeyDepth = 8

// KeyOf computes the identity key of o, preferring the natural key over the
// identifier. ok is false when neither is fully populated.
func KeyOf(o *Object) (Key, bool) {
	return keyOf(o, 0)
}

func keyOf(o *Object, depth int) (Key, bool) {
	if o == nil || depth > maxKeyDepth {
		return "", false
	}

	root := o.typ.Root().Name

	if nk := o.typ.NaturalKey(); len(nk) > 0 {
		parts := make([]string, 0, len(nk))
		complete := true

		for _, p := range nk {
			v := o.values[p.Name]
			if v == nil {
				complete = false
				break
			}

			if ref, ok := v.(*Object); ok {
				k, ok := keyOf(ref, depth+1)
				if !ok {
					complete = false
					break
				}

				parts = append(parts, string(k))

				continue
			}

			parts = append(parts, primitive.Format(v))
		}

		if complete {
			return Key(root + "{" + strings.Join(parts, "|") + "}"), true
		}
	}

	if id := o.ID(); id != nil {
		return IdentityKey(o.typ, id), true
	}

	return "", false
}

// IdentityKey builds the key for an identifier value of t.
func IdentityKey(t *Type, id any) Key {
	return Key(t.Root().Name + "#" + primitive.Format(id))
}

// NaturalKeyOf builds the key for natural-key values of t given in metadata
// order. Association parts are passed as keys.
func NaturalKeyOf(t *Type, values ...any) Key {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if k, ok := v.(Key); ok {
			parts = append(parts, string(k))
			continue
		}

		parts = append(parts, primitive.Format(v))
	}

	return Key(t.Root().Name + "{" + strings.Join(parts, "|") + "}")
}

// Keys returns every key o can be found under: the natural key and the
// identity key, whichever are populated.
func Keys(o *Object) []Key {
	var res []Key

	if k, ok := KeyOf(o); ok {
		res = append(res, k)
	}

	if id := o.ID(); id != nil {
		if k := IdentityKey(o.typ, id); len(res) == 0 || res[0] != k {
			res = append(res, k)
		}
	}

	return res
}
