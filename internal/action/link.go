package action

import (
	"aggregate-mapper/internal/model"
)

// SetReference queues owner.p = target for a single-valued association.
// For a bidirectional p it also unlinks owner from the previous target's
// opposite side and links it into the new target's, both after the forward
// setter. It returns the forward action.
func (q *Queue) SetReference(owner *model.Object, p *model.Property, target *model.Object) Executable {
	var value any
	if target != nil {
		value = target
	}

	fwd := q.Add(NewSetter(owner, p, value))

	opp := p.Opposite
	if opp == nil {
		return fwd
	}

	prev := owner.Ref(p.Name)
	if prev == target {
		return fwd
	}

	if prev != nil {
		q.unlink(prev, opp, owner, fwd)
	}

	if target != nil {
		q.link(target, opp, owner, fwd)

		// one-to-one: the target leaves its previous owner
		if !opp.IsMany() {
			if other := target.Ref(opp.Name); other != nil && other != owner {
				q.derive(NewSetter(other, p, nil), fwd)
			}
		}
	}

	return fwd
}

// AddReference queues the addition of el to owner.p with opposite-side
// maintenance and returns the forward action.
func (q *Queue) AddReference(owner *model.Object, p *model.Property, el *model.Object, pos int, mapKey string) Executable {
	add := NewAddElement(owner, p, el, pos)
	add.MapKey = mapKey
	fwd := q.Add(add)

	if opp := p.Opposite; opp != nil {
		q.link(el, opp, owner, fwd)

		// one-to-many: el leaves the collection of its previous owner
		if !opp.IsMany() {
			if prev := el.Ref(opp.Name); prev != nil && prev != owner {
				q.derive(NewRemoveElement(prev, p, el), fwd)
			}
		}
	}

	return fwd
}

// RemoveReference queues the removal of el from owner.p with opposite-side
// maintenance and returns the forward action.
func (q *Queue) RemoveReference(owner *model.Object, p *model.Property, el *model.Object, mapKey string) Executable {
	rm := NewRemoveElement(owner, p, el)
	rm.MapKey = mapKey
	fwd := q.Add(rm)

	if opp := p.Opposite; opp != nil {
		q.unlink(el, opp, owner, fwd)
	}

	return fwd
}

// link makes obj.opp refer to owner.
func (q *Queue) link(obj *model.Object, opp *model.Property, owner *model.Object, cause Executable) {
	if opp.IsMany() {
		if obj.Contains(opp.Name, owner) {
			return
		}

		pos := Append
		if opp.PositionProperty != "" {
			pos = ByPosition
		}

		q.derive(NewAddElement(obj, opp, owner, pos), cause)

		return
	}

	if obj.Ref(opp.Name) != owner {
		q.derive(NewSetter(obj, opp, owner), cause)
	}
}

// unlink removes owner from obj.opp when it is there.
func (q *Queue) unlink(obj *model.Object, opp *model.Property, owner *model.Object, cause Executable) {
	if opp.IsMany() {
		if obj.Contains(opp.Name, owner) {
			q.derive(NewRemoveElement(obj, opp, owner), cause)
		}

		return
	}

	if obj.Ref(opp.Name) == owner {
		q.derive(NewSetter(obj, opp, nil), cause)
	}
}
