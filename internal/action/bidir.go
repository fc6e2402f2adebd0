package action

import (
	"errors"

	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/model"
)

// claim states that holder.prop must hold value once the queue is flushed.
// origin is the forward side that implies it, nil for a direct setter.
type claim struct {
	value  *model.Object
	origin *PropertyKey
}

type claims map[PropertyKey]claim

func (c claims) add(holder PropertyKey, next claim) error {
	cur, ok := c[holder]
	if !ok {
		c[holder] = next
		return nil
	}

	if cur.value == next.value {
		return nil
	}

	// report from the side of an opposite-derived claim
	if next.origin == nil {
		cur, next = next, cur
	}

	if next.origin == nil {
		return nil
	}

	return &diagnostic.BidirOutOfSyncError{
		Owner:    next.origin.Object.String(),
		Property: next.origin.Property.Name,
		Target:   holder.Object.String(),
		Opposite: holder.Property.Name,
		Found:    describe(orNil(cur.value)),
	}
}

func orNil(o *model.Object) any {
	if o == nil {
		return nil
	}

	return o
}

// CheckBidirectional reports forward actions whose implied opposite sides
// contradict each other: two owners claiming the same single-valued
// opposite, or a setter disagreeing with a collection that retains its owner.
func (q *Queue) CheckBidirectional() error {
	c := make(claims)
	var errs []error

	for _, a := range q.Actions() {
		s, ok := a.(*SetterAction)
		if !ok || s.derived || s.key.Property.Opposite == nil || s.key.Property.IsMany() {
			continue
		}

		if err := c.add(s.key, claim{value: s.Target()}); err != nil {
			errs = append(errs, err)
		}

		opp := s.key.Property.Opposite
		if t := s.Target(); t != nil && !opp.IsMany() {
			origin := s.key
			if err := c.add(PropertyKey{t, opp}, claim{value: s.key.Object, origin: &origin}); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, m := range q.mOrder {
		opp := m.key.Property.Opposite
		if opp == nil || opp.IsMany() {
			continue
		}

		origin := m.key
		for _, el := range m.desired {
			if err := c.add(PropertyKey{el, opp}, claim{value: m.key.Object, origin: &origin}); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

// VerifyBidirectional checks a.p == b if and only if b.opposite holds a for
// every bidirectional key in keys.
func VerifyBidirectional(keys []PropertyKey) error {
	var errs []error
	seen := make(map[PropertyKey]struct{}, len(keys))

	for _, k := range keys {
		if _, ok := seen[k]; ok || k.Property.Opposite == nil {
			continue
		}

		seen[k] = struct{}{}

		owner, p, opp := k.Object, k.Property, k.Property.Opposite

		var targets []*model.Object
		if p.IsMany() {
			targets = owner.Elements(p.Name)
		} else if t := owner.Ref(p.Name); t != nil {
			targets = []*model.Object{t}
		}

		for _, t := range targets {
			if holds(t, opp, owner) {
				continue
			}

			errs = append(errs, &diagnostic.BidirOutOfSyncError{
				Owner:    owner.String(),
				Property: p.Name,
				Target:   t.String(),
				Opposite: opp.Name,
				Found:    describeSide(t, opp),
			})
		}
	}

	return errors.Join(errs...)
}

func holds(o *model.Object, p *model.Property, target *model.Object) bool {
	if p.IsMany() {
		return o.Contains(p.Name, target)
	}

	return o.Ref(p.Name) == target
}

func describeSide(o *model.Object, p *model.Property) string {
	if p.IsMany() {
		els := o.Elements(p.Name)
		if len(els) == 0 {
			return "nothing"
		}

		res := "["
		for i, el := range els {
			if i > 0 {
				res += " "
			}
			res += el.String()
		}

		return res + "]"
	}

	return describe(orNil(o.Ref(p.Name)))
}
