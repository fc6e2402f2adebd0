package node

import (
	"aggregate-mapper/internal/model"
)

// Dealer tracks reference placeholders still waiting to be materialized.
// Needs records a placeholder, Done settles it, NextNeeds hands out the
// unsettled ones in the order they were first needed.
type Dealer struct {
	needs []*model.Object
	done  map[*model.Object]struct{}
}

func (d *Dealer) Needs(o *model.Object) {
	if d.done == nil {
		d.done = make(map[*model.Object]struct{})
	}

	if _, exists := d.done[o]; exists {
		return
	}

	for _, cur := range d.needs {
		if cur == o {
			return
		}
	}

	d.needs = append(d.needs, o)
}

func (d *Dealer) Done(o *model.Object) {
	if d.done == nil {
		d.done = make(map[*model.Object]struct{})
	}

	d.done[o] = struct{}{}
}

func (d *Dealer) NextNeeds() (*model.Object, bool) {
	for len(d.needs) > 0 {
		o := d.needs[0]
		d.needs = d.needs[1:]

		if _, exists := d.done[o]; !exists {
			d.Done(o)
			return o, true
		}
	}

	return nil, false
}

func (d *Dealer) Pending() int {
	n := 0
	for _, o := range d.needs {
		if _, exists := d.done[o]; !exists {
			n++
		}
	}

	return n
}
