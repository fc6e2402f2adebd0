package node

import (
	"aggregate-mapper/internal/model"
)

// Visited is the per-traversal visited set keyed by object identity.
// Entries are only ever added within a pass; Reset starts the next stage.
type Visited struct {
	seen map[*model.Object]struct{}
}

// Visit marks o and reports whether it was not visited before.
func (v *Visited) Visit(o *model.Object) bool {
	if v.seen == nil {
		v.seen = make(map[*model.Object]struct{})
	}

	if _, ok := v.seen[o]; ok {
		return false
	}

	v.seen[o] = struct{}{}

	return true
}

func (v *Visited) Reset() {
	clear(v.seen)
}
