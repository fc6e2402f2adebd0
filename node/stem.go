package node

import (
	"aggregate-mapper/internal/model"
	"strconv"
)

// NewStem creates a Stem that names objects stem1, stem2, ... skipping names
// already taken in namespace. The nil namespace is treated as a free namespace.
func NewStem(stem string, namespace map[string]struct{}) *Stem {
	return &Stem{
		taken: namespace,
		names: make(map[*model.Object]string),
		stem:  stem,
	}
}

// Stem assigns stable anchor names to objects, one per object identity.
type Stem struct {
	taken map[string]struct{}
	names map[*model.Object]string
	stem  string
	last  int
}

// Name returns the anchor of o and whether it was assigned just now.
func (s *Stem) Name(o *model.Object) (string, bool) {
	if name, ok := s.names[o]; ok {
		return name, false
	}

	name := s.Next()
	s.names[o] = name

	return name, true
}

// Lookup returns the anchor of o if one was assigned.
func (s *Stem) Lookup(o *model.Object) (string, bool) {
	name, ok := s.names[o]
	return name, ok
}

func (s *Stem) Next() string {
	if s.taken == nil {
		s.taken = make(map[string]struct{})
	}

	for {
		s.last++
		name := s.stem + strconv.Itoa(s.last)

		if _, ok := s.taken[name]; !ok {
			s.taken[name] = struct{}{}
			return name
		}
	}
}
