package action

import (
	"fmt"

	"aggregate-mapper/internal/model"
	"aggregate-mapper/node"
)

// MigratorAction accumulates the desired members of one collection property.
// At flush it expands into the additions and, unless merging, the removals
// that turn the current membership into the desired one. Elements already
// present produce nothing, so re-applying the same membership is a no-op.
type MigratorAction struct {
	base
	merge   bool
	desired []*model.Object
	entries map[string]*model.Object
	present map[*model.Object]struct{}
}

func newMigrator(key PropertyKey, merge bool) *MigratorAction {
	return &MigratorAction{
		base:    base{key: key},
		merge:   merge,
		present: make(map[*model.Object]struct{}),
	}
}

// Retain records el as a desired member of a list or set.
func (m *MigratorAction) Retain(el *model.Object) {
	if _, ok := m.present[el]; ok {
		return
	}

	m.present[el] = struct{}{}
	m.desired = append(m.desired, el)
}

// RetainEntry records el as the desired value under key of a map property.
func (m *MigratorAction) RetainEntry(key string, el *model.Object) {
	if m.entries == nil {
		m.entries = make(map[string]*model.Object)
	}

	m.entries[key] = el
	m.present[el] = struct{}{}
}

// Desired returns the retained members in retention order.
func (m *MigratorAction) Desired() []*model.Object { return m.desired }

func (m *MigratorAction) Merge() bool { return m.merge }

// Plan computes the element actions needed against the current state.
func (m *MigratorAction) Plan() (adds []*AddElementAction, removes []*RemoveElementAction) {
	owner, p := m.key.Object, m.key.Property

	if p.Multiplicity == model.MultiplicityMap {
		current := owner.Entries(p.Name)
		put, removed := node.DiffEntries(current, m.entries)

		for _, k := range put {
			add := NewAddElement(owner, p, m.entries[k], Append)
			add.MapKey = k
			adds = append(adds, add)
		}

		if !m.merge {
			for _, k := range removed {
				rm := NewRemoveElement(owner, p, current[k])
				rm.MapKey = k
				removes = append(removes, rm)
			}
		}

		return adds, removes
	}

	added, removed := node.Diff(owner.Elements(p.Name), m.desired)

	pos := Append
	if p.PositionProperty != "" {
		pos = ByPosition
	}

	for _, el := range added {
		adds = append(adds, NewAddElement(owner, p, el, pos))
	}

	if !m.merge {
		for _, el := range removed {
			removes = append(removes, NewRemoveElement(owner, p, el))
		}
	}

	return adds, removes
}

// Pending returns the number of element actions the migrator would expand to.
func (m *MigratorAction) Pending() int {
	adds, removes := m.Plan()
	return len(adds) + len(removes)
}

// Execute is a no-op; the queue expands migrators at flush.
func (m *MigratorAction) Execute() error { return nil }

func (m *MigratorAction) String() string {
	mode := "replace"
	if m.merge {
		mode = "merge"
	}

	return fmt.Sprintf("migrate %s (%s, %d desired)", m.key, mode, len(m.present))
}
