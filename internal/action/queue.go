package action

import (
	"github.com/sirupsen/logrus"

	"aggregate-mapper/internal/model"
	"aggregate-mapper/node"
)

type elementKey struct {
	key    PropertyKey
	el     *model.Object
	mapKey string
}

// Queue is the ordered, deduplicating action list of one traversal. It is
// not safe for concurrent use.
type Queue struct {
	log   logrus.FieldLogger
	merge bool
	seq   int

	actions    []Executable
	setters    map[PropertyKey]*SetterAction
	elements   map[elementKey]Executable
	migrators  map[PropertyKey]*MigratorAction
	mOrder     []*MigratorAction
	dependents map[Executable][]Executable
	touched    map[*model.Object]struct{}
	tOrder     []*model.Object
}

// NewQueue creates an empty queue. With merge set, migrator actions never
// remove obsolete elements.
func NewQueue(log logrus.FieldLogger, merge bool) *Queue {
	return &Queue{
		log:        log,
		merge:      merge,
		setters:    make(map[PropertyKey]*SetterAction),
		elements:   make(map[elementKey]Executable),
		migrators:  make(map[PropertyKey]*MigratorAction),
		dependents: make(map[Executable][]Executable),
		touched:    make(map[*model.Object]struct{}),
	}
}

// Add enqueues a and returns the action now standing for it: a itself or an
// equivalent action queued earlier. A setter with a different value
// supersedes the setter queued on the same key, cancelling the opposite-side
// actions derived from it.
func (q *Queue) Add(a Executable) Executable {
	b := a.common()

	switch x := a.(type) {
	case *SetterAction:
		if cur, ok := q.setters[b.key]; ok {
			if !node.Changed(cur.Value, x.Value) {
				return cur
			}

			q.supersede(cur, x)
		}

		q.setters[b.key] = x

	case *AddElementAction:
		ek := elementKey{b.key, x.Element, x.MapKey}
		if last, ok := q.elements[ek]; ok && last.common().live() {
			if _, same := last.(*AddElementAction); same {
				return last
			}
		}

		q.elements[ek] = x

	case *RemoveElementAction:
		ek := elementKey{b.key, x.Element, x.MapKey}
		if last, ok := q.elements[ek]; ok && last.common().live() {
			if _, same := last.(*RemoveElementAction); same {
				return last
			}
		}

		q.elements[ek] = x

	case *MigratorAction:
		if cur, ok := q.migrators[b.key]; ok {
			return cur
		}

		q.migrators[b.key] = x
		q.mOrder = append(q.mOrder, x)

		return x
	}

	q.seq++
	b.seq = q.seq
	q.actions = append(q.actions, a)

	if b.derived && b.after != nil {
		q.dependents[b.after] = append(q.dependents[b.after], a)
	}

	return a
}

// derive queues a as an opposite-side action running after cause. A derived
// setter never supersedes a forward setter on the same key.
func (q *Queue) derive(a Executable, cause Executable) Executable {
	if s, ok := a.(*SetterAction); ok {
		if cur, ok := q.setters[s.key]; ok && !cur.derived {
			return cur
		}
	}

	b := a.common()
	b.after = cause
	b.derived = true

	return q.Add(a)
}

func (q *Queue) supersede(old, replacement Executable) {
	old.common().replacedBy = replacement
	q.cancelDependents(old)
}

func (q *Queue) cancelDependents(a Executable) {
	for _, dep := range q.dependents[a] {
		b := dep.common()
		if b.cancelled {
			continue
		}

		b.cancelled = true
		if s, ok := dep.(*SetterAction); ok && q.setters[s.key] == s {
			delete(q.setters, s.key)
		}

		q.cancelDependents(dep)
	}

	delete(q.dependents, a)
}

// MigratorAction returns the migrator of key, creating it on first use.
func (q *Queue) MigratorAction(key PropertyKey) *MigratorAction {
	if m, ok := q.migrators[key]; ok {
		return m
	}

	m := newMigrator(key, q.merge)
	q.migrators[key] = m
	q.mOrder = append(q.mOrder, m)

	return m
}

// Touch records o as modified outside of queued actions so that Flush
// updates it.
func (q *Queue) Touch(o *model.Object) {
	if _, ok := q.touched[o]; ok {
		return
	}

	q.touched[o] = struct{}{}
	q.tOrder = append(q.tOrder, o)
}

// Actions returns the live setter and element actions in insertion order.
func (q *Queue) Actions() []Executable {
	res := make([]Executable, 0, len(q.actions))
	for _, a := range q.actions {
		if a.common().live() {
			res = append(res, a)
		}
	}

	return res
}

// Migrators returns the migrator actions in creation order.
func (q *Queue) Migrators() []*MigratorAction { return q.mOrder }

// Len counts the live actions plus the element actions the migrators would
// expand to against the current state.
func (q *Queue) Len() int {
	n := len(q.Actions())
	for _, m := range q.mOrder {
		n += m.Pending()
	}

	return n
}
