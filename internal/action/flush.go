package action

import (
	"context"
	"fmt"

	"aggregate-mapper/internal/common"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/persist"
)

// FlushStats summarizes one flush.
type FlushStats struct {
	Executed int // actions run in the main pass
	Deferred int // open property actions run after insert
	Inserted int
	Updated  int
}

// Flush checks bidirectional claims, expands the migrators and replays every
// live action in dependency order. Association actions touching a transient
// object wait in the open property actions pass, which runs after the
// transient objects are inserted through w. Touched persistent objects are
// updated last and the bidirectional invariant is verified on every touched
// key.
func (q *Queue) Flush(ctx context.Context, w persist.Writer, tracker persist.Tracker) (FlushStats, error) {
	var stats FlushStats
	log := q.log.WithField("action", "flush_actions")

	if err := q.CheckBidirectional(); err != nil {
		return stats, err
	}

	for _, m := range q.mOrder {
		adds, removes := m.Plan()

		for _, rm := range removes {
			q.RemoveReference(rm.key.Object, rm.key.Property, rm.Element, rm.MapKey)
		}

		for _, add := range adds {
			q.AddReference(add.key.Object, add.key.Property, add.Element, add.Position, add.MapKey)
		}
	}

	live := q.Actions()
	order, err := replayOrder(live)
	if err != nil {
		return stats, err
	}

	deferred := make(map[Executable]bool)
	var open []Executable
	keys := make([]PropertyKey, 0, len(live))

	for _, i := range order {
		a := live[i]
		keys = append(keys, a.Key())

		if touchesTransient(a, tracker) || deferred[effective(a.After())] {
			deferred[a] = true
			open = append(open, a)

			continue
		}

		if err := a.Execute(); err != nil {
			return stats, fmt.Errorf("execute %s: %w", a, err)
		}

		stats.Executed++
	}

	fresh := tracker.Transient()
	if len(fresh) > 0 {
		if err := w.Insert(ctx, fresh); err != nil {
			return stats, fmt.Errorf("insert %d objects: %w", len(fresh), err)
		}

		for _, o := range fresh {
			tracker.MarkPersistent(o)
		}

		stats.Inserted = len(fresh)
	}

	for _, a := range open {
		if err := a.Execute(); err != nil {
			return stats, fmt.Errorf("execute open %s: %w", a, err)
		}

		stats.Deferred++
	}

	dirty := q.dirty(live)
	if len(dirty) > 0 {
		if err := w.Update(ctx, dirty); err != nil {
			return stats, fmt.Errorf("update %d objects: %w", len(dirty), err)
		}

		stats.Updated = len(dirty)
	}

	log.WithField("executed", stats.Executed).
		WithField("deferred", stats.Deferred).
		WithField("inserted", stats.Inserted).
		WithField("updated", stats.Updated).
		Debug("actions flushed")

	if err := VerifyBidirectional(keys); err != nil {
		return stats, err
	}

	return stats, nil
}

// replayOrder sorts live actions so that each runs after its dependency,
// keeping insertion order otherwise.
func replayOrder(live []Executable) ([]int, error) {
	index := make(map[Executable]int, len(live))
	for i, a := range live {
		index[a] = i
	}

	order, err := common.TopoSort(len(live), func(i int) []int {
		dep := effective(live[i].After())
		if j, ok := index[dep]; ok && j != i {
			return []int{j}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replay actions: %w", err)
	}

	return order, nil
}

// effective follows superseding replacements to the action that runs.
func effective(a Executable) Executable {
	for a != nil {
		next := a.common().replacedBy
		if next == nil {
			return a
		}
		a = next
	}

	return nil
}

func touchesTransient(a Executable, tracker persist.Tracker) bool {
	var ref *model.Object

	switch x := a.(type) {
	case *SetterAction:
		if x.key.Property.IsDataType() || x.key.Property.IsEmbedded() {
			return false
		}
		ref = x.Target()
	case *AddElementAction:
		ref = x.Element
	case *RemoveElementAction:
		ref = x.Element
	}

	if tracker.IsTransient(a.Key().Object) && a.Key().Object.Type().IsEntity() {
		return true
	}

	return ref != nil && tracker.IsTransient(ref)
}

// dirty returns the entity owners of the executed actions and the touched
// objects, in first-touch order.
func (q *Queue) dirty(live []Executable) []*model.Object {
	seen := make(map[*model.Object]struct{})
	var res []*model.Object

	add := func(o *model.Object) {
		if !o.Type().IsEntity() {
			return
		}

		if _, ok := seen[o]; ok {
			return
		}

		seen[o] = struct{}{}
		res = append(res, o)
	}

	for _, a := range live {
		add(a.Key().Object)
	}

	for _, o := range q.tOrder {
		add(o)
	}

	return res
}
