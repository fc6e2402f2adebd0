package node

import (
	"aggregate-mapper/internal/model"
)

// Diff compares the current members of a collection with the desired ones.
// added keeps the order of desired, removed the order of current.
func Diff(current, desired []*model.Object) (added, removed []*model.Object) {
	want := make(map[*model.Object]struct{}, len(desired))
	for _, o := range desired {
		want[o] = struct{}{}
	}

	have := make(map[*model.Object]struct{}, len(current))
	for _, o := range current {
		have[o] = struct{}{}
		if _, ok := want[o]; !ok {
			removed = append(removed, o)
		}
	}

	for _, o := range desired {
		if _, ok := have[o]; !ok {
			added = append(added, o)
			have[o] = struct{}{}
		}
	}

	return added, removed
}

// Dedup drops repeated objects keeping first occurrences.
func Dedup(objs []*model.Object) []*model.Object {
	seen := make(map[*model.Object]struct{}, len(objs))
	res := objs[:0:0]

	for _, o := range objs {
		if _, ok := seen[o]; ok {
			continue
		}

		seen[o] = struct{}{}
		res = append(res, o)
	}

	return res
}
