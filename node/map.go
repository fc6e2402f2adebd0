package node

import (
	"aggregate-mapper/internal/model"
	"sort"
)

// DiffEntries compares current and desired map entries. put holds the keys
// whose value is new or different, removed the keys no longer desired; both
// sorted.
func DiffEntries(current, desired map[string]*model.Object) (put, removed []string) {
	for k, o := range desired {
		if cur, ok := current[k]; !ok || cur != o {
			put = append(put, k)
		}
	}

	for k := range current {
		if _, ok := desired[k]; !ok {
			removed = append(removed, k)
		}
	}

	sort.Strings(put)
	sort.Strings(removed)

	return put, removed
}
