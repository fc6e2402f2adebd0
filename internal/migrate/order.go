package migrate

import (
	"fmt"

	"aggregate-mapper/internal/common"
	"aggregate-mapper/internal/model"
)

// EntitiesInOrder returns the concrete entity types of m so that every type
// comes after the types its flat records reference. Types of one hierarchy
// share identifiers, so a reference to any type of a hierarchy depends on
// all its concrete types. Self references are ignored.
func EntitiesInOrder(m *model.Model) ([]*model.Type, error) {
	entities := m.Entities()

	byRoot := make(map[*model.Type][]int)
	for i, t := range entities {
		byRoot[t.Root()] = append(byRoot[t.Root()], i)
	}

	deps := make([][]int, len(entities))
	for i, t := range entities {
		for _, fk := range foreignKeys(t) {
			root := fk.Target.Root()
			if root == t.Root() {
				continue
			}

			deps[i] = append(deps[i], byRoot[root]...)
		}
	}

	order, err := common.TopoSort(len(entities), func(i int) []int { return deps[i] })
	if err != nil {
		return nil, fmt.Errorf("entity order: %w", err)
	}

	res := make([]*model.Type, 0, len(order))
	for _, i := range order {
		res = append(res, entities[i])
	}

	return res, nil
}
