package node_test

import (
	"aggregate-mapper/internal/model"
	"aggregate-mapper/primitive"
)

// tinyModel has Team (natural key code) with many Players, each Player
// pointing back to its Team.
func tinyModel() (*model.Model, *model.Type, *model.Type) {
	team := model.NewType("Team",
		&model.Property{Name: "id", Kind: primitive.KindInt64, Identifier: true},
		&model.Property{Name: "code", Kind: primitive.KindString, NaturalKey: true},
		&model.Property{Name: "players", TargetName: "Player", Multiplicity: model.MultiplicityList,
			Association: model.AssociationOneToMany, OppositeName: "team", Cascade: true},
		&model.Property{Name: "byNumber", TargetName: "Player", Multiplicity: model.MultiplicityMap},
	)
	player := model.NewType("Player",
		&model.Property{Name: "name", Kind: primitive.KindString, NaturalKey: true},
		&model.Property{Name: "rating", Kind: primitive.KindFloat64},
		&model.Property{Name: "team", TargetName: "Team"},
	)

	m := model.New().MustAddTypes(team, player)
	if err := m.Resolve(); err != nil {
		panic(err)
	}

	return m, team, player
}

func newPlayer(t *model.Type, name string) *model.Object {
	o := model.NewObject(t)
	o.Set("name", name)

	return o
}
