package node_test

import (
	"aggregate-mapper/internal/model"
	"aggregate-mapper/node"
	"fmt"
)

func ExampleRegistry() {
	_, team, _ := tinyModel()
	arena := node.NewArena()
	reg := node.NewRegistry()

	first := model.NewObject(team)
	first.Set("code", "RED")

	dup := model.NewObject(team)
	dup.Set("code", "RED")

	anonymous := model.NewObject(team)

	_, found := reg.RegisterKeys(arena.Wrap(first, node.StatusTransient), model.Keys(first))
	fmt.Println("first:", found)

	existing, found := reg.RegisterKeys(arena.Wrap(dup, node.StatusTransient), model.Keys(dup))
	fmt.Println("duplicate:", found, existing.Object == first)

	_, found = reg.RegisterKeys(arena.Wrap(anonymous, node.StatusTransient), model.Keys(anonymous))
	fmt.Println("no key:", found)

	// an output registered under the keys of its input as well
	out := model.NewObject(team)
	out.Set("id", int64(4))
	keys := append(model.Keys(out), model.NaturalKeyOf(team, "BLUE"))
	reg.RegisterKeys(arena.Wrap(out, node.StatusPersistent), keys)

	n, ok := reg.Lookup(model.NaturalKeyOf(team, "BLUE"))
	fmt.Println("by input key:", ok, n.Object == out)

	_, ok = reg.Lookup(model.NaturalKeyOf(team, "GREEN"))
	fmt.Println("unknown:", ok)

	// Output:
	// first: false
	// duplicate: true true
	// no key: false
	// by input key: true true
	// unknown: false
}
