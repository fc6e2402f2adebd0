package node_test

import (
	"aggregate-mapper/internal/model"
	"aggregate-mapper/node"
	"fmt"
)

func ExampleVisited() {
	_, _, player := tinyModel()
	a, b := newPlayer(player, "a"), newPlayer(player, "a")

	var v node.Visited
	fmt.Println("first:", v.Visit(a))
	fmt.Println("again:", v.Visit(a))
	fmt.Println("equal but distinct:", v.Visit(b))

	v.Reset()
	fmt.Println("after reset:", v.Visit(a), v.Visit(a))

	// Output:
	// first: true
	// again: false
	// equal but distinct: true
	// after reset: true false
}

func ExampleDealer() {
	_, team, _ := tinyModel()
	ref := model.NewReference(team)
	other := model.NewReference(team)

	var d node.Dealer
	d.Needs(ref)
	d.Needs(other)
	d.Needs(ref)
	fmt.Println("pending:", d.Pending())

	d.Done(other)
	o, ok := d.NextNeeds()
	fmt.Println("next is ref:", o == ref, ok)

	_, ok = d.NextNeeds()
	fmt.Println("no more:", ok)

	d.Needs(ref)
	fmt.Println("settled stays settled:", d.Pending())

	// Output:
	// pending: 2
	// next is ref: true true
	// no more: false
	// settled stays settled: 0
}
