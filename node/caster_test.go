package node_test

import (
	"aggregate-mapper/node"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

func empty()                          { panic("not implemented") }
func wrong(int) (string, error, bool) { panic("not implemented") }

func yesNo(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "ja":
		return true, true
	case "nein":
		return false, true
	}

	return false, false
}

func days(n int) (time.Duration, error) {
	if n < 0 {
		return 0, errors.New("negative")
	}

	return time.Duration(n) * 24 * time.Hour, nil
}

func ExampleCaster() {
	desc, err := node.ParseCaster(yesNo)
	fmt.Println(err, desc.PackageAlias, desc.Name, desc.Src, desc.Dst, desc.HasBool, desc.HasErr)

	desc, err = node.ParseCaster(strconv.Itoa)
	fmt.Println(err, desc.PackageAlias, desc.Name, desc.Src, desc.Dst, desc.HasBool, desc.HasErr)

	desc, err = node.ParseCaster(days)
	fmt.Println(err, desc.Src, desc.Dst, desc.HasBool, desc.HasErr)

	_, err = node.ParseCaster(empty)
	fmt.Println(err)

	_, err = node.ParseCaster(wrong)
	fmt.Println(err)

	_, err = node.ParseCaster(42)
	fmt.Println(err)

	// Output:
	// <nil> node_test yesNo string bool true false
	// <nil> strconv Itoa int string false false
	// <nil> int duration false true
	// provided function is not a recognizable caster
	// provided function is not a recognizable caster
	// provided caster is not a function
}

func ExampleCasters() {
	casters := node.Casters{}
	fmt.Println(casters.Register(yesNo), casters.Register(days))

	c := casters[node.Caster{}.Pair()]
	fmt.Println(c.Name == "")

	for _, pair := range []string{"ja", "vielleicht"} {
		v, err := casters[mustCaster(yesNo).Pair()].Call(pair)
		fmt.Println(v, err != nil)
	}

	v, err := mustCaster(days).Call(2)
	fmt.Println(v, err)

	// Output:
	// <nil> <nil>
	// true
	// true false
	// <nil> true
	// 48h0m0s <nil>
}

func mustCaster(fn any) node.Caster {
	c, err := node.ParseCaster(fn)
	if err != nil {
		panic(err)
	}

	return c
}
