package node

import (
	"aggregate-mapper/internal/common"
	"aggregate-mapper/primitive"
	"aggregate-mapper/utils"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

var (
	ErrIsNotACaster         = errors.New("provided function is not a recognizable caster")
	ErrCasterIsNotAFunction = errors.New("provided caster is not a function")
	ErrUnsupportedKind      = errors.New("caster kinds must be supported data kinds")
	ErrCasterRejected       = errors.New("caster rejected the value")
)

var errorType = reflect.TypeFor[error]()

// Caster is a user-supplied scalar conversion between two data kinds. It
// takes precedence over the built-in conversions for its pair.
type Caster struct {
	Src, Dst     primitive.KindEnum
	PackageAlias string
	Name         string
	HasBool      bool
	HasErr       bool

	srcType reflect.Type
	fn      reflect.Value
}

// ParseCaster inspects the provided function and returns a Caster struct if it is a valid caster function.
//
// Supports interfaces:
//   - func(src Type) (dst Type)
//   - func(src Type) (dst Type, bool)
//   - func(src Type) (dst Type, error)
//   - func(src Type) (dst Type, bool, error)
func ParseCaster(fn any) (Caster, error) {
	fnVal := reflect.ValueOf(fn)
	if !fnVal.IsValid() || fnVal.Kind() != reflect.Func {
		return Caster{}, ErrCasterIsNotAFunction
	}

	fnType := fnVal.Type()
	if fnType.NumIn() != 1 || fnType.NumOut() == 0 || fnType.NumOut() > 3 {
		return Caster{}, ErrIsNotACaster
	}

	caster := Caster{
		Src:     kindOf(fnType.In(0)),
		Dst:     kindOf(fnType.Out(0)),
		srcType: fnType.In(0),
		fn:      fnVal,
	}

	switch fnType.NumOut() {
	case 2:
		switch {
		case fnType.Out(1).Kind() == reflect.Bool:
			caster.HasBool = true
		case fnType.Out(1).Implements(errorType):
			caster.HasErr = true
		default:
			return Caster{}, ErrIsNotACaster
		}
	case 3:
		if fnType.Out(1).Kind() != reflect.Bool || !fnType.Out(2).Implements(errorType) {
			return Caster{}, ErrIsNotACaster
		}

		caster.HasBool, caster.HasErr = true, true
	}

	if !caster.Src.IsValid() || !caster.Dst.IsValid() {
		return Caster{}, ErrUnsupportedKind
	}

	fnPC := runtime.FuncForPC(fnVal.Pointer())
	if fnPC != nil {
		alias, name := utils.Unpack2(strings.SplitN(common.PkgAlias(fnPC.Name()), ".", 2))
		caster.PackageAlias, caster.Name = alias, name
	}

	return caster, nil
}

func kindOf(t reflect.Type) primitive.KindEnum {
	return primitive.FromValue(reflect.Zero(t).Interface())
}

// Pair returns the conversion pair the caster serves.
func (c Caster) Pair() primitive.ConversionPair {
	return primitive.ConversionPair{From: c.Src, To: c.Dst}
}

// Call applies the caster to v. A false bool result is reported as
// ErrCasterRejected.
func (c Caster) Call(v any) (any, error) {
	in := reflect.ValueOf(v)
	if !in.IsValid() || !in.Type().ConvertibleTo(c.srcType) {
		return nil, fmt.Errorf("%s.%s: cannot take %T", c.PackageAlias, c.Name, v)
	}

	out := c.fn.Call([]reflect.Value{in.Convert(c.srcType)})

	if c.HasErr {
		if err, _ := out[len(out)-1].Interface().(error); err != nil {
			return nil, err
		}
	}

	if c.HasBool && !out[1].Bool() {
		return nil, fmt.Errorf("%s.%s: %w", c.PackageAlias, c.Name, ErrCasterRejected)
	}

	return out[0].Interface(), nil
}

// Casters is a set of casters keyed by conversion pair.
type Casters map[primitive.ConversionPair]Caster

// Register parses fn and stores it, replacing any caster for the same pair.
func (cs Casters) Register(fn any) error {
	c, err := ParseCaster(fn)
	if err != nil {
		return err
	}

	cs[c.Pair()] = c

	return nil
}
