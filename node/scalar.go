package node

import (
	"aggregate-mapper/internal/model"
	"aggregate-mapper/primitive"
	"fmt"
)

// Scalar converts v to the kind of the data-type property p. A caster
// registered for the pair wins over the built-in conversions.
func Scalar(p *model.Property, v any, allowed primitive.CategoryEnum, casters Casters) (any, error) {
	if v == nil {
		return nil, nil
	}

	if Dispatch(p) != DispatcherScalar {
		return nil, fmt.Errorf("%s is not a scalar property", p.Path())
	}

	from := primitive.FromValue(v)
	if from != p.Kind {
		if c, ok := casters[primitive.ConversionPair{From: from, To: p.Kind}]; ok {
			res, err := c.Call(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.Path(), err)
			}

			return res, nil
		}
	}

	res, err := primitive.Convert(v, p.Kind, allowed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Path(), err)
	}

	return res, nil
}

// Changed reports whether storing next over cur changes the value.
func Changed(cur, next any) bool {
	if cur == nil || next == nil {
		return cur != next
	}

	return !primitive.Equal(cur, next)
}
