package node

import (
	"aggregate-mapper/internal/model"
	"aggregate-mapper/primitive"
)

// Dispatch selects how the walker handles a property by its shape.
func Dispatch(p *model.Property) DispatcherEnum {
	if p == nil {
		return DispatcherUnknown
	}

	switch {
	case p.IsDataType():
		if p.Kind.IsValid() && !p.IsMany() {
			return DispatcherScalar
		}

		return DispatcherUnknown
	case p.Multiplicity == model.MultiplicityMap:
		return DispatcherMap
	case p.IsMany():
		return DispatcherCollection
	case p.IsEmbedded():
		return DispatcherEmbedded
	case p.Target != nil:
		return DispatcherEntity
	}

	return DispatcherUnknown
}

// DispatchValue classifies a raw external value the same way, so the decoder
// can check a record value against the property it is assigned to.
func DispatchValue(v any) DispatcherEnum {
	switch v.(type) {
	case model.Record, map[string]any:
		return DispatcherEntity
	case []model.Record, []map[string]any, []any:
		return DispatcherCollection
	case map[string]model.Record:
		return DispatcherMap
	}

	if primitive.FromValue(v) != 0 {
		return DispatcherScalar
	}

	return DispatcherUnknown
}
