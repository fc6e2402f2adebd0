package codec

import (
	"aggregate-mapper/internal/model"
)

const (
	AnchorField = model.ReservedPrefix + "id"
	RefField    = model.ReservedPrefix + "ref"
)

// AsRecord accepts the record shapes produced by the encoder and by JSON
// decoding.
func AsRecord(v any) (model.Record, bool) {
	switch x := v.(type) {
	case model.Record:
		return x, true
	case map[string]any:
		return model.Record(x), true
	}

	return nil, false
}

// AsList accepts the list shapes produced by the encoder and by JSON
// decoding.
func AsList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []model.Record:
		res := make([]any, len(x))
		for i, rec := range x {
			res[i] = rec
		}

		return res, true
	case []map[string]any:
		res := make([]any, len(x))
		for i, rec := range x {
			res[i] = rec
		}

		return res, true
	}

	return nil, false
}

// IsReference reports whether rec stands for an object emitted elsewhere.
func IsReference(rec model.Record) bool {
	_, ok := rec[RefField]
	return ok
}
