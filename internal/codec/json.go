package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"aggregate-mapper/internal/model"
)

// ReadJSON reads a JSON object or an array of objects. Integral numbers
// become int64, others float64.
func ReadJSON(r io.Reader) ([]model.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	var items []any
	switch x := raw.(type) {
	case map[string]any:
		items = []any{x}
	case []any:
		items = x
	default:
		return nil, fmt.Errorf("expected a JSON object or array, got %T", raw)
	}

	res := make([]model.Record, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d: expected a JSON object, got %T", i, item)
		}

		res = append(res, numbers(rec).(model.Record))
	}

	return res, nil
}

// ParseJSON is ReadJSON over a byte slice.
func ParseJSON(data []byte) ([]model.Record, error) {
	return ReadJSON(bytes.NewReader(data))
}

func numbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			if n, err := x.Int64(); err == nil {
				return n
			}
		}

		f, _ := x.Float64()

		return f
	case map[string]any:
		rec := make(model.Record, len(x))
		for k, item := range x {
			rec[k] = numbers(item)
		}

		return rec
	case []any:
		for i, item := range x {
			x[i] = numbers(item)
		}

		return x
	}

	return v
}

// WriteJSON writes recs as an indented JSON array.
func WriteJSON(w io.Writer, recs []model.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
