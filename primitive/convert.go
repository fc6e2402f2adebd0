package primitive

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedValue = errors.New("unsupported scalar value")
	ErrNotAllowed       = errors.New("conversion category not allowed")
)

// ConversionError describes a failed scalar conversion.
type ConversionError struct {
	Value any
	Pair  ConversionPair
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %v from %s to %s: %v", e.Value, e.Pair.From, e.Pair.To, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Convert turns a raw value into the canonical Go representation of kind:
// int, int64, float64, bool, string, time.Time, time.Duration or uuid.UUID.
// A nil value converts to nil.
func Convert(value any, to KindEnum, allowed CategoryEnum) (any, error) {
	if value == nil {
		return nil, nil
	}

	from := FromValue(value)
	pair := ConversionPair{From: from, To: to}
	if from == 0 {
		return nil, &ConversionError{Value: value, Pair: pair, Err: ErrUnsupportedValue}
	}

	if !Allowed(pair, allowed) {
		return nil, &ConversionError{Value: value, Pair: pair, Err: ErrNotAllowed}
	}

	res, err := convert(normalize(value), from, to)
	if err != nil {
		return nil, &ConversionError{Value: value, Pair: pair, Err: err}
	}

	return res, nil
}

// normalize widens sized numbers so that convert deals with a fixed set of Go types.
func normalize(v any) any {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x)
		}
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
	case float32:
		return float64(x)
	}

	return v
}

func convert(v any, from, to KindEnum) (any, error) {
	if from == to {
		return v, nil
	}

	switch to {
	case KindInt, KindInt64:
		n, err := toInt64(v, from)
		if err != nil {
			return nil, err
		}
		if to == KindInt {
			if n > math.MaxInt || n < math.MinInt {
				return nil, fmt.Errorf("%d overflows int", n)
			}
			return int(n), nil
		}
		return n, nil

	case KindFloat64:
		switch from {
		case KindInt:
			return float64(v.(int)), nil
		case KindInt64:
			return float64(v.(int64)), nil
		case KindString:
			return strconv.ParseFloat(strings.TrimSpace(v.(string)), 64)
		case KindDuration:
			return v.(time.Duration).Seconds(), nil
		}

	case KindBool:
		switch from {
		case KindInt, KindInt64:
			n, _ := toInt64(v, from)
			switch n {
			case 0:
				return false, nil
			case 1:
				return true, nil
			}
			return nil, fmt.Errorf("%d is not a boolean number", n)
		case KindString:
			return parseBool(v.(string))
		}

	case KindString:
		switch from {
		case KindInt:
			return strconv.Itoa(v.(int)), nil
		case KindInt64:
			return strconv.FormatInt(v.(int64), 10), nil
		case KindFloat64:
			return strconv.FormatFloat(v.(float64), 'g', -1, 64), nil
		case KindBool:
			return strconv.FormatBool(v.(bool)), nil
		case KindTime:
			return v.(time.Time).UTC().Format(time.RFC3339Nano), nil
		case KindDuration:
			return v.(time.Duration).String(), nil
		case KindUUID:
			return v.(uuid.UUID).String(), nil
		}

	case KindTime:
		switch from {
		case KindString:
			return time.Parse(time.RFC3339Nano, strings.TrimSpace(v.(string)))
		case KindInt, KindInt64:
			n, _ := toInt64(v, from)
			return time.Unix(n, 0).UTC(), nil
		}

	case KindDuration:
		switch from {
		case KindString:
			return time.ParseDuration(strings.TrimSpace(v.(string)))
		case KindInt, KindInt64:
			n, _ := toInt64(v, from)
			return time.Duration(n), nil
		case KindFloat64:
			return time.Duration(v.(float64) * float64(time.Second)), nil
		}

	case KindUUID:
		if from == KindString {
			return uuid.Parse(strings.TrimSpace(v.(string)))
		}
	}

	return nil, fmt.Errorf("no conversion from %s to %s", from, to)
}

func toInt64(v any, from KindEnum) (int64, error) {
	switch from {
	case KindInt:
		return int64(v.(int)), nil
	case KindInt64:
		return v.(int64), nil
	case KindFloat64:
		f := v.(float64)
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("%v is not an integral number", f)
		}
		if f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%v overflows int64", f)
		}
		return int64(f), nil
	case KindString:
		return strconv.ParseInt(strings.TrimSpace(v.(string)), 10, 64)
	case KindBool:
		if v.(bool) {
			return 1, nil
		}
		return 0, nil
	case KindTime:
		return v.(time.Time).Unix(), nil
	case KindDuration:
		return int64(v.(time.Duration)), nil
	}

	return 0, fmt.Errorf("no conversion from %s to integer", from)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1", "y", "t":
		return true, nil
	case "false", "no", "off", "0", "n", "f":
		return false, nil
	}

	return false, fmt.Errorf("%q is not a boolean word", s)
}

// Format renders a scalar in the canonical textual form used in keys.
func Format(v any) string {
	switch x := normalize(v).(type) {
	case nil:
		return "<nil>"
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// Equal compares two scalars of the same kind. Times compare by instant.
func Equal(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}

	if FromValue(a) == 0 || FromValue(b) == 0 {
		return reflect.DeepEqual(a, b)
	}

	return a == b
}
