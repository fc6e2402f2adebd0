package primitive

import (
	"time"

	"github.com/google/uuid"
)

// KindEnum is the data kind of a scalar (data-type) property.
type KindEnum int

const (
	_ KindEnum = iota // skip zero value, use it as a default (invalid) value for KindEnum

	KindInt
	KindInt64
	KindFloat64
	KindBool
	KindString
	KindTime
	KindDuration
	KindUUID

	// KindTotal is a constant that represents the total number of kinds defined
	KindTotal = int(iota)
)

var kindNames = [...]string{
	KindInt:      "int",
	KindInt64:    "int64",
	KindFloat64:  "float64",
	KindBool:     "bool",
	KindString:   "string",
	KindTime:     "time",
	KindDuration: "duration",
	KindUUID:     "uuid",
}

func (k KindEnum) String() string {
	if !k.IsValid() {
		return "invalid"
	}

	return kindNames[k]
}

// ParseKind returns the kind registered under name ("int", "string", ...).
// Aliases "integer", "long", "float", "double", "text" and "timestamp" are accepted too.
func ParseKind(name string) (KindEnum, bool) {
	switch name {
	case "integer":
		return KindInt, true
	case "long":
		return KindInt64, true
	case "float", "double":
		return KindFloat64, true
	case "text":
		return KindString, true
	case "timestamp", "datetime":
		return KindTime, true
	}

	for k := KindEnum(1); int(k) < KindTotal; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}

	return 0, false
}

// IsValid reports whether k names a registered kind.
func (k KindEnum) IsValid() bool {
	return k > 0 && int(k) < KindTotal
}

func (k KindEnum) IsNumber() bool {
	switch k {
	default:
		return false
	case KindInt, KindInt64, KindFloat64:
		return true
	}
}

func (k KindEnum) IsInteger() bool {
	return k == KindInt || k == KindInt64
}

// FromValue reports the kind of a raw value. Sized integer types collapse into
// KindInt64 and float32 into KindFloat64. Unsupported values yield 0.
func FromValue(v any) KindEnum {
	switch v.(type) {
	default:
		return 0
	case int:
		return KindInt
	case int8, int16, int32, int64, uint8, uint16, uint32:
		return KindInt64
	case float32, float64:
		return KindFloat64
	case bool:
		return KindBool
	case string:
		return KindString
	case time.Time:
		return KindTime
	case time.Duration:
		return KindDuration
	case uuid.UUID:
		return KindUUID
	}
}
