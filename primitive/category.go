package primitive

// CategoryEnum is a bit set of conversion families a caller allows when a raw
// value does not already have the kind of the property it is copied into.
type CategoryEnum int

type ConversionPair struct {
	From, To KindEnum
}

const (
	CategorySafeNumber   CategoryEnum = 1 << iota // int <-> int64, int -> float
	CategoryUnsafeNumber                          // int, float with possible precision loss or overflow
	CategoryTextNumber                            // int, float <-> string: textual number representation
	CategoryNumericBool                           // int <-> bool: 0, 1 representation of boolean values
	CategoryTextualBool                           // string <-> bool: yes, no, on, off, true, false
	CategoryDatetime                              // string(RFC3339Nano) <-> time.Time
	CategoryTimestamp                             // int(Unix seconds) <-> time.Time
	CategoryDuration                              // string(2h45m) <-> time.Duration
	CategoryNanoseconds                           // int(nanoseconds) <-> time.Duration
	CategorySeconds                               // float(seconds) <-> time.Duration
	CategoryTextUUID                              // string <-> uuid.UUID

	CategoryAll  = (1 << iota) - 1 //all categories combined
	CategoryNone = 0               // no categories selected

	// CategoryDefault allows every lossless family; unsafe numbers must be opted into.
	CategoryDefault = CategoryAll &^ CategoryUnsafeNumber
)

var conversionPairs map[CategoryEnum]map[ConversionPair]struct{}

func init() {
	conversionPairs = make(map[CategoryEnum]map[ConversionPair]struct{})

	// int64 -> int is range checked by Convert
	conversionPairs[CategorySafeNumber] = map[ConversionPair]struct{}{
		{KindInt, KindInt64}:     {},
		{KindInt64, KindInt}:     {},
		{KindInt, KindFloat64}:   {},
		{KindInt64, KindFloat64}: {},
	}

	conversionPairs[CategoryUnsafeNumber] = map[ConversionPair]struct{}{}
	for from := KindEnum(1); int(from) < KindTotal; from++ {
		for to := KindEnum(1); int(to) < KindTotal; to++ {
			if !from.IsNumber() || !to.IsNumber() || from == to {
				continue
			}

			pair := ConversionPair{from, to}
			if _, ok := conversionPairs[CategorySafeNumber][pair]; !ok {
				conversionPairs[CategoryUnsafeNumber][pair] = struct{}{}
			}
		}
	}

	conversionPairs[CategoryTextNumber] = map[ConversionPair]struct{}{}
	conversionPairs[CategoryNumericBool] = map[ConversionPair]struct{}{}
	conversionPairs[CategoryTimestamp] = map[ConversionPair]struct{}{}
	conversionPairs[CategoryNanoseconds] = map[ConversionPair]struct{}{}

	for k := KindEnum(1); int(k) < KindTotal; k++ {
		if k.IsNumber() {
			conversionPairs[CategoryTextNumber][ConversionPair{k, KindString}] = struct{}{}
			conversionPairs[CategoryTextNumber][ConversionPair{KindString, k}] = struct{}{}
		}

		if k.IsInteger() {
			conversionPairs[CategoryNumericBool][ConversionPair{k, KindBool}] = struct{}{}
			conversionPairs[CategoryNumericBool][ConversionPair{KindBool, k}] = struct{}{}
			conversionPairs[CategoryTimestamp][ConversionPair{k, KindTime}] = struct{}{}
			conversionPairs[CategoryTimestamp][ConversionPair{KindTime, k}] = struct{}{}
			conversionPairs[CategoryNanoseconds][ConversionPair{k, KindDuration}] = struct{}{}
			conversionPairs[CategoryNanoseconds][ConversionPair{KindDuration, k}] = struct{}{}
		}
	}

	conversionPairs[CategoryTextualBool] = map[ConversionPair]struct{}{
		{KindString, KindBool}: {},
		{KindBool, KindString}: {},
	}

	conversionPairs[CategoryDatetime] = map[ConversionPair]struct{}{
		{KindString, KindTime}: {},
		{KindTime, KindString}: {},
	}

	conversionPairs[CategoryDuration] = map[ConversionPair]struct{}{
		{KindString, KindDuration}: {},
		{KindDuration, KindString}: {},
	}

	conversionPairs[CategorySeconds] = map[ConversionPair]struct{}{
		{KindFloat64, KindDuration}: {},
		{KindDuration, KindFloat64}: {},
	}

	conversionPairs[CategoryTextUUID] = map[ConversionPair]struct{}{
		{KindString, KindUUID}: {},
		{KindUUID, KindString}: {},
	}
}

// CategoryOf returns the category a conversion pair belongs to, or CategoryNone.
func CategoryOf(pair ConversionPair) CategoryEnum {
	for c, pairs := range conversionPairs {
		if _, ok := pairs[pair]; ok {
			return c
		}
	}

	return CategoryNone
}

// Allowed reports whether a pair is permitted by the allowed categories.
// Identity pairs are always permitted.
func Allowed(pair ConversionPair, allowed CategoryEnum) bool {
	if pair.From == pair.To {
		return true
	}

	c := CategoryOf(pair)
	return c != CategoryNone && allowed&c != 0
}
