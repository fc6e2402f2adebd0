package match

import (
	"aggregate-mapper/primitive"
)

// KindCompatibility represents the level of compatibility between two value kinds.
type KindCompatibility int

const (
	// KindIncompatible means no allowed conversion exists.
	KindIncompatible KindCompatibility = iota
	// KindUnknown means one side carries no scalar kind (nested record, nil).
	KindUnknown
	// KindConvertible means an allowed conversion exists.
	KindConvertible
	// KindIdentical means the kinds are exactly the same.
	KindIdentical
)

const (
	VerdictIdentical    = "identical"
	VerdictConvertible  = "convertible"
	VerdictUnknown      = "unknown"
	VerdictIncompatible = "incompatible"
)

// String returns a human-readable name for the compatibility level.
func (c KindCompatibility) String() string {
	switch c {
	case KindIdentical:
		return VerdictIdentical
	case KindConvertible:
		return VerdictConvertible
	case KindUnknown:
		return VerdictUnknown
	case KindIncompatible:
		return VerdictIncompatible
	default:
		return "invalid"
	}
}

// Score returns a numeric score for sorting (higher is better).
func (c KindCompatibility) Score() int {
	return int(c)
}

// KindCompatibilityResult contains detailed information about kind compatibility.
type KindCompatibilityResult struct {
	Compatibility KindCompatibility
	Reason        string
}

// ScoreKindCompatibility determines how a source value kind fits a target
// property kind under the allowed conversion categories.
func ScoreKindCompatibility(source, target primitive.KindEnum, allowed primitive.CategoryEnum) KindCompatibilityResult {
	if !source.IsValid() || !target.IsValid() {
		return KindCompatibilityResult{
			Compatibility: KindUnknown,
			Reason:        "no scalar kind on one side",
		}
	}

	if source == target {
		return KindCompatibilityResult{
			Compatibility: KindIdentical,
			Reason:        "kinds are identical",
		}
	}

	pair := primitive.ConversionPair{From: source, To: target}
	if primitive.Allowed(pair, allowed) {
		return KindCompatibilityResult{
			Compatibility: KindConvertible,
			Reason:        "conversion " + source.String() + " -> " + target.String() + " is allowed",
		}
	}

	return KindCompatibilityResult{
		Compatibility: KindIncompatible,
		Reason:        "no allowed conversion " + source.String() + " -> " + target.String(),
	}
}
