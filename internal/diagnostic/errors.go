package diagnostic

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAmbiguousMatch           = errors.New("ambiguous match")
	ErrBidirOutOfSync           = errors.New("bidirectional association out of sync")
	ErrMultipleClassForProperty = errors.New("multiple classes for property")
	ErrPropertyNotFound         = errors.New("property not found")
	ErrUnmappedSurrogate        = errors.New("unmapped surrogate id")
	ErrUnresolvedReference      = errors.New("unresolved reference")
)

// AmbiguousMatchError is returned when two distinct paths resolve to
// conflicting property mappings.
type AmbiguousMatchError struct {
	Type       string
	Path       string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%s.%s: %v between %s", e.Type, e.Path, ErrAmbiguousMatch, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousMatchError) Unwrap() error { return ErrAmbiguousMatch }

// BidirOutOfSyncError reports both endpoints of an association whose forward
// and opposite sides disagree.
type BidirOutOfSyncError struct {
	Owner    string // identity of the object holding the forward property
	Property string
	Target   string // identity of the object the forward property points to
	Opposite string
	Found    string // what the opposite side holds instead
}

func (e *BidirOutOfSyncError) Error() string {
	return fmt.Sprintf("%v: %s.%s -> %s but %s.%s holds %s",
		ErrBidirOutOfSync, e.Owner, e.Property, e.Target, e.Target, e.Opposite, e.Found)
}

func (e *BidirOutOfSyncError) Unwrap() error { return ErrBidirOutOfSync }

// MultipleClassError is returned when a polymorphic property cannot be
// narrowed to one concrete type.
type MultipleClassError struct {
	Type       string
	Property   string
	Candidates []string
}

func (e *MultipleClassError) Error() string {
	return fmt.Sprintf("%s.%s: %v (%s); register a narrowing strategy",
		e.Type, e.Property, ErrMultipleClassForProperty, strings.Join(e.Candidates, ", "))
}

func (e *MultipleClassError) Unwrap() error { return ErrMultipleClassForProperty }

// PropertyNotFoundError is returned when a property does not exist on the resolved type.
type PropertyNotFoundError struct {
	Type        string
	Property    string
	Suggestions []string
}

func (e *PropertyNotFoundError) Error() string {
	msg := fmt.Sprintf("%s.%s: %v", e.Type, e.Property, ErrPropertyNotFound)
	if len(e.Suggestions) > 0 {
		msg += " (did you mean " + strings.Join(e.Suggestions, ", ") + "?)"
	}

	return msg
}

func (e *PropertyNotFoundError) Unwrap() error { return ErrPropertyNotFound }

// UnmappedSurrogateError is returned when a foreign key references a source
// identifier that has not been migrated yet.
type UnmappedSurrogateError struct {
	Type     string
	Property string
	SourceID any
}

func (e *UnmappedSurrogateError) Error() string {
	return fmt.Sprintf("%s.%s: %v for source id %v", e.Type, e.Property, ErrUnmappedSurrogate, e.SourceID)
}

func (e *UnmappedSurrogateError) Unwrap() error { return ErrUnmappedSurrogate }
