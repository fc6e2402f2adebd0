// Package persist declares the persistence contract the traversal engine
// flushes into.
package persist

import (
	"context"
	"errors"

	"aggregate-mapper/internal/model"
)

// ErrNotFound may be wrapped by persisters that report absence as an error;
// Find itself returns (nil, nil) for absent objects.
var ErrNotFound = errors.New("object not found")

// Finder looks up persistent objects by identity key.
type Finder interface {
	// Find returns the persistent object of type t (or a subtype) under key,
	// or nil when there is none.
	Find(ctx context.Context, t *model.Type, key model.Key) (*model.Object, error)
}

// Writer stores objects.
type Writer interface {
	// Insert persists new objects and assigns generated identifiers.
	Insert(ctx context.Context, objs []*model.Object) error
	// Update persists the current state of known objects.
	Update(ctx context.Context, objs []*model.Object) error
}

// Persister is the full persistence contract.
type Persister interface {
	Finder
	Writer
}

// Tracker knows which objects of a traversal are still transient.
type Tracker interface {
	IsTransient(o *model.Object) bool
	Transient() []*model.Object
	MarkPersistent(o *model.Object)
}

// Cursor is a forward-only scan over flat records.
type Cursor interface {
	// Next returns the next record, or io.EOF once the scan is exhausted.
	Next(ctx context.Context) (model.Record, error)
	Close() error
}
