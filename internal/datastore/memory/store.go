// Package memory is an in-process persister. Objects are stored by identity
// and indexed by every key they have.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"aggregate-mapper/internal/codec"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/persist"
	"aggregate-mapper/primitive"
)

// Store implements persist.Persister. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	seq     int64
	byKey   map[model.Key]*model.Object
	keys    map[*model.Object][]model.Key
	objects []*model.Object
}

var _ persist.Persister = (*Store)(nil)

func New() *Store {
	return &Store{
		byKey: make(map[model.Key]*model.Object),
		keys:  make(map[*model.Object][]model.Key),
	}
}

// Find returns the stored object of type t or a subtype under key.
func (s *Store) Find(_ context.Context, t *model.Type, key model.Key) (*model.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.byKey[key]
	if !ok || !o.Type().IsA(t) {
		return nil, nil
	}

	return o, nil
}

// Insert stores new objects, generating missing identifiers: a sequence
// for integer identifiers and random UUIDs for string and uuid ones.
func (s *Store) Insert(_ context.Context, objs []*model.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range objs {
		if _, ok := s.keys[o]; ok {
			return fmt.Errorf("%s is already stored", o)
		}

		if idp := o.Type().Identifier(); idp != nil && o.ID() == nil {
			id, err := s.generate(idp)
			if err != nil {
				return err
			}
			o.Set(idp.Name, id)
		}

		if err := s.index(o); err != nil {
			return err
		}

		s.objects = append(s.objects, o)
	}

	return nil
}

// Update re-indexes stored objects whose keys may have changed.
func (s *Store) Update(_ context.Context, objs []*model.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range objs {
		if _, ok := s.keys[o]; !ok {
			return fmt.Errorf("update %s: %w", o, persist.ErrNotFound)
		}

		if err := s.index(o); err != nil {
			return err
		}
	}

	return nil
}

// index replaces the keys of o. On a duplicate key the previous keys stay
// in place.
func (s *Store) index(o *model.Object) error {
	keys := model.Keys(o)
	for _, k := range keys {
		if cur, ok := s.byKey[k]; ok && cur != o {
			return fmt.Errorf("duplicate key %s: %s is already stored", k, cur)
		}
	}

	for _, k := range s.keys[o] {
		delete(s.byKey, k)
	}

	for _, k := range keys {
		s.byKey[k] = o
	}
	s.keys[o] = keys

	return nil
}

func (s *Store) generate(idp *model.Property) (any, error) {
	switch idp.Kind {
	case primitive.KindInt:
		s.seq++
		return int(s.seq), nil
	case primitive.KindInt64:
		s.seq++
		return s.seq, nil
	case primitive.KindString:
		return uuid.NewString(), nil
	case primitive.KindUUID:
		return uuid.New(), nil
	default:
		return nil, fmt.Errorf("%s: cannot generate %s identifiers", idp.Path(), idp.Kind)
	}
}

// Objects returns the stored objects of type t or a subtype in insertion order.
func (s *Store) Objects(t *model.Type) []*model.Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []*model.Object
	for _, o := range s.objects {
		if o.Type().IsA(t) {
			res = append(res, o)
		}
	}

	return res
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}

// Scroll returns a cursor over the flat records of the objects of type t
// stored when Scroll is called.
func (s *Store) Scroll(_ context.Context, t *model.Type) (persist.Cursor, error) {
	return &cursor{objects: s.Objects(t)}, nil
}

type cursor struct {
	objects []*model.Object
	pos     int
}

func (c *cursor) Next(ctx context.Context) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.pos >= len(c.objects) {
		return nil, io.EOF
	}

	o := c.objects[c.pos]
	c.pos++

	return codec.Flatten(o), nil
}

func (c *cursor) Close() error {
	c.objects = nil
	return nil
}
