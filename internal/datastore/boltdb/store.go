// Package boltdb keeps flat records in a bbolt file, one bucket per
// concrete type, values encoded with msgpack. It serves as migration source
// and target.
package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"

	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/persist"
	"aggregate-mapper/primitive"
)

const (
	recordsBucket   = "records"
	sequencesBucket = "sequences"

	defaultPageSize = 256
)

// Store is a record store backed by one bbolt file.
type Store struct {
	db       *bolt.DB
	pageSize int
	log      logrus.FieldLogger
}

type Option func(*Store)

// WithPageSize sets how many records a cursor reads per read transaction.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// Open opens or creates the store at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{recordsBucket, sequencesBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateBatch stores recs as records of t in one transaction. Missing
// generated identifiers are assigned from a sequence shared by the type
// hierarchy; the identifiers are returned in batch order.
func (s *Store) CreateBatch(_ context.Context, t *model.Type, recs []model.Record) ([]any, error) {
	if t.Abstract {
		return nil, fmt.Errorf("cannot store records of abstract type %s", t.Name)
	}

	ids := make([]any, len(recs))
	idp := t.Identifier()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(recordsBucket)).CreateBucketIfNotExists([]byte(t.Name))
		if err != nil {
			return err
		}

		seqs := tx.Bucket([]byte(sequencesBucket))

		for i, rec := range recs {
			if idp != nil {
				if rec[idp.Name] == nil && idp.Generated {
					id, err := generate(seqs, t.Root(), idp)
					if err != nil {
						return err
					}
					rec[idp.Name] = id
				}

				ids[i] = rec[idp.Name]
			}

			if t != t.Root() {
				rec[model.TypeField] = t.Name
			}

			data, err := msgpack.Marshal(map[string]any(rec))
			if err != nil {
				return fmt.Errorf("encode %s record %d: %w", t.Name, i, err)
			}

			pos, err := b.NextSequence()
			if err != nil {
				return err
			}

			if err := b.Put(itob(pos), data); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store %d %s records: %w", len(recs), t.Name, err)
	}

	s.log.WithField("type", t.Name).WithField("count", len(recs)).Debug("records stored")

	return ids, nil
}

func generate(seqs *bolt.Bucket, root *model.Type, idp *model.Property) (any, error) {
	switch idp.Kind {
	case primitive.KindString, primitive.KindUUID:
		return uuid.NewString(), nil
	}

	b, err := seqs.CreateBucketIfNotExists([]byte(root.Name))
	if err != nil {
		return nil, err
	}

	n, err := b.NextSequence()
	if err != nil {
		return nil, err
	}

	switch idp.Kind {
	case primitive.KindInt:
		return int(n), nil
	case primitive.KindInt64:
		return int64(n), nil
	default:
		return nil, fmt.Errorf("%s: cannot generate %s identifiers", idp.Path(), idp.Kind)
	}
}

// Count returns the number of records of t.
func (s *Store) Count(t *model.Type) (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(recordsBucket)).Bucket([]byte(t.Name)); b != nil {
			n = b.Stats().KeyN
		}

		return nil
	})

	return n, err
}

// Scroll returns a cursor over the records of t in insertion order. Each
// page of records is read in its own transaction.
func (s *Store) Scroll(_ context.Context, t *model.Type) (persist.Cursor, error) {
	return &cursor{store: s, typ: t}, nil
}

type cursor struct {
	store *Store
	typ   *model.Type
	after []byte
	page  []model.Record
	done  bool
}

func (c *cursor) Next(ctx context.Context) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(c.page) == 0 && !c.done {
		if err := c.fill(); err != nil {
			return nil, err
		}
	}

	if len(c.page) == 0 {
		return nil, io.EOF
	}

	rec := c.page[0]
	c.page = c.page[1:]

	return rec, nil
}

func (c *cursor) fill() error {
	return c.store.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(recordsBucket)).Bucket([]byte(c.typ.Name))
		if b == nil {
			c.done = true
			return nil
		}

		bc := b.Cursor()

		k, v := bc.First()
		if c.after != nil {
			k, v = bc.Seek(c.after)
			if k != nil && bytes.Equal(k, c.after) {
				k, v = bc.Next()
			}
		}

		for ; k != nil && len(c.page) < c.store.pageSize; k, v = bc.Next() {
			rec, err := decode(v)
			if err != nil {
				return fmt.Errorf("decode %s record %d: %w", c.typ.Name, binary.BigEndian.Uint64(k), err)
			}

			c.page = append(c.page, rec)
			c.after = append(c.after[:0], k...)
		}

		if k == nil {
			c.done = true
		}

		return nil
	})
}

func (c *cursor) Close() error {
	c.page = nil
	c.done = true

	return nil
}

func decode(data []byte) (model.Record, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}

	return model.Record(rec), nil
}

func itob(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)

	return b
}
