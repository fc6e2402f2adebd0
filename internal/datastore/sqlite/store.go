// Package sqlite keeps flat records in one SQLite table through gorm. Row
// ids are the generated identifiers, shared by all types.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"aggregate-mapper/internal/codec"
	"aggregate-mapper/internal/migrate"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/persist"
	"aggregate-mapper/primitive"
)

const defaultPageSize = 500

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
}

// Store serves migrations from and into the records table.
type Store struct {
	db       *gorm.DB
	pageSize int
	log      logrus.FieldLogger
}

func NewStore(db *gorm.DB, log logrus.FieldLogger) *Store {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Store{db: db, pageSize: defaultPageSize, log: log}
}

// OpenStore opens the database at path and applies the migrations.
func OpenStore(ctx context.Context, path string, log logrus.FieldLogger) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrate %q: %w", path, err)
	}

	return NewStore(db, log), nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// CreateBatch inserts recs as rows of t in one transaction. A missing
// integer identifier is the row id; a missing string one is a random UUID.
func (s *Store) CreateBatch(ctx context.Context, t *model.Type, recs []model.Record) ([]any, error) {
	if t.Abstract {
		return nil, fmt.Errorf("cannot store records of abstract type %s", t.Name)
	}

	idp := t.Identifier()
	rows := make([]RecordModel, len(recs))
	fromRow := make([]bool, len(recs))

	for i, rec := range recs {
		if idp != nil && rec[idp.Name] == nil && idp.Generated {
			switch idp.Kind {
			case primitive.KindString, primitive.KindUUID:
				rec[idp.Name] = uuid.NewString()
			case primitive.KindInt, primitive.KindInt64:
				fromRow[i] = true
			default:
				return nil, fmt.Errorf("%s: cannot generate %s identifiers", idp.Path(), idp.Kind)
			}
		}

		if t != t.Root() {
			rec[model.TypeField] = t.Name
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode %s record %d: %w", t.Name, i, err)
		}

		rows[i] = RecordModel{Type: t.Name, Root: t.Root().Name, Data: string(data)}
		if sid, ok := rec[migrate.SurrogateField]; ok && sid != nil {
			rows[i].SurrogateID = sql.NullString{String: primitive.Format(sid), Valid: true}
		}
	}

	if len(rows) > 0 {
		if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
			return nil, fmt.Errorf("insert %d %s records: %w", len(rows), t.Name, err)
		}
	}

	ids := make([]any, len(recs))
	for i, rec := range recs {
		switch {
		case fromRow[i]:
			ids[i] = rowID(idp, rows[i].ID)
			rec[idp.Name] = ids[i]
		case idp != nil:
			ids[i] = rec[idp.Name]
		}
	}

	s.log.WithField("type", t.Name).WithField("count", len(recs)).Debug("records stored")

	return ids, nil
}

func rowID(idp *model.Property, id int64) any {
	if idp.Kind == primitive.KindInt {
		return int(id)
	}

	return id
}

// FindBySurrogate returns the identifier of the row of t's hierarchy that was
// migrated from the given source identifier.
func (s *Store) FindBySurrogate(ctx context.Context, t *model.Type, source any) (any, bool, error) {
	var row RecordModel

	res := s.db.WithContext(ctx).
		Where("root = ? AND surrogate_id = ?", t.Root().Name, primitive.Format(source)).
		Order("id").
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}

	if res.RowsAffected == 0 {
		return nil, false, nil
	}

	rec, err := s.decode(t, row)
	if err != nil {
		return nil, false, err
	}

	idp := t.Identifier()
	if idp == nil {
		return nil, false, nil
	}

	return rec[idp.Name], true, nil
}

// Count returns the number of rows of t.
func (s *Store) Count(ctx context.Context, t *model.Type) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&RecordModel{}).Where("type = ?", t.Name).Count(&n).Error

	return n, err
}

// Scroll returns a cursor over the rows of t in id order, read page by page.
func (s *Store) Scroll(_ context.Context, t *model.Type) (persist.Cursor, error) {
	return &cursor{store: s, typ: t}, nil
}

func (s *Store) decode(t *model.Type, row RecordModel) (model.Record, error) {
	recs, err := codec.ParseJSON([]byte(row.Data))
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", row.ID, err)
	}

	rec := recs[0]
	if idp := t.Identifier(); idp != nil && rec[idp.Name] == nil {
		rec[idp.Name] = rowID(idp, row.ID)
	}

	return rec, nil
}

type cursor struct {
	store *Store
	typ   *model.Type
	after int64
	page  []RecordModel
	done  bool
}

func (c *cursor) Next(ctx context.Context) (model.Record, error) {
	if len(c.page) == 0 && !c.done {
		err := c.store.db.WithContext(ctx).
			Where("type = ? AND id > ?", c.typ.Name, c.after).
			Order("id").
			Limit(c.store.pageSize).
			Find(&c.page).Error
		if err != nil {
			return nil, fmt.Errorf("scroll %s: %w", c.typ.Name, err)
		}

		if len(c.page) < c.store.pageSize {
			c.done = true
		}
	}

	if len(c.page) == 0 {
		return nil, io.EOF
	}

	row := c.page[0]
	c.page = c.page[1:]
	c.after = row.ID

	return c.store.decode(c.typ, row)
}

func (c *cursor) Close() error {
	c.page = nil
	c.done = true

	return nil
}
