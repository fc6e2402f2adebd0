package boltdb_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aggregate-mapper/internal/datastore/boltdb"
	"aggregate-mapper/internal/datastore/memory"
	"aggregate-mapper/internal/migrate"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/model/modeltest"
	"aggregate-mapper/internal/persist"
	"aggregate-mapper/internal/walk"
)

func open(t *testing.T, opts ...boltdb.Option) *boltdb.Store {
	t.Helper()

	s, err := boltdb.Open(filepath.Join(t.TempDir(), "records.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func drain(t *testing.T, c persist.Cursor) []model.Record {
	t.Helper()

	var res []model.Record
	for {
		rec, err := c.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return res
		}
		require.NoError(t, err)

		res = append(res, rec)
	}
}

func TestStore_CreateAndScroll(t *testing.T) {
	ctx := context.Background()
	m := modeltest.Shop(t)
	customer := modeltest.MustType(t, m, "Customer")

	s := open(t, boltdb.WithPageSize(2))

	ids, err := s.CreateBatch(ctx, customer, []model.Record{
		{"email": "a@example.com", "address.city": "Oslo"},
		{"email": "b@example.com"},
		{"email": "c@example.com", migrate.SurrogateField: int64(9)},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, ids)

	ids, err = s.CreateBatch(ctx, customer, []model.Record{{"email": "d@example.com"}, {"email": "e@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(4), int64(5)}, ids)

	n, err := s.Count(customer)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	cur, err := s.Scroll(ctx, customer)
	require.NoError(t, err)
	defer cur.Close()

	recs := drain(t, cur)
	require.Len(t, recs, 5)

	assert.Equal(t, model.Record{"id": int64(1), "email": "a@example.com", "address.city": "Oslo"}, recs[0])
	assert.Equal(t, int64(9), recs[2][migrate.SurrogateField])
	assert.Equal(t, "e@example.com", recs[4]["email"])
}

func TestStore_HierarchySharesSequence(t *testing.T) {
	ctx := context.Background()
	m := modeltest.Shop(t)
	card := modeltest.MustType(t, m, "CardPayment")
	bank := modeltest.MustType(t, m, "BankPayment")

	s := open(t)

	ids, err := s.CreateBatch(ctx, card, []model.Record{{"reference": "P-1"}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, ids)

	ids, err = s.CreateBatch(ctx, bank, []model.Record{{"reference": "P-2"}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2)}, ids)

	cur, err := s.Scroll(ctx, bank)
	require.NoError(t, err)

	recs := drain(t, cur)
	require.Len(t, recs, 1)
	assert.Equal(t, "BankPayment", recs[0][model.TypeField])

	_, err = s.CreateBatch(ctx, modeltest.MustType(t, m, "Payment"), []model.Record{{"reference": "P-3"}})
	require.Error(t, err)
}

func TestStore_EmptyType(t *testing.T) {
	m := modeltest.Shop(t)

	cur, err := open(t).Scroll(context.Background(), modeltest.MustType(t, m, "Order"))
	require.NoError(t, err)
	assert.Empty(t, drain(t, cur))
}

// The memory store is exported into bolt and imported back through the
// walker; identifiers change on every hop and references follow them.
func TestStore_MigrationRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := modeltest.Shop(t)
	customer := modeltest.MustType(t, m, "Customer")
	order := modeltest.MustType(t, m, "Order")

	src := memory.New()
	ann := model.NewObject(customer)
	ann.Set("email", "ann@example.com")
	bob := model.NewObject(customer)
	bob.Set("email", "bob@example.com")
	n1 := model.NewObject(order)
	n1.Set("number", "N-1")
	n1.Set("customer", bob)
	require.NoError(t, src.Insert(ctx, []*model.Object{ann, bob, n1}))

	cfg := migrate.DefaultConfig()
	cfg.Consumers = 1

	bolt := open(t, boltdb.WithPageSize(1))
	out, err := migrate.NewMigrator(m, src, bolt, cfg, nil)
	require.NoError(t, err)
	_, err = out.Run(ctx, "Customer", "Order")
	require.NoError(t, err)

	cur, err := bolt.Scroll(ctx, order)
	require.NoError(t, err)
	recs := drain(t, cur)
	require.Len(t, recs, 1)
	// bob was the second customer written to bolt
	assert.Equal(t, int64(2), recs[0]["customer"])
	assert.Equal(t, int64(3), recs[0][migrate.SurrogateField])

	dst := memory.New()
	in, err := migrate.NewMigrator(m, bolt, migrate.NewGraphTarget(walk.New(m, dst)), cfg, nil)
	require.NoError(t, err)
	_, err = in.Run(ctx, "Customer", "Order")
	require.NoError(t, err)

	orders := dst.Objects(order)
	require.Len(t, orders, 1)
	assert.Equal(t, "N-1", orders[0].Get("number"))
	assert.Equal(t, "bob@example.com", orders[0].Ref("customer").Get("email"))
}
