package migrate_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aggregate-mapper/internal/datastore/memory"
	"aggregate-mapper/internal/migrate"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/model/modeltest"
	"aggregate-mapper/internal/walk"
)

// seedShop stores one object of every entity type, linked the way a shop
// aggregate is.
func seedShop(t *testing.T, m *model.Model) *memory.Store {
	t.Helper()

	ann := model.NewObject(modeltest.MustType(t, m, "Customer"))
	ann.Set("email", "ann@example.com")
	addr := model.NewObject(modeltest.MustType(t, m, "Address"))
	addr.Set("city", "Oslo")
	ann.Set("address", addr)

	account := model.NewObject(modeltest.MustType(t, m, "Account"))
	account.Set("login", "ann")
	account.Set("customer", ann)
	ann.Set("account", account)

	product := model.NewObject(modeltest.MustType(t, m, "Product"))
	product.Set("sku", "SKU-1")
	product.Set("price", 9.5)

	order := model.NewObject(modeltest.MustType(t, m, "Order"))
	order.Set("number", "N-1")
	order.Set("customer", ann)
	ann.Add("orders", order, -1)

	line := model.NewObject(modeltest.MustType(t, m, "OrderLine"))
	line.Set("ref", "N-1/1")
	line.Set("lineNo", 1)
	line.Set("order", order)
	line.Set("product", product)
	order.Add("lines", line, -1)

	category := model.NewObject(modeltest.MustType(t, m, "Category"))
	category.Set("code", "tools")
	category.Add("products", product, -1)
	product.Add("categories", category, -1)

	payment := model.NewObject(modeltest.MustType(t, m, "CardPayment"))
	payment.Set("reference", "P-1")
	payment.Set("amount", 9.5)
	payment.Set("order", order)

	src := memory.New()
	require.NoError(t, src.Insert(context.Background(),
		[]*model.Object{ann, account, product, order, line, category, payment}))

	return src
}

func TestMigrator_RewritesForeignKeys(t *testing.T) {
	ctx := context.Background()
	m := modeltest.Shop(t)
	src := seedShop(t, m)

	// shifts the identifiers the target generates
	dst := memory.New()
	dummy := model.NewObject(modeltest.MustType(t, m, "Product"))
	dummy.Set("sku", "DUMMY")
	require.NoError(t, dst.Insert(ctx, []*model.Object{dummy}))

	log, hook := test.NewNullLogger()

	cfg := migrate.DefaultConfig()
	cfg.Consumers = 1

	mg, err := migrate.NewMigrator(m, src, migrate.NewGraphTarget(walk.New(m, dst)), cfg, log)
	require.NoError(t, err)

	results, err := mg.Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, 8)

	written := map[string]int{}
	for _, res := range results {
		written[res.Type] = res.Written
	}
	assert.Equal(t, map[string]int{
		"Customer": 1, "Account": 1, "Order": 1, "Product": 1,
		"OrderLine": 1, "Category": 1, "CardPayment": 1, "BankPayment": 0,
	}, written)
	assert.Equal(t, 7, mg.Surrogates().Len())
	assert.Equal(t, 8, dst.Len())

	customers := dst.Objects(modeltest.MustType(t, m, "Customer"))
	require.Len(t, customers, 1)
	ann := customers[0]
	assert.Equal(t, "ann@example.com", ann.Get("email"))
	assert.Equal(t, "Oslo", ann.Ref("address").Get("city"))

	srcAnn := src.Objects(modeltest.MustType(t, m, "Customer"))[0]
	id, ok := mg.Surrogates().Lookup(ann.Type(), srcAnn.ID())
	require.True(t, ok)
	assert.Equal(t, ann.ID(), id)
	assert.NotEqual(t, srcAnn.ID(), ann.ID())

	account := dst.Objects(modeltest.MustType(t, m, "Account"))[0]
	assert.Same(t, ann, account.Ref("customer"))

	order := dst.Objects(modeltest.MustType(t, m, "Order"))[0]
	assert.Same(t, ann, order.Ref("customer"))

	product := dst.Objects(modeltest.MustType(t, m, "Product"))[1]
	assert.Equal(t, "SKU-1", product.Get("sku"))

	line := dst.Objects(modeltest.MustType(t, m, "OrderLine"))[0]
	assert.Same(t, order, line.Ref("order"))
	assert.Same(t, product, line.Ref("product"))

	category := dst.Objects(modeltest.MustType(t, m, "Category"))[0]
	assert.Equal(t, []*model.Object{product}, category.Elements("products"))

	payment := dst.Objects(modeltest.MustType(t, m, "Payment"))[0]
	assert.Equal(t, "CardPayment", payment.Type().Name)
	assert.Same(t, order, payment.Ref("order"))

	assert.NotEmpty(t, hook.AllEntries())
}

func TestMigrator_SelectedTypes(t *testing.T) {
	m := modeltest.Shop(t)

	mg, err := migrate.NewMigrator(m, seedShop(t, m), &countingTarget{}, migrate.DefaultConfig(), nil)
	require.NoError(t, err)

	results, err := mg.Run(context.Background(), "Product", "Customer")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Customer", results[0].Type)
	assert.Equal(t, "Product", results[1].Type)

	_, err = mg.Run(context.Background(), "Nope")
	require.Error(t, err)
}

func TestMigrator_UnmappedReferenceFailsBatch(t *testing.T) {
	m := modeltest.Shop(t)

	mg, err := migrate.NewMigrator(m, seedShop(t, m), &countingTarget{}, migrate.DefaultConfig(), nil)
	require.NoError(t, err)

	// orders reference customers that were never migrated
	results, err := mg.Run(context.Background(), "Order")
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Failed)
	assert.Contains(t, err.Error(), "unmapped surrogate")
}

func TestMigrator_OwnerSideValues(t *testing.T) {
	ctx := context.Background()
	m := modeltest.Board(t)

	tag := func(label string) *model.Object {
		o := model.NewObject(modeltest.MustType(t, m, "Tag"))
		o.Set("label", label)

		return o
	}
	urgent, later := tag("urgent"), tag("later")

	note := model.NewObject(modeltest.MustType(t, m, "Note"))
	note.Set("text", "ship it")
	note.Set("tag", later)

	board := model.NewObject(modeltest.MustType(t, m, "Board"))
	board.Set("title", "sprint")
	board.Add("tags", urgent, -1)
	board.Add("tags", later, -1)
	board.Put("pinned", "top", urgent)
	board.Add("notes", note, -1)

	src := memory.New()
	require.NoError(t, src.Insert(ctx, []*model.Object{urgent, later, board}))

	// shifts the identifiers the target generates
	dst := memory.New()
	require.NoError(t, dst.Insert(ctx, []*model.Object{tag("dummy")}))

	cfg := migrate.DefaultConfig()
	cfg.Consumers = 1

	mg, err := migrate.NewMigrator(m, src, migrate.NewGraphTarget(walk.New(m, dst)), cfg, nil)
	require.NoError(t, err)

	_, err = mg.Run(ctx)
	require.NoError(t, err)

	boards := dst.Objects(modeltest.MustType(t, m, "Board"))
	require.Len(t, boards, 1)
	got := boards[0]

	tags := got.Elements("tags")
	require.Len(t, tags, 2)
	assert.Equal(t, "urgent", tags[0].Get("label"))
	assert.Equal(t, "later", tags[1].Get("label"))
	assert.NotEqual(t, urgent.ID(), tags[0].ID())

	require.Contains(t, got.Entries("pinned"), "top")
	assert.Same(t, tags[0], got.Entries("pinned")["top"])

	notes := got.Elements("notes")
	require.Len(t, notes, 1)
	assert.Equal(t, "ship it", notes[0].Get("text"))
	assert.Same(t, tags[1], notes[0].Ref("tag"))
}
