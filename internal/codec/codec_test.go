package codec_test

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aggregate-mapper/internal/codec"
	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/model/modeltest"
	"aggregate-mapper/options"
)

func shopGraph(t *testing.T, m *model.Model) (*model.Object, *model.Object) {
	t.Helper()

	ann := model.NewObject(modeltest.MustType(t, m, "Customer"))
	ann.Set("id", int64(1))
	ann.Set("email", "ann@example.com")

	addr := model.NewObject(modeltest.MustType(t, m, "Address"))
	addr.Set("city", "Riga")
	ann.Set("address", addr)

	order := model.NewObject(modeltest.MustType(t, m, "Order"))
	order.Set("id", int64(7))
	order.Set("number", "N-1")
	order.Set("customer", ann)
	ann.Add("orders", order, -1)

	line := model.NewObject(modeltest.MustType(t, m, "OrderLine"))
	line.Set("ref", "N-1/1")
	line.Set("lineNo", 1)
	line.Set("order", order)
	order.Add("lines", line, -1)

	return ann, order
}

func TestEncoder_CycleBecomesReference(t *testing.T) {
	m := modeltest.Shop(t)
	ann, _ := shopGraph(t, m)

	enc := codec.NewEncoder(func(p *model.Property) bool { return p.Path() == "Customer.orders" })
	recs := enc.Encode(ann)
	require.Len(t, recs, 1, spew.Sdump(recs))

	rec := recs[0]
	assert.Equal(t, "ann@example.com", rec["email"])
	assert.Equal(t, model.Record{"city": "Riga"}, rec["address"])

	orders, ok := rec["orders"].([]model.Record)
	require.True(t, ok, spew.Sdump(rec))
	require.Len(t, orders, 1)

	back, ok := orders[0]["customer"].(model.Record)
	require.True(t, ok)
	assert.True(t, codec.IsReference(back))
	assert.Equal(t, "Customer{ann@example.com}", back[codec.RefField])
	assert.Equal(t, int64(1), back["id"])
	assert.NotContains(t, back, "address")

	lines := orders[0]["lines"].([]model.Record)
	require.Len(t, lines, 1)
	assert.True(t, codec.IsReference(lines[0]["order"].(model.Record)))
}

func TestEncoder_UnfollowedAssociationIsReference(t *testing.T) {
	m := modeltest.Shop(t)
	_, order := shopGraph(t, m)

	rec := codec.NewEncoder(nil).Encode(order)[0]
	customer := rec["customer"].(model.Record)

	assert.Equal(t, "Customer{ann@example.com}", customer[codec.RefField])
	assert.NotContains(t, customer, "orders")
}

func TestDecoder_FuzzyKeys(t *testing.T) {
	m := modeltest.Shop(t)
	recs, err := codec.ParseJSON([]byte(`{
		"Email": "ann@example.com",
		"full_name": "Ann",
		"address": {"city": "Riga"},
		"orders": [{"number": "N-1", "lines": [{"ref": "N-1/1", "line_no": 2}]}]
	}`))
	require.NoError(t, err)

	var diags diagnostic.Diagnostics
	dec := codec.NewDecoder(m, options.Default(options.ActionToDomain), nil, &diags)

	ann, err := dec.Decode(modeltest.MustType(t, m, "Customer"), recs[0])
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", ann.Get("email"))
	assert.Equal(t, "Riga", ann.Ref("address").Get("city"))
	assert.False(t, ann.IsReference())
	assert.Equal(t, 1, diags.Count(diagnostic.CodeUnknownKey), "full_name is too far from name")

	orders := ann.Elements("orders")
	require.Len(t, orders, 1)
	assert.True(t, orders[0].IsReference(), "orders are not cascaded from customers")

	lines := orders[0].Elements("lines")
	require.Len(t, lines, 1)
	assert.False(t, lines[0].IsReference())
	assert.Equal(t, 2, lines[0].Get("lineNo"))
}

func TestDecoder_Errors(t *testing.T) {
	m := modeltest.Shop(t)

	tests := []struct {
		name     string
		typeName string
		strict   bool
		json     string
		target   error
	}{
		{"two keys for one property", "OrderLine", false, `{"line_no": 1, "lineno": 2}`, diagnostic.ErrAmbiguousMatch},
		{"unknown key when strict", "Customer", true, `{"email": "a@b", "nickname": "x"}`, diagnostic.ErrPropertyNotFound},
		{"payment without distinguishing keys", "Payment", false, `{"reference": "P-1", "amount": 3}`, diagnostic.ErrMultipleClassForProperty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := codec.ParseJSON([]byte(tt.json))
			require.NoError(t, err)

			s := options.Default(options.ActionToDomain)
			s.StrictKeys = tt.strict

			_, err = codec.NewDecoder(m, s, nil, nil).Decode(modeltest.MustType(t, m, tt.typeName), recs[0])
			require.ErrorIs(t, err, tt.target)
		})
	}
}

func TestDecoder_NarrowsPayment(t *testing.T) {
	m := modeltest.Shop(t)
	payment := modeltest.MustType(t, m, "Payment")
	dec := codec.NewDecoder(m, options.Default(options.ActionToDomain), nil, nil)

	bank, err := dec.Decode(payment, model.Record{"reference": "P-1", "iban": "LV00"})
	require.NoError(t, err)
	assert.Equal(t, "BankPayment", bank.Type().Name)

	card, err := dec.Decode(payment, model.Record{model.TypeField: "CardPayment", "reference": "P-2"})
	require.NoError(t, err)
	assert.Equal(t, "CardPayment", card.Type().Name)
}

func TestDecoder_RoundTrip(t *testing.T) {
	m := modeltest.Shop(t)
	ann, _ := shopGraph(t, m)

	recs := codec.NewEncoder(func(p *model.Property) bool { return p.Path() == "Customer.orders" }).Encode(ann)

	var buf bytes.Buffer
	require.NoError(t, codec.WriteJSON(&buf, recs))

	back, err := codec.ReadJSON(&buf)
	require.NoError(t, err)

	decoded, err := codec.NewDecoder(m, options.Default(options.ActionToDomain), nil, nil).
		Decode(modeltest.MustType(t, m, "Customer"), back[0])
	require.NoError(t, err)

	assert.Equal(t, int64(1), decoded.ID())
	orders := decoded.Elements("orders")
	require.Len(t, orders, 1)
	assert.Equal(t, "N-1", orders[0].Get("number"))
	assert.True(t, orders[0].Ref("customer").IsReference())
	assert.Equal(t, "ann@example.com", orders[0].Ref("customer").Get("email"))
}

func TestFlatten(t *testing.T) {
	m := modeltest.Shop(t)
	ann, order := shopGraph(t, m)

	assert.Equal(t, model.Record{
		"id":           int64(1),
		"email":        "ann@example.com",
		"address.city": "Riga",
	}, codec.Flatten(ann))

	assert.Equal(t, model.Record{
		"id":       int64(7),
		"number":   "N-1",
		"customer": int64(1),
	}, codec.Flatten(order))
}

func TestUnflatten(t *testing.T) {
	m := modeltest.Shop(t)

	order, err := codec.Unflatten(m, modeltest.MustType(t, m, "Order"), model.Record{
		"number":        "N-1",
		"customer":      int64(1),
		"$surrogate_id": int64(99),
	}, options.Default(options.ActionMigrate).Conversions)
	require.NoError(t, err)

	assert.Equal(t, "N-1", order.Get("number"))
	assert.Nil(t, order.ID())

	customer := order.Ref("customer")
	require.NotNil(t, customer)
	assert.True(t, customer.IsReference())
	assert.Equal(t, int64(1), customer.ID())

	ann, err := codec.Unflatten(m, modeltest.MustType(t, m, "Customer"), model.Record{
		"email": "ann@example.com", "address.city": "Riga",
	}, options.Default(options.ActionMigrate).Conversions)
	require.NoError(t, err)
	assert.Equal(t, "Riga", ann.Ref("address").Get("city"))

	_, err = codec.Unflatten(m, modeltest.MustType(t, m, "Order"), model.Record{"nope": 1}, 0)
	require.ErrorIs(t, err, diagnostic.ErrPropertyNotFound)
}

func boardGraph(t *testing.T, m *model.Model) *model.Object {
	t.Helper()

	tag := func(id int64, label string) *model.Object {
		o := model.NewObject(modeltest.MustType(t, m, "Tag"))
		o.Set("id", id)
		o.Set("label", label)

		return o
	}
	urgent, later := tag(1, "urgent"), tag(2, "later")

	note := func(text string, tag *model.Object) *model.Object {
		o := model.NewObject(modeltest.MustType(t, m, "Note"))
		o.Set("text", text)
		o.Set("tag", tag)

		return o
	}

	board := model.NewObject(modeltest.MustType(t, m, "Board"))
	board.Set("id", int64(10))
	board.Set("title", "sprint")
	board.Add("tags", urgent, -1)
	board.Add("tags", later, -1)
	board.Put("pinned", "top", urgent)
	board.Add("notes", note("ship it", later), -1)
	board.Put("drafts", "d1", note("maybe", nil))

	return board
}

func TestFlatten_OwnerSideValues(t *testing.T) {
	m := modeltest.Board(t)

	assert.Equal(t, model.Record{
		"id":     int64(10),
		"title":  "sprint",
		"tags":   []any{int64(1), int64(2)},
		"pinned": model.Record{"top": int64(1)},
		"notes":  []any{model.Record{"text": "ship it", "tag": int64(2)}},
		"drafts": model.Record{"d1": model.Record{"text": "maybe"}},
	}, codec.Flatten(boardGraph(t, m)))
}

func TestUnflatten_OwnerSideValues(t *testing.T) {
	m := modeltest.Board(t)

	// nested values as a JSON or msgpack decoder returns them
	board, err := codec.Unflatten(m, modeltest.MustType(t, m, "Board"), model.Record{
		"title":  "sprint",
		"tags":   []any{int64(1), int64(2)},
		"pinned": map[string]any{"top": int64(1)},
		"notes":  []any{map[string]any{"text": "ship it", "tag": int64(2)}},
		"drafts": map[string]any{"d1": map[string]any{"text": "maybe"}},
	}, options.Default(options.ActionMigrate).Conversions)
	require.NoError(t, err, spew.Sdump(board))

	tags := board.Elements("tags")
	require.Len(t, tags, 2)
	assert.True(t, tags[0].IsReference())
	assert.Equal(t, int64(1), tags[0].ID())
	assert.Equal(t, int64(2), tags[1].ID())

	pinned := board.Entries("pinned")
	require.Contains(t, pinned, "top")
	assert.Equal(t, int64(1), pinned["top"].ID())

	notes := board.Elements("notes")
	require.Len(t, notes, 1)
	assert.False(t, notes[0].IsReference())
	assert.Equal(t, "ship it", notes[0].Get("text"))
	assert.Equal(t, int64(2), notes[0].Ref("tag").ID())

	drafts := board.Entries("drafts")
	require.Contains(t, drafts, "d1")
	assert.Equal(t, "maybe", drafts["d1"].Get("text"))
	assert.Nil(t, drafts["d1"].Ref("tag"))

	_, err = codec.Unflatten(m, modeltest.MustType(t, m, "Board"), model.Record{
		"notes": []any{int64(5)},
	}, 0)
	assert.ErrorContains(t, err, "expected an element record")
}

func TestFlatten_RoundTrip(t *testing.T) {
	m := modeltest.Board(t)
	rec := codec.Flatten(boardGraph(t, m))

	board, err := codec.Unflatten(m, modeltest.MustType(t, m, "Board"), rec, options.Default(options.ActionMigrate).Conversions)
	require.NoError(t, err)

	// placeholders carry only identifiers, so the second pass matches the first
	assert.Equal(t, rec, codec.Flatten(board))
}

func TestReadJSON(t *testing.T) {
	recs, err := codec.ParseJSON([]byte(`[{"a": 1, "b": 1.5, "c": [{"d": 2}]}]`))
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, int64(1), recs[0]["a"])
	assert.Equal(t, 1.5, recs[0]["b"])
	assert.Equal(t, []any{model.Record{"d": int64(2)}}, recs[0]["c"])

	_, err = codec.ParseJSON([]byte(`[1]`))
	assert.Error(t, err)
}
