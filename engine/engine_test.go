package engine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aggregate-mapper/engine"
	"aggregate-mapper/internal/codec"
	"aggregate-mapper/internal/datastore/memory"
	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/model/modeltest"
	"aggregate-mapper/options"
)

const annJSON = `{
  "email": "ann@example.com",
  "name": "Ann",
  "address": {"city": "Oslo"},
  "account": {"login": "ann"},
  "zzzzzz": true
}`

func TestEngine_ToDomainThenToExternal(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	e, err := engine.New(modeltest.Shop(t), store)
	require.NoError(t, err)

	recs, err := codec.ReadJSON(strings.NewReader(annJSON))
	require.NoError(t, err)

	res, err := e.Execute(ctx, options.Default(options.ActionToDomain), engine.Records{Type: "Customer", Items: recs})
	require.NoError(t, err)

	ann := res.Output()
	require.NotNil(t, ann)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, "Ann", ann.Get("name"))
	assert.Equal(t, "ann", ann.Ref("account").Get("login"))
	assert.Same(t, ann, ann.Ref("account").Ref("customer"))
	assert.Equal(t, 1, res.Diagnostics.Count(diagnostic.CodeUnknownKey))

	out, err := e.Execute(ctx, options.Default(options.ActionToExternal), ann)
	require.NoError(t, err)
	require.Len(t, out.Records, 1, spew.Sdump(out.Records))

	rec := out.Records[0]
	assert.Equal(t, "ann@example.com", rec["email"])
	assert.Equal(t, model.Record{"city": "Oslo"}, rec["address"])

	account, ok := rec["account"].(model.Record)
	require.True(t, ok, spew.Sdump(rec))
	assert.Equal(t, "ann", account["login"])
}

func TestEngine_TypedRecord(t *testing.T) {
	store := memory.New()

	e, err := engine.New(modeltest.Shop(t), store)
	require.NoError(t, err)

	res, err := e.Execute(context.Background(), options.Default(options.ActionCreate),
		model.Record{model.TypeField: "CardPayment", "reference": "P-1", "amount": 12.5})
	require.NoError(t, err)

	assert.Equal(t, "CardPayment", res.Output().Type().Name)
	assert.Equal(t, 12.5, res.Output().Get("amount"))
	assert.NotNil(t, res.Output().ID())
}

func TestEngine_BulkObjects(t *testing.T) {
	m := modeltest.Shop(t)
	store := memory.New()

	e, err := engine.New(m, store)
	require.NoError(t, err)

	var objs []*model.Object
	for _, sku := range []string{"A", "B", "A"} {
		p := model.NewObject(modeltest.MustType(t, m, "Product"))
		p.Set("sku", sku)
		objs = append(objs, p)
	}

	res, err := e.Execute(context.Background(), options.Default(options.ActionMerge), objs)
	require.NoError(t, err)

	assert.Len(t, res.Outputs, 3)
	assert.Same(t, res.Outputs[0], res.Outputs[2])
	assert.Equal(t, 2, store.Len())
}

func TestEngine_InvalidInput(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	e, err := engine.New(modeltest.Shop(t), memory.New(), engine.WithLogger(log))
	require.NoError(t, err)

	ctx := context.Background()
	s := options.Default(options.ActionToDomain)

	_, err = e.Execute(ctx, s, model.Record{"email": "x@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no type given")

	_, err = e.Execute(ctx, s, engine.Records{Type: "Nope", Items: []model.Record{{}}})
	require.Error(t, err)

	_, err = e.Execute(ctx, s, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input int")

	assert.Empty(t, hook.AllEntries())
}
