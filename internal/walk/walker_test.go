package walk_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aggregate-mapper/internal/datastore/memory"
	"aggregate-mapper/internal/diagnostic"
	"aggregate-mapper/internal/model"
	"aggregate-mapper/internal/model/modeltest"
	"aggregate-mapper/internal/walk"
	"aggregate-mapper/options"
	"aggregate-mapper/primitive"
)

// obj builds an input object from name/value pairs.
func obj(t *testing.T, m *model.Model, typeName string, kv ...any) *model.Object {
	t.Helper()

	o := model.NewObject(modeltest.MustType(t, m, typeName))
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}

	return o
}

func ref(t *testing.T, m *model.Model, typeName string, kv ...any) *model.Object {
	t.Helper()

	o := obj(t, m, typeName, kv...)
	o.MarkReference()

	return o
}

func annWithAccount(t *testing.T, m *model.Model) *model.Object {
	c := obj(t, m, "Customer", "email", "ann@example.com", "name", "Ann")
	c.Set("address", obj(t, m, "Address", "city", "Oslo"))
	c.Set("account", obj(t, m, "Account", "login", "ann"))

	return c
}

func orderWithLines(t *testing.T, m *model.Model, number string, lines ...string) *model.Object {
	o := obj(t, m, "Order", "number", number, "status", "new")

	var els []*model.Object
	for i, r := range lines {
		els = append(els, obj(t, m, "OrderLine", "ref", r, "lineNo", i+1, "quantity", 1))
	}
	o.SetElements("lines", els)

	return o
}

func refs(objs []*model.Object) []any {
	res := make([]any, 0, len(objs))
	for _, o := range objs {
		res = append(res, o.Get("ref"))
	}

	return res
}

func TestExecute_MergeCreatesAggregate(t *testing.T) {
	m := modeltest.Shop(t)
	store := memory.New()
	w := walk.New(m, store)

	res, err := w.Execute(context.Background(), options.Default(options.ActionMerge), annWithAccount(t, m))
	require.NoError(t, err)

	out := res.Output()
	require.NotNil(t, out)
	assert.Equal(t, "Ann", out.Get("name"))
	assert.NotNil(t, out.ID())
	assert.Equal(t, "Oslo", out.Ref("address").Get("city"))

	account := out.Ref("account")
	require.NotNil(t, account)
	assert.Same(t, out, account.Ref("customer"))

	assert.Equal(t, 2, res.Stats.Created)
	assert.Equal(t, 2, res.Flush.Inserted)
	assert.Equal(t, 2, store.Len())
}

func TestExecute_IdempotentRevisit(t *testing.T) {
	m := modeltest.Shop(t)
	store := memory.New()
	w := walk.New(m, store)
	s := options.Default(options.ActionMerge)

	_, err := w.Execute(context.Background(), s, annWithAccount(t, m), orderWithLines(t, m, "N-1", "L1", "L2"))
	require.NoError(t, err)

	res, err := w.Execute(context.Background(), s, annWithAccount(t, m), orderWithLines(t, m, "N-1", "L1", "L2"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Stats.Actions)
	assert.Equal(t, 0, res.Stats.Created)
	assert.Equal(t, 5, res.Stats.Found)
	assert.Equal(t, walk.Stats{Roots: 2, Visited: 5, Found: 5}, res.Stats)
	assert.Equal(t, 5, store.Len())
}

func TestExecute_CollectionReplaceAndMerge(t *testing.T) {
	tests := []struct {
		name  string
		merge bool
		want  []any
	}{
		{name: "replace", want: []any{"L2", "L3"}},
		{name: "merge", merge: true, want: []any{"L1", "L2", "L3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := modeltest.Shop(t)
			store := memory.New()
			w := walk.New(m, store)

			_, err := w.Execute(context.Background(), options.Default(options.ActionMerge), orderWithLines(t, m, "N-1", "L1", "L2"))
			require.NoError(t, err)

			next := orderWithLines(t, m, "N-1", "L2", "L3")
			next.Elements("lines")[0].Set("lineNo", 2)
			next.Elements("lines")[1].Set("lineNo", 3)

			s := options.Default(options.ActionMerge)
			s.Merge = tt.merge

			res, err := w.Execute(context.Background(), s, next)
			require.NoError(t, err)

			order := res.Output()
			assert.Equal(t, tt.want, refs(order.Elements("lines")))

			for _, line := range order.Elements("lines") {
				assert.Same(t, order, line.Ref("order"))
			}

			if !tt.merge {
				l1 := store.Objects(modeltest.MustType(t, m, "OrderLine"))[0]
				assert.Equal(t, "L1", l1.Get("ref"))
				assert.Nil(t, l1.Ref("order"))
			}
		})
	}
}

func TestExecute_ReferenceResolvedFromStore(t *testing.T) {
	m := modeltest.Shop(t)
	store := memory.New()
	ann := obj(t, m, "Customer", "email", "ann@example.com", "name", "Ann")
	require.NoError(t, store.Insert(context.Background(), []*model.Object{ann}))

	order := obj(t, m, "Order", "number", "N-2")
	order.Set("customer", ref(t, m, "Customer", "email", "ann@example.com"))

	res, err := walk.New(m, store).Execute(context.Background(), options.Default(options.ActionMerge), order)
	require.NoError(t, err)

	out := res.Output()
	assert.Same(t, ann, out.Ref("customer"))
	assert.Equal(t, []*model.Object{out}, ann.Elements("orders"))
	assert.Equal(t, "Ann", ann.Get("name"))
	assert.Equal(t, 1, res.Stats.Found)
}

func TestExecute_UnresolvedReference(t *testing.T) {
	m := modeltest.Shop(t)
	order := obj(t, m, "Order", "number", "N-9")
	order.Set("customer", ref(t, m, "Customer", "email", "ghost@example.com"))

	_, err := walk.New(m, memory.New()).Execute(context.Background(), options.Default(options.ActionMerge), order)
	require.ErrorIs(t, err, diagnostic.ErrUnresolvedReference)
	assert.Contains(t, err.Error(), "ghost@example.com")
}

func TestExecute_NaturalKeyDedup(t *testing.T) {
	m := modeltest.Shop(t)
	store := memory.New()
	first := obj(t, m, "Customer", "email", "ann@example.com", "name", "Ann")
	second := obj(t, m, "Customer", "email", "ann@example.com", "name", "Annie")

	res, err := walk.New(m, store).Execute(context.Background(), options.Default(options.ActionMerge), first, second)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Duplicates)
	assert.Equal(t, 1, res.Diagnostics.Count(diagnostic.CodeDuplicateDiscarded))
	assert.Same(t, res.Outputs[0], res.Outputs[1])
	assert.Equal(t, "Ann", res.Outputs[0].Get("name"))
	assert.Equal(t, 1, store.Len())

	s := options.Default(options.ActionMerge)
	s.StrictDuplicates = true

	_, err = walk.New(m, memory.New()).Execute(context.Background(), s, first, second)
	require.ErrorIs(t, err, diagnostic.ErrAmbiguousMatch)
}

func TestExecute_ReferenceMergesIntoRoot(t *testing.T) {
	m := modeltest.Shop(t)
	store := memory.New()

	order := obj(t, m, "Order", "number", "N-3")
	order.Set("customer", ref(t, m, "Customer", "email", "bob@example.com"))
	bob := obj(t, m, "Customer", "email", "bob@example.com", "name", "Bob")

	res, err := walk.New(m, store).Execute(context.Background(), options.Default(options.ActionMerge), bob, order)
	require.NoError(t, err)

	assert.Same(t, res.Outputs[0], res.Outputs[1].Ref("customer"))
	assert.Equal(t, 0, res.Stats.Duplicates)
	assert.Equal(t, 2, store.Len())
}

func TestExecute_BestEffortOnlyForMigrate(t *testing.T) {
	m := modeltest.Shop(t)
	input := func() *model.Object {
		return obj(t, m, "Order", "number", "N-4", "status", "new", "total", "abc")
	}

	logger, hook := test.NewNullLogger()
	w := walk.New(m, memory.New(), walk.WithLogger(logger))

	res, err := w.Execute(context.Background(), options.Default(options.ActionMigrate), input())
	require.NoError(t, err)

	out := res.Output()
	assert.Equal(t, "new", out.Get("status"))
	assert.Nil(t, out.Get("total"))
	assert.Equal(t, 1, res.Diagnostics.Count(diagnostic.CodeCopyFailed))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "value not copied" {
			warned = true
		}
	}
	assert.True(t, warned)

	_, err = walk.New(m, memory.New()).Execute(context.Background(), options.Default(options.ActionMerge), input())
	var convErr *primitive.ConversionError
	require.True(t, errors.As(err, &convErr), "got %v", err)
}

func TestExecute_ReadOnlySkipped(t *testing.T) {
	m := modeltest.Shop(t)
	c := obj(t, m, "Customer", "email", "ann@example.com", "createdAt", "2024-01-01T00:00:00Z")

	res, err := walk.New(m, memory.New()).Execute(context.Background(), options.Default(options.ActionMerge), c)
	require.NoError(t, err)

	assert.False(t, res.Output().Has("createdAt"))
	assert.Equal(t, 1, res.Diagnostics.Count(diagnostic.CodeReadOnlySkipped))
}

func TestExecute_Hooks(t *testing.T) {
	m := modeltest.Shop(t)
	hooks := walk.NewHooks()
	var post, tagged []string

	require.NoError(t, hooks.Register(walk.Hook{
		Type:     "Customer",
		Property: "name",
		Stage:    walk.StageUpdate,
		Fn: func(context.Context, *walk.CallFrame, *options.Settings) (bool, error) {
			return true, nil
		},
	}))
	require.NoError(t, hooks.Register(walk.Hook{
		Type:  "Customer",
		Stage: walk.StagePostLogic,
		Phase: walk.PhasePost,
		Fn: func(_ context.Context, f *walk.CallFrame, _ *options.Settings) (bool, error) {
			post = append(post, f.Path())
			return false, nil
		},
	}))
	require.NoError(t, hooks.Register(walk.Hook{
		Type: "Customer",
		Tag:  "audit",
		Fn: func(_ context.Context, f *walk.CallFrame, _ *options.Settings) (bool, error) {
			tagged = append(tagged, f.Path())
			return false, nil
		},
	}))
	assert.Equal(t, 3, hooks.Len())

	s := options.Default(options.ActionMerge)
	s.PostLogic = true

	res, err := walk.New(m, memory.New(), walk.WithHooks(hooks)).Execute(context.Background(), s, annWithAccount(t, m))
	require.NoError(t, err)

	out := res.Output()
	assert.Nil(t, out.Get("name"))
	assert.Equal(t, "ann@example.com", out.Get("email"))
	assert.Equal(t, []string{"Customer"}, post)
	assert.Empty(t, tagged)
}

func TestExecute_HookError(t *testing.T) {
	m := modeltest.Shop(t)
	hooks := walk.NewHooks()
	require.NoError(t, hooks.Register(walk.Hook{
		Type:     "Account",
		Property: "login",
		Fn: func(context.Context, *walk.CallFrame, *options.Settings) (bool, error) {
			return false, errors.New("boom")
		},
	}))

	_, err := walk.New(m, memory.New(), walk.WithHooks(hooks)).
		Execute(context.Background(), options.Default(options.ActionMerge), annWithAccount(t, m))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecute_ReadFollowsRequestedCycle(t *testing.T) {
	m := modeltest.Shop(t)
	c := obj(t, m, "Customer", "email", "ann@example.com", "name", "Ann")
	o := obj(t, m, "Order", "number", "N-1")
	o.Set("customer", c)
	c.SetElements("orders", []*model.Object{o})

	s := options.Default(options.ActionRead)
	s.Associations = []string{"Customer.orders", "Order.customer"}

	res, err := walk.New(m, nil).Execute(context.Background(), s, c)
	require.NoError(t, err)

	out := res.Output()
	require.Len(t, out.Elements("orders"), 1)

	order := out.Elements("orders")[0]
	assert.NotSame(t, o, order)
	assert.Equal(t, "N-1", order.Get("number"))
	assert.Same(t, out, order.Ref("customer"))
	assert.Equal(t, 2, res.Stats.Visited)
}

func TestExecute_ReadPlaceholders(t *testing.T) {
	m := modeltest.Shop(t)
	c := obj(t, m, "Customer", "id", int64(7), "email", "ann@example.com")
	o := obj(t, m, "Order", "id", int64(3), "number", "N-1", "status", "paid")
	c.SetElements("orders", []*model.Object{o})

	res, err := walk.New(m, nil).Execute(context.Background(), options.Default(options.ActionRead), c)
	require.NoError(t, err)

	out := res.Output()
	assert.Equal(t, int64(7), out.ID())

	placeholder := out.Elements("orders")[0]
	assert.True(t, placeholder.IsReference())
	assert.Equal(t, "N-1", placeholder.Get("number"))
	assert.Equal(t, int64(3), placeholder.ID())
	assert.Nil(t, placeholder.Get("status"))
}

func TestExecute_Window(t *testing.T) {
	m := modeltest.Shop(t)
	inputs := []*model.Object{
		obj(t, m, "Customer", "email", "a@example.com"),
		obj(t, m, "Customer", "email", "b@example.com"),
		obj(t, m, "Customer", "email", "c@example.com"),
	}

	s := options.Default(options.ActionRead)
	s.Offset, s.Limit = 1, 1

	res, err := walk.New(m, nil).Execute(context.Background(), s, inputs...)
	require.NoError(t, err)

	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "b@example.com", res.Output().Get("email"))
	assert.Equal(t, 1, res.Stats.Roots)
}

func TestExecute_Clone(t *testing.T) {
	m := modeltest.Shop(t)
	c := obj(t, m, "Customer", "id", int64(7), "email", "ann@example.com", "name", "Ann")
	acc := obj(t, m, "Account", "id", int64(3), "login", "ann")
	acc.Set("customer", c)
	c.Set("account", acc)
	o := obj(t, m, "Order", "id", int64(10), "number", "N-1")
	c.SetElements("orders", []*model.Object{o})

	res, err := walk.New(m, nil).Execute(context.Background(), options.Default(options.ActionClone), c)
	require.NoError(t, err)

	out := res.Output()
	assert.NotSame(t, c, out)
	assert.Nil(t, out.Get("id"))
	assert.Equal(t, "Ann", out.Get("name"))

	account := out.Ref("account")
	require.NotNil(t, account)
	assert.NotSame(t, acc, account)
	assert.Nil(t, account.Get("id"))
	assert.Same(t, out, account.Ref("customer"))

	assert.Equal(t, []*model.Object{o}, out.Elements("orders"))
	assert.Equal(t, 2, res.Stats.Created)
}

func TestExecute_QueryRecords(t *testing.T) {
	m := modeltest.Shop(t)
	c := obj(t, m, "Customer", "id", int64(7), "email", "ann@example.com", "name", "Ann")
	o := obj(t, m, "Order", "id", int64(10), "number", "N-1")
	o.Set("customer", c)
	c.SetElements("orders", []*model.Object{o})

	s := options.Default(options.ActionQuery)
	s.Associations = []string{"Customer.orders"}

	res, err := walk.New(m, nil).Execute(context.Background(), s, c)
	require.NoError(t, err)

	assert.Same(t, c, res.Output())
	assert.ElementsMatch(t, []model.Record{
		{"id": int64(7), "email": "ann@example.com", "name": "Ann"},
		{"id": int64(10), "number": "N-1", "customer": int64(7)},
	}, res.Records)
}

func TestExecute_Load(t *testing.T) {
	m := modeltest.Shop(t)
	store := memory.New()
	ann := obj(t, m, "Customer", "email", "ann@example.com", "name", "Ann")
	require.NoError(t, store.Insert(context.Background(), []*model.Object{ann}))

	res, err := walk.New(m, store).Execute(context.Background(), options.Default(options.ActionLoad),
		ref(t, m, "Customer", "email", "ann@example.com"))
	require.NoError(t, err)

	out := res.Output()
	assert.NotSame(t, ann, out)
	assert.False(t, out.IsReference())
	assert.Equal(t, "Ann", out.Get("name"))
	assert.Equal(t, ann.ID(), out.ID())

	_, err = walk.New(m, store).Execute(context.Background(), options.Default(options.ActionLoad),
		ref(t, m, "Customer", "email", "nobody@example.com"))
	require.Error(t, err)
}

func TestExecute_RequiresPersister(t *testing.T) {
	m := modeltest.Shop(t)

	_, err := walk.New(m, nil).Execute(context.Background(), options.Default(options.ActionMerge), annWithAccount(t, m))
	require.Error(t, err)
}
