package action_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aggregate-mapper/internal/action"
	"aggregate-mapper/internal/diagnostic"
)

func TestSetReference_ManyToOneMovesElement(t *testing.T) {
	f := newFixture(t, false)
	ann := f.persistent(t, "Customer", "ann@example.com", 1)
	bob := f.persistent(t, "Customer", "bob@example.com", 2)
	order := f.persistent(t, "Order", "N-1", 3)
	order.Set("customer", ann)
	ann.Add("orders", order, action.Append)

	f.queue.SetReference(order, f.prop(t, "Order", "customer"), bob)
	f.flush(t)

	assert.Same(t, bob, order.Ref("customer"))
	assert.Empty(t, ann.Elements("orders"))
	assert.Equal(t, 1, len(bob.Elements("orders")))
}

func TestSetReference_OneToOneStealsTarget(t *testing.T) {
	f := newFixture(t, false)
	ann := f.persistent(t, "Customer", "ann@example.com", 1)
	bob := f.persistent(t, "Customer", "bob@example.com", 2)
	acc := f.persistent(t, "Account", "ann", 3)
	ann.Set("account", acc)
	acc.Set("customer", ann)

	f.queue.SetReference(bob, f.prop(t, "Customer", "account"), acc)
	f.flush(t)

	assert.Same(t, acc, bob.Ref("account"))
	assert.Same(t, bob, acc.Ref("customer"))
	assert.Nil(t, ann.Ref("account"))
}

func TestSetReference_SupersedeCancelsOppositeSide(t *testing.T) {
	f := newFixture(t, false)
	ann := f.persistent(t, "Customer", "ann@example.com", 1)
	bob := f.persistent(t, "Customer", "bob@example.com", 2)
	order := f.persistent(t, "Order", "N-1", 3)
	customer := f.prop(t, "Order", "customer")

	f.queue.SetReference(order, customer, ann)
	f.queue.SetReference(order, customer, bob)
	assert.Equal(t, 2, f.queue.Len(), "the link into ann.orders is cancelled")

	f.flush(t)
	assert.Empty(t, ann.Elements("orders"))
	assert.Equal(t, 1, len(bob.Elements("orders")))
}

func TestCheckBidirectional_OneToOneConflict(t *testing.T) {
	f := newFixture(t, false)
	ann := f.persistent(t, "Customer", "ann@example.com", 1)
	bob := f.persistent(t, "Customer", "bob@example.com", 2)
	acc := f.persistent(t, "Account", "shared", 3)
	account := f.prop(t, "Customer", "account")

	f.queue.SetReference(ann, account, acc)
	f.queue.SetReference(bob, account, acc)

	_, err := f.queue.Flush(context.Background(), f.w, f.arena)
	require.ErrorIs(t, err, diagnostic.ErrBidirOutOfSync)

	var bidir *diagnostic.BidirOutOfSyncError
	require.True(t, errors.As(err, &bidir))
	assert.Equal(t, "customer", bidir.Opposite)
	assert.Nil(t, ann.Ref("account"), "nothing executes when the check fails")
}

func TestVerifyBidirectional(t *testing.T) {
	f := newFixture(t, false)
	ann := f.persistent(t, "Customer", "ann@example.com", 1)
	order := f.persistent(t, "Order", "N-1", 2)
	customer := f.prop(t, "Order", "customer")
	order.Set("customer", ann)

	err := action.VerifyBidirectional([]action.PropertyKey{{Object: order, Property: customer}})
	require.ErrorIs(t, err, diagnostic.ErrBidirOutOfSync)
	assert.Contains(t, err.Error(), "Order{N-1}.customer -> Customer{ann@example.com}")

	ann.Add("orders", order, action.Append)
	assert.NoError(t, action.VerifyBidirectional([]action.PropertyKey{{Object: order, Property: customer}}))
}
