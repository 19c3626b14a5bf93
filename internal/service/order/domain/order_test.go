package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderPricesFromReservation(t *testing.T) {
	now := time.Now()
	res := &Reservation{Lines: []ReservedLine{
		{ProductID: "p1", Name: "Pen", RequestedQty: 3, ActualQty: 3, UnitPrice: decimal.RequireFromString("0.10")},
		{ProductID: "p2", Name: "Ink", RequestedQty: 2, ActualQty: 0, UnitPrice: decimal.RequireFromString("7.00")},
		{ProductID: "p3", Name: "Pad", RequestedQty: 4, ActualQty: 1, UnitPrice: decimal.RequireFromString("2.20")},
	}}

	o, err := NewOrder("o1", "u1", "addr", res, now)
	require.NoError(t, err)

	assert.Equal(t, StatePending, o.State)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "p3", o.Items[1].ProductID)
	// 0.1*3 在浮点下不是 0.3
	assert.Equal(t, "2.50", o.TotalAmount.StringFixed(2))
	assert.True(t, o.Items[0].TotalPrice.Equal(decimal.RequireFromString("0.3")))
}

func TestNewOrderRejects(t *testing.T) {
	empty := &Reservation{Lines: []ReservedLine{{ProductID: "p1", RequestedQty: 1}}}
	_, err := NewOrder("o1", "u1", "", empty, time.Now())
	assert.ErrorIs(t, err, ErrNothingReserved)

	_, err = NewOrder("o1", "", "", empty, time.Now())
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestStateTransitions(t *testing.T) {
	o := &Order{State: StatePending}
	now := time.Now()

	require.NoError(t, o.TransitionTo(StateConfirmed, now))
	require.NoError(t, o.TransitionTo(StateConfirmed, now))
	require.NoError(t, o.TransitionTo(StateShipped, now))
	assert.ErrorIs(t, o.TransitionTo(StateCancelled, now), ErrIllegalTransition)
	require.NoError(t, o.TransitionTo(StateDelivered, now))
	assert.ErrorIs(t, o.TransitionTo(StatePending, now), ErrIllegalTransition)
	assert.Equal(t, now, o.UpdatedAt)

	_, err := ParseState("REFUNDED")
	assert.ErrorIs(t, err, ErrInvalidState)
	st, err := ParseState("SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, StateShipped, st)
}
