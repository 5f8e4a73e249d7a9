package order_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/orderflow-saga/internal/common/money"
	"github.com/kyungseok/orderflow-saga/internal/domain/order"
)

func testAddress(t *testing.T) order.Address {
	t.Helper()
	addr, err := order.NewAddress("1 Main St", "Springfield", "IL", "62704", "US")
	require.NoError(t, err)
	return addr
}

func testOrder(t *testing.T, now time.Time) *order.Order {
	t.Helper()
	item, err := order.NewItem("WIDGET", 5, money.MustNew(2999, "USD"))
	require.NoError(t, err)
	o, err := order.New("order-1", "cust-1", []order.Item{item}, testAddress(t), now)
	require.NoError(t, err)
	return o
}

func TestNewComputesTotal(t *testing.T) {
	now := time.Now()
	o := testOrder(t, now)

	assert.Equal(t, int64(14995), o.TotalAmount.Amount())
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, 1, o.Version)
}

func TestNewRejectsEmptyItems(t *testing.T) {
	_, err := order.New("order-1", "cust-1", nil, testAddress(t), time.Now())
	require.Error(t, err)
}

func TestNewRejectsMixedCurrencies(t *testing.T) {
	usdItem, err := order.NewItem("WIDGET", 1, money.MustNew(100, "USD"))
	require.NoError(t, err)
	eurItem, err := order.NewItem("GADGET", 1, money.MustNew(100, "EUR"))
	require.NoError(t, err)

	_, err = order.New("order-1", "cust-1", []order.Item{usdItem, eurItem}, testAddress(t), time.Now())
	require.Error(t, err)
}

func TestHappyPathTransitions(t *testing.T) {
	now := time.Now()
	o := testOrder(t, now)

	require.NoError(t, o.Confirm(now))
	assert.Equal(t, order.StatusConfirmed, o.Status)

	require.NoError(t, o.MarkAsPaid("payment-1", now))
	assert.Equal(t, order.StatusPaid, o.Status)
	assert.Equal(t, "payment-1", o.PaymentID)

	require.NoError(t, o.MarkAsShipped("shipment-1", now))
	assert.Equal(t, order.StatusShipped, o.Status)
	assert.Equal(t, "shipment-1", o.ShipmentID)
	assert.True(t, o.Status.Terminal())
}

func TestRejectFromPending(t *testing.T) {
	now := time.Now()
	o := testOrder(t, now)

	require.NoError(t, o.Reject("insufficient stock", now))
	assert.Equal(t, order.StatusRejected, o.Status)
	assert.Equal(t, "insufficient stock", o.RejectionReason)
	assert.True(t, o.Status.Terminal())
}

func TestMarkPaymentFailedFromConfirmed(t *testing.T) {
	now := time.Now()
	o := testOrder(t, now)
	require.NoError(t, o.Confirm(now))

	require.NoError(t, o.MarkPaymentFailed("card declined", now))
	assert.Equal(t, order.StatusPaymentFailed, o.Status)
	assert.True(t, o.Status.Terminal())
}

func TestCancelFromNonTerminalStates(t *testing.T) {
	now := time.Now()

	t.Run("from pending", func(t *testing.T) {
		o := testOrder(t, now)
		require.NoError(t, o.Cancel("customer changed mind", now))
		assert.Equal(t, order.StatusCancelled, o.Status)
	})

	t.Run("from confirmed", func(t *testing.T) {
		o := testOrder(t, now)
		require.NoError(t, o.Confirm(now))
		require.NoError(t, o.Cancel("customer changed mind", now))
		assert.Equal(t, order.StatusCancelled, o.Status)
	})

	t.Run("from paid", func(t *testing.T) {
		o := testOrder(t, now)
		require.NoError(t, o.Confirm(now))
		require.NoError(t, o.MarkAsPaid("payment-1", now))
		require.NoError(t, o.Cancel("customer changed mind", now))
		assert.Equal(t, order.StatusCancelled, o.Status)
	})
}

// Cancelling a SHIPPED order must always fail,
// even though SHIPPED is reachable from the same aggregate that started
// in PENDING.
func TestCancelAfterShippedIsRejected(t *testing.T) {
	now := time.Now()
	o := testOrder(t, now)
	require.NoError(t, o.Confirm(now))
	require.NoError(t, o.MarkAsPaid("payment-1", now))
	require.NoError(t, o.MarkAsShipped("shipment-1", now))

	err := o.Cancel("too late", now)
	require.Error(t, err)
	assert.Equal(t, order.StatusShipped, o.Status, "a rejected cancel must not mutate status")
}

func TestIllegalTransitionsFail(t *testing.T) {
	now := time.Now()

	t.Run("confirm twice", func(t *testing.T) {
		o := testOrder(t, now)
		require.NoError(t, o.Confirm(now))
		require.Error(t, o.Confirm(now))
	})

	t.Run("markAsPaid before confirm", func(t *testing.T) {
		o := testOrder(t, now)
		require.Error(t, o.MarkAsPaid("payment-1", now))
	})

	t.Run("markAsShipped before paid", func(t *testing.T) {
		o := testOrder(t, now)
		require.NoError(t, o.Confirm(now))
		require.Error(t, o.MarkAsShipped("shipment-1", now))
	})

	t.Run("reject after confirm", func(t *testing.T) {
		o := testOrder(t, now)
		require.NoError(t, o.Confirm(now))
		require.Error(t, o.Reject("too late", now))
	})
}
