package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/orderflow-saga/internal/common/logger"
	"github.com/kyungseok/orderflow-saga/internal/common/money"
	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/domain/order"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
	"github.com/kyungseok/orderflow-saga/internal/idempotency"
)

func newTestService(t *testing.T) (*order.Service, *eventbus.Bus) {
	t.Helper()
	log := logger.NewTest()
	bus := eventbus.New(log)
	svc := order.NewService(order.NewMemoryRepository(), bus, idempotency.NewMemoryStore(), log)
	return svc, bus
}

func placeOrderCmd(t *testing.T) order.PlaceOrderCommand {
	t.Helper()
	item, err := order.NewItem("WIDGET", 5, money.MustNew(2999, "USD"))
	require.NoError(t, err)
	return order.PlaceOrderCommand{
		CustomerID:      "cust-1",
		Items:           []order.Item{item},
		ShippingAddress: testAddress(t),
	}
}

func TestPlaceOrderPublishesOrderPlaced(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	var got events.OrderPlacedEvent
	bus.Subscribe(events.OrderPlaced, func(_ context.Context, e events.Event) error {
		got = e.(events.OrderPlacedEvent)
		return nil
	})

	o, err := svc.PlaceOrder(ctx, placeOrderCmd(t))
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, o.ID, got.OrderID)
	assert.Equal(t, int64(14995), got.TotalAmount)
}

func TestPlaceOrderIsIdempotent(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	published := 0
	bus.Subscribe(events.OrderPlaced, func(_ context.Context, _ events.Event) error {
		published++
		return nil
	})

	cmd := placeOrderCmd(t)
	cmd.IdempotencyKey = "key-1"

	first, err := svc.PlaceOrder(ctx, cmd)
	require.NoError(t, err)

	second, err := svc.PlaceOrder(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "a repeated idempotency key must return the original order")
	assert.Equal(t, 1, published, "a repeated idempotency key must not re-publish OrderPlaced")
}

func TestCancelOrderDefaultsReason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, placeOrderCmd(t))
	require.NoError(t, err)

	cancelled, err := svc.CancelOrder(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	assert.Equal(t, order.DefaultCancellationReason, cancelled.CancellationReason)
}

func TestHandleInventoryReservedConfirmsOrder(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, placeOrderCmd(t))
	require.NoError(t, err)

	var confirmed events.OrderConfirmedEvent
	bus.Subscribe(events.OrderConfirmed, func(_ context.Context, e events.Event) error {
		confirmed = e.(events.OrderConfirmedEvent)
		return nil
	})

	require.NoError(t, svc.HandleInventoryReserved(ctx, events.InventoryReservedEvent{OrderID: o.ID}))

	updated, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, updated.Status)
	assert.Equal(t, o.ID, confirmed.OrderID)
}

func TestHandleInventoryReservationFailedRejectsOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, placeOrderCmd(t))
	require.NoError(t, err)

	require.NoError(t, svc.HandleInventoryReservationFailed(ctx, events.InventoryReservationFailedEvent{
		OrderID: o.ID, Reason: "insufficient stock",
	}))

	updated, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusRejected, updated.Status)
	assert.Equal(t, "insufficient stock", updated.RejectionReason)
}

func TestHandlePaymentFailedSetsFailureReasonNotCancellationReason(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	o, err := svc.PlaceOrder(ctx, placeOrderCmd(t))
	require.NoError(t, err)
	require.NoError(t, svc.HandleInventoryReserved(ctx, events.InventoryReservedEvent{OrderID: o.ID}))

	require.NoError(t, svc.HandlePaymentFailed(ctx, events.PaymentFailedEvent{
		OrderID: o.ID, Reason: "card declined",
	}))

	updated, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaymentFailed, updated.Status)
	assert.Equal(t, "card declined", updated.FailureReason)
	assert.Empty(t, updated.CancellationReason, "a payment failure is not a cancellation")
}

func TestListOrdersFiltersByCustomerAndStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cmdA := placeOrderCmd(t)
	cmdA.CustomerID = "cust-a"
	a, err := svc.PlaceOrder(ctx, cmdA)
	require.NoError(t, err)

	cmdB := placeOrderCmd(t)
	cmdB.CustomerID = "cust-b"
	_, err = svc.PlaceOrder(ctx, cmdB)
	require.NoError(t, err)

	require.NoError(t, svc.HandleInventoryReservationFailed(ctx, events.InventoryReservationFailedEvent{
		OrderID: a.ID, Reason: "no stock",
	}))

	byCustomer, err := svc.ListOrders(ctx, order.ListFilter{CustomerID: "cust-a"})
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, "cust-a", byCustomer[0].CustomerID)

	byStatus, err := svc.ListOrders(ctx, order.ListFilter{Status: order.StatusRejected})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, order.StatusRejected, byStatus[0].Status)
}
