package shipment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/orderflow-saga/internal/domain/order"
	"github.com/kyungseok/orderflow-saga/internal/domain/shipment"
)

func testAddress(t *testing.T) order.Address {
	t.Helper()
	addr, err := order.NewAddress("1 Main St", "Springfield", "IL", "62704", "US")
	require.NoError(t, err)
	return addr
}

func TestNewIsPending(t *testing.T) {
	now := time.Now()
	sh, err := shipment.New("ship-1", "order-1", "TRK-1", testAddress(t), now.Add(4*24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusPending, sh.Status)
}

func TestNewRejectsMissingFields(t *testing.T) {
	now := time.Now()
	_, err := shipment.New("ship-1", "", "TRK-1", testAddress(t), now, now)
	require.Error(t, err)

	_, err = shipment.New("ship-1", "order-1", "", testAddress(t), now, now)
	require.Error(t, err)
}

func TestDispatchAndDeliverTransitions(t *testing.T) {
	now := time.Now()
	sh, err := shipment.New("ship-1", "order-1", "TRK-1", testAddress(t), now, now)
	require.NoError(t, err)

	require.NoError(t, sh.Dispatch(now))
	assert.Equal(t, shipment.StatusInTransit, sh.Status)

	require.NoError(t, sh.MarkAsDelivered(now))
	assert.Equal(t, shipment.StatusDelivered, sh.Status)
}

func TestIllegalTransitionsFail(t *testing.T) {
	now := time.Now()
	sh, err := shipment.New("ship-1", "order-1", "TRK-1", testAddress(t), now, now)
	require.NoError(t, err)

	require.Error(t, sh.MarkAsDelivered(now), "cannot deliver before dispatch")

	require.NoError(t, sh.Dispatch(now))
	require.Error(t, sh.Dispatch(now), "cannot dispatch twice")
}
