package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/orderflow-saga/internal/common/logger"
	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/domain/inventory"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
	"github.com/kyungseok/orderflow-saga/internal/locking"
)

// raceProductRepository wraps a ProductRepository and, the second time
// FindBySKU is called for targetSKU (the first being the lock-free
// pre-check), drains all of that sku's remaining stock before returning —
// simulating a concurrent reserver winning the per-sku race between the
// lock-free pre-check and this order's own locked mutate pass.
type raceProductRepository struct {
	inventory.ProductRepository
	targetSKU string
	mu        sync.Mutex
	calls     int
}

func (r *raceProductRepository) FindBySKU(ctx context.Context, sku string) (*inventory.Product, error) {
	if sku == r.targetSKU {
		r.mu.Lock()
		r.calls++
		drain := r.calls == 2
		r.mu.Unlock()

		if drain {
			p, err := r.ProductRepository.FindBySKU(ctx, sku)
			if err != nil {
				return nil, err
			}
			if err := p.ReserveStock(p.AvailableStock(), time.Now()); err != nil {
				return nil, err
			}
			if err := r.ProductRepository.Update(ctx, p); err != nil {
				return nil, err
			}
		}
	}
	return r.ProductRepository.FindBySKU(ctx, sku)
}

type testFixture struct {
	products     *inventory.MemoryProductRepository
	reservations *inventory.MemoryReservationRepository
	locks        *locking.SKULocks
	bus          *eventbus.Bus
	reserve      *inventory.ReserveStockService
	release      *inventory.ReleaseStockService
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	log := logger.NewTest()
	f := &testFixture{
		products:     inventory.NewMemoryProductRepository(),
		reservations: inventory.NewMemoryReservationRepository(),
		locks:        locking.NewSKULocks(),
		bus:          eventbus.New(log),
	}
	f.reserve = inventory.NewReserveStockService(f.products, f.reservations, f.locks, f.bus, log)
	f.release = inventory.NewReleaseStockService(f.products, f.reservations, f.locks, f.bus, log)
	return f
}

func seedProduct(t *testing.T, repo *inventory.MemoryProductRepository, sku string, stock int) {
	t.Helper()
	catalog := inventory.NewCatalogService(repo, locking.NewSKULocks())
	_, err := catalog.CreateProduct(context.Background(), sku, sku, stock)
	require.NoError(t, err)
}

func orderPlaced(orderID string, items ...events.LineItem) events.OrderPlacedEvent {
	return events.OrderPlacedEvent{
		Base:    events.Base{AggregateID: orderID, AggregateType: "Order", Version: 1},
		OrderID: orderID,
		Items:   items,
	}
}

func TestHandleOrderPlacedReservesAllLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedProduct(t, f.products, "WIDGET", 10)

	var reserved events.InventoryReservedEvent
	f.bus.Subscribe(events.InventoryReserved, func(_ context.Context, e events.Event) error {
		reserved = e.(events.InventoryReservedEvent)
		return nil
	})

	evt := orderPlaced("order-1", events.LineItem{SKU: "WIDGET", Quantity: 4})
	require.NoError(t, f.reserve.HandleOrderPlaced(ctx, evt))

	assert.Equal(t, "order-1", reserved.OrderID)
	require.Len(t, reserved.Reservations, 1)

	p, err := f.products.FindBySKU(ctx, "WIDGET")
	require.NoError(t, err)
	assert.Equal(t, 4, p.ReservedQuantity)
}

func TestHandleOrderPlacedFailsOnInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedProduct(t, f.products, "WIDGET", 2)

	var failed events.InventoryReservationFailedEvent
	f.bus.Subscribe(events.InventoryReservationFailed, func(_ context.Context, e events.Event) error {
		failed = e.(events.InventoryReservationFailedEvent)
		return nil
	})

	evt := orderPlaced("order-1", events.LineItem{SKU: "WIDGET", Quantity: 5})
	require.NoError(t, f.reserve.HandleOrderPlaced(ctx, evt))

	assert.Equal(t, "order-1", failed.OrderID)

	p, err := f.products.FindBySKU(ctx, "WIDGET")
	require.NoError(t, err)
	assert.Equal(t, 0, p.ReservedQuantity, "a failed reservation must not partially reserve")
}

func TestHandleOrderPlacedFailsWholeMultiLineOrderOnPreCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedProduct(t, f.products, "WIDGET", 10)
	seedProduct(t, f.products, "GADGET", 1)

	// The pre-check for GADGET should already fail, since requesting 5 of 1
	// available trips canReserve before any lock is taken. This exercises
	// the all-or-nothing guarantee across both lines.
	evt := orderPlaced("order-1",
		events.LineItem{SKU: "WIDGET", Quantity: 5},
		events.LineItem{SKU: "GADGET", Quantity: 5},
	)

	var failed bool
	f.bus.Subscribe(events.InventoryReservationFailed, func(_ context.Context, _ events.Event) error {
		failed = true
		return nil
	})
	require.NoError(t, f.reserve.HandleOrderPlaced(ctx, evt))
	assert.True(t, failed)

	widget, err := f.products.FindBySKU(ctx, "WIDGET")
	require.NoError(t, err)
	assert.Equal(t, 0, widget.ReservedQuantity, "no line should remain reserved when the order as a whole fails")
}

func TestHandleOrderPlacedCompensatesWhenLockedMutateLosesRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedProduct(t, f.products, "WIDGET", 10)
	seedProduct(t, f.products, "GADGET", 5)

	racing := &raceProductRepository{ProductRepository: f.products, targetSKU: "GADGET"}
	reserve := inventory.NewReserveStockService(racing, f.reservations, f.locks, f.bus, logger.NewTest())

	var failed events.InventoryReservationFailedEvent
	f.bus.Subscribe(events.InventoryReservationFailed, func(_ context.Context, e events.Event) error {
		failed = e.(events.InventoryReservationFailedEvent)
		return nil
	})

	// Both lines pass the lock-free pre-check (GADGET has 5 available and
	// the order asks for 5), but GADGET's stock is drained out from under
	// this order the moment it takes GADGET's lock, so only the WIDGET
	// line is ever actually reserved before the order fails as a whole.
	evt := orderPlaced("order-1",
		events.LineItem{SKU: "WIDGET", Quantity: 2},
		events.LineItem{SKU: "GADGET", Quantity: 5},
	)
	require.NoError(t, reserve.HandleOrderPlaced(ctx, evt))
	assert.Equal(t, "order-1", failed.OrderID)

	widget, err := f.products.FindBySKU(ctx, "WIDGET")
	require.NoError(t, err)
	assert.Equal(t, 0, widget.ReservedQuantity, "compensate must release the already-reserved WIDGET line")

	unreleased, err := f.reservations.FindUnreleasedByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Empty(t, unreleased, "compensate must mark the already-persisted WIDGET reservation released, not leave a phantom row (P2)")
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedProduct(t, f.products, "WIDGET", 10)

	evt := orderPlaced("order-1", events.LineItem{SKU: "WIDGET", Quantity: 4})
	require.NoError(t, f.reserve.HandleOrderPlaced(ctx, evt))

	released := 0
	f.bus.Subscribe(events.InventoryReleased, func(_ context.Context, _ events.Event) error {
		released++
		return nil
	})

	require.NoError(t, f.release.Release(ctx, "order-1"))
	require.NoError(t, f.release.Release(ctx, "order-1"), "releasing an already-released order must be a no-op")

	assert.Equal(t, 1, released)

	p, err := f.products.FindBySKU(ctx, "WIDGET")
	require.NoError(t, err)
	assert.Equal(t, 0, p.ReservedQuantity)
}

// TestConcurrentReservationsNeverOversell exercises the race scenario of
// many goroutines concurrently placing orders against the same
// sku with too little stock to satisfy them all. Regardless of how the
// goroutines interleave, reserved+available must equal stock and reserved
// must never exceed stock (property P3).
func TestConcurrentReservationsNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const stock = 50
	const orders = 100
	const qtyPerOrder = 1

	seedProduct(t, f.products, "WIDGET", stock)

	var succeeded int
	var mu sync.Mutex
	f.bus.Subscribe(events.InventoryReserved, func(_ context.Context, _ events.Event) error {
		mu.Lock()
		succeeded++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(orders)
	for i := 0; i < orders; i++ {
		go func(i int) {
			defer wg.Done()
			evt := orderPlaced(
				"order-"+string(rune('A'+i%26))+string(rune('0'+i/26)),
				events.LineItem{SKU: "WIDGET", Quantity: qtyPerOrder},
			)
			_ = f.reserve.HandleOrderPlaced(ctx, evt)
		}(i)
	}
	wg.Wait()

	p, err := f.products.FindBySKU(ctx, "WIDGET")
	require.NoError(t, err)

	assert.LessOrEqual(t, p.ReservedQuantity, stock, "P3: reserved must never exceed stock")
	assert.Equal(t, stock, p.ReservedQuantity+p.AvailableStock(), "P3: reserved+available must equal stock")
	assert.Equal(t, stock/qtyPerOrder, succeeded, "exactly as many orders as stock allows should succeed")
}
