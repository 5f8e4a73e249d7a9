// Package saga wires the choreographed order fulfillment saga's event
// subscription table onto the bus. It is registered exactly once, at
// process startup, and never mutated again — the bus's subscriber map is
// read-only at steady state.
package saga

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/domain/inventory"
	"github.com/kyungseok/orderflow-saga/internal/domain/order"
	"github.com/kyungseok/orderflow-saga/internal/domain/payment"
	"github.com/kyungseok/orderflow-saga/internal/domain/shipment"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
	"github.com/kyungseok/orderflow-saga/internal/eventstore"
)

// Services bundles every application service the saga dispatches to.
type Services struct {
	Orders         *order.Service
	ReserveStock   *inventory.ReserveStockService
	ReleaseStock   *inventory.ReleaseStockService
	ProcessPayment *payment.ProcessPaymentService
	CreateShipment *shipment.CreateShipmentService
}

// Register wires every saga subscription onto bus. The event store is
// subscribed to all thirteen event types. The bus runs a type's handlers
// concurrently, so recording is not ordered before the domain handlers,
// but each Publish returns only after the store handler has settled.
func Register(bus *eventbus.Bus, store eventstore.Store, svc Services, logger *zap.Logger) {
	allTypes := []events.Type{
		events.OrderPlaced, events.InventoryReserved, events.InventoryReservationFailed,
		events.OrderConfirmed, events.OrderRejected, events.PaymentProcessed,
		events.PaymentFailed, events.OrderPaid, events.OrderPaymentFailed,
		events.ShipmentCreated, events.OrderShipped, events.OrderCancelled,
		events.InventoryReleased,
	}
	for _, t := range allTypes {
		bus.Subscribe(t, recordToStore(store, logger))
	}

	bus.Subscribe(events.OrderPlaced, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.OrderPlacedEvent)
		if !ok {
			return fmt.Errorf("saga: OrderPlaced handler got %T", e)
		}
		return svc.ReserveStock.HandleOrderPlaced(ctx, evt)
	})

	bus.Subscribe(events.InventoryReserved, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.InventoryReservedEvent)
		if !ok {
			return fmt.Errorf("saga: InventoryReserved handler got %T", e)
		}
		return svc.Orders.HandleInventoryReserved(ctx, evt)
	})

	bus.Subscribe(events.InventoryReservationFailed, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.InventoryReservationFailedEvent)
		if !ok {
			return fmt.Errorf("saga: InventoryReservationFailed handler got %T", e)
		}
		return svc.Orders.HandleInventoryReservationFailed(ctx, evt)
	})

	// OrderConfirmed resolves the order total by reading the Order
	// aggregate back (a read-only cross-context lookup) before driving
	// ProcessPaymentService.
	bus.Subscribe(events.OrderConfirmed, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.OrderConfirmedEvent)
		if !ok {
			return fmt.Errorf("saga: OrderConfirmed handler got %T", e)
		}
		o, err := svc.Orders.GetOrder(ctx, evt.OrderID)
		if err != nil {
			return fmt.Errorf("saga: OrderConfirmed lookup order: %w", err)
		}
		return svc.ProcessPayment.Process(ctx, o.ID, o.TotalAmount)
	})

	bus.Subscribe(events.PaymentProcessed, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.PaymentProcessedEvent)
		if !ok {
			return fmt.Errorf("saga: PaymentProcessed handler got %T", e)
		}
		return svc.Orders.HandlePaymentProcessed(ctx, evt)
	})

	bus.Subscribe(events.PaymentFailed, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.PaymentFailedEvent)
		if !ok {
			return fmt.Errorf("saga: PaymentFailed handler got %T", e)
		}
		return svc.Orders.HandlePaymentFailed(ctx, evt)
	})

	// OrderPaid resolves the shipping address by reading the Order
	// aggregate back before driving CreateShipmentService.
	bus.Subscribe(events.OrderPaid, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.OrderPaidEvent)
		if !ok {
			return fmt.Errorf("saga: OrderPaid handler got %T", e)
		}
		o, err := svc.Orders.GetOrder(ctx, evt.OrderID)
		if err != nil {
			return fmt.Errorf("saga: OrderPaid lookup order: %w", err)
		}
		return svc.CreateShipment.Create(ctx, o.ID, o.ShippingAddress)
	})

	bus.Subscribe(events.OrderPaymentFailed, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.OrderPaymentFailedEvent)
		if !ok {
			return fmt.Errorf("saga: OrderPaymentFailed handler got %T", e)
		}
		return svc.ReleaseStock.HandleOrderPaymentFailed(ctx, evt)
	})

	bus.Subscribe(events.ShipmentCreated, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.ShipmentCreatedEvent)
		if !ok {
			return fmt.Errorf("saga: ShipmentCreated handler got %T", e)
		}
		return svc.Orders.HandleShipmentCreated(ctx, evt)
	})

	bus.Subscribe(events.OrderCancelled, func(ctx context.Context, e events.Event) error {
		evt, ok := e.(events.OrderCancelledEvent)
		if !ok {
			return fmt.Errorf("saga: OrderCancelled handler got %T", e)
		}
		return svc.ReleaseStock.HandleOrderCancelled(ctx, evt)
	})

	logger.Info("saga subscriptions registered", zap.Int("eventTypes", len(allTypes)))
}

func recordToStore(store eventstore.Store, logger *zap.Logger) eventbus.Handler {
	return func(ctx context.Context, e events.Event) error {
		if err := store.Save(ctx, e.Envelope()); err != nil {
			logger.Error("failed to append event to store",
				zap.String("eventType", string(e.EventType())), zap.Error(err))
			return err
		}
		return nil
	}
}
