// Service implements the public order operations (placeOrder, getOrder,
// listOrders, cancelOrder) plus the saga-driven state transitions. It is
// the order-side half of the choreography: each transition method
// re-reads the aggregate, applies one state-machine method, persists,
// and publishes the resulting event — one handler per inbound saga
// event.
package order

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
	"github.com/kyungseok/orderflow-saga/internal/idempotency"
)

// DefaultCancellationReason is used by cancelOrder when the caller omits
// a reason.
const DefaultCancellationReason = "cancelled by customer"

const idempotencyTTL = 24 * time.Hour

// PlaceOrderCommand is the input to PlaceOrder.
type PlaceOrderCommand struct {
	CustomerID      string
	Items           []Item
	ShippingAddress Address
	IdempotencyKey  string
}

// ListFilter narrows ListOrders results; zero values mean "don't filter".
type ListFilter struct {
	CustomerID string
	Status     Status
}

// Service wires the Order aggregate to its repository and the event bus.
type Service struct {
	repo   Repository
	bus    *eventbus.Bus
	idem   idempotency.Store
	logger *zap.Logger

	mu               sync.Mutex
	idempotencyIndex map[string]string // idempotency key -> orderID
}

// NewService builds an order Service.
func NewService(repo Repository, bus *eventbus.Bus, idem idempotency.Store, logger *zap.Logger) *Service {
	return &Service{
		repo:             repo,
		bus:              bus,
		idem:             idem,
		logger:           logger,
		idempotencyIndex: make(map[string]string),
	}
}

// PlaceOrder creates a PENDING order and publishes OrderPlaced, starting
// the saga. A repeat call with the same IdempotencyKey returns the
// original order instead of creating a second one.
func (s *Service) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*Order, error) {
	if cmd.IdempotencyKey != "" {
		if existingID, ok := s.lookupIdempotencyKey(cmd.IdempotencyKey); ok {
			return s.repo.FindByID(ctx, existingID)
		}
		claimed, err := s.idem.Reserve(ctx, cmd.IdempotencyKey, idempotencyTTL)
		if err != nil {
			return nil, apperr.NewInfrastructure("order.idempotency.reserve", err)
		}
		if !claimed {
			// Lost the race to reserve, or a stale claim without an
			// indexed order yet; fall through and treat as a fresh
			// request rather than block forever.
			s.logger.Warn("idempotency key already reserved without an indexed order",
				zap.String("idempotencyKey", cmd.IdempotencyKey))
		}
	}

	now := time.Now()
	o, err := New(uuid.New().String(), cmd.CustomerID, cmd.Items, cmd.ShippingAddress, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, apperr.NewInfrastructure("order.repository.create", err)
	}

	if cmd.IdempotencyKey != "" {
		s.indexIdempotencyKey(cmd.IdempotencyKey, o.ID)
	}

	lineItems := make([]events.LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		lineItems = append(lineItems, events.LineItem{
			SKU: it.SKU, Quantity: it.Quantity,
			UnitAmount: it.UnitPrice.Amount(), UnitCurrency: it.UnitPrice.Currency(),
		})
	}

	evt := events.OrderPlacedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: o.ID, AggregateType: "Order",
			OccurredAt: now, Version: o.Version,
		},
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      lineItems,
		ShippingAddress: events.Address{
			Street: o.ShippingAddress.Street, City: o.ShippingAddress.City,
			State: o.ShippingAddress.State, PostalCode: o.ShippingAddress.PostalCode,
			Country: o.ShippingAddress.Country,
		},
		TotalAmount:   o.TotalAmount.Amount(),
		TotalCurrency: o.TotalAmount.Currency(),
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		return nil, apperr.NewInfrastructure("order.eventbus.publish", err)
	}

	s.logger.Info("order placed", zap.String("orderId", o.ID), zap.String("customerId", o.CustomerID))
	return o, nil
}

func (s *Service) lookupIdempotencyKey(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.idempotencyIndex[key]
	return id, ok
}

func (s *Service) indexIdempotencyKey(key, orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idempotencyIndex[key] = orderID
}

// GetOrder returns the order snapshot for id.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	return s.repo.FindByID(ctx, id)
}

// ListOrders returns orders most-recent first, optionally filtered by
// customer id and/or status.
func (s *Service) ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperr.NewInfrastructure("order.repository.findAll", err)
	}

	if filter.CustomerID == "" && filter.Status == "" {
		return all, nil
	}

	out := make([]*Order, 0, len(all))
	for _, o := range all {
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// CancelOrder applies the customer-initiated cancel transition and
// publishes OrderCancelled on success.
func (s *Service) CancelOrder(ctx context.Context, id string, reason string) (*Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}

	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := o.Cancel(reason, now); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, apperr.NewInfrastructure("order.repository.update", err)
	}

	evt := events.OrderCancelledEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: o.ID, AggregateType: "Order",
			OccurredAt: now, Version: o.Version,
		},
		OrderID: o.ID,
		Reason:  reason,
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		return nil, apperr.NewInfrastructure("order.eventbus.publish", err)
	}

	return o, nil
}

// HandleInventoryReserved is the InventoryReserved subscriber: it confirms
// the order and emits OrderConfirmed.
func (s *Service) HandleInventoryReserved(ctx context.Context, evt events.InventoryReservedEvent) error {
	o, err := s.repo.FindByID(ctx, evt.OrderID)
	if err != nil {
		return fmt.Errorf("order: handle inventory reserved: %w", err)
	}

	now := time.Now()
	if err := o.Confirm(now); err != nil {
		return fmt.Errorf("order: confirm: %w", err)
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return fmt.Errorf("order: persist confirm: %w", err)
	}

	return s.bus.Publish(ctx, events.OrderConfirmedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: o.ID, AggregateType: "Order",
			OccurredAt: now, Version: o.Version,
		},
		OrderID: o.ID,
	})
}

// HandleInventoryReservationFailed is the InventoryReservationFailed
// subscriber: it rejects the order and emits OrderRejected.
func (s *Service) HandleInventoryReservationFailed(ctx context.Context, evt events.InventoryReservationFailedEvent) error {
	o, err := s.repo.FindByID(ctx, evt.OrderID)
	if err != nil {
		return fmt.Errorf("order: handle inventory reservation failed: %w", err)
	}

	now := time.Now()
	if err := o.Reject(evt.Reason, now); err != nil {
		return fmt.Errorf("order: reject: %w", err)
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return fmt.Errorf("order: persist reject: %w", err)
	}

	return s.bus.Publish(ctx, events.OrderRejectedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: o.ID, AggregateType: "Order",
			OccurredAt: now, Version: o.Version,
		},
		OrderID: o.ID,
		Reason:  evt.Reason,
	})
}

// HandlePaymentProcessed is the PaymentProcessed subscriber: it marks the
// order paid and emits OrderPaid.
func (s *Service) HandlePaymentProcessed(ctx context.Context, evt events.PaymentProcessedEvent) error {
	o, err := s.repo.FindByID(ctx, evt.OrderID)
	if err != nil {
		return fmt.Errorf("order: handle payment processed: %w", err)
	}

	now := time.Now()
	if err := o.MarkAsPaid(evt.PaymentID, now); err != nil {
		return fmt.Errorf("order: markAsPaid: %w", err)
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return fmt.Errorf("order: persist markAsPaid: %w", err)
	}

	return s.bus.Publish(ctx, events.OrderPaidEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: o.ID, AggregateType: "Order",
			OccurredAt: now, Version: o.Version,
		},
		OrderID:   o.ID,
		PaymentID: evt.PaymentID,
	})
}

// HandlePaymentFailed is the PaymentFailed subscriber: it marks the order
// payment-failed and emits OrderPaymentFailed, which in turn drives the
// compensating stock release.
func (s *Service) HandlePaymentFailed(ctx context.Context, evt events.PaymentFailedEvent) error {
	o, err := s.repo.FindByID(ctx, evt.OrderID)
	if err != nil {
		return fmt.Errorf("order: handle payment failed: %w", err)
	}

	now := time.Now()
	if err := o.MarkPaymentFailed(evt.Reason, now); err != nil {
		return fmt.Errorf("order: markPaymentFailed: %w", err)
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return fmt.Errorf("order: persist markPaymentFailed: %w", err)
	}

	return s.bus.Publish(ctx, events.OrderPaymentFailedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: o.ID, AggregateType: "Order",
			OccurredAt: now, Version: o.Version,
		},
		OrderID: o.ID,
		Reason:  evt.Reason,
	})
}

// HandleShipmentCreated is the ShipmentCreated subscriber: it marks the
// order shipped and emits OrderShipped.
func (s *Service) HandleShipmentCreated(ctx context.Context, evt events.ShipmentCreatedEvent) error {
	o, err := s.repo.FindByID(ctx, evt.OrderID)
	if err != nil {
		return fmt.Errorf("order: handle shipment created: %w", err)
	}

	now := time.Now()
	if err := o.MarkAsShipped(evt.ShipmentID, now); err != nil {
		return fmt.Errorf("order: markAsShipped: %w", err)
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return fmt.Errorf("order: persist markAsShipped: %w", err)
	}

	return s.bus.Publish(ctx, events.OrderShippedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: o.ID, AggregateType: "Order",
			OccurredAt: now, Version: o.Version,
		},
		OrderID:    o.ID,
		ShipmentID: evt.ShipmentID,
	})
}
