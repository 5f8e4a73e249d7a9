package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
	"github.com/kyungseok/orderflow-saga/internal/locking"
)

// ReserveStockService is the OrderPlaced subscriber: an all-or-nothing,
// per-order reservation across every requested line. Concurrent
// reservations against the same sku are serialized by internal/locking's
// per-sku mutex, rather than a database row lock.
type ReserveStockService struct {
	products     ProductRepository
	reservations ReservationRepository
	locks        *locking.SKULocks
	bus          *eventbus.Bus
	logger       *zap.Logger
}

// NewReserveStockService builds a ReserveStockService.
func NewReserveStockService(products ProductRepository, reservations ReservationRepository, locks *locking.SKULocks, bus *eventbus.Bus, logger *zap.Logger) *ReserveStockService {
	return &ReserveStockService{products: products, reservations: reservations, locks: locks, bus: bus, logger: logger}
}

// HandleOrderPlaced reserves stock for every line of evt, or reserves
// nothing at all and emits InventoryReservationFailed.
func (s *ReserveStockService) HandleOrderPlaced(ctx context.Context, evt events.OrderPlacedEvent) error {
	// Pre-check pass: look every sku up and confirm canReserve(qty) before
	// mutating anything. This pass takes no locks, so it is only a hint —
	// the real guarantee comes from the per-sku lock held during the
	// mutate pass below.
	for _, item := range evt.Items {
		p, err := s.products.FindBySKU(ctx, item.SKU)
		if err != nil || !p.CanReserve(item.Quantity) {
			return s.fail(ctx, evt, "insufficient stock or unknown sku: "+item.SKU)
		}
	}

	reserved := make([]ReservationInfoResult, 0, len(evt.Items))
	for _, item := range evt.Items {
		var reservation *StockReservation
		lockErr := s.locks.WithLock(NormalizeSKU(item.SKU), func() error {
			p, err := s.products.FindBySKU(ctx, item.SKU)
			if err != nil {
				return err
			}
			now := time.Now()
			if err := p.ReserveStock(item.Quantity, now); err != nil {
				return err
			}
			if err := s.products.Update(ctx, p); err != nil {
				return apperr.NewInfrastructure("inventory.products.update", err)
			}
			reservation = NewStockReservation(uuid.New().String(), evt.OrderID, item.SKU, item.Quantity, now)
			if err := s.reservations.Create(ctx, reservation); err != nil {
				return apperr.NewInfrastructure("inventory.reservations.create", err)
			}
			return nil
		})
		if lockErr != nil {
			// A line failed after the pre-check passed — a concurrent
			// reserver won the race for this sku. Release whatever this
			// order already reserved and fail the whole order.
			s.compensate(ctx, reserved)
			return s.fail(ctx, evt, lockErr.Error())
		}
		reserved = append(reserved, ReservationInfoResult{SKU: item.SKU, Quantity: item.Quantity, ReservationID: reservation.ID})
	}

	infos := make([]events.ReservationInfo, 0, len(reserved))
	for _, r := range reserved {
		infos = append(infos, events.ReservationInfo{ReservationID: r.ReservationID, SKU: r.SKU, Quantity: r.Quantity})
	}

	s.logger.Info("stock reserved", zap.String("orderId", evt.OrderID), zap.Int("lines", len(infos)))
	return s.bus.Publish(ctx, events.InventoryReservedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: evt.OrderID, AggregateType: "Order",
			OccurredAt: time.Now(), Version: evt.Version,
		},
		OrderID:      evt.OrderID,
		Reservations: infos,
	})
}

// ReservationInfoResult is an internal bookkeeping record of one
// successful reservation line, used only to drive compensation if a later
// line in the same order fails.
type ReservationInfoResult struct {
	SKU           string
	Quantity      int
	ReservationID string
}

// compensate undoes every already-reserved line of an order whose later
// line lost the per-sku race during the mutate pass. It releases the
// product's stock and marks each line's StockReservation released under
// the same sku lock, so the reservation ledger never outlives the stock
// it claims: the order is headed for REJECTED and ReleaseStockService
// will never run for it.
func (s *ReserveStockService) compensate(ctx context.Context, reserved []ReservationInfoResult) {
	for _, r := range reserved {
		lockErr := s.locks.WithLock(NormalizeSKU(r.SKU), func() error {
			p, err := s.products.FindBySKU(ctx, r.SKU)
			if err != nil {
				return err
			}
			now := time.Now()
			if err := p.ReleaseStock(r.Quantity, now); err != nil {
				return err
			}
			if err := s.products.Update(ctx, p); err != nil {
				return apperr.NewInfrastructure("inventory.products.update", err)
			}
			res, err := s.reservations.FindByID(ctx, r.ReservationID)
			if err != nil {
				return err
			}
			res.Release()
			return s.reservations.Update(ctx, res)
		})
		if lockErr != nil {
			s.logger.Error("failed to compensate reservation",
				zap.String("reservationId", r.ReservationID), zap.String("sku", r.SKU), zap.Error(lockErr))
		}
	}
}

func (s *ReserveStockService) fail(ctx context.Context, evt events.OrderPlacedEvent, reason string) error {
	s.logger.Warn("stock reservation failed", zap.String("orderId", evt.OrderID), zap.String("reason", reason))
	return s.bus.Publish(ctx, events.InventoryReservationFailedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: evt.OrderID, AggregateType: "Order",
			OccurredAt: time.Now(), Version: evt.Version,
		},
		OrderID:        evt.OrderID,
		Reason:         reason,
		RequestedItems: evt.Items,
	})
}

// ReleaseStockService is the OrderCancelled/OrderPaymentFailed subscriber:
// the saga's compensating transaction, releasing any reservations a
// cancelled or payment-failed order still holds.
type ReleaseStockService struct {
	products     ProductRepository
	reservations ReservationRepository
	locks        *locking.SKULocks
	bus          *eventbus.Bus
	logger       *zap.Logger
}

// NewReleaseStockService builds a ReleaseStockService.
func NewReleaseStockService(products ProductRepository, reservations ReservationRepository, locks *locking.SKULocks, bus *eventbus.Bus, logger *zap.Logger) *ReleaseStockService {
	return &ReleaseStockService{products: products, reservations: reservations, locks: locks, bus: bus, logger: logger}
}

// Release finds every unreleased reservation for orderID, releases the
// matching stock, and emits InventoryReleased. A second call for the same
// orderID finds nothing to release and is a no-op.
func (s *ReleaseStockService) Release(ctx context.Context, orderID string) error {
	unreleased, err := s.reservations.FindUnreleasedByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("inventory: find unreleased reservations: %w", err)
	}
	if len(unreleased) == 0 {
		return nil
	}

	infos := make([]events.ReservationInfo, 0, len(unreleased))
	for _, res := range unreleased {
		lockErr := s.locks.WithLock(res.SKU, func() error {
			p, err := s.products.FindBySKU(ctx, res.SKU)
			if err != nil {
				return err
			}
			now := time.Now()
			if err := p.ReleaseStock(res.Quantity, now); err != nil {
				return err
			}
			if err := s.products.Update(ctx, p); err != nil {
				return apperr.NewInfrastructure("inventory.products.update", err)
			}
			res.Release()
			return s.reservations.Update(ctx, res)
		})
		if lockErr != nil {
			s.logger.Error("failed to release reservation",
				zap.String("orderId", orderID), zap.String("sku", res.SKU), zap.Error(lockErr))
			continue
		}
		infos = append(infos, events.ReservationInfo{ReservationID: res.ID, SKU: res.SKU, Quantity: res.Quantity})
	}

	if len(infos) == 0 {
		return nil
	}

	s.logger.Info("stock released", zap.String("orderId", orderID), zap.Int("lines", len(infos)))
	return s.bus.Publish(ctx, events.InventoryReleasedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: orderID, AggregateType: "Order",
			OccurredAt: time.Now(), Version: 0,
		},
		OrderID:      orderID,
		Reservations: infos,
	})
}

// HandleOrderCancelled is the OrderCancelled subscriber.
func (s *ReleaseStockService) HandleOrderCancelled(ctx context.Context, evt events.OrderCancelledEvent) error {
	return s.Release(ctx, evt.OrderID)
}

// HandleOrderPaymentFailed is the OrderPaymentFailed subscriber.
func (s *ReleaseStockService) HandleOrderPaymentFailed(ctx context.Context, evt events.OrderPaymentFailedEvent) error {
	return s.Release(ctx, evt.OrderID)
}
