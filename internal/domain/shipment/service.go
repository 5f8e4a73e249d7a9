package shipment

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyungseok/orderflow-saga/internal/domain/events"
	"github.com/kyungseok/orderflow-saga/internal/domain/order"
	"github.com/kyungseok/orderflow-saga/internal/eventbus"
)

const minDeliveryDays = 3
const maxDeliveryDays = 6

// CreateShipmentService is the OrderPaid subscriber: it creates the
// shipment and publishes ShipmentCreated.
type CreateShipmentService struct {
	repo   Repository
	bus    *eventbus.Bus
	logger *zap.Logger
	rand   *rand.Rand
}

// NewCreateShipmentService builds a CreateShipmentService.
func NewCreateShipmentService(repo Repository, bus *eventbus.Bus, logger *zap.Logger) *CreateShipmentService {
	return &CreateShipmentService{
		repo:   repo,
		bus:    bus,
		logger: logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create builds a shipment for orderID/shippingAddress and emits
// ShipmentCreated.
func (s *CreateShipmentService) Create(ctx context.Context, orderID string, shippingAddress order.Address) error {
	now := time.Now()
	days := minDeliveryDays + s.rand.Intn(maxDeliveryDays-minDeliveryDays+1)
	estimated := now.Add(time.Duration(days) * 24 * time.Hour)
	trackingNumber := fmt.Sprintf("TRK%s", strings.ReplaceAll(uuid.New().String(), "-", ""))

	sh, err := New(uuid.New().String(), orderID, trackingNumber, shippingAddress, estimated, now)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, sh); err != nil {
		return err
	}

	s.logger.Info("shipment created", zap.String("shipmentId", sh.ID), zap.String("orderId", orderID))
	return s.bus.Publish(ctx, events.ShipmentCreatedEvent{
		Base: events.Base{
			EventID: uuid.New().String(), AggregateID: sh.ID, AggregateType: "Shipment",
			OccurredAt: now, Version: sh.Version,
		},
		ShipmentID:     sh.ID,
		OrderID:        orderID,
		TrackingNumber: trackingNumber,
		ShippingAddress: events.Address{
			Street: shippingAddress.Street, City: shippingAddress.City,
			State: shippingAddress.State, PostalCode: shippingAddress.PostalCode,
			Country: shippingAddress.Country,
		},
	})
}
