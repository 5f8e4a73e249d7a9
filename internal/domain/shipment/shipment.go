// Package shipment implements the Shipment bounded context: the
// Shipment aggregate and the CreateShipmentService the saga drives off
// OrderPaid.
package shipment

import (
	"time"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
	"github.com/kyungseok/orderflow-saga/internal/domain/order"
)

// Status is one of the three shipment states.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
)

// Shipment is the shipment aggregate.
type Shipment struct {
	ID                    string
	OrderID               string
	TrackingNumber        string
	ShippingAddress       order.Address
	Status                Status
	EstimatedDeliveryDate time.Time
	Version               int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// New constructs a PENDING shipment with trackingNumber and an estimated
// delivery date computed by the caller (now + a uniform random 3-6 days).
func New(id, orderID, trackingNumber string, shippingAddress order.Address, estimatedDeliveryDate, now time.Time) (*Shipment, error) {
	if orderID == "" {
		return nil, apperr.NewValidation("orderId", "must not be empty")
	}
	if trackingNumber == "" {
		return nil, apperr.NewValidation("trackingNumber", "must not be empty")
	}
	return &Shipment{
		ID:                    id,
		OrderID:               orderID,
		TrackingNumber:        trackingNumber,
		ShippingAddress:       shippingAddress,
		Status:                StatusPending,
		EstimatedDeliveryDate: estimatedDeliveryDate,
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

func (s *Shipment) transitionError(method string, to Status) error {
	return apperr.NewBusinessRule("shipment.transition",
		method+": cannot transition from "+string(s.Status)+" to "+string(to))
}

// Dispatch transitions PENDING -> IN_TRANSIT. Not driven by the saga but
// available for operational use.
func (s *Shipment) Dispatch(now time.Time) error {
	if s.Status != StatusPending {
		return s.transitionError("dispatch", StatusInTransit)
	}
	s.Status = StatusInTransit
	s.Version++
	s.UpdatedAt = now
	return nil
}

// MarkAsDelivered transitions IN_TRANSIT -> DELIVERED. Not driven by the
// saga but available for operational use.
func (s *Shipment) MarkAsDelivered(now time.Time) error {
	if s.Status != StatusInTransit {
		return s.transitionError("markAsDelivered", StatusDelivered)
	}
	s.Status = StatusDelivered
	s.Version++
	s.UpdatedAt = now
	return nil
}
