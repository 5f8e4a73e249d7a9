// Package events defines the domain event vocabulary for the order
// fulfillment saga: the concrete, typed event payloads that flow across
// the in-process bus, and the generic Envelope shape the event store
// persists them as.
//
// Event payloads intentionally carry their own copies of Address/line-item
// shapes rather than importing the order/inventory domain packages — this
// keeps the event vocabulary free of the cyclic import that would
// otherwise result from domain packages emitting events of their own
// vocabulary package.
package events

import "time"

// Type is a domain event's type name.
type Type string

const (
	OrderPlaced                Type = "OrderPlaced"
	InventoryReserved          Type = "InventoryReserved"
	InventoryReservationFailed Type = "InventoryReservationFailed"
	OrderConfirmed             Type = "OrderConfirmed"
	OrderRejected              Type = "OrderRejected"
	PaymentProcessed           Type = "PaymentProcessed"
	PaymentFailed              Type = "PaymentFailed"
	OrderPaid                  Type = "OrderPaid"
	OrderPaymentFailed         Type = "OrderPaymentFailed"
	ShipmentCreated            Type = "ShipmentCreated"
	OrderShipped               Type = "OrderShipped"
	OrderCancelled             Type = "OrderCancelled"
	InventoryReleased          Type = "InventoryReleased"
)

// Address mirrors the Order/Shipment shipping address for event payloads.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// LineItem mirrors a single order line for event payloads.
type LineItem struct {
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	UnitAmount   int64  `json:"unitAmount"`
	UnitCurrency string `json:"unitCurrency"`
}

// ReservationInfo describes one stock reservation for event payloads.
type ReservationInfo struct {
	ReservationID string `json:"reservationId"`
	SKU           string `json:"sku"`
	Quantity      int    `json:"quantity"`
}

// Base carries the fields every concrete event shares.
type Base struct {
	EventID       string
	AggregateID   string
	AggregateType string
	OccurredAt    time.Time
	Version       int
}

// Event is implemented by every concrete event payload. Envelope converts
// the typed payload into the generic, storable record.
type Event interface {
	EventType() Type
	Envelope() Envelope
}

// Envelope is the system-wide domain event record: the shape the event
// store persists and queries, independent of the originating event's Go
// type.
type Envelope struct {
	EventID       string
	EventType     Type
	AggregateID   string
	AggregateType string
	OccurredAt    time.Time
	Payload       map[string]interface{}
	Version       int
}

func (b Base) envelope(t Type, payload map[string]interface{}) Envelope {
	return Envelope{
		EventID:       b.EventID,
		EventType:     t,
		AggregateID:   b.AggregateID,
		AggregateType: b.AggregateType,
		OccurredAt:    b.OccurredAt,
		Payload:       payload,
		Version:       b.Version,
	}
}

// OrderPlacedEvent carries everything ReserveStockService needs without a
// cross-context read: the order id and its requested line items.
type OrderPlacedEvent struct {
	Base
	OrderID         string
	CustomerID      string
	Items           []LineItem
	ShippingAddress Address
	TotalAmount     int64
	TotalCurrency   string
}

func (e OrderPlacedEvent) EventType() Type { return OrderPlaced }

func (e OrderPlacedEvent) Envelope() Envelope {
	items := make([]map[string]interface{}, 0, len(e.Items))
	for _, it := range e.Items {
		items = append(items, map[string]interface{}{
			"sku": it.SKU, "quantity": it.Quantity,
			"unitAmount": it.UnitAmount, "unitCurrency": it.UnitCurrency,
		})
	}
	return e.Base.envelope(OrderPlaced, map[string]interface{}{
		"orderId":    e.OrderID,
		"customerId": e.CustomerID,
		"items":      items,
		"totalAmount": map[string]interface{}{
			"amount": e.TotalAmount, "currency": e.TotalCurrency,
		},
	})
}

// InventoryReservedEvent reports a successful all-or-nothing reservation.
type InventoryReservedEvent struct {
	Base
	OrderID      string
	Reservations []ReservationInfo
}

func (e InventoryReservedEvent) EventType() Type { return InventoryReserved }

func (e InventoryReservedEvent) Envelope() Envelope {
	res := make([]map[string]interface{}, 0, len(e.Reservations))
	for _, r := range e.Reservations {
		res = append(res, map[string]interface{}{
			"reservationId": r.ReservationID, "sku": r.SKU, "quantity": r.Quantity,
		})
	}
	return e.Base.envelope(InventoryReserved, map[string]interface{}{
		"orderId":      e.OrderID,
		"reservations": res,
	})
}

// InventoryReservationFailedEvent reports a failed reservation, either at
// the pre-check or during the locked pass; in the latter case any line
// already reserved for the order has been released again.
type InventoryReservationFailedEvent struct {
	Base
	OrderID        string
	Reason         string
	RequestedItems []LineItem
}

func (e InventoryReservationFailedEvent) EventType() Type { return InventoryReservationFailed }

func (e InventoryReservationFailedEvent) Envelope() Envelope {
	items := make([]map[string]interface{}, 0, len(e.RequestedItems))
	for _, it := range e.RequestedItems {
		items = append(items, map[string]interface{}{"sku": it.SKU, "quantity": it.Quantity})
	}
	return e.Base.envelope(InventoryReservationFailed, map[string]interface{}{
		"orderId":        e.OrderID,
		"reason":         e.Reason,
		"requestedItems": items,
	})
}

// OrderConfirmedEvent is emitted once Order.confirm succeeds.
type OrderConfirmedEvent struct {
	Base
	OrderID string
}

func (e OrderConfirmedEvent) EventType() Type { return OrderConfirmed }

func (e OrderConfirmedEvent) Envelope() Envelope {
	return e.Base.envelope(OrderConfirmed, map[string]interface{}{"orderId": e.OrderID})
}

// OrderRejectedEvent is emitted once Order.reject succeeds.
type OrderRejectedEvent struct {
	Base
	OrderID string
	Reason  string
}

func (e OrderRejectedEvent) EventType() Type { return OrderRejected }

func (e OrderRejectedEvent) Envelope() Envelope {
	return e.Base.envelope(OrderRejected, map[string]interface{}{
		"orderId": e.OrderID, "reason": e.Reason,
	})
}

// PaymentProcessedEvent reports a successful payment capture.
type PaymentProcessedEvent struct {
	Base
	PaymentID     string
	OrderID       string
	Amount        int64
	Currency      string
	PaymentMethod string
}

func (e PaymentProcessedEvent) EventType() Type { return PaymentProcessed }

func (e PaymentProcessedEvent) Envelope() Envelope {
	return e.Base.envelope(PaymentProcessed, map[string]interface{}{
		"paymentId":     e.PaymentID,
		"orderId":       e.OrderID,
		"amount":        e.Amount,
		"currency":      e.Currency,
		"paymentMethod": e.PaymentMethod,
	})
}

// PaymentFailedEvent reports a failed payment capture.
type PaymentFailedEvent struct {
	Base
	PaymentID string
	OrderID   string
	Reason    string
}

func (e PaymentFailedEvent) EventType() Type { return PaymentFailed }

func (e PaymentFailedEvent) Envelope() Envelope {
	return e.Base.envelope(PaymentFailed, map[string]interface{}{
		"paymentId": e.PaymentID, "orderId": e.OrderID, "reason": e.Reason,
	})
}

// OrderPaidEvent is emitted once Order.markAsPaid succeeds.
type OrderPaidEvent struct {
	Base
	OrderID   string
	PaymentID string
}

func (e OrderPaidEvent) EventType() Type { return OrderPaid }

func (e OrderPaidEvent) Envelope() Envelope {
	return e.Base.envelope(OrderPaid, map[string]interface{}{
		"orderId": e.OrderID, "paymentId": e.PaymentID,
	})
}

// OrderPaymentFailedEvent is emitted once Order.markPaymentFailed succeeds;
// it triggers the compensating stock release.
type OrderPaymentFailedEvent struct {
	Base
	OrderID string
	Reason  string
}

func (e OrderPaymentFailedEvent) EventType() Type { return OrderPaymentFailed }

func (e OrderPaymentFailedEvent) Envelope() Envelope {
	return e.Base.envelope(OrderPaymentFailed, map[string]interface{}{
		"orderId": e.OrderID, "reason": e.Reason,
	})
}

// ShipmentCreatedEvent reports a newly created shipment.
type ShipmentCreatedEvent struct {
	Base
	ShipmentID      string
	OrderID         string
	TrackingNumber  string
	ShippingAddress Address
}

func (e ShipmentCreatedEvent) EventType() Type { return ShipmentCreated }

func (e ShipmentCreatedEvent) Envelope() Envelope {
	return e.Base.envelope(ShipmentCreated, map[string]interface{}{
		"shipmentId":     e.ShipmentID,
		"orderId":        e.OrderID,
		"trackingNumber": e.TrackingNumber,
		"shippingAddress": map[string]interface{}{
			"street": e.ShippingAddress.Street, "city": e.ShippingAddress.City,
			"state": e.ShippingAddress.State, "postalCode": e.ShippingAddress.PostalCode,
			"country": e.ShippingAddress.Country,
		},
	})
}

// OrderShippedEvent is emitted once Order.markAsShipped succeeds.
type OrderShippedEvent struct {
	Base
	OrderID    string
	ShipmentID string
}

func (e OrderShippedEvent) EventType() Type { return OrderShipped }

func (e OrderShippedEvent) Envelope() Envelope {
	return e.Base.envelope(OrderShipped, map[string]interface{}{
		"orderId": e.OrderID, "shipmentId": e.ShipmentID,
	})
}

// OrderCancelledEvent is emitted by a customer-initiated cancel.
type OrderCancelledEvent struct {
	Base
	OrderID string
	Reason  string
}

func (e OrderCancelledEvent) EventType() Type { return OrderCancelled }

func (e OrderCancelledEvent) Envelope() Envelope {
	return e.Base.envelope(OrderCancelled, map[string]interface{}{
		"orderId": e.OrderID, "reason": e.Reason,
	})
}

// InventoryReleasedEvent reports a successful compensating release.
type InventoryReleasedEvent struct {
	Base
	OrderID      string
	Reservations []ReservationInfo
}

func (e InventoryReleasedEvent) EventType() Type { return InventoryReleased }

func (e InventoryReleasedEvent) Envelope() Envelope {
	res := make([]map[string]interface{}, 0, len(e.Reservations))
	for _, r := range e.Reservations {
		res = append(res, map[string]interface{}{
			"reservationId": r.ReservationID, "sku": r.SKU, "quantity": r.Quantity,
		})
	}
	return e.Base.envelope(InventoryReleased, map[string]interface{}{
		"orderId":      e.OrderID,
		"reservations": res,
	})
}
