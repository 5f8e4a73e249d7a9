// Package order implements the Order aggregate and its state machine:
// PENDING -> {CONFIRMED, REJECTED}, CONFIRMED ->
// {PAID, PAYMENT_FAILED}, PAID -> SHIPPED, and a customer-initiated cancel
// from any of PENDING/CONFIRMED/PAID to CANCELLED.
package order

import (
	"strings"
	"time"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
	"github.com/kyungseok/orderflow-saga/internal/common/money"
)

// Status is one of the seven order states.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusConfirmed     Status = "CONFIRMED"
	StatusRejected      Status = "REJECTED"
	StatusPaid          Status = "PAID"
	StatusPaymentFailed Status = "PAYMENT_FAILED"
	StatusShipped       Status = "SHIPPED"
	StatusCancelled     Status = "CANCELLED"
)

// Terminal reports whether status has no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusPaymentFailed, StatusShipped, StatusCancelled:
		return true
	default:
		return false
	}
}

// Address is the five-field shipping address; all fields are
// required and trimmed non-empty.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// NewAddress validates and trims all five fields.
func NewAddress(street, city, state, postalCode, country string) (Address, error) {
	fields := map[string]string{
		"street": street, "city": city, "state": state,
		"postalCode": postalCode, "country": country,
	}
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			return Address{}, apperr.NewValidation(name, "must not be empty")
		}
	}
	return Address{
		Street:     strings.TrimSpace(street),
		City:       strings.TrimSpace(city),
		State:      strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(postalCode),
		Country:    strings.TrimSpace(country),
	}, nil
}

// Item is one order line: a sku, a quantity, and a unit price.
type Item struct {
	SKU       string
	Quantity  int
	UnitPrice money.Money
}

// TotalPrice is quantity * unitPrice.
func (i Item) TotalPrice() (money.Money, error) {
	return i.UnitPrice.Multiply(int64(i.Quantity))
}

func newItem(sku string, quantity int, unitPrice money.Money) (Item, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Item{}, apperr.NewValidation("sku", "must not be empty")
	}
	if quantity < 1 {
		return Item{}, apperr.NewValidation("quantity", "must be at least 1")
	}
	return Item{SKU: sku, Quantity: quantity, UnitPrice: unitPrice}, nil
}

// NewItem validates and builds an Item.
func NewItem(sku string, quantity int, unitPrice money.Money) (Item, error) {
	return newItem(sku, quantity, unitPrice)
}

// Order is the order aggregate.
type Order struct {
	ID                 string
	CustomerID         string
	Items              []Item
	ShippingAddress    Address
	TotalAmount        money.Money
	Status             Status
	PaymentID          string
	ShipmentID         string
	CancellationReason string
	RejectionReason    string
	FailureReason      string
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// New constructs a PENDING order, validating customerId and items and
// computing TotalAmount from the items' common currency.
func New(id, customerID string, items []Item, shippingAddress Address, now time.Time) (*Order, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, apperr.NewValidation("customerId", "must not be empty")
	}
	if len(items) == 0 {
		return nil, apperr.NewValidation("items", "must not be empty")
	}

	total := money.Zero(items[0].UnitPrice.Currency())
	for _, it := range items {
		lineTotal, err := it.TotalPrice()
		if err != nil {
			return nil, err
		}
		total, err = total.Add(lineTotal)
		if err != nil {
			return nil, apperr.NewValidation("items", "all items must share one currency")
		}
	}

	return &Order{
		ID:              id,
		CustomerID:      customerID,
		Items:           items,
		ShippingAddress: shippingAddress,
		TotalAmount:     total,
		Status:          StatusPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (o *Order) transitionError(method string, to Status) error {
	return apperr.NewBusinessRule("order.transition",
		method+": cannot transition from "+string(o.Status)+" to "+string(to))
}

func (o *Order) advance(to Status, now time.Time) {
	o.Status = to
	o.Version++
	o.UpdatedAt = now
}

// Confirm transitions PENDING -> CONFIRMED, triggered by InventoryReserved.
func (o *Order) Confirm(now time.Time) error {
	if o.Status != StatusPending {
		return o.transitionError("confirm", StatusConfirmed)
	}
	o.advance(StatusConfirmed, now)
	return nil
}

// Reject transitions PENDING -> REJECTED, triggered by
// InventoryReservationFailed.
func (o *Order) Reject(reason string, now time.Time) error {
	if o.Status != StatusPending {
		return o.transitionError("reject", StatusRejected)
	}
	o.RejectionReason = reason
	o.advance(StatusRejected, now)
	return nil
}

// MarkAsPaid transitions CONFIRMED -> PAID, triggered by PaymentProcessed.
func (o *Order) MarkAsPaid(paymentID string, now time.Time) error {
	if o.Status != StatusConfirmed {
		return o.transitionError("markAsPaid", StatusPaid)
	}
	o.PaymentID = paymentID
	o.advance(StatusPaid, now)
	return nil
}

// MarkPaymentFailed transitions CONFIRMED -> PAYMENT_FAILED, triggered by
// PaymentFailed.
func (o *Order) MarkPaymentFailed(reason string, now time.Time) error {
	if o.Status != StatusConfirmed {
		return o.transitionError("markPaymentFailed", StatusPaymentFailed)
	}
	o.FailureReason = reason
	o.advance(StatusPaymentFailed, now)
	return nil
}

// MarkAsShipped transitions PAID -> SHIPPED, triggered by ShipmentCreated.
func (o *Order) MarkAsShipped(shipmentID string, now time.Time) error {
	if o.Status != StatusPaid {
		return o.transitionError("markAsShipped", StatusShipped)
	}
	o.ShipmentID = shipmentID
	o.advance(StatusShipped, now)
	return nil
}

// Cancel transitions PENDING/CONFIRMED/PAID -> CANCELLED. Cancelling a
// terminal order — including SHIPPED — always fails.
func (o *Order) Cancel(reason string, now time.Time) error {
	switch o.Status {
	case StatusPending, StatusConfirmed, StatusPaid:
		o.CancellationReason = reason
		o.advance(StatusCancelled, now)
		return nil
	default:
		return o.transitionError("cancel", StatusCancelled)
	}
}
