package inventory

import "time"

// StockReservation records one sku's worth of a successful reservation
// attempt for an order. Created one-per-sku per successful reservation;
// Released is terminal once set.
type StockReservation struct {
	ID        string
	OrderID   string
	SKU       string
	Quantity  int
	CreatedAt time.Time
	ExpiresAt *time.Time
	Released  bool
}

// NewStockReservation builds an unreleased reservation record.
func NewStockReservation(id, orderID, sku string, quantity int, now time.Time) *StockReservation {
	return &StockReservation{
		ID:        id,
		OrderID:   orderID,
		SKU:       NormalizeSKU(sku),
		Quantity:  quantity,
		CreatedAt: now,
	}
}

// Release marks the reservation terminally released.
func (r *StockReservation) Release() {
	r.Released = true
}
