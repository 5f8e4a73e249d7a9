// Package inventory implements the Inventory bounded context: the
// Product stock ledger, the StockReservation entity, and the
// ReserveStockService/ReleaseStockService that the saga drives off
// OrderPlaced/OrderCancelled/OrderPaymentFailed.
package inventory

import (
	"strconv"
	"strings"
	"time"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
)

// Status is a product's availability for new reservations.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Product is the inventory aggregate: a stock ledger for one sku.
// Invariants:
//
//	I1: stockQuantity >= reservedQuantity >= 0.
//	I2: availableStock >= 0.
//	I3: reservedQuantity only mutates via reserveStock/releaseStock.
type Product struct {
	ID               string
	SKU              string
	Name             string
	StockQuantity    int
	ReservedQuantity int
	Status           Status
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NormalizeSKU trims and upper-cases a sku. It does not check length; New
// enforces the 1-50 char rule.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// New constructs an ACTIVE product with zero reservations.
func New(id, sku, name string, stockQuantity int, now time.Time) (*Product, error) {
	sku = NormalizeSKU(sku)
	if sku == "" || len(sku) > 50 {
		return nil, apperr.NewValidation("sku", "must be 1-50 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.NewValidation("name", "must not be empty")
	}
	if stockQuantity < 0 {
		return nil, apperr.NewValidation("stockQuantity", "must be non-negative")
	}
	return &Product{
		ID:            id,
		SKU:           sku,
		Name:          name,
		StockQuantity: stockQuantity,
		Status:        StatusActive,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// AvailableStock is stockQuantity - reservedQuantity (I2 holds it >= 0).
func (p *Product) AvailableStock() int {
	return p.StockQuantity - p.ReservedQuantity
}

// CanReserve reports whether q units can be reserved right now.
func (p *Product) CanReserve(q int) bool {
	return p.Status == StatusActive && q > 0 && p.AvailableStock() >= q
}

// ReserveStock increments reservedQuantity by q, failing if CanReserve(q)
// does not hold.
func (p *Product) ReserveStock(q int, now time.Time) error {
	if !p.CanReserve(q) {
		return apperr.NewBusinessRule("inventory.reserve",
			"cannot reserve "+strconv.Itoa(q)+" units of "+p.SKU)
	}
	p.ReservedQuantity += q
	p.Version++
	p.UpdatedAt = now
	return nil
}

// ReleaseStock decrements reservedQuantity by q, failing if q is
// non-positive or exceeds the current reservation.
func (p *Product) ReleaseStock(q int, now time.Time) error {
	if q <= 0 || q > p.ReservedQuantity {
		return apperr.NewBusinessRule("inventory.release",
			"cannot release "+strconv.Itoa(q)+" units of "+p.SKU)
	}
	p.ReservedQuantity -= q
	p.Version++
	p.UpdatedAt = now
	return nil
}

// AdjustStock sets stockQuantity to newQuantity, failing if newQuantity is
// negative or would drop below the current reservedQuantity.
func (p *Product) AdjustStock(newQuantity int, now time.Time) error {
	if newQuantity < 0 {
		return apperr.NewValidation("stockQuantity", "must be non-negative")
	}
	if newQuantity < p.ReservedQuantity {
		return apperr.NewBusinessRule("inventory.adjustStock",
			"stockQuantity must not be less than reservedQuantity")
	}
	p.StockQuantity = newQuantity
	p.Version++
	p.UpdatedAt = now
	return nil
}

// Activate makes the product eligible for new reservations.
func (p *Product) Activate(now time.Time) {
	p.Status = StatusActive
	p.Version++
	p.UpdatedAt = now
}

// Deactivate makes the product ineligible for new reservations; existing
// reservations are unaffected.
func (p *Product) Deactivate(now time.Time) {
	p.Status = StatusInactive
	p.Version++
	p.UpdatedAt = now
}
