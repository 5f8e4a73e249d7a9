package inventory

import "context"

// ProductRepository is the Product aggregate's persistence port.
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	FindAll(ctx context.Context) ([]*Product, error)
}

// ReservationRepository is the StockReservation entity's persistence port.
type ReservationRepository interface {
	Create(ctx context.Context, r *StockReservation) error
	Update(ctx context.Context, r *StockReservation) error
	FindByID(ctx context.Context, id string) (*StockReservation, error)
	// FindUnreleasedByOrderID returns every reservation for orderId with
	// Released == false, used by ReleaseStockService.
	FindUnreleasedByOrderID(ctx context.Context, orderID string) ([]*StockReservation, error)
}
