package shipment

import "context"

// Repository is the Shipment aggregate's persistence port.
type Repository interface {
	Create(ctx context.Context, s *Shipment) error
	Update(ctx context.Context, s *Shipment) error
	FindByID(ctx context.Context, id string) (*Shipment, error)
	FindByOrderID(ctx context.Context, orderID string) (*Shipment, error)
}
