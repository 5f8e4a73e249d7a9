package order

import "context"

// Repository is the Order aggregate's persistence port.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	// FindAll returns every order, most-recently-created first.
	FindAll(ctx context.Context) ([]*Order, error)
}
