package payment

import (
	"context"
	"sync"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
)

// MemoryRepository is the default in-process Repository.
type MemoryRepository struct {
	mu              sync.RWMutex
	paymentsByID    map[string]*Payment
	idByOrderID     map[string]string
}

// NewMemoryRepository builds an empty in-process payment repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		paymentsByID: make(map[string]*Payment),
		idByOrderID:  make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *p
	r.paymentsByID[p.ID] = &cp
	r.idByOrderID[p.OrderID] = p.ID
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.paymentsByID[p.ID]; !ok {
		return apperr.NewNotFound("payment", p.ID)
	}
	cp := *p
	r.paymentsByID[p.ID] = &cp
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.paymentsByID[id]
	if !ok {
		return nil, apperr.NewNotFound("payment", id)
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) FindByOrderID(_ context.Context, orderID string) (*Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idByOrderID[orderID]
	if !ok {
		return nil, apperr.NewNotFound("payment", orderID)
	}
	cp := *r.paymentsByID[id]
	return &cp, nil
}
