package shipment

import (
	"context"
	"sync"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
)

// MemoryRepository is the default in-process Repository.
type MemoryRepository struct {
	mu               sync.RWMutex
	shipmentsByID    map[string]*Shipment
	idByOrderID      map[string]string
}

// NewMemoryRepository builds an empty in-process shipment repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		shipmentsByID: make(map[string]*Shipment),
		idByOrderID:   make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, s *Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	r.shipmentsByID[s.ID] = &cp
	r.idByOrderID[s.OrderID] = s.ID
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, s *Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.shipmentsByID[s.ID]; !ok {
		return apperr.NewNotFound("shipment", s.ID)
	}
	cp := *s
	r.shipmentsByID[s.ID] = &cp
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shipmentsByID[id]
	if !ok {
		return nil, apperr.NewNotFound("shipment", id)
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) FindByOrderID(_ context.Context, orderID string) (*Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idByOrderID[orderID]
	if !ok {
		return nil, apperr.NewNotFound("shipment", orderID)
	}
	cp := *r.shipmentsByID[id]
	return &cp, nil
}
