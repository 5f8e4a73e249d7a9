package order

import (
	"context"
	"sort"
	"sync"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
)

// MemoryRepository is the default in-process Repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	ordersByID map[string]*Order
	insertSeq  []string
}

// NewMemoryRepository builds an empty in-process order repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{ordersByID: make(map[string]*Order)}
}

func (r *MemoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *o
	r.ordersByID[o.ID] = &cp
	r.insertSeq = append(r.insertSeq, o.ID)
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ordersByID[o.ID]; !ok {
		return apperr.NewNotFound("order", o.ID)
	}
	cp := *o
	r.ordersByID[o.ID] = &cp
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.ordersByID[id]
	if !ok {
		return nil, apperr.NewNotFound("order", id)
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) FindAll(_ context.Context) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Order, 0, len(r.insertSeq))
	for _, id := range r.insertSeq {
		cp := *r.ordersByID[id]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
