package inventory

import (
	"context"
	"sort"
	"sync"

	"github.com/kyungseok/orderflow-saga/internal/common/apperr"
)

// MemoryProductRepository is the default in-process ProductRepository.
type MemoryProductRepository struct {
	mu            sync.RWMutex
	productsByID  map[string]*Product
	idBySKU       map[string]string
	insertSeq     []string
}

// NewMemoryProductRepository builds an empty in-process product repository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		productsByID: make(map[string]*Product),
		idBySKU:      make(map[string]string),
	}
}

func (r *MemoryProductRepository) Create(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.idBySKU[p.SKU]; exists {
		return apperr.NewBusinessRule("inventory.createProduct", "sku already exists: "+p.SKU)
	}
	cp := *p
	r.productsByID[p.ID] = &cp
	r.idBySKU[p.SKU] = p.ID
	r.insertSeq = append(r.insertSeq, p.ID)
	return nil
}

func (r *MemoryProductRepository) Update(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.productsByID[p.ID]; !ok {
		return apperr.NewNotFound("product", p.ID)
	}
	cp := *p
	r.productsByID[p.ID] = &cp
	return nil
}

func (r *MemoryProductRepository) FindByID(_ context.Context, id string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.productsByID[id]
	if !ok {
		return nil, apperr.NewNotFound("product", id)
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProductRepository) FindBySKU(_ context.Context, sku string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sku = NormalizeSKU(sku)
	id, ok := r.idBySKU[sku]
	if !ok {
		return nil, apperr.NewNotFound("product", sku)
	}
	cp := *r.productsByID[id]
	return &cp, nil
}

func (r *MemoryProductRepository) FindAll(_ context.Context) ([]*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Product, 0, len(r.insertSeq))
	for _, id := range r.insertSeq {
		cp := *r.productsByID[id]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// MemoryReservationRepository is the default in-process ReservationRepository.
type MemoryReservationRepository struct {
	mu              sync.RWMutex
	reservationsByID map[string]*StockReservation
	idsByOrderID     map[string][]string
}

// NewMemoryReservationRepository builds an empty in-process reservation
// repository.
func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{
		reservationsByID: make(map[string]*StockReservation),
		idsByOrderID:     make(map[string][]string),
	}
}

func (r *MemoryReservationRepository) Create(_ context.Context, res *StockReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *res
	r.reservationsByID[res.ID] = &cp
	r.idsByOrderID[res.OrderID] = append(r.idsByOrderID[res.OrderID], res.ID)
	return nil
}

func (r *MemoryReservationRepository) Update(_ context.Context, res *StockReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reservationsByID[res.ID]; !ok {
		return apperr.NewNotFound("stockReservation", res.ID)
	}
	cp := *res
	r.reservationsByID[res.ID] = &cp
	return nil
}

func (r *MemoryReservationRepository) FindByID(_ context.Context, id string) (*StockReservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.reservationsByID[id]
	if !ok {
		return nil, apperr.NewNotFound("stockReservation", id)
	}
	cp := *res
	return &cp, nil
}

func (r *MemoryReservationRepository) FindUnreleasedByOrderID(_ context.Context, orderID string) ([]*StockReservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.idsByOrderID[orderID]
	out := make([]*StockReservation, 0, len(ids))
	for _, id := range ids {
		res := r.reservationsByID[id]
		if res.Released {
			continue
		}
		cp := *res
		out = append(out, &cp)
	}
	return out, nil
}
