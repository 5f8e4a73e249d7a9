package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CatalogService implements the public product operations: createProduct,
// getProduct, and adjustProductStock.
type CatalogService struct {
	products ProductRepository
	locks    SKULocker
}

// NewCatalogService builds a CatalogService.
func NewCatalogService(products ProductRepository, locks SKULocker) *CatalogService {
	return &CatalogService{products: products, locks: locks}
}

// SKULocker is the subset of internal/locking.SKULocks that CatalogService
// needs, so adjustProductStock serializes against concurrent reservations
// on the same sku.
type SKULocker interface {
	WithLock(sku string, fn func() error) error
}

// CreateProduct validates and persists a new ACTIVE product.
func (s *CatalogService) CreateProduct(ctx context.Context, sku, name string, stockQuantity int) (*Product, error) {
	p, err := New(uuid.New().String(), sku, name, stockQuantity, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetProduct returns the product snapshot for sku.
func (s *CatalogService) GetProduct(ctx context.Context, sku string) (*Product, error) {
	return s.products.FindBySKU(ctx, sku)
}

// AdjustProductStock sets sku's stockQuantity to newQuantity under the
// sku's lock, so it cannot race a concurrent reserveStock/releaseStock.
func (s *CatalogService) AdjustProductStock(ctx context.Context, sku string, newQuantity int) (*Product, error) {
	var result *Product
	err := s.locks.WithLock(NormalizeSKU(sku), func() error {
		p, err := s.products.FindBySKU(ctx, sku)
		if err != nil {
			return err
		}
		if err := p.AdjustStock(newQuantity, time.Now()); err != nil {
			return err
		}
		if err := s.products.Update(ctx, p); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
