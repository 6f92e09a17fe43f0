// Package memory provides process-local repository implementations used for local development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

// InventoryRepository keeps product stock in memory. All mutations hold one lock so a reservation
// validates and applies every line without interleaving with another request.
type InventoryRepository struct {
	mu       sync.Mutex
	products map[string]domain.ProductStock
}

// NewInventoryRepository seeds the repository with the provided products.
func NewInventoryRepository(products ...domain.ProductStock) *InventoryRepository {
	repo := &InventoryRepository{products: make(map[string]domain.ProductStock, len(products))}
	for _, product := range products {
		repo.Put(product)
	}
	return repo
}

// Put inserts or replaces a product stock record.
func (r *InventoryRepository) Put(product domain.ProductStock) {
	product = product.Clone()
	if product.Variants == nil {
		product.Variants = map[string]map[string]domain.VariantStock{}
	}
	product.Recalculate()
	r.mu.Lock()
	r.products[product.ProductID] = product
	r.mu.Unlock()
}

// Reserve decrements every line or none of them.
func (r *InventoryRepository) Reserve(_ context.Context, req repositories.InventoryAdjustRequest) (repositories.InventoryAdjustResult, error) {
	return r.adjust("inventory.reserve", req, -1)
}

// Release increments every line it can resolve without an upper bound. Lines whose product or variant
// no longer exists are reported in Skipped.
func (r *InventoryRepository) Release(_ context.Context, req repositories.InventoryAdjustRequest) (repositories.InventoryAdjustResult, error) {
	return r.adjust("inventory.release", req, 1)
}

// GetStock returns a copy of the product stock record.
func (r *InventoryRepository) GetStock(_ context.Context, productID string) (domain.ProductStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	product, ok := r.products[strings.TrimSpace(productID)]
	if !ok {
		return domain.ProductStock{}, &repositories.StoreError{Op: "inventory.get", Err: repositories.ErrNotFound, NotFound: true}
	}
	return product.Clone(), nil
}

func (r *InventoryRepository) adjust(op string, req repositories.InventoryAdjustRequest, sign int) (repositories.InventoryAdjustResult, error) {
	lines := domain.AggregateStockLines(req.Lines)
	if len(lines) == 0 {
		return repositories.InventoryAdjustResult{}, fmt.Errorf("%s: no lines", op)
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Releases skip unresolvable lines; reservations abort on them.
	release := sign > 0
	var skipped []*repositories.InventoryError
	working := make(map[string]domain.ProductStock)
	for _, line := range lines {
		product, ok := working[line.ProductID]
		if !ok {
			stored, exists := r.products[line.ProductID]
			if !exists {
				missing := withOp(op, repositories.ProductNotFound(line.ProductID, line.Label))
				if release {
					skipped = append(skipped, missing)
					continue
				}
				return repositories.InventoryAdjustResult{}, missing
			}
			product = stored.Clone()
			working[line.ProductID] = product
		}
		variant, ok := product.Variant(line.Size, line.Color)
		if !ok {
			_, sizeKnown := product.Variants[line.Size]
			missing := withOp(op, repositories.VariantNotFound(line.ProductID, line.Size, line.Color, sizeKnown))
			if release {
				skipped = append(skipped, missing)
				continue
			}
			return repositories.InventoryAdjustResult{}, missing
		}
		next := variant.Quantity + sign*line.Quantity
		if next < 0 {
			return repositories.InventoryAdjustResult{}, withOp(op, repositories.InsufficientStock(line.ProductID, line.Size, line.Color, line.Label, variant.Quantity))
		}
		product.SetQuantity(line.Size, line.Color, next)
	}

	result := repositories.InventoryAdjustResult{
		Products: make(map[string]domain.ProductStock, len(working)),
		Skipped:  skipped,
	}
	for id, product := range working {
		product.Recalculate()
		product.UpdatedAt = now.UTC()
		r.products[id] = product
		result.Products[id] = product.Clone()
	}
	return result, nil
}

func withOp(op string, err *repositories.InventoryError) *repositories.InventoryError {
	err.Op = op
	return err
}
