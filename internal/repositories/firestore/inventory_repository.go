package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	pfirestore "github.com/Vidhya-shiva/prabha-backend-file/internal/platform/firestore"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

const productsCollection = "products"

// InventoryRepository adjusts the stockDetails map stored on product documents. Every adjustment runs
// in one transaction so concurrent reservations for the same variant serialise on the document.
type InventoryRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.Collection[productDocument]
}

// NewInventoryRepository constructs a Firestore-backed inventory repository.
func NewInventoryRepository(provider *pfirestore.Provider) (*InventoryRepository, error) {
	if provider == nil {
		return nil, errors.New("inventory repository requires firestore provider")
	}
	return &InventoryRepository{
		provider: provider,
		products: pfirestore.NewCollection[productDocument](provider, productsCollection),
	}, nil
}

// Reserve decrements every line or none of them.
func (r *InventoryRepository) Reserve(ctx context.Context, req repositories.InventoryAdjustRequest) (repositories.InventoryAdjustResult, error) {
	return r.adjust(ctx, "inventory.reserve", req, -1)
}

// Release increments every line it can resolve. Missing products or variants are reported in Skipped.
func (r *InventoryRepository) Release(ctx context.Context, req repositories.InventoryAdjustRequest) (repositories.InventoryAdjustResult, error) {
	return r.adjust(ctx, "inventory.release", req, 1)
}

// GetStock loads the stock projection of a product.
func (r *InventoryRepository) GetStock(ctx context.Context, productID string) (domain.ProductStock, error) {
	if r == nil || r.products == nil {
		return domain.ProductStock{}, errors.New("inventory repository not initialised")
	}
	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.ProductStock{}, err
	}
	return doc.toDomain(strings.TrimSpace(productID)), nil
}

func (r *InventoryRepository) adjust(ctx context.Context, op string, req repositories.InventoryAdjustRequest, sign int) (repositories.InventoryAdjustResult, error) {
	if r == nil || r.provider == nil {
		return repositories.InventoryAdjustResult{}, errors.New("inventory repository not initialised")
	}
	lines := domain.AggregateStockLines(req.Lines)
	if len(lines) == 0 {
		return repositories.InventoryAdjustResult{}, fmt.Errorf("%s: no lines", op)
	}
	now := req.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	release := sign > 0
	var result repositories.InventoryAdjustResult
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var skipped []*repositories.InventoryError
		type loaded struct {
			ref     *firestore.DocumentRef
			doc     productDocument
			product domain.ProductStock
		}
		working := make(map[string]*loaded)
		missing := make(map[string]bool)
		order := make([]string, 0, len(lines))

		// Firestore requires every read to happen before the first write.
		for _, line := range lines {
			if _, ok := working[line.ProductID]; ok || missing[line.ProductID] {
				continue
			}
			ref, err := r.products.Doc(ctx, line.ProductID)
			if err != nil {
				return err
			}
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					if release {
						missing[line.ProductID] = true
						continue
					}
					return inventoryErr(op, repositories.ProductNotFound(line.ProductID, line.Label))
				}
				return err
			}
			doc, err := pfirestore.Decode[productDocument](snap)
			if err != nil {
				return err
			}
			working[line.ProductID] = &loaded{ref: ref, doc: doc, product: doc.toDomain(line.ProductID)}
			order = append(order, line.ProductID)
		}

		for _, line := range lines {
			entry, ok := working[line.ProductID]
			if !ok {
				skipped = append(skipped, withOp(op, repositories.ProductNotFound(line.ProductID, line.Label)))
				continue
			}
			variant, ok := entry.product.Variant(line.Size, line.Color)
			if !ok {
				_, sizeKnown := entry.product.Variants[line.Size]
				unresolved := withOp(op, repositories.VariantNotFound(line.ProductID, line.Size, line.Color, sizeKnown))
				if release {
					skipped = append(skipped, unresolved)
					continue
				}
				return unresolved
			}
			next := variant.Quantity + sign*line.Quantity
			if next < 0 {
				return inventoryErr(op, repositories.InsufficientStock(line.ProductID, line.Size, line.Color, line.Label, variant.Quantity))
			}
			entry.product.SetQuantity(line.Size, line.Color, next)
		}

		result = repositories.InventoryAdjustResult{
			Products: make(map[string]domain.ProductStock, len(working)),
			Skipped:  skipped,
		}
		for _, id := range order {
			entry := working[id]
			entry.product.Recalculate()
			entry.product.UpdatedAt = now
			entry.doc.applyStock(entry.product)
			if err := tx.Set(entry.ref, entry.doc); err != nil {
				return err
			}
			result.Products[id] = entry.product.Clone()
		}
		return nil
	})
	if err != nil {
		return repositories.InventoryAdjustResult{}, pfirestore.WrapError(op, err)
	}
	return result, nil
}

func inventoryErr(op string, err *repositories.InventoryError) error {
	return withOp(op, err)
}

func withOp(op string, err *repositories.InventoryError) *repositories.InventoryError {
	err.Op = op
	return err
}
