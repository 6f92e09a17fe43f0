package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Inventory() InventoryRepository
	Orders() OrderRepository
	Carts() CartRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// InventoryRepository owns the per-variant stock counters. Reserve must be all-or-nothing; Release
// applies every line it can resolve and reports the rest in Skipped.
type InventoryRepository interface {
	Reserve(ctx context.Context, req InventoryAdjustRequest) (InventoryAdjustResult, error)
	Release(ctx context.Context, req InventoryAdjustRequest) (InventoryAdjustResult, error)
	GetStock(ctx context.Context, productID string) (domain.ProductStock, error)
}

// InventoryAdjustRequest carries the aggregated lines to decrement or increment.
type InventoryAdjustRequest struct {
	Lines []domain.StockLine
	Now   time.Time
}

// InventoryAdjustResult returns the updated stock projections keyed by product id. Skipped lists the
// release lines that could not be resolved and were left out of the write.
type InventoryAdjustResult struct {
	Products map[string]domain.ProductStock
	Skipped  []*InventoryError
}

// OrderMutation mutates the loaded order in place. Returning an error aborts the update.
type OrderMutation func(order *domain.Order) error

// OrderRepository persists orders. Update is an atomic read-modify-write.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, orderID string, mutate OrderMutation) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByAWB(ctx context.Context, awbNumber string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Order, error)
}

// CartRepository exposes the cart operations the order flow depends on.
type CartRepository interface {
	Clear(ctx context.Context, userID string, now time.Time) error
}

// ErrNotFound is the generic not-found error used by in-memory stores.
var ErrNotFound = errors.New("repositories: not found")

// StoreError categorises failures for stores that do not carry their own error type.
type StoreError struct {
	Op          string
	Err         error
	NotFound    bool
	Conflict    bool
	Unavailable bool
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsNotFound implements RepositoryError.
func (e *StoreError) IsNotFound() bool { return e != nil && e.NotFound }

// IsConflict implements RepositoryError.
func (e *StoreError) IsConflict() bool { return e != nil && e.Conflict }

// IsUnavailable implements RepositoryError.
func (e *StoreError) IsUnavailable() bool { return e != nil && e.Unavailable }

// IsNotFound reports whether err is a repository not-found failure.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err is a repository conflict failure.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
