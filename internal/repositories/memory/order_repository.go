package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

var errOrderExists = errors.New("order already exists")

// OrderRepository stores orders in a map guarded by a mutex; Update holds the lock for the whole
// read-modify-write.
type OrderRepository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

// NewOrderRepository constructs an empty order store.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]domain.Order)}
}

// Insert stores a new order and rejects duplicate ids.
func (r *OrderRepository) Insert(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[order.ID]; exists {
		return &repositories.StoreError{Op: "orders.insert", Err: errOrderExists, Conflict: true}
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

// Update applies mutate to the stored order atomically.
func (r *OrderRepository) Update(_ context.Context, orderID string, mutate repositories.OrderMutation) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, notFound("orders.update")
	}
	working := current.Clone()
	if mutate != nil {
		if err := mutate(&working); err != nil {
			return domain.Order{}, err
		}
	}
	r.orders[orderID] = working.Clone()
	return working, nil
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, notFound("orders.get")
	}
	return order.Clone(), nil
}

// FindByAWB loads the order holding the consignment number.
func (r *OrderRepository) FindByAWB(_ context.Context, awbNumber string) (domain.Order, error) {
	awbNumber = strings.TrimSpace(awbNumber)
	r.mu.Lock()
	defer r.mu.Unlock()
	if awbNumber != "" {
		for _, order := range r.orders {
			if order.Courier.AWBNumber == awbNumber {
				return order.Clone(), nil
			}
		}
	}
	return domain.Order{}, notFound("orders.find_by_awb")
}

// ListByUser returns the user's orders newest first.
func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			out = append(out, order.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListRecent returns at most limit orders newest first.
func (r *OrderRepository) ListRecent(_ context.Context, limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		out = append(out, order.Clone())
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func notFound(op string) error {
	return &repositories.StoreError{Op: op, Err: repositories.ErrNotFound, NotFound: true}
}
