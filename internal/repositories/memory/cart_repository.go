package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
)

// CartRepository keeps carts keyed by user id.
type CartRepository struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
}

// NewCartRepository seeds the repository with carts.
func NewCartRepository(carts ...domain.Cart) *CartRepository {
	repo := &CartRepository{carts: make(map[string]domain.Cart, len(carts))}
	for _, cart := range carts {
		repo.carts[cart.UserID] = cart
	}
	return repo
}

// Clear empties the user's cart while keeping the record.
func (r *CartRepository) Clear(_ context.Context, userID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[userID]
	if !ok {
		return notFound("carts.clear")
	}
	cart.Items = nil
	cart.TotalPrice = 0
	cart.TotalItems = 0
	cart.UpdatedAt = now
	r.carts[userID] = cart
	return nil
}

// Get returns the stored cart.
func (r *CartRepository) Get(userID string) (domain.Cart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[userID]
	return cart, ok
}

// Put stores or replaces a cart.
func (r *CartRepository) Put(cart domain.Cart) {
	r.mu.Lock()
	r.carts[cart.UserID] = cart
	r.mu.Unlock()
}
