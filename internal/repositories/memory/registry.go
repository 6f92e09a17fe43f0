package memory

import (
	"context"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

// Registry bundles the in-memory repositories.
type Registry struct {
	inventory *InventoryRepository
	orders    *OrderRepository
	carts     *CartRepository
}

// NewRegistry constructs an in-memory registry with empty stores.
func NewRegistry() *Registry {
	return &Registry{
		inventory: NewInventoryRepository(),
		orders:    NewOrderRepository(),
		carts:     NewCartRepository(),
	}
}

// Close implements repositories.Registry.
func (r *Registry) Close(context.Context) error { return nil }

// Inventory implements repositories.Registry.
func (r *Registry) Inventory() repositories.InventoryRepository { return r.inventory }

// Orders implements repositories.Registry.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Carts implements repositories.Registry.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// Products exposes the concrete inventory store for seeding.
func (r *Registry) Products() *InventoryRepository { return r.inventory }

// CartStore exposes the concrete cart store for seeding.
func (r *Registry) CartStore() *CartRepository { return r.carts }
