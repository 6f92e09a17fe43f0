package firestore

import (
	"context"
	"fmt"

	pfirestore "github.com/Vidhya-shiva/prabha-backend-file/internal/platform/firestore"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

// Registry bundles the Firestore repositories sharing one provider.
type Registry struct {
	provider  *pfirestore.Provider
	inventory *InventoryRepository
	orders    *OrderRepository
	carts     *CartRepository
}

// NewRegistry builds every repository on top of provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	inventory, err := NewInventoryRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build inventory repository: %w", err)
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build order repository: %w", err)
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, fmt.Errorf("build cart repository: %w", err)
	}
	return &Registry{provider: provider, inventory: inventory, orders: orders, carts: carts}, nil
}

// Close releases the shared client.
func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }

// Ping checks Firestore reachability for readiness probes.
func (r *Registry) Ping(ctx context.Context) error { return r.provider.Ping(ctx) }

func (r *Registry) Inventory() repositories.InventoryRepository { return r.inventory }
func (r *Registry) Orders() repositories.OrderRepository        { return r.orders }
func (r *Registry) Carts() repositories.CartRepository          { return r.carts }
