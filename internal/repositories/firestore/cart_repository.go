package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/Vidhya-shiva/prabha-backend-file/internal/platform/firestore"
)

const cartsCollection = "carts"

// CartRepository clears the per-user cart document once an order has been placed.
type CartRepository struct {
	provider *pfirestore.Provider
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{provider: provider}, nil
}

// Clear empties the cart items and totals. Carts are keyed by user id.
func (r *CartRepository) Clear(ctx context.Context, userID string, now time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("cart repository: user id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	_, err = client.Collection(cartsCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "items", Value: []any{}},
		{Path: "totalPrice", Value: 0},
		{Path: "totalItems", Value: 0},
		{Path: "updatedAt", Value: now.UTC()},
	})
	return pfirestore.WrapError("carts.clear", err)
}
