package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	pfirestore "github.com/Vidhya-shiva/prabha-backend-file/internal/platform/firestore"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists orders keyed by their public order id.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.Collection[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewCollection[orderDocument](provider, ordersCollection),
	}, nil
}

// Insert creates the order document. A duplicate id surfaces as a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	return r.orders.Create(ctx, order.ID, newOrderDocument(order))
}

// Update runs mutate against the latest stored order inside a transaction.
func (r *OrderRepository) Update(ctx context.Context, orderID string, mutate repositories.OrderMutation) (domain.Order, error) {
	var updated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.orders.Doc(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return pfirestore.NewNotFound("orders.update", "order "+orderID+" not found")
			}
			return err
		}
		doc, err := pfirestore.Decode[orderDocument](snap)
		if err != nil {
			return err
		}
		order := doc.toDomain()
		if mutate != nil {
			if err := mutate(&order); err != nil {
				return err
			}
		}
		order.ID = doc.OrderID
		if err := tx.Set(ref, newOrderDocument(order)); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.update", err)
	}
	return updated, nil
}

// FindByID loads the order document.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.toDomain(), nil
}

// FindByAWB resolves the order carrying the consignment number.
func (r *OrderRepository) FindByAWB(ctx context.Context, awbNumber string) (domain.Order, error) {
	awbNumber = strings.TrimSpace(awbNumber)
	if awbNumber == "" {
		return domain.Order{}, pfirestore.NewNotFound("orders.find_by_awb", "awb number is empty")
	}
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("courierDetails.awbNumber", "==", awbNumber).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.NewNotFound("orders.find_by_awb", "no order for awb "+awbNumber)
	}
	return docs[0].toDomain(), nil
}

// ListByUser returns the user's orders newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", strings.TrimSpace(userID)).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	return toDomainOrders(docs), nil
}

// ListRecent returns at most limit orders newest first.
func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.OrderBy("createdAt", firestore.Desc)
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	return toDomainOrders(docs), nil
}

func toDomainOrders(docs []orderDocument) []domain.Order {
	out := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out
}
