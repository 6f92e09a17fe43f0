package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/payments"
)

var (
	// ErrPaymentInvalidInput signals a missing amount or signature field.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrPaymentUnavailable indicates the gateway is not configured or could not be reached.
	ErrPaymentUnavailable = errors.New("payment: gateway unavailable")
	// ErrPaymentVerificationFailed indicates the checkout signature did not match.
	ErrPaymentVerificationFailed = errors.New("payment: verification failed")
)

// PaymentServiceDeps bundles collaborators required to construct the payment service.
type PaymentServiceDeps struct {
	Provider payments.Provider
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	provider payments.Provider
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewPaymentService wires the gateway provider into a PaymentService.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Provider == nil {
		return nil, errors.New("payment service: provider is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &paymentService{
		provider: deps.Provider,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *paymentService) CreateGatewayOrder(ctx context.Context, cmd CreateGatewayOrderCommand) (GatewayOrder, error) {
	if cmd.Amount <= 0 {
		return GatewayOrder{}, fmt.Errorf("%w: Valid amount required", ErrPaymentInvalidInput)
	}
	order, err := s.provider.CreateOrder(ctx, payments.CreateOrderRequest{
		Amount:   cmd.Amount,
		Currency: payments.DefaultCurrency,
		Receipt:  fmt.Sprintf("receipt_%d", s.clock().UnixMilli()),
	})
	if err != nil {
		s.logger(ctx, "payment.gateway_order.failed", map[string]any{"amount": cmd.Amount, "error": err.Error()})
		switch {
		case errors.Is(err, payments.ErrInvalidAmount):
			return GatewayOrder{}, fmt.Errorf("%w: Valid amount required", ErrPaymentInvalidInput)
		default:
			return GatewayOrder{}, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
		}
	}
	return GatewayOrder{
		ID:        order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Receipt:   order.Receipt,
		Status:    order.Status,
		KeyID:     order.KeyID,
		CreatedAt: order.CreatedAt,
	}, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) error {
	orderID := strings.TrimSpace(cmd.GatewayOrderID)
	paymentID := strings.TrimSpace(cmd.GatewayPaymentID)
	signature := strings.TrimSpace(cmd.Signature)
	if orderID == "" || paymentID == "" || signature == "" {
		return fmt.Errorf("%w: Missing parameters", ErrPaymentInvalidInput)
	}
	err := s.provider.VerifySignature(payments.VerifyRequest{OrderID: orderID, PaymentID: paymentID, Signature: signature})
	switch {
	case err == nil:
		s.logger(ctx, "payment.verified", map[string]any{"paymentId": paymentID})
		return nil
	case errors.Is(err, payments.ErrNotConfigured):
		return fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	default:
		s.logger(ctx, "payment.verification.failed", map[string]any{"paymentId": paymentID})
		return fmt.Errorf("%w: %v", ErrPaymentVerificationFailed, err)
	}
}
