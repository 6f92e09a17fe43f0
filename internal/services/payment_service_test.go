package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/payments"
)

type stubProvider struct {
	createFn func(ctx context.Context, req payments.CreateOrderRequest) (payments.GatewayOrder, error)
	verifyFn func(req payments.VerifyRequest) error
	creates  []payments.CreateOrderRequest
}

func (s *stubProvider) CreateOrder(ctx context.Context, req payments.CreateOrderRequest) (payments.GatewayOrder, error) {
	s.creates = append(s.creates, req)
	if s.createFn != nil {
		return s.createFn(ctx, req)
	}
	return payments.GatewayOrder{
		ID:       "order_123",
		Amount:   249950,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		KeyID:    "rzp_test_key",
	}, nil
}

func (s *stubProvider) VerifySignature(req payments.VerifyRequest) error {
	if s.verifyFn != nil {
		return s.verifyFn(req)
	}
	return nil
}

func newPaymentFixture(t *testing.T, provider *stubProvider) PaymentService {
	t.Helper()
	svc, err := NewPaymentService(PaymentServiceDeps{
		Provider: provider,
		Clock:    func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("NewPaymentService: %v", err)
	}
	return svc
}

func TestPaymentServiceCreateGatewayOrder(t *testing.T) {
	provider := &stubProvider{}
	svc := newPaymentFixture(t, provider)

	order, err := svc.CreateGatewayOrder(context.Background(), CreateGatewayOrderCommand{Amount: 2499.5})
	if err != nil {
		t.Fatalf("CreateGatewayOrder: %v", err)
	}
	if order.ID != "order_123" || order.KeyID != "rzp_test_key" || order.Amount != 249950 {
		t.Fatalf("unexpected order %+v", order)
	}
	req := provider.creates[0]
	if req.Amount != 2499.5 || req.Currency != "INR" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Receipt != "receipt_1714557600000" {
		t.Fatalf("unexpected receipt %q", req.Receipt)
	}
}

func TestPaymentServiceCreateGatewayOrderErrors(t *testing.T) {
	provider := &stubProvider{}
	svc := newPaymentFixture(t, provider)

	_, err := svc.CreateGatewayOrder(context.Background(), CreateGatewayOrderCommand{Amount: 0})
	if !errors.Is(err, ErrPaymentInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(provider.creates) != 0 {
		t.Fatal("invalid amounts must not reach the gateway")
	}

	provider.createFn = func(context.Context, payments.CreateOrderRequest) (payments.GatewayOrder, error) {
		return payments.GatewayOrder{}, &payments.GatewayError{Op: "create_order", StatusCode: 500, Message: "server error"}
	}
	_, err = svc.CreateGatewayOrder(context.Background(), CreateGatewayOrderCommand{Amount: 10})
	if !errors.Is(err, ErrPaymentUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	provider.createFn = func(context.Context, payments.CreateOrderRequest) (payments.GatewayOrder, error) {
		return payments.GatewayOrder{}, payments.ErrInvalidAmount
	}
	_, err = svc.CreateGatewayOrder(context.Background(), CreateGatewayOrderCommand{Amount: 0.001})
	if !errors.Is(err, ErrPaymentInvalidInput) {
		t.Fatalf("expected invalid input for rejected amount, got %v", err)
	}
}

func TestPaymentServiceVerifyPayment(t *testing.T) {
	provider := &stubProvider{}
	svc := newPaymentFixture(t, provider)

	err := svc.VerifyPayment(context.Background(), VerifyPaymentCommand{GatewayOrderID: "order_1", GatewayPaymentID: "pay_1"})
	if !errors.Is(err, ErrPaymentInvalidInput) || !strings.Contains(err.Error(), "Missing parameters") {
		t.Fatalf("expected missing parameters, got %v", err)
	}

	var seen payments.VerifyRequest
	provider.verifyFn = func(req payments.VerifyRequest) error {
		seen = req
		return nil
	}
	cmd := VerifyPaymentCommand{GatewayOrderID: " order_1 ", GatewayPaymentID: "pay_1", Signature: "abc"}
	if err := svc.VerifyPayment(context.Background(), cmd); err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if seen.OrderID != "order_1" || seen.PaymentID != "pay_1" || seen.Signature != "abc" {
		t.Fatalf("unexpected verify request %+v", seen)
	}

	provider.verifyFn = func(payments.VerifyRequest) error { return payments.ErrSignatureMismatch }
	if err := svc.VerifyPayment(context.Background(), cmd); !errors.Is(err, ErrPaymentVerificationFailed) {
		t.Fatalf("expected verification failure, got %v", err)
	}

	provider.verifyFn = func(payments.VerifyRequest) error { return payments.ErrNotConfigured }
	if err := svc.VerifyPayment(context.Background(), cmd); !errors.Is(err, ErrPaymentUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestNewPaymentServiceRequiresProvider(t *testing.T) {
	if _, err := NewPaymentService(PaymentServiceDeps{}); err == nil {
		t.Fatal("expected error without provider")
	}
}
