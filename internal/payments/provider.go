// Package payments adapts the payment gateway used for pre-paid orders.
package payments

import (
	"context"
	"errors"
	"math"
	"time"
)

// DefaultCurrency is the only currency the storefront charges in.
const DefaultCurrency = "INR"

var (
	// ErrNotConfigured is returned when gateway credentials are missing.
	ErrNotConfigured = errors.New("payments: gateway credentials not configured")
	// ErrInvalidAmount is returned for non-positive or non-finite amounts.
	ErrInvalidAmount = errors.New("payments: amount must be greater than zero")
	// ErrSignatureMismatch is returned when a payment signature does not verify.
	ErrSignatureMismatch = errors.New("payments: signature mismatch")
)

// GatewayError describes a failed call to the gateway API.
type GatewayError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return "payments " + e.Op + ": " + e.Code + ": " + msg
	}
	return "payments " + e.Op + ": " + msg
}

func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CreateOrderRequest asks the gateway for a checkout order. Amount is in rupees.
type CreateOrderRequest struct {
	Amount   float64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// GatewayOrder is the gateway-side order handed to the client checkout widget.
type GatewayOrder struct {
	ID        string
	Amount    int64
	Currency  string
	Receipt   string
	Status    string
	KeyID     string
	CreatedAt time.Time
	Raw       map[string]any
}

// VerifyRequest carries the three values returned by the checkout widget.
type VerifyRequest struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Provider defines the gateway operations used by the order flow.
type Provider interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error)
	VerifySignature(req VerifyRequest) error
}

// ToMinorUnits converts rupees to paise, rounding to the nearest unit.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	minor := int64(math.Round(amount * 100))
	if minor <= 0 {
		return 0, ErrInvalidAmount
	}
	return minor, nil
}
