package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRazorpayCreateOrder(t *testing.T) {
	var (
		gotUser, gotPass string
		gotPath          string
		gotBody          map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":149950,"currency":"INR","receipt":"receipt_1700000000000","status":"created","created_at":1700000000}`))
	}))
	defer srv.Close()

	provider := NewRazorpayProvider(RazorpayProviderConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "shh",
		APIURL:    srv.URL + "/v1/",
		Clock:     func() time.Time { return time.UnixMilli(1_700_000_000_000) },
	})

	order, err := provider.CreateOrder(context.Background(), CreateOrderRequest{Amount: 1499.5})
	require.NoError(t, err)

	assert.Equal(t, "rzp_test_key", gotUser)
	assert.Equal(t, "shh", gotPass)
	assert.Equal(t, "/v1/orders", gotPath)
	assert.Equal(t, float64(149950), gotBody["amount"])
	assert.Equal(t, "INR", gotBody["currency"])
	assert.Equal(t, "receipt_1700000000000", gotBody["receipt"])
	assert.Equal(t, float64(1), gotBody["payment_capture"])

	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(149950), order.Amount)
	assert.Equal(t, "rzp_test_key", order.KeyID)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), order.CreatedAt)
}

func TestRazorpayCreateOrderGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`))
	}))
	defer srv.Close()

	provider := NewRazorpayProvider(RazorpayProviderConfig{KeyID: "k", KeySecret: "s", APIURL: srv.URL})
	_, err := provider.CreateOrder(context.Background(), CreateOrderRequest{Amount: 10})

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", gwErr.Code)
	assert.Equal(t, "Authentication failed", gwErr.Message)
}

func TestRazorpayCreateOrderRejectsBeforeCalling(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	_, err := NewRazorpayProvider(RazorpayProviderConfig{APIURL: srv.URL}).CreateOrder(context.Background(), CreateOrderRequest{Amount: 10})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewRazorpayProvider(RazorpayProviderConfig{KeyID: "k", KeySecret: "s", APIURL: srv.URL}).CreateOrder(context.Background(), CreateOrderRequest{Amount: 0})
	require.ErrorIs(t, err, ErrInvalidAmount)

	assert.Zero(t, calls)
}

func TestRazorpayVerifySignature(t *testing.T) {
	provider := NewRazorpayProvider(RazorpayProviderConfig{KeyID: "k", KeySecret: "secret"})
	valid := Sign("secret", "order_1", "pay_1")

	require.NoError(t, provider.VerifySignature(VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: valid}))
	assert.ErrorIs(t, provider.VerifySignature(VerifyRequest{OrderID: "order_1", PaymentID: "pay_2", Signature: valid}), ErrSignatureMismatch)
	assert.ErrorIs(t, provider.VerifySignature(VerifyRequest{OrderID: "order_1", PaymentID: "pay_1"}), ErrSignatureMismatch)
	assert.ErrorIs(t, NewRazorpayProvider(RazorpayProviderConfig{}).VerifySignature(VerifyRequest{}), ErrNotConfigured)
}

func TestToMinorUnits(t *testing.T) {
	got, err := ToMinorUnits(0.1 + 0.2)
	require.NoError(t, err)
	assert.Equal(t, int64(30), got)

	_, err = ToMinorUnits(-5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
