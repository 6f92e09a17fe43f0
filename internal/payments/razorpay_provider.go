package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultRazorpayURL     = "https://api.razorpay.com/v1"
	defaultRazorpayTimeout = 15 * time.Second
	maxGatewayResponse     = 1 << 20
)

// RazorpayLogger defines the logging contract for gateway operations.
type RazorpayLogger func(ctx context.Context, event string, fields map[string]any)

// RazorpayProviderConfig configures the RazorpayProvider.
type RazorpayProviderConfig struct {
	KeyID      string
	KeySecret  string
	APIURL     string
	HTTPClient *http.Client
	Logger     RazorpayLogger
	Clock      func() time.Time
}

// RazorpayProvider implements Provider against the Razorpay orders API.
type RazorpayProvider struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *http.Client
	logger    RazorpayLogger
	clock     func() time.Time
}

// NewRazorpayProvider constructs the provider. Missing credentials are reported per call so the
// cash-on-delivery flow keeps working without a gateway account.
func NewRazorpayProvider(cfg RazorpayProviderConfig) *RazorpayProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if baseURL == "" {
		baseURL = defaultRazorpayURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRazorpayTimeout}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &RazorpayProvider{
		keyID:     strings.TrimSpace(cfg.KeyID),
		keySecret: strings.TrimSpace(cfg.KeySecret),
		baseURL:   baseURL,
		http:      httpClient,
		logger:    logger,
		clock: func() time.Time {
			return clock().UTC()
		},
	}
}

// Configured reports whether both API credentials are present.
func (p *RazorpayProvider) Configured() bool {
	return p != nil && p.keyID != "" && p.keySecret != ""
}

type razorpayOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder registers an auto-captured order with the gateway.
func (p *RazorpayProvider) CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error) {
	if p == nil {
		return GatewayOrder{}, errors.New("razorpay: provider is nil")
	}
	if !p.Configured() {
		return GatewayOrder{}, ErrNotConfigured
	}
	amount, err := ToMinorUnits(req.Amount)
	if err != nil {
		return GatewayOrder{}, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	receipt := strings.TrimSpace(req.Receipt)
	if receipt == "" {
		receipt = fmt.Sprintf("receipt_%d", p.clock().UnixMilli())
	}

	payload, err := json.Marshal(razorpayOrderRequest{
		Amount:         amount,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
		Notes:          req.Notes,
	})
	if err != nil {
		return GatewayOrder{}, &GatewayError{Op: "create_order", Message: "encode request", Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return GatewayOrder{}, &GatewayError{Op: "create_order", Message: "build request", Err: err}
	}
	httpReq.SetBasicAuth(p.keyID, p.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		p.logger(ctx, "razorpay.create_order.transport_error", map[string]any{"error": err.Error()})
		return GatewayOrder{}, &GatewayError{Op: "create_order", Message: "gateway unreachable", Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayResponse))
	if err != nil {
		return GatewayOrder{}, &GatewayError{Op: "create_order", StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr razorpayErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		message := apiErr.Error.Description
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		p.logger(ctx, "razorpay.create_order.rejected", map[string]any{
			"status": resp.StatusCode,
			"code":   apiErr.Error.Code,
		})
		return GatewayOrder{}, &GatewayError{Op: "create_order", StatusCode: resp.StatusCode, Code: apiErr.Error.Code, Message: message}
	}

	var decoded razorpayOrderResponse
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.ID == "" {
		return GatewayOrder{}, &GatewayError{Op: "create_order", StatusCode: resp.StatusCode, Message: "unreadable gateway response", Err: err}
	}
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	created := p.clock()
	if decoded.CreatedAt > 0 {
		created = time.Unix(decoded.CreatedAt, 0).UTC()
	}
	order := GatewayOrder{
		ID:        decoded.ID,
		Amount:    decoded.Amount,
		Currency:  decoded.Currency,
		Receipt:   decoded.Receipt,
		Status:    decoded.Status,
		KeyID:     p.keyID,
		CreatedAt: created,
		Raw:       raw,
	}
	p.logger(ctx, "razorpay.create_order.succeeded", map[string]any{
		"gatewayOrderId": order.ID,
		"amount":         order.Amount,
	})
	return order, nil
}

// VerifySignature checks the checkout signature: hex HMAC-SHA256 of "order_id|payment_id" keyed
// with the API secret.
func (p *RazorpayProvider) VerifySignature(req VerifyRequest) error {
	if p == nil || p.keySecret == "" {
		return ErrNotConfigured
	}
	orderID := strings.TrimSpace(req.OrderID)
	paymentID := strings.TrimSpace(req.PaymentID)
	signature := strings.TrimSpace(req.Signature)
	if orderID == "" || paymentID == "" || signature == "" {
		return ErrSignatureMismatch
	}
	expected := Sign(p.keySecret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign computes the checkout signature for the order and payment pair.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
