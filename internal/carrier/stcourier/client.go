// Package stcourier books and cancels consignments with the ST Courier booking API.
package stcourier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
)

const (
	// CourierName is the label stored on consignments booked through this client.
	CourierName = "ST Courier"

	defaultTimeout     = 30 * time.Second
	trackingURLPattern = "https://erpstcourier.com/tracking?awbno=%s"
	maxResponseBytes   = 1 << 20
)

// ErrNotConfigured is returned when the booking or cancel URL or the API token is missing.
var ErrNotConfigured = errors.New("stcourier: credentials not configured")

// Error describes a failed carrier call: transport, non-2xx answer or a business rejection.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("stcourier %s: %s (http %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("stcourier %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Config configures the Client.
type Config struct {
	BookURL      string
	CancelURL    string
	APIToken     string
	CustomerCode string
	Sender       Sender
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Booking is the successful outcome of Book.
type Booking struct {
	AWBNumber   string
	TrackingURL string
	CourierName string
	Message     string
	Raw         map[string]any
}

// Cancellation is the successful outcome of Cancel.
type Cancellation struct {
	AWBNumber string
	Message   string
}

// Client talks to the carrier over JSON/HTTP. Calls are never retried.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient constructs a Client. Missing credentials are reported per call so the service can
// still run with manual bookings only.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Eligible reports whether the address is served by the booking API.
func (c *Client) Eligible(addr domain.ShippingAddress) bool {
	return IsEligible(addr.State)
}

// Book registers a consignment for the order and returns the carrier-assigned AWB.
func (c *Client) Book(ctx context.Context, order domain.Order, weight float64) (Booking, error) {
	if !IsEligible(order.ShippingAddress.State) {
		return Booking{}, &Error{Op: "book", Message: "ST Courier is only available for Tamil Nadu"}
	}
	if weight <= 0 {
		return Booking{}, &Error{Op: "book", Message: "weight is required"}
	}
	if strings.TrimSpace(c.cfg.BookURL) == "" || strings.TrimSpace(c.cfg.APIToken) == "" {
		return Booking{}, &Error{Op: "book", Message: "ST Courier credentials not configured", Err: ErrNotConfigured}
	}

	body := []bookingLine{buildBookingLine(order, weight, c.cfg.CustomerCode, c.cfg.Sender)}
	result, err := c.post(ctx, "book", c.cfg.BookURL, body)
	if err != nil {
		return Booking{}, err
	}
	awb := stringField(result, "awbno")
	if awb == "" {
		return Booking{}, &Error{Op: "book", Message: "carrier response missing awbno"}
	}
	return Booking{
		AWBNumber:   awb,
		TrackingURL: fmt.Sprintf(trackingURLPattern, awb),
		CourierName: CourierName,
		Message:     firstNonEmpty(stringField(result, "result"), "Booking successful"),
		Raw:         result,
	}, nil
}

// Cancel voids a consignment.
func (c *Client) Cancel(ctx context.Context, awbNumber, orderID string) (Cancellation, error) {
	awbNumber = strings.TrimSpace(awbNumber)
	if awbNumber == "" {
		return Cancellation{}, &Error{Op: "cancel", Message: "AWB number is required for cancellation"}
	}
	if strings.TrimSpace(c.cfg.CancelURL) == "" || strings.TrimSpace(c.cfg.APIToken) == "" {
		return Cancellation{}, &Error{Op: "cancel", Message: "ST Courier credentials not configured", Err: ErrNotConfigured}
	}
	body := []cancelLine{{
		AWBNo:     awbNumber,
		OriginSrc: c.cfg.CustomerCode,
		Remarks:   "Order cancelled - " + orderID,
	}}
	result, err := c.post(ctx, "cancel", c.cfg.CancelURL, body)
	if err != nil {
		return Cancellation{}, err
	}
	return Cancellation{
		AWBNumber: awbNumber,
		Message:   firstNonEmpty(stringField(result, "result"), "Cancellation successful"),
	}, nil
}

func (c *Client) post(ctx context.Context, op, url string, body any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Op: op, Message: "encode request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("API-TOKEN", c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Message: "carrier unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}
	result := decodeResult(raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := firstNonEmpty(stringField(result, "result"), stringField(result, "message"), "ST Courier API error")
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: message}
	}
	if result == nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: "unreadable carrier response"}
	}
	if !succeeded(result["status"]) {
		generic := "Booking failed"
		if op == "cancel" {
			generic = "Cancellation failed"
		}
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: firstNonEmpty(stringField(result, "result"), generic)}
	}
	return result, nil
}

// decodeResult accepts either a JSON array (first element wins) or a single object.
func decodeResult(raw []byte) map[string]any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '[' {
		var list []map[string]any
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return nil
		}
		return list[0]
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

func succeeded(status any) bool {
	switch v := status.(type) {
	case string:
		return strings.TrimSpace(v) == "1"
	case float64:
		return v == 1
	}
	return false
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return formatAmount(v)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
