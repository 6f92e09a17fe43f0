package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Vidhya-shiva/prabha-backend-file/internal/platform/observability"

// OrderMetrics counts order-flow outcomes. A zero value is usable and records nothing.
type OrderMetrics struct {
	reservations metric.Int64Counter
	bookings     metric.Int64Counter
	webhooks     metric.Int64Counter
}

// NewOrderMetrics registers the counters on the global meter provider unless meter is supplied.
func NewOrderMetrics(meter metric.Meter) (*OrderMetrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	reservations, err := meter.Int64Counter("orders.stock.reservations",
		metric.WithDescription("Stock reservation attempts by outcome"))
	if err != nil {
		return nil, err
	}
	bookings, err := meter.Int64Counter("orders.courier.bookings",
		metric.WithDescription("Courier booking attempts by mode and outcome"))
	if err != nil {
		return nil, err
	}
	webhooks, err := meter.Int64Counter("orders.courier.webhook_updates",
		metric.WithDescription("Carrier tracking updates by outcome"))
	if err != nil {
		return nil, err
	}
	return &OrderMetrics{reservations: reservations, bookings: bookings, webhooks: webhooks}, nil
}

// Reservation records a ledger reserve attempt.
func (m *OrderMetrics) Reservation(ctx context.Context, outcome string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Booking records a courier booking attempt.
func (m *OrderMetrics) Booking(ctx context.Context, mode, outcome string) {
	if m == nil || m.bookings == nil {
		return
	}
	m.bookings.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode), attribute.String("outcome", outcome)))
}

// WebhookUpdate records one processed tracking entry.
func (m *OrderMetrics) WebhookUpdate(ctx context.Context, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
