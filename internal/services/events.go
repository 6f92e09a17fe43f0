package services

import (
	"context"
	"maps"
	"time"
)

const (
	OrderEventPlaced               = "order.placed"
	OrderEventStatusChanged        = "order.status_changed"
	OrderEventCancelled            = "order.cancelled"
	OrderEventCourierBooked        = "order.courier_booked"
	OrderEventCourierBookingFailed = "order.courier_booking_failed"
	OrderEventCourierCancelled     = "order.courier_cancelled"
)

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	UserID         string
	PreviousStatus string
	CurrentStatus  string
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// publishOrderEvent runs after the order is committed; a failed publish is logged, never returned.
func publishOrderEvent(ctx context.Context, events OrderEventPublisher, logger func(context.Context, string, map[string]any), event OrderEvent) {
	if events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := events.PublishOrderEvent(ctx, event); err != nil {
		logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"status": event.CurrentStatus,
			"error":  err.Error(),
		})
	}
}

func noopLogger(context.Context, string, map[string]any) {}

type noopMetrics struct{}

func (noopMetrics) Reservation(context.Context, string)     {}
func (noopMetrics) Booking(context.Context, string, string) {}
func (noopMetrics) WebhookUpdate(context.Context, string)   {}
