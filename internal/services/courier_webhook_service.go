package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
)

// Carrier tracking status codes that drive order transitions.
const (
	TrackingCodeDelivered      = "DLV"
	TrackingCodeOutForDelivery = "DRS"
	TrackingCodeInTransit      = "INT"
)

var carrierZone = time.FixedZone("IST", 5*60*60+30*60)

var trackingTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04",
	"2006-01-02",
}

// CourierWebhookServiceDeps bundles collaborators required to construct the webhook service.
type CourierWebhookServiceDeps struct {
	Orders      repositories.OrderRepository
	Events      OrderEventPublisher
	Cache       OrderListCache
	Metrics     OrderMetrics
	CourierName string
	Clock       func() time.Time
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type courierWebhookService struct {
	orders      repositories.OrderRepository
	events      OrderEventPublisher
	cache       OrderListCache
	metrics     OrderMetrics
	courierName string
	clock       func() time.Time
	logger      func(context.Context, string, map[string]any)
}

// NewCourierWebhookService wires dependencies into a concrete CourierWebhookService.
func NewCourierWebhookService(deps CourierWebhookServiceDeps) (CourierWebhookService, error) {
	if deps.Orders == nil {
		return nil, errors.New("courier webhook service: order repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	var metrics OrderMetrics = noopMetrics{}
	if deps.Metrics != nil {
		metrics = deps.Metrics
	}
	name := strings.TrimSpace(deps.CourierName)
	if name == "" {
		name = "ST Courier"
	}
	return &courierWebhookService{
		orders:      deps.Orders,
		events:      deps.Events,
		cache:       deps.Cache,
		metrics:     metrics,
		courierName: name,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Ingest applies each event in its own atomic update. Unknown AWBs are skipped and a failing event
// does not stop the batch.
func (s *courierWebhookService) Ingest(ctx context.Context, events []CourierTrackingEvent) (WebhookReport, error) {
	var report WebhookReport
	touched := false
	for _, event := range events {
		awb := strings.TrimSpace(event.AWBNumber)
		if awb == "" {
			report.Skipped++
			s.metrics.WebhookUpdate(ctx, "skipped")
			s.logger(ctx, "courier.webhook.missing_awb", nil)
			continue
		}

		order, err := s.orders.FindByAWB(ctx, awb)
		if err != nil {
			if repositories.IsNotFound(err) {
				report.Skipped++
				s.metrics.WebhookUpdate(ctx, "skipped")
				s.logger(ctx, "courier.webhook.unmatched", map[string]any{"awb": awb})
				continue
			}
			report.Failed = append(report.Failed, WebhookFailure{AWBNumber: awb, Reason: err.Error()})
			s.metrics.WebhookUpdate(ctx, "failed")
			s.logger(ctx, "courier.webhook.lookup_failed", map[string]any{"awb": awb, "error": err.Error()})
			continue
		}

		at := s.parseTrackingTime(event.TransDateTime)
		var previous OrderStatus
		updated, err := s.orders.Update(ctx, order.ID, func(o *Order) error {
			if o.Courier.AWBNumber != awb {
				return fmt.Errorf("%w: consignment %s no longer attached", ErrOrderConflict, awb)
			}
			previous = o.Status
			s.apply(o, awb, event, at)
			return nil
		})
		if err != nil {
			report.Failed = append(report.Failed, WebhookFailure{AWBNumber: awb, Reason: err.Error()})
			s.metrics.WebhookUpdate(ctx, "failed")
			s.logger(ctx, "courier.webhook.update_failed", map[string]any{
				"awb":     awb,
				"orderId": order.ID,
				"error":   err.Error(),
			})
			continue
		}

		report.Processed++
		touched = true
		s.metrics.WebhookUpdate(ctx, "applied")
		s.logger(ctx, "courier.webhook.applied", map[string]any{
			"awb":        awb,
			"orderId":    updated.ID,
			"statusCode": event.StatusCode,
			"status":     string(updated.Status),
		})
		if updated.Status != previous {
			publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
				Type:           OrderEventStatusChanged,
				OrderID:        updated.ID,
				UserID:         updated.UserID,
				PreviousStatus: string(previous),
				CurrentStatus:  string(updated.Status),
				ActorID:        "carrier",
				OccurredAt:     at,
				Metadata:       map[string]any{"awb": awb, "statusCode": event.StatusCode},
			})
		}
	}
	if touched && s.cache != nil {
		s.cache.Purge()
	}
	return report, nil
}

// apply appends the tracking entry and advances the order status. Transitions only move forward:
// DRS never overrides Delivered and INT only promotes Confirmed or Packed orders.
func (s *courierWebhookService) apply(order *Order, awb string, event CourierTrackingEvent, at time.Time) {
	remarks := strings.TrimSpace(event.StatusCode)
	if staff := strings.TrimSpace(event.DeliveryStaff); staff != "" {
		remarks = "Staff: " + staff
	}
	order.Courier.StatusHistory = append(order.Courier.StatusHistory, CourierStatusEntry{
		Status:    strings.TrimSpace(event.TransFor),
		Timestamp: at,
		Location:  fmt.Sprintf("%s → %s", strings.TrimSpace(event.TransFrom), strings.TrimSpace(event.TransTo)),
		Remarks:   remarks,
	})

	switch strings.ToUpper(strings.TrimSpace(event.StatusCode)) {
	case TrackingCodeDelivered:
		if order.Status != domain.OrderStatusDelivered {
			order.SetStatus(domain.OrderStatusDelivered, at, fmt.Sprintf("Delivered via %s - AWB: %s", s.courierName, awb))
		}
	case TrackingCodeOutForDelivery:
		if order.Status != domain.OrderStatusDelivered && order.Status != domain.OrderStatusOutForDelivery {
			order.SetStatus(domain.OrderStatusOutForDelivery, at, "Out for delivery - AWB: "+awb)
		}
	case TrackingCodeInTransit:
		if order.Status == domain.OrderStatusConfirmed || order.Status == domain.OrderStatusPacked {
			order.SetStatus(domain.OrderStatusShipped, at, "In transit - AWB: "+awb)
		}
	}
	order.UpdatedAt = s.clock()
}

func (s *courierWebhookService) parseTrackingTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, layout := range trackingTimeLayouts {
			if ts, err := time.ParseInLocation(layout, raw, carrierZone); err == nil {
				return ts.UTC()
			}
		}
	}
	return s.clock()
}
