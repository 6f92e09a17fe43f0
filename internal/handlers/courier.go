package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/auth"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/httpx"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/requestctx"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/textutil"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

const (
	maxCourierBodySize = 8 * 1024
	maxWebhookBodySize = 1 << 20
	webhookSource      = "stcourier"
	maxTrackingField   = 200
)

// WebhookArchiver keeps a copy of raw webhook payloads.
type WebhookArchiver interface {
	Archive(ctx context.Context, source string, payload []byte) (string, error)
}

type bookCourierRequest struct {
	Weight      flexNumber `json:"weight"`
	CourierName string     `json:"courierName"`
	AWBNumber   string     `json:"awbNumber"`
	TrackingURL string     `json:"trackingUrl"`
}

type trackingEventRequest struct {
	AWBNumber     flexString `json:"awbno"`
	TransDateTime flexString `json:"trans_dtm"`
	TransFor      flexString `json:"trans_for"`
	TransFrom     flexString `json:"trans_from"`
	TransTo       flexString `json:"trans_to"`
	DeliveryStaff flexString `json:"delv_staff"`
	StatusCode    flexString `json:"status_code"`
	PODImage      flexString `json:"pod_image"`
}

func (e trackingEventRequest) toEvent() services.CourierTrackingEvent {
	return services.CourierTrackingEvent{
		AWBNumber:     strings.TrimSpace(string(e.AWBNumber)),
		TransDateTime: strings.TrimSpace(string(e.TransDateTime)),
		TransFor:      textutil.PlainText(string(e.TransFor), maxTrackingField),
		TransFrom:     textutil.PlainText(string(e.TransFrom), maxTrackingField),
		TransTo:       textutil.PlainText(string(e.TransTo), maxTrackingField),
		DeliveryStaff: textutil.PlainText(string(e.DeliveryStaff), maxTrackingField),
		StatusCode:    strings.ToUpper(strings.TrimSpace(string(e.StatusCode))),
		PODImage:      strings.TrimSpace(string(e.PODImage)),
	}
}

// CourierHandlers serves /api/courier.
type CourierHandlers struct {
	authn    *auth.Authenticator
	courier  services.CourierService
	webhooks services.CourierWebhookService
	archive  WebhookArchiver
	webhook  []func(http.Handler) http.Handler
}

// CourierHandlersOption customises CourierHandlers.
type CourierHandlersOption func(*CourierHandlers)

// WithWebhookArchive stores each raw webhook body before it is processed.
func WithWebhookArchive(archive WebhookArchiver) CourierHandlersOption {
	return func(h *CourierHandlers) {
		h.archive = archive
	}
}

// WithWebhookGuards wraps the carrier webhook endpoint, typically with a rate limiter.
func WithWebhookGuards(mw ...func(http.Handler) http.Handler) CourierHandlersOption {
	return func(h *CourierHandlers) {
		for _, m := range mw {
			if m != nil {
				h.webhook = append(h.webhook, m)
			}
		}
	}
}

// NewCourierHandlers constructs the courier endpoints.
func NewCourierHandlers(authn *auth.Authenticator, courier services.CourierService, webhooks services.CourierWebhookService, opts ...CourierHandlersOption) *CourierHandlers {
	h := &CourierHandlers{authn: authn, courier: courier, webhooks: webhooks}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /courier endpoints.
func (h *CourierHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	admin := requireAdmin(h.authn)
	r.With(admin).Post("/book/{orderID}", h.bookCourier)
	r.With(admin).Post("/cancel/{orderID}", h.cancelCourier)
	r.Get("/details/{orderID}", h.getCourierDetails)
	r.With(h.webhook...).Post("/webhook", h.receiveWebhook)
}

func (h *CourierHandlers) bookCourier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req bookCourierRequest
	if err := decodeJSONBody(r, maxCourierBodySize, &req, true); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	result, err := h.courier.BookCourier(ctx, services.BookCourierCommand{
		OrderID:     chi.URLParam(r, "orderID"),
		Weight:      req.Weight.Value,
		CourierName: textutil.PlainText(req.CourierName, 80),
		AWBNumber:   strings.TrimSpace(req.AWBNumber),
		TrackingURL: strings.TrimSpace(req.TrackingURL),
		ActorID:     actorID(r),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	message := "Courier details added successfully"
	if result.Mode == services.CourierBookingModeAPI {
		message = result.Order.Courier.CourierName + " booked successfully"
	}
	courier := result.Order.Courier
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"mode":    string(result.Mode),
		"courierDetails": map[string]any{
			"courierName":   courier.CourierName,
			"awbNumber":     courier.AWBNumber,
			"trackingUrl":   courier.TrackingURL,
			"bookingStatus": string(courier.BookingStatus),
		},
	})
}

func (h *CourierHandlers) cancelCourier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.courier.CancelCourier(ctx, services.CancelCourierCommand{
		OrderID: chi.URLParam(r, "orderID"),
		ActorID: actorID(r),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	message := "Courier booking cancelled successfully"
	if result.Mode == services.CourierBookingModeAPI {
		message = result.Order.Courier.CourierName + " booking cancelled successfully"
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   message,
		"awbNumber": result.AWBNumber,
	})
}

func (h *CourierHandlers) getCourierDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	details, err := h.courier.GetCourierDetails(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	var payload any
	if details.BookingStatus != "" || details.AWBNumber != "" || len(details.StatusHistory) > 0 {
		payload = buildCourierDetailsPayload(details)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"courierDetails": payload,
	})
}

// receiveWebhook accepts {"apiData":[...]} from the carrier. Individual events never fail the
// request; the carrier only sees 200 for a well-formed batch.
func (h *CourierHandlers) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)

	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		if err == errBodyTooLarge {
			writeBodyError(ctx, w, err)
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_payload", "Invalid webhook payload", http.StatusBadRequest))
		return
	}

	if h.archive != nil {
		if object, err := h.archive.Archive(ctx, webhookSource, body); err != nil {
			logger.Warn("webhook archive failed", zap.Error(err))
		} else {
			logger.Debug("webhook archived", zap.String("object", object))
		}
	}

	var envelope struct {
		APIData json.RawMessage `json:"apiData"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || !bytes.HasPrefix(bytes.TrimSpace(envelope.APIData), []byte("[")) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_payload", "Invalid webhook payload", http.StatusBadRequest))
		return
	}
	var items []trackingEventRequest
	if err := json.Unmarshal(envelope.APIData, &items); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_payload", "Invalid webhook payload", http.StatusBadRequest))
		return
	}

	events := make([]services.CourierTrackingEvent, 0, len(items))
	for _, item := range items {
		events = append(events, item.toEvent())
	}

	report, err := h.webhooks.Ingest(ctx, events)
	if err != nil {
		logger.Error("webhook ingest failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("webhook_failed", "Failed to process status updates", http.StatusInternalServerError))
		return
	}
	if len(report.Failed) > 0 {
		logger.Warn("webhook events failed", zap.Int("failed", len(report.Failed)), zap.Any("failures", report.Failed))
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Status updates processed successfully",
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"failed":    len(report.Failed),
	})
}
