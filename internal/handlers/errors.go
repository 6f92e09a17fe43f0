package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/httpx"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/requestctx"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

// errorDetail strips the sentinel prefix so clients see the human readable reason only.
func errorDetail(err, sentinel error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, sentinel.Error()+": "); trimmed != msg && trimmed != "" {
		return trimmed
	}
	return msg
}

func validStatusLabels() []string {
	statuses := domain.OrderStatuses()
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

// writeServiceError translates service errors into the JSON error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var (
		invErr     *repositories.InventoryError
		carrierErr *services.CarrierError
	)

	switch {
	case errors.Is(err, services.ErrInventoryInsufficientStock):
		message := "Insufficient stock"
		details := map[string]any{}
		if errors.As(err, &invErr) {
			message = fmt.Sprintf("Insufficient stock for %s (%s/%s). Available: %d", invErr.ProductID, invErr.Size, invErr.Color, invErr.Available)
			details = map[string]any{
				"productId": invErr.ProductID,
				"size":      invErr.Size,
				"color":     invErr.Color,
				"available": invErr.Available,
			}
		}
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", message, http.StatusConflict).WithDetails(details))
	case errors.Is(err, services.ErrInventoryUnresolved):
		message := errorDetail(err, services.ErrInventoryUnresolved)
		if errors.As(err, &invErr) {
			message = invErr.Message
		}
		httpx.WriteError(ctx, w, httpx.NewError("stock_unresolved", message, http.StatusUnprocessableEntity))

	case errors.Is(err, services.ErrOrderInvalidStatus):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_status", "Invalid status", http.StatusBadRequest).
			WithDetails(map[string]any{"validStatuses": validStatusLabels()}))
	case errors.Is(err, services.ErrOrderPaymentRequired):
		httpx.WriteError(ctx, w, httpx.NewError("payment_required", "Payment details required", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderPaymentInvalid), errors.Is(err, services.ErrPaymentVerificationFailed):
		httpx.WriteError(ctx, w, httpx.NewError("verification_failed", "Verification failed", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", errorDetail(err, services.ErrOrderInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrCourierInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", errorDetail(err, services.ErrCourierInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", errorDetail(err, services.ErrPaymentInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrInventoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", errorDetail(err, services.ErrInventoryInvalidInput), http.StatusBadRequest))

	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "Order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderAlreadyTerminal):
		httpx.WriteError(ctx, w, httpx.NewError("order_terminal", errorDetail(err, services.ErrOrderAlreadyTerminal), http.StatusConflict))
	case errors.Is(err, services.ErrOrderNotCancellable):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_cancellable", errorDetail(err, services.ErrOrderNotCancellable), http.StatusConflict))
	case errors.Is(err, services.ErrCourierAlreadyBooked):
		httpx.WriteError(ctx, w, httpx.NewError("courier_already_booked", "Courier already booked for this order", http.StatusConflict))
	case errors.Is(err, services.ErrCourierBookingInProgress):
		httpx.WriteError(ctx, w, httpx.NewError("courier_booking_in_progress", "Courier booking already in progress", http.StatusConflict))
	case errors.Is(err, services.ErrCourierNotBooked):
		httpx.WriteError(ctx, w, httpx.NewError("courier_not_booked", "No courier booking found for this order", http.StatusBadRequest))
	case errors.Is(err, services.ErrCourierAlreadyCancelled):
		httpx.WriteError(ctx, w, httpx.NewError("courier_already_cancelled", "Courier booking already cancelled", http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "Order was modified concurrently, please retry", http.StatusConflict))

	case errors.As(err, &carrierErr):
		action := "booking"
		if carrierErr.Op == "cancel" {
			action = "cancellation"
		}
		requestctx.Logger(ctx).Warn("carrier call failed", zap.String("op", carrierErr.Op), zap.Int("carrierStatus", carrierErr.StatusCode), zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("carrier_error", fmt.Sprintf("ST Courier %s failed: %s", action, carrierErr.Message), http.StatusBadGateway))

	case errors.Is(err, services.ErrOrderUnavailable),
		errors.Is(err, services.ErrInventoryUnavailable),
		errors.Is(err, services.ErrPaymentUnavailable):
		requestctx.Logger(ctx).Error("dependency unavailable", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "Service temporarily unavailable, please retry", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrOrderPersistence):
		requestctx.Logger(ctx).Error("order persistence failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("order_persistence_failed", "Failed to place order", http.StatusInternalServerError))
	default:
		requestctx.Logger(ctx).Error("unhandled service error", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "Internal server error", http.StatusInternalServerError))
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", err.Error(), http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}
