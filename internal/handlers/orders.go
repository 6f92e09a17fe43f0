package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/auth"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/httpx"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/requestctx"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/textutil"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

const (
	maxPlacementBodySize = 256 * 1024
	maxStatusBodySize    = 8 * 1024
	maxNoteLength        = 500
)

type placeOrderRequest struct {
	UserID          string                 `json:"userId"`
	UserEmail       string                 `json:"userEmail"`
	UserName        string                 `json:"userName"`
	CustomerPhone   string                 `json:"customerPhone"`
	Phone           string                 `json:"phone"`
	Items           []orderItemRequest     `json:"items"`
	TotalAmount     flexNumber             `json:"totalAmount"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ShippingAddress *addressPayload        `json:"shippingAddress"`
	PaymentDetails  *paymentDetailsRequest `json:"paymentDetails"`
}

type orderItemRequest struct {
	ID            string     `json:"id"`
	ProductID     string     `json:"productId"`
	Name          string     `json:"name"`
	Title         string     `json:"title"`
	Price         flexNumber `json:"price"`
	Quantity      flexNumber `json:"quantity"`
	Size          string     `json:"size"`
	Color         string     `json:"color"`
	Image         string     `json:"image"`
	Collection    string     `json:"collection"`
	OriginalPrice flexNumber `json:"originalPrice"`
	Discount      flexNumber `json:"discount"`
}

type paymentDetailsRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

type statusUpdateRequest struct {
	Status string     `json:"status"`
	Note   string     `json:"note"`
	Weight flexNumber `json:"weight"`
}

type createGatewayOrderRequest struct {
	Amount flexNumber `json:"amount"`
}

func (req placeOrderRequest) toCommand() services.PlaceOrderCommand {
	cmd := services.PlaceOrderCommand{
		UserID:        req.UserID,
		UserEmail:     req.UserEmail,
		UserName:      textutil.PlainText(req.UserName, 120),
		CustomerPhone: req.CustomerPhone,
		Phone:         req.Phone,
		TotalAmount:   req.TotalAmount.Value,
		PaymentMethod: req.PaymentMethod,
		Items:         make([]services.OrderItemInput, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.OrderItemInput{
			ID:            item.ID,
			ProductID:     item.ProductID,
			Name:          textutil.PlainText(item.Name, 200),
			Title:         textutil.PlainText(item.Title, 200),
			Price:         item.Price.Value,
			Quantity:      int(item.Quantity.Value),
			Size:          item.Size,
			Color:         item.Color,
			Image:         item.Image,
			Collection:    item.Collection,
			OriginalPrice: item.OriginalPrice.Value,
			Discount:      item.Discount.Value,
		})
	}
	if req.ShippingAddress != nil {
		addr := req.ShippingAddress.toDomain()
		cmd.ShippingAddress = &addr
	}
	if req.PaymentDetails != nil {
		cmd.Payment = &services.PaymentConfirmation{
			GatewayOrderID:   req.PaymentDetails.RazorpayOrderID,
			GatewayPaymentID: req.PaymentDetails.RazorpayPaymentID,
			Signature:        req.PaymentDetails.RazorpaySignature,
		}
	}
	return cmd
}

// OrderHandlers serves /api/orders.
type OrderHandlers struct {
	authn     *auth.Authenticator
	orders    services.OrderService
	payments  services.PaymentService
	placement []func(http.Handler) http.Handler
}

// OrderHandlersOption customises OrderHandlers.
type OrderHandlersOption func(*OrderHandlers)

// WithPaymentService enables the gateway order and verification endpoints.
func WithPaymentService(payments services.PaymentService) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.payments = payments
	}
}

// WithPlacementMiddlewares wraps the two placement endpoints, typically with idempotency replay.
func WithPlacementMiddlewares(mw ...func(http.Handler) http.Handler) OrderHandlersOption {
	return func(h *OrderHandlers) {
		for _, m := range mw {
			if m != nil {
				h.placement = append(h.placement, m)
			}
		}
	}
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, opts ...OrderHandlersOption) *OrderHandlers {
	h := &OrderHandlers{authn: authn, orders: orders}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	admin := requireAdmin(h.authn)

	r.Post("/create-razorpay-order", h.createGatewayOrder)
	r.Post("/verify-payment", h.verifyPayment)

	r.With(h.placement...).Post("/place", h.placeOrder)
	r.With(h.placement...).Post("/place-with-payment", h.placeOrderWithPayment)

	r.With(admin).Get("/all", h.listAllOrders)
	r.Get("/user/{userID}", h.listUserOrders)
	r.Get("/{orderID}", h.getOrder)

	r.Patch("/{orderID}/cancel", h.cancelOrder)
	r.With(admin).Patch("/{orderID}/status", h.updateStatus)
}

func (h *OrderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, false)
}

func (h *OrderHandlers) placeOrderWithPayment(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, true)
}

func (h *OrderHandlers) place(w http.ResponseWriter, r *http.Request, prepaid bool) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req placeOrderRequest
	if err := decodeJSONBody(r, maxPlacementBodySize, &req, false); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cmd := req.toCommand()
	var (
		order services.Order
		err   error
	)
	if prepaid {
		order, err = h.orders.PlaceOrderWithPayment(ctx, cmd)
	} else {
		order, err = h.orders.PlaceOrder(ctx, cmd)
	}
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Order placed",
		"orderId": order.ID,
		"order":   buildOrderPayload(order),
	})
}

func (h *OrderHandlers) listAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orders, err := h.orders.ListAllOrders(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(orders),
		"orders":  buildOrderPayloads(orders),
	})
}

func (h *OrderHandlers) listUserOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orders, err := h.orders.ListUserOrders(ctx, chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(orders),
		"orders":  buildOrderPayloads(orders),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   buildOrderPayload(order),
	})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, err := h.orders.CancelOrder(ctx, services.CancelOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		ActorID: actorID(r),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Order cancelled",
		"order":   buildOrderPayload(order),
	})
}

func (h *OrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req statusUpdateRequest
	if err := decodeJSONBody(r, maxStatusBodySize, &req, false); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cmd := services.StatusTransitionCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  strings.TrimSpace(req.Status),
		Note:    textutil.PlainText(req.Note, maxNoteLength),
		ActorID: actorID(r),
	}
	if req.Weight.Set && req.Weight.Value > 0 {
		weight := req.Weight.Value
		cmd.Weight = &weight
	}

	result, err := h.orders.TransitionStatus(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Status updated",
		"order":         buildOrderPayload(result.Order),
		"courierBooked": result.CourierBooked,
	})
}

func (h *OrderHandlers) createGatewayOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_unavailable", "payment gateway not configured", http.StatusServiceUnavailable))
		return
	}
	var req createGatewayOrderRequest
	if err := decodeJSONBody(r, maxStatusBodySize, &req, false); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if !req.Amount.Set || req.Amount.Value <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "Valid amount required", http.StatusBadRequest))
		return
	}

	order, err := h.payments.CreateGatewayOrder(ctx, services.CreateGatewayOrderCommand{Amount: req.Amount.Value})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := map[string]any{
		"id":       order.ID,
		"entity":   "order",
		"amount":   order.Amount,
		"currency": order.Currency,
		"receipt":  order.Receipt,
		"status":   order.Status,
	}
	if !order.CreatedAt.IsZero() {
		payload["created_at"] = order.CreatedAt.Unix()
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   payload,
		"key_id":  order.KeyID,
	})
}

func (h *OrderHandlers) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_unavailable", "payment gateway not configured", http.StatusServiceUnavailable))
		return
	}
	var req paymentDetailsRequest
	if err := decodeJSONBody(r, maxStatusBodySize, &req, false); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.RazorpayOrderID) == "" || strings.TrimSpace(req.RazorpayPaymentID) == "" || strings.TrimSpace(req.RazorpaySignature) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "Missing parameters", http.StatusBadRequest))
		return
	}

	err := h.payments.VerifyPayment(ctx, services.VerifyPaymentCommand{
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Verified",
		"paymentId": strings.TrimSpace(req.RazorpayPaymentID),
	})
}

func actorID(r *http.Request) string {
	if actor, ok := requestctx.ActorFrom(r.Context()); ok {
		return actor.UserID
	}
	return ""
}

// requireAdmin returns the admin guard, or a pass-through when no authenticator is wired.
func requireAdmin(authn *auth.Authenticator) func(http.Handler) http.Handler {
	if authn == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return authn.Require(auth.RoleAdmin)
}
