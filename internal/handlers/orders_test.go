package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"

	domain "github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/auth"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/repositories"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

const handlerTestSecret = "handlers-test-secret"

type stubOrderService struct {
	placeFn      func(context.Context, services.PlaceOrderCommand) (services.Order, error)
	placePaidFn  func(context.Context, services.PlaceOrderCommand) (services.Order, error)
	getFn        func(context.Context, string) (services.Order, error)
	listUserFn   func(context.Context, string) ([]services.Order, error)
	listAllFn    func(context.Context) ([]services.Order, error)
	cancelFn     func(context.Context, services.CancelOrderCommand) (services.Order, error)
	transitionFn func(context.Context, services.StatusTransitionCommand) (services.StatusTransitionResult, error)
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
	if s.placeFn != nil {
		return s.placeFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) PlaceOrderWithPayment(ctx context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
	if s.placePaidFn != nil {
		return s.placePaidFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListUserOrders(ctx context.Context, userID string) ([]services.Order, error) {
	if s.listUserFn != nil {
		return s.listUserFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubOrderService) ListAllOrders(ctx context.Context) ([]services.Order, error) {
	if s.listAllFn != nil {
		return s.listAllFn(ctx)
	}
	return nil, nil
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.StatusTransitionCommand) (services.StatusTransitionResult, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return services.StatusTransitionResult{}, errors.New("not implemented")
}

type stubPaymentService struct {
	createFn func(context.Context, services.CreateGatewayOrderCommand) (services.GatewayOrder, error)
	verifyFn func(context.Context, services.VerifyPaymentCommand) error
}

func (s *stubPaymentService) CreateGatewayOrder(ctx context.Context, cmd services.CreateGatewayOrderCommand) (services.GatewayOrder, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.GatewayOrder{}, errors.New("not implemented")
}

func (s *stubPaymentService) VerifyPayment(ctx context.Context, cmd services.VerifyPaymentCommand) error {
	if s.verifyFn != nil {
		return s.verifyFn(ctx, cmd)
	}
	return errors.New("not implemented")
}

func signAdminToken(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   "admin-1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(handlerTestSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func orderRouter(h *OrderHandlers) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/orders", h.Routes)
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, decoded
}

func sampleOrder() services.Order {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return services.Order{
		ID:            "CKT_87200000_48213",
		UserID:        "user-1",
		UserEmail:     "asha@example.com",
		UserName:      "Asha",
		CustomerPhone: "9876543210",
		Items: []domain.OrderItem{{
			ProductID: "prod-1",
			Name:      "Kanchi Silk",
			Title:     "Kanchi Silk",
			Price:     1500,
			Quantity:  2,
			Size:      "Free",
			Color:     "Red",
		}},
		TotalAmount:   3000,
		PaymentMethod: domain.PaymentMethodCOD,
		ShippingAddress: domain.ShippingAddress{
			Street:   "12 Temple St",
			Village:  "Arni",
			District: "Tiruvannamalai",
			State:    "Tamil Nadu",
			Pincode:  "632301",
			Country:  "India",
		},
		Status: domain.OrderStatusPlaced,
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: domain.OrderStatusPlaced, Timestamp: created, Note: "Order placed"},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestOrderHandlersPlaceOrder(t *testing.T) {
	var captured services.PlaceOrderCommand
	svc := &stubOrderService{
		placeFn: func(_ context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
			captured = cmd
			return sampleOrder(), nil
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc))

	body := `{
		"userId":"user-1",
		"userEmail":"asha@example.com",
		"userName":"<b>Asha</b>",
		"phone":"9876543210",
		"items":[{"id":"prod-1","title":"Kanchi Silk","price":"1500","quantity":2,"size":"Free","color":"Red"}],
		"totalAmount":"3000",
		"paymentMethod":"cod",
		"shippingAddress":{"street":"12 Temple St","village":"Arni","district":"Tiruvannamalai","state":"Tamil Nadu","pincode":"632301","country":"India"}
	}`
	rr, resp := doRequest(t, handler, http.MethodPost, "/api/orders/place", body, "")

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if resp["orderId"] != "CKT_87200000_48213" {
		t.Fatalf("unexpected orderId %v", resp["orderId"])
	}
	if resp["message"] != "Order placed" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
	if captured.UserName != "Asha" {
		t.Fatalf("expected sanitised user name, got %q", captured.UserName)
	}
	if captured.Phone != "9876543210" || captured.TotalAmount != 3000 {
		t.Fatalf("unexpected command %+v", captured)
	}
	if len(captured.Items) != 1 || captured.Items[0].Price != 1500 || captured.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", captured.Items)
	}
	if captured.ShippingAddress == nil || captured.ShippingAddress.Pincode != "632301" {
		t.Fatalf("expected shipping address, got %+v", captured.ShippingAddress)
	}
	order, _ := resp["order"].(map[string]any)
	if order["status"] != string(domain.OrderStatusPlaced) {
		t.Fatalf("unexpected order status %v", order["status"])
	}
	if order["createdAt"] != "2024-03-01T10:00:00Z" {
		t.Fatalf("unexpected createdAt %v", order["createdAt"])
	}
}

func TestOrderHandlersPlaceOrderWithPaymentPassesConfirmation(t *testing.T) {
	var captured services.PlaceOrderCommand
	svc := &stubOrderService{
		placePaidFn: func(_ context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
			captured = cmd
			return sampleOrder(), nil
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc))

	body := `{"userId":"user-1","items":[{"id":"p","size":"M","color":"Red","quantity":1,"price":10}],"totalAmount":10,
		"paymentMethod":"online","paymentDetails":{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}}`
	rr, _ := doRequest(t, handler, http.MethodPost, "/api/orders/place-with-payment", body, "")

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if captured.Payment == nil || captured.Payment.GatewayPaymentID != "pay_1" || captured.Payment.Signature != "sig" {
		t.Fatalf("expected payment confirmation, got %+v", captured.Payment)
	}
}

func TestOrderHandlersPlaceOrderInsufficientStock(t *testing.T) {
	svc := &stubOrderService{
		placeFn: func(context.Context, services.PlaceOrderCommand) (services.Order, error) {
			invErr := &repositories.InventoryError{
				Code:      repositories.InventoryErrorInsufficientStock,
				ProductID: "prod-1",
				Size:      "M",
				Color:     "Red",
				Available: 1,
			}
			return services.Order{}, fmt.Errorf("%w: %w", services.ErrInventoryInsufficientStock, invErr)
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc))

	rr, resp := doRequest(t, handler, http.MethodPost, "/api/orders/place", `{"userId":"u"}`, "")

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if resp["error"] != "insufficient_stock" {
		t.Fatalf("unexpected error code %v", resp["error"])
	}
	if resp["message"] != "Insufficient stock for prod-1 (M/Red). Available: 1" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
	if resp["available"] != float64(1) || resp["productId"] != "prod-1" {
		t.Fatalf("expected variant details, got %v", resp)
	}
}

func TestOrderHandlersPlaceOrderRejectsInvalidJSON(t *testing.T) {
	handler := orderRouter(NewOrderHandlers(nil, &stubOrderService{}))

	rr, resp := doRequest(t, handler, http.MethodPost, "/api/orders/place", `{"items":`, "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if resp["success"] != false {
		t.Fatalf("expected success=false, got %v", resp["success"])
	}
}

func TestOrderHandlersListAllRequiresAdmin(t *testing.T) {
	svc := &stubOrderService{
		listAllFn: func(context.Context) ([]services.Order, error) {
			return []services.Order{sampleOrder(), sampleOrder()}, nil
		},
	}
	handler := orderRouter(NewOrderHandlers(auth.NewAuthenticator(handlerTestSecret), svc))

	rr, _ := doRequest(t, handler, http.MethodGet, "/api/orders/all", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	rr, _ = doRequest(t, handler, http.MethodGet, "/api/orders/all", "", signAdminToken(t, "user"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}

	rr, resp := doRequest(t, handler, http.MethodGet, "/api/orders/all", "", signAdminToken(t, "admin"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rr.Code)
	}
	if resp["count"] != float64(2) {
		t.Fatalf("expected count 2, got %v", resp["count"])
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(_ context.Context, id string) (services.Order, error) {
			return services.Order{}, fmt.Errorf("%w: %s", services.ErrOrderNotFound, id)
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc))

	rr, resp := doRequest(t, handler, http.MethodGet, "/api/orders/ORD-404", "", "")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if resp["message"] != "Order not found" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestOrderHandlersListUserOrders(t *testing.T) {
	var gotUser string
	svc := &stubOrderService{
		listUserFn: func(_ context.Context, userID string) ([]services.Order, error) {
			gotUser = userID
			return []services.Order{sampleOrder()}, nil
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc))

	rr, resp := doRequest(t, handler, http.MethodGet, "/api/orders/user/user-1", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotUser != "user-1" {
		t.Fatalf("expected user-1, got %q", gotUser)
	}
	orders, _ := resp["orders"].([]any)
	if len(orders) != 1 {
		t.Fatalf("expected one order, got %v", resp["orders"])
	}
}

func TestOrderHandlersCancelNotCancellable(t *testing.T) {
	svc := &stubOrderService{
		cancelFn: func(context.Context, services.CancelOrderCommand) (services.Order, error) {
			return services.Order{}, fmt.Errorf("%w: Cannot cancel shipped or delivered orders", services.ErrOrderNotCancellable)
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc))

	rr, resp := doRequest(t, handler, http.MethodPatch, "/api/orders/ORD-1/cancel", "", "")

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if resp["message"] != "Cannot cancel shipped or delivered orders" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestOrderHandlersUpdateStatus(t *testing.T) {
	var captured services.StatusTransitionCommand
	svc := &stubOrderService{
		transitionFn: func(_ context.Context, cmd services.StatusTransitionCommand) (services.StatusTransitionResult, error) {
			captured = cmd
			order := sampleOrder()
			order.Status = domain.OrderStatusConfirmed
			order.Courier = domain.CourierDetails{
				CourierName:   "ST Courier",
				AWBNumber:     "ST" + order.ID,
				BookingStatus: domain.BookingStatusBooked,
			}
			return services.StatusTransitionResult{Order: order, CourierBooked: true}, nil
		},
	}
	handler := orderRouter(NewOrderHandlers(auth.NewAuthenticator(handlerTestSecret), svc))

	rr, resp := doRequest(t, handler, http.MethodPatch, "/api/orders/ORD-1/status",
		`{"status":"Confirmed","note":"<script>x</script>packed soon","weight":"2.5"}`, signAdminToken(t, "admin"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ORD-1" || captured.Status != "Confirmed" || captured.ActorID != "admin-1" {
		t.Fatalf("unexpected command %+v", captured)
	}
	if captured.Weight == nil || *captured.Weight != 2.5 {
		t.Fatalf("expected weight 2.5, got %v", captured.Weight)
	}
	if strings.Contains(captured.Note, "<script>") {
		t.Fatalf("expected sanitised note, got %q", captured.Note)
	}
	if resp["courierBooked"] != true {
		t.Fatalf("expected courierBooked true, got %v", resp["courierBooked"])
	}
	order, _ := resp["order"].(map[string]any)
	courier, _ := order["courierDetails"].(map[string]any)
	if courier["bookingStatus"] != "booked" {
		t.Fatalf("expected booked courier details, got %v", order["courierDetails"])
	}
}

func TestOrderHandlersUpdateStatusInvalidStatus(t *testing.T) {
	svc := &stubOrderService{
		transitionFn: func(context.Context, services.StatusTransitionCommand) (services.StatusTransitionResult, error) {
			return services.StatusTransitionResult{}, fmt.Errorf("%w: Teleported", services.ErrOrderInvalidStatus)
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc))

	rr, resp := doRequest(t, handler, http.MethodPatch, "/api/orders/ORD-1/status", `{"status":"Teleported"}`, "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	valid, _ := resp["validStatuses"].([]any)
	if len(valid) != len(domain.OrderStatuses()) {
		t.Fatalf("expected valid status list, got %v", resp["validStatuses"])
	}
}

func TestOrderHandlersUpdateStatusTerminalOrderConflict(t *testing.T) {
	svc := &stubOrderService{
		transitionFn: func(context.Context, services.StatusTransitionCommand) (services.StatusTransitionResult, error) {
			return services.StatusTransitionResult{}, fmt.Errorf("%w: order is cancelled", services.ErrOrderAlreadyTerminal)
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc))

	rr, resp := doRequest(t, handler, http.MethodPatch, "/api/orders/ORD-1/status", `{"status":"Processing"}`, "")

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if resp["message"] != "order is cancelled" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestOrderHandlersUpdateStatusIgnoresNonPositiveWeight(t *testing.T) {
	var captured services.StatusTransitionCommand
	svc := &stubOrderService{
		transitionFn: func(_ context.Context, cmd services.StatusTransitionCommand) (services.StatusTransitionResult, error) {
			captured = cmd
			return services.StatusTransitionResult{Order: sampleOrder()}, nil
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc))

	rr, _ := doRequest(t, handler, http.MethodPatch, "/api/orders/ORD-1/status", `{"status":"Packed","weight":0}`, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if captured.Weight != nil {
		t.Fatalf("expected no weight override, got %v", *captured.Weight)
	}
}

func TestOrderHandlersCarrierFailureMapsToBadGateway(t *testing.T) {
	svc := &stubOrderService{
		transitionFn: func(context.Context, services.StatusTransitionCommand) (services.StatusTransitionResult, error) {
			return services.StatusTransitionResult{}, &services.CarrierError{Op: "book", StatusCode: 500, Message: "pincode not serviceable"}
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc))

	rr, resp := doRequest(t, handler, http.MethodPatch, "/api/orders/ORD-1/status", `{"status":"Confirmed"}`, "")

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	if resp["message"] != "ST Courier booking failed: pincode not serviceable" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestOrderHandlersCreateGatewayOrder(t *testing.T) {
	created := time.Unix(1709287200, 0).UTC()
	payments := &stubPaymentService{
		createFn: func(_ context.Context, cmd services.CreateGatewayOrderCommand) (services.GatewayOrder, error) {
			if cmd.Amount != 499.5 {
				t.Fatalf("unexpected amount %v", cmd.Amount)
			}
			return services.GatewayOrder{
				ID:        "order_abc",
				Amount:    49950,
				Currency:  "INR",
				Receipt:   "receipt_1709287200000",
				Status:    "created",
				KeyID:     "rzp_test_key",
				CreatedAt: created,
			}, nil
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, &stubOrderService{}, WithPaymentService(payments)))

	rr, resp := doRequest(t, handler, http.MethodPost, "/api/orders/create-razorpay-order", `{"amount":"499.5"}`, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if resp["key_id"] != "rzp_test_key" {
		t.Fatalf("unexpected key_id %v", resp["key_id"])
	}
	order, _ := resp["order"].(map[string]any)
	if order["id"] != "order_abc" || order["amount"] != float64(49950) || order["created_at"] != float64(1709287200) {
		t.Fatalf("unexpected order payload %v", order)
	}
}

func TestOrderHandlersCreateGatewayOrderRejectsMissingAmount(t *testing.T) {
	handler := orderRouter(NewOrderHandlers(nil, &stubOrderService{}, WithPaymentService(&stubPaymentService{})))

	rr, resp := doRequest(t, handler, http.MethodPost, "/api/orders/create-razorpay-order", `{}`, "")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if resp["message"] != "Valid amount required" {
		t.Fatalf("unexpected message %v", resp["message"])
	}
}

func TestOrderHandlersVerifyPayment(t *testing.T) {
	payments := &stubPaymentService{
		verifyFn: func(_ context.Context, cmd services.VerifyPaymentCommand) error {
			if cmd.Signature == "good" {
				return nil
			}
			return services.ErrPaymentVerificationFailed
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, &stubOrderService{}, WithPaymentService(payments)))

	rr, resp := doRequest(t, handler, http.MethodPost, "/api/orders/verify-payment",
		`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"good"}`, "")
	if rr.Code != http.StatusOK || resp["paymentId"] != "pay_1" {
		t.Fatalf("expected verified payment, got %d %v", rr.Code, resp)
	}

	rr, resp = doRequest(t, handler, http.MethodPost, "/api/orders/verify-payment",
		`{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"bad"}`, "")
	if rr.Code != http.StatusBadRequest || resp["message"] != "Verification failed" {
		t.Fatalf("expected verification failure, got %d %v", rr.Code, resp)
	}

	rr, resp = doRequest(t, handler, http.MethodPost, "/api/orders/verify-payment", `{"razorpay_order_id":"order_1"}`, "")
	if rr.Code != http.StatusBadRequest || resp["message"] != "Missing parameters" {
		t.Fatalf("expected missing parameters, got %d %v", rr.Code, resp)
	}
}

func TestOrderHandlersPlacementMiddlewareApplied(t *testing.T) {
	calls := 0
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			next.ServeHTTP(w, r)
		})
	}
	svc := &stubOrderService{
		placeFn: func(context.Context, services.PlaceOrderCommand) (services.Order, error) {
			return sampleOrder(), nil
		},
		getFn: func(context.Context, string) (services.Order, error) {
			return sampleOrder(), nil
		},
	}
	handler := orderRouter(NewOrderHandlers(nil, svc, WithPlacementMiddlewares(mw)))

	doRequest(t, handler, http.MethodPost, "/api/orders/place", `{"userId":"u"}`, "")
	doRequest(t, handler, http.MethodGet, "/api/orders/ORD-1", "", "")

	if calls != 1 {
		t.Fatalf("expected placement middleware once, got %d", calls)
	}
}
