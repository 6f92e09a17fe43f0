package services

import (
	"context"
	"time"

	domain "github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	ShippingAddress    = domain.ShippingAddress
	CourierDetails     = domain.CourierDetails
	CourierStatusEntry = domain.CourierStatusEntry
	ProductStock       = domain.ProductStock
	StockLine          = domain.StockLine
)

// InventoryService owns stock reservation against the ledger.
type InventoryService interface {
	Reserve(ctx context.Context, lines []StockLine) error
	Release(ctx context.Context, lines []StockLine) error
	GetStock(ctx context.Context, productID string) (ProductStock, error)
}

// OrderService covers order placement, reads and the status lifecycle.
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	PlaceOrderWithPayment(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]Order, error)
	ListAllOrders(ctx context.Context) ([]Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	TransitionStatus(ctx context.Context, cmd StatusTransitionCommand) (StatusTransitionResult, error)
}

// CourierService manages explicit consignment bookings and cancellations.
type CourierService interface {
	BookCourier(ctx context.Context, cmd BookCourierCommand) (CourierBookingResult, error)
	CancelCourier(ctx context.Context, cmd CancelCourierCommand) (CourierCancelResult, error)
	GetCourierDetails(ctx context.Context, orderID string) (CourierDetails, error)
}

// CourierWebhookService applies carrier tracking events to orders.
type CourierWebhookService interface {
	Ingest(ctx context.Context, events []CourierTrackingEvent) (WebhookReport, error)
}

// PaymentService fronts the payment gateway for the checkout widget.
type PaymentService interface {
	CreateGatewayOrder(ctx context.Context, cmd CreateGatewayOrderCommand) (GatewayOrder, error)
	VerifyPayment(ctx context.Context, cmd VerifyPaymentCommand) error
}

// CarrierGateway books and cancels consignments with the integrated carrier.
type CarrierGateway interface {
	Eligible(addr ShippingAddress) bool
	Book(ctx context.Context, order Order, weight float64) (CarrierBooking, error)
	Cancel(ctx context.Context, awbNumber, orderID string) error
}

// CarrierBooking is the carrier-agnostic result of a successful booking.
type CarrierBooking struct {
	CourierName      string
	AWBNumber        string
	TrackingURL      string
	VolumetricWeight string
	Response         map[string]any
}

// OrderListCache holds the admin order listing between mutations.
type OrderListCache interface {
	Get(key string) ([]Order, bool)
	Set(key string, orders []Order)
	Purge()
}

// OrderMetrics records order-flow outcomes.
type OrderMetrics interface {
	Reservation(ctx context.Context, outcome string)
	Booking(ctx context.Context, mode, outcome string)
	WebhookUpdate(ctx context.Context, outcome string)
}

// PlaceOrderCommand carries a placement request as received from the client.
type PlaceOrderCommand struct {
	UserID          string
	UserEmail       string
	UserName        string
	CustomerPhone   string
	Phone           string
	Items           []OrderItemInput
	TotalAmount     float64
	PaymentMethod   string
	ShippingAddress *ShippingAddress
	Payment         *PaymentConfirmation
}

// OrderItemInput is a raw line item; it is normalised before anything else touches it.
type OrderItemInput struct {
	ID            string
	ProductID     string
	Name          string
	Title         string
	Price         float64
	Quantity      int
	Size          string
	Color         string
	Image         string
	Collection    string
	OriginalPrice float64
	Discount      float64
}

// PaymentConfirmation holds the gateway references returned by the checkout widget.
type PaymentConfirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// CancelOrderCommand is the customer cancel request.
type CancelOrderCommand struct {
	OrderID string
	ActorID string
}

// StatusTransitionCommand is the admin status update request. Weight overrides the default
// auto-booking weight when set.
type StatusTransitionCommand struct {
	OrderID string
	Status  string
	Note    string
	Weight  *float64
	ActorID string
}

// StatusTransitionResult reports the updated order and whether it now carries a consignment.
type StatusTransitionResult struct {
	Order         Order
	CourierBooked bool
}

// BookCourierCommand is an explicit booking. CourierName and AWBNumber are only used for manual
// entries on addresses the carrier API does not serve.
type BookCourierCommand struct {
	OrderID     string
	Weight      float64
	CourierName string
	AWBNumber   string
	TrackingURL string
	ActorID     string
}

// CourierBookingMode distinguishes API bookings from manual entries.
type CourierBookingMode string

const (
	CourierBookingModeAPI    CourierBookingMode = "api"
	CourierBookingModeManual CourierBookingMode = "manual"
	CourierBookingModeAuto   CourierBookingMode = "auto"
)

// CourierBookingResult is returned by BookCourier.
type CourierBookingResult struct {
	Order Order
	Mode  CourierBookingMode
}

// CancelCourierCommand requests cancellation of the order's consignment.
type CancelCourierCommand struct {
	OrderID string
	ActorID string
}

// CourierCancelResult is returned by CancelCourier.
type CourierCancelResult struct {
	Order     Order
	AWBNumber string
	Mode      CourierBookingMode
}

// CourierTrackingEvent is one carrier status update.
type CourierTrackingEvent struct {
	AWBNumber     string
	TransDateTime string
	TransFor      string
	TransFrom     string
	TransTo       string
	DeliveryStaff string
	StatusCode    string
	PODImage      string
}

// WebhookReport summarises a processed batch.
type WebhookReport struct {
	Processed int
	Skipped   int
	Failed    []WebhookFailure
}

// WebhookFailure names an event that could not be applied.
type WebhookFailure struct {
	AWBNumber string
	Reason    string
}

// CreateGatewayOrderCommand asks for a checkout order in rupees.
type CreateGatewayOrderCommand struct {
	Amount float64
}

// GatewayOrder is the checkout order handed back to the client.
type GatewayOrder struct {
	ID        string
	Amount    int64
	Currency  string
	Receipt   string
	Status    string
	KeyID     string
	CreatedAt time.Time
}

// VerifyPaymentCommand carries the checkout signature triple.
type VerifyPaymentCommand struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}
