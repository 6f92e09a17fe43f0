package domain

import "time"

// OrderStatus enumerates the closed set of lifecycle states an order can hold.
type OrderStatus string

const (
	// OrderStatusPlaced is assigned when the order is first persisted.
	OrderStatusPlaced OrderStatus = "Order Placed"
	// OrderStatusProcessing indicates the shop has started working on the order.
	OrderStatusProcessing OrderStatus = "Processing"
	// OrderStatusConfirmed triggers courier auto-booking for eligible addresses.
	OrderStatusConfirmed OrderStatus = "Confirmed"
	// OrderStatusPacked indicates the parcel is ready for pickup.
	OrderStatusPacked OrderStatus = "Packed"
	// OrderStatusShipped indicates the parcel is with the carrier.
	OrderStatusShipped OrderStatus = "Shipped"
	// OrderStatusOutForDelivery indicates the carrier is delivering the parcel today.
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	// OrderStatusDelivered is terminal.
	OrderStatusDelivered OrderStatus = "Delivered"
	// OrderStatusCancelled is terminal; stock has been returned to the ledger.
	OrderStatusCancelled OrderStatus = "Cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusProcessing,
	OrderStatusConfirmed,
	OrderStatusPacked,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// OrderStatuses returns the valid statuses in happy-path order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// ParseOrderStatus matches the exact status label.
func ParseOrderStatus(value string) (OrderStatus, bool) {
	for _, status := range orderStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusShipped, OrderStatusOutForDelivery, OrderStatusDelivered:
		return false
	default:
		return true
	}
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusDelivered
}

// PaymentMethod identifies how the customer pays.
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCOD    PaymentMethod = "cod"
)

// PaymentStatus mirrors the gateway outcome recorded on the order.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// BookingStatus tracks the courier consignment state embedded in an order.
type BookingStatus string

const (
	BookingStatusNone      BookingStatus = ""
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusBooked    BookingStatus = "booked"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Order is the persisted order record. Items are a snapshot taken at placement time.
type Order struct {
	ID              string
	UserID          string
	UserEmail       string
	UserName        string
	CustomerPhone   string
	Items           []OrderItem
	TotalAmount     float64
	PaymentMethod   PaymentMethod
	PaymentDetails  PaymentDetails
	ShippingAddress ShippingAddress
	Courier         CourierDetails
	Status          OrderStatus
	StatusHistory   []StatusHistoryEntry
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is the canonical line item captured on the order.
type OrderItem struct {
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

// PaymentDetails stores the gateway references for prepaid orders.
type PaymentDetails struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Status           PaymentStatus
	PaidAt           *time.Time
}

// ShippingAddress is the single delivery address attached to an order.
type ShippingAddress struct {
	Street   string
	Village  string
	PO       string
	Taluk    string
	District string
	State    string
	Pincode  string
	Country  string
}

// StatusHistoryEntry is one append-only audit record of a status change.
type StatusHistoryEntry struct {
	Status    OrderStatus
	Timestamp time.Time
	Note      string
}

// CourierDetails captures the consignment booked for an order.
type CourierDetails struct {
	CourierName      string
	AWBNumber        string
	TrackingURL      string
	BookingStatus    BookingStatus
	BookingResponse  map[string]any
	StatusHistory    []CourierStatusEntry
	Weight           string
	VolumetricWeight string
	// ClaimedAt is when a pending booking claim was taken. Zero unless BookingStatus is pending.
	ClaimedAt time.Time
}

// ClaimHeld reports whether a pending booking claim is still live at now. Claims older than ttl
// belong to a request that never committed and may be taken over.
func (c CourierDetails) ClaimHeld(now time.Time, ttl time.Duration) bool {
	if c.BookingStatus != BookingStatusPending {
		return false
	}
	if c.ClaimedAt.IsZero() {
		return false
	}
	return now.Sub(c.ClaimedAt) < ttl
}

// CourierStatusEntry is one carrier-side tracking event.
type CourierStatusEntry struct {
	Status    string
	Timestamp time.Time
	Location  string
	Remarks   string
}

// TotalQuantity sums the quantities across all items.
func (o Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// HasConsignment reports whether a carrier AWB is already attached.
func (o Order) HasConsignment() bool {
	return o.Courier.AWBNumber != ""
}

// AppendStatus records a history entry without touching the current status.
func (o *Order) AppendStatus(status OrderStatus, at time.Time, note string) {
	o.StatusHistory = append(o.StatusHistory, StatusHistoryEntry{Status: status, Timestamp: at, Note: note})
}

// SetStatus moves the order to status and appends the matching history entry.
func (o *Order) SetStatus(status OrderStatus, at time.Time, note string) {
	o.Status = status
	o.AppendStatus(status, at, note)
	o.UpdatedAt = at
}

// Clone deep-copies the slices and maps held by the order.
func (o Order) Clone() Order {
	out := o
	out.Items = append([]OrderItem(nil), o.Items...)
	out.StatusHistory = append([]StatusHistoryEntry(nil), o.StatusHistory...)
	out.Courier.StatusHistory = append([]CourierStatusEntry(nil), o.Courier.StatusHistory...)
	if o.Courier.BookingResponse != nil {
		out.Courier.BookingResponse = make(map[string]any, len(o.Courier.BookingResponse))
		for k, v := range o.Courier.BookingResponse {
			out.Courier.BookingResponse[k] = v
		}
	}
	if o.PaymentDetails.PaidAt != nil {
		paidAt := *o.PaymentDetails.PaidAt
		out.PaymentDetails.PaidAt = &paidAt
	}
	return out
}
