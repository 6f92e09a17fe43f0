package firestore

import (
	"strings"
	"time"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
)

type variantDocument struct {
	Quantity int      `firestore:"quantity"`
	Images   []string `firestore:"images,omitempty"`
}

type productDocument struct {
	ID           string                                `firestore:"id"`
	Title        string                                `firestore:"title"`
	Collection   string                                `firestore:"collection,omitempty"`
	Price        float64                               `firestore:"price,omitempty"`
	SellingPrice float64                               `firestore:"sellingPrice,omitempty"`
	Stock        string                                `firestore:"stock"`
	StockDetails map[string]map[string]variantDocument `firestore:"stockDetails"`
	IsActive     bool                                  `firestore:"isActive"`
	UpdatedAt    time.Time                             `firestore:"updatedAt"`
}

func (d productDocument) toDomain(id string) domain.ProductStock {
	product := domain.ProductStock{
		ProductID: firstNonEmpty(d.ID, id),
		Title:     d.Title,
		Active:    d.IsActive,
		Level:     domain.StockLevel(d.Stock),
		Variants:  make(map[string]map[string]domain.VariantStock, len(d.StockDetails)),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for size, colors := range d.StockDetails {
		out := make(map[string]domain.VariantStock, len(colors))
		for color, v := range colors {
			out[color] = domain.VariantStock{Quantity: v.Quantity, Images: append([]string(nil), v.Images...)}
		}
		product.Variants[size] = out
	}
	return product
}

// applyStock copies the mutable stock fields back onto the stored document, leaving catalogue fields
// (price, collection) untouched.
func (d *productDocument) applyStock(product domain.ProductStock) {
	d.Stock = string(product.Level)
	d.UpdatedAt = product.UpdatedAt
	d.StockDetails = make(map[string]map[string]variantDocument, len(product.Variants))
	for size, colors := range product.Variants {
		out := make(map[string]variantDocument, len(colors))
		for color, v := range colors {
			out[color] = variantDocument{Quantity: v.Quantity, Images: v.Images}
		}
		d.StockDetails[size] = out
	}
}

type orderItemDocument struct {
	ID            string  `firestore:"id"`
	Name          string  `firestore:"name"`
	Title         string  `firestore:"title"`
	Price         float64 `firestore:"price"`
	Quantity      int     `firestore:"quantity"`
	SelectedSize  string  `firestore:"selectedSize"`
	SelectedColor string  `firestore:"selectedColor"`
	Image         string  `firestore:"image,omitempty"`
	Collection    string  `firestore:"collection,omitempty"`
	OriginalPrice float64 `firestore:"originalPrice,omitempty"`
	Discount      float64 `firestore:"discount,omitempty"`
}

type paymentDocument struct {
	RazorpayOrderID   string     `firestore:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string     `firestore:"razorpay_payment_id,omitempty"`
	PaymentStatus     string     `firestore:"payment_status"`
	PaidAt            *time.Time `firestore:"paid_at,omitempty"`
}

type addressDocument struct {
	Street   string `firestore:"street"`
	Village  string `firestore:"village"`
	PO       string `firestore:"po"`
	Taluk    string `firestore:"taluk"`
	District string `firestore:"district"`
	State    string `firestore:"state"`
	Pincode  string `firestore:"pincode"`
	Country  string `firestore:"country"`
}

type courierStatusDocument struct {
	Status    string    `firestore:"status"`
	Timestamp time.Time `firestore:"timestamp"`
	Location  string    `firestore:"location"`
	Remarks   string    `firestore:"remarks"`
}

type courierDocument struct {
	CourierName          string                  `firestore:"courierName"`
	AWBNumber            string                  `firestore:"awbNumber"`
	TrackingURL          string                  `firestore:"trackingUrl"`
	BookingStatus        string                  `firestore:"bookingStatus"`
	BookingResponse      map[string]any          `firestore:"bookingResponse"`
	CourierStatusHistory []courierStatusDocument `firestore:"courierStatusHistory"`
	Weight               string                  `firestore:"weight"`
	VolumetricWeight     string                  `firestore:"volumetricWeight"`
	ClaimedAt            *time.Time              `firestore:"claimedAt,omitempty"`
}

type statusHistoryDocument struct {
	Status    string    `firestore:"status"`
	Timestamp time.Time `firestore:"timestamp"`
	Note      string    `firestore:"note"`
}

type orderDocument struct {
	OrderID         string                  `firestore:"orderId"`
	UserID          string                  `firestore:"userId"`
	UserEmail       string                  `firestore:"userEmail"`
	UserName        string                  `firestore:"userName"`
	CustomerPhone   string                  `firestore:"customerPhone"`
	Items           []orderItemDocument     `firestore:"items"`
	TotalAmount     float64                 `firestore:"totalAmount"`
	PaymentMethod   string                  `firestore:"paymentMethod"`
	PaymentDetails  paymentDocument         `firestore:"paymentDetails"`
	ShippingAddress addressDocument         `firestore:"shippingAddress"`
	CourierDetails  courierDocument         `firestore:"courierDetails"`
	Status          string                  `firestore:"status"`
	StatusHistory   []statusHistoryDocument `firestore:"statusHistory"`
	CreatedAt       time.Time               `firestore:"createdAt"`
	UpdatedAt       time.Time               `firestore:"updatedAt"`
}

func newOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderID:       order.ID,
		UserID:        order.UserID,
		UserEmail:     order.UserEmail,
		UserName:      order.UserName,
		CustomerPhone: order.CustomerPhone,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: string(order.PaymentMethod),
		PaymentDetails: paymentDocument{
			RazorpayOrderID:   order.PaymentDetails.GatewayOrderID,
			RazorpayPaymentID: order.PaymentDetails.GatewayPaymentID,
			PaymentStatus:     string(order.PaymentDetails.Status),
			PaidAt:            order.PaymentDetails.PaidAt,
		},
		ShippingAddress: addressDocument(order.ShippingAddress),
		CourierDetails: courierDocument{
			CourierName:      order.Courier.CourierName,
			AWBNumber:        order.Courier.AWBNumber,
			TrackingURL:      order.Courier.TrackingURL,
			BookingStatus:    string(order.Courier.BookingStatus),
			BookingResponse:  order.Courier.BookingResponse,
			Weight:           order.Courier.Weight,
			VolumetricWeight: order.Courier.VolumetricWeight,
			ClaimedAt:        optionalTime(order.Courier.ClaimedAt),
		},
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt.UTC(),
		UpdatedAt: order.UpdatedAt.UTC(),
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ID:            item.ProductID,
			Name:          item.Name,
			Title:         item.Title,
			Price:         item.Price,
			Quantity:      item.Quantity,
			SelectedSize:  item.Size,
			SelectedColor: item.Color,
			Image:         item.Image,
			Collection:    item.Collection,
			OriginalPrice: item.OriginalPrice,
			Discount:      item.Discount,
		})
	}
	for _, entry := range order.StatusHistory {
		doc.StatusHistory = append(doc.StatusHistory, statusHistoryDocument{
			Status:    string(entry.Status),
			Timestamp: entry.Timestamp.UTC(),
			Note:      entry.Note,
		})
	}
	for _, entry := range order.Courier.StatusHistory {
		doc.CourierDetails.CourierStatusHistory = append(doc.CourierDetails.CourierStatusHistory, courierStatusDocument{
			Status:    entry.Status,
			Timestamp: entry.Timestamp.UTC(),
			Location:  entry.Location,
			Remarks:   entry.Remarks,
		})
	}
	return doc
}

func (d orderDocument) toDomain() domain.Order {
	order := domain.Order{
		ID:            d.OrderID,
		UserID:        d.UserID,
		UserEmail:     d.UserEmail,
		UserName:      d.UserName,
		CustomerPhone: d.CustomerPhone,
		TotalAmount:   d.TotalAmount,
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		PaymentDetails: domain.PaymentDetails{
			GatewayOrderID:   d.PaymentDetails.RazorpayOrderID,
			GatewayPaymentID: d.PaymentDetails.RazorpayPaymentID,
			Status:           domain.PaymentStatus(d.PaymentDetails.PaymentStatus),
			PaidAt:           d.PaymentDetails.PaidAt,
		},
		ShippingAddress: domain.ShippingAddress(d.ShippingAddress),
		Courier: domain.CourierDetails{
			CourierName:      d.CourierDetails.CourierName,
			AWBNumber:        d.CourierDetails.AWBNumber,
			TrackingURL:      d.CourierDetails.TrackingURL,
			BookingStatus:    domain.BookingStatus(d.CourierDetails.BookingStatus),
			BookingResponse:  d.CourierDetails.BookingResponse,
			Weight:           d.CourierDetails.Weight,
			VolumetricWeight: d.CourierDetails.VolumetricWeight,
			ClaimedAt:        derefTime(d.CourierDetails.ClaimedAt),
		},
		Status:    domain.OrderStatus(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, item := range d.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:     item.ID,
			Name:          item.Name,
			Title:         item.Title,
			Price:         item.Price,
			Quantity:      item.Quantity,
			Size:          item.SelectedSize,
			Color:         item.SelectedColor,
			Image:         item.Image,
			Collection:    item.Collection,
			OriginalPrice: item.OriginalPrice,
			Discount:      item.Discount,
		})
	}
	for _, entry := range d.StatusHistory {
		order.StatusHistory = append(order.StatusHistory, domain.StatusHistoryEntry{
			Status:    domain.OrderStatus(entry.Status),
			Timestamp: entry.Timestamp.UTC(),
			Note:      entry.Note,
		})
	}
	for _, entry := range d.CourierDetails.CourierStatusHistory {
		order.Courier.StatusHistory = append(order.Courier.StatusHistory, domain.CourierStatusEntry{
			Status:    entry.Status,
			Timestamp: entry.Timestamp.UTC(),
			Location:  entry.Location,
			Remarks:   entry.Remarks,
		})
	}
	return order
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
