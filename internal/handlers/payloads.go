package handlers

import (
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

type orderPayload struct {
	OrderID         string                 `json:"orderId"`
	UserID          string                 `json:"userId"`
	UserEmail       string                 `json:"userEmail"`
	UserName        string                 `json:"userName"`
	CustomerPhone   string                 `json:"customerPhone"`
	Items           []orderItemPayload     `json:"items"`
	TotalAmount     float64                `json:"totalAmount"`
	PaymentMethod   string                 `json:"paymentMethod"`
	PaymentDetails  *paymentDetailsPayload `json:"paymentDetails,omitempty"`
	ShippingAddress addressPayload         `json:"shippingAddress"`
	CourierDetails  *courierDetailsPayload `json:"courierDetails,omitempty"`
	Status          string                 `json:"status"`
	StatusHistory   []statusHistoryPayload `json:"statusHistory"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt,omitempty"`
}

type orderItemPayload struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Title         string  `json:"title"`
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
	Size          string  `json:"size"`
	Color         string  `json:"color"`
	Image         string  `json:"image,omitempty"`
	Collection    string  `json:"collection,omitempty"`
	OriginalPrice float64 `json:"originalPrice,omitempty"`
	Discount      float64 `json:"discount,omitempty"`
}

type paymentDetailsPayload struct {
	RazorpayOrderID   string `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string `json:"razorpay_payment_id,omitempty"`
	PaymentStatus     string `json:"payment_status,omitempty"`
	PaidAt            string `json:"paid_at,omitempty"`
}

type addressPayload struct {
	Street   string `json:"street"`
	Village  string `json:"village"`
	PO       string `json:"po,omitempty"`
	Taluk    string `json:"taluk,omitempty"`
	District string `json:"district"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Country  string `json:"country"`
}

type statusHistoryPayload struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Note      string `json:"note,omitempty"`
}

type courierDetailsPayload struct {
	CourierName          string                 `json:"courierName"`
	AWBNumber            string                 `json:"awbNumber"`
	TrackingURL          string                 `json:"trackingUrl"`
	BookingStatus        string                 `json:"bookingStatus"`
	BookingResponse      map[string]any         `json:"bookingResponse,omitempty"`
	CourierStatusHistory []courierStatusPayload `json:"courierStatusHistory"`
	Weight               string                 `json:"weight,omitempty"`
	VolumetricWeight     string                 `json:"volumetricWeight,omitempty"`
}

type courierStatusPayload struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Location  string `json:"location,omitempty"`
	Remarks   string `json:"remarks,omitempty"`
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		OrderID:         order.ID,
		UserID:          order.UserID,
		UserEmail:       order.UserEmail,
		UserName:        order.UserName,
		CustomerPhone:   order.CustomerPhone,
		Items:           make([]orderItemPayload, 0, len(order.Items)),
		TotalAmount:     order.TotalAmount,
		PaymentMethod:   string(order.PaymentMethod),
		ShippingAddress: buildAddressPayload(order.ShippingAddress),
		Status:          string(order.Status),
		StatusHistory:   make([]statusHistoryPayload, 0, len(order.StatusHistory)),
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ID:            item.ProductID,
			Name:          item.Name,
			Title:         item.Title,
			Price:         item.Price,
			Quantity:      item.Quantity,
			Size:          item.Size,
			Color:         item.Color,
			Image:         item.Image,
			Collection:    item.Collection,
			OriginalPrice: item.OriginalPrice,
			Discount:      item.Discount,
		})
	}
	for _, entry := range order.StatusHistory {
		payload.StatusHistory = append(payload.StatusHistory, statusHistoryPayload{
			Status:    string(entry.Status),
			Timestamp: formatTime(entry.Timestamp),
			Note:      entry.Note,
		})
	}
	if pd := order.PaymentDetails; pd.GatewayPaymentID != "" || pd.GatewayOrderID != "" || pd.Status != "" {
		payload.PaymentDetails = &paymentDetailsPayload{
			RazorpayOrderID:   pd.GatewayOrderID,
			RazorpayPaymentID: pd.GatewayPaymentID,
			PaymentStatus:     string(pd.Status),
			PaidAt:            formatTime(pointerTime(pd.PaidAt)),
		}
	}
	if courier := order.Courier; courier.BookingStatus != "" || courier.AWBNumber != "" || len(courier.StatusHistory) > 0 {
		details := buildCourierDetailsPayload(courier)
		payload.CourierDetails = &details
	}
	return payload
}

func buildOrderPayloads(orders []services.Order) []orderPayload {
	out := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		out = append(out, buildOrderPayload(order))
	}
	return out
}

func buildAddressPayload(addr services.ShippingAddress) addressPayload {
	return addressPayload{
		Street:   addr.Street,
		Village:  addr.Village,
		PO:       addr.PO,
		Taluk:    addr.Taluk,
		District: addr.District,
		State:    addr.State,
		Pincode:  addr.Pincode,
		Country:  addr.Country,
	}
}

func (a addressPayload) toDomain() services.ShippingAddress {
	return services.ShippingAddress{
		Street:   a.Street,
		Village:  a.Village,
		PO:       a.PO,
		Taluk:    a.Taluk,
		District: a.District,
		State:    a.State,
		Pincode:  a.Pincode,
		Country:  a.Country,
	}
}

func buildCourierDetailsPayload(courier services.CourierDetails) courierDetailsPayload {
	details := courierDetailsPayload{
		CourierName:          courier.CourierName,
		AWBNumber:            courier.AWBNumber,
		TrackingURL:          courier.TrackingURL,
		BookingStatus:        string(courier.BookingStatus),
		BookingResponse:      courier.BookingResponse,
		CourierStatusHistory: make([]courierStatusPayload, 0, len(courier.StatusHistory)),
		Weight:               courier.Weight,
		VolumetricWeight:     courier.VolumetricWeight,
	}
	for _, entry := range courier.StatusHistory {
		details.CourierStatusHistory = append(details.CourierStatusHistory, courierStatusPayload{
			Status:    entry.Status,
			Timestamp: formatTime(entry.Timestamp),
			Location:  entry.Location,
			Remarks:   entry.Remarks,
		})
	}
	return details
}
