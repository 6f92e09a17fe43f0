package stcourier

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/domain"
)

// Sender is the shop profile printed as the consignor.
type Sender struct {
	Name     string
	Address1 string
	Address2 string
	Pincode  string
	Phone    string
}

type bookingLine struct {
	AWBNo       string `json:"awbno"`
	RefNo       string `json:"refno"`
	OriginSrc   string `json:"orginsrc"`
	FromName    string `json:"frmname"`
	FromAdd1    string `json:"frmadd1"`
	FromAdd2    string `json:"frmadd2"`
	FromPincode string `json:"frmpincode"`
	FromPhone   string `json:"frmphone"`
	ToName      string `json:"toname"`
	ToAdd1      string `json:"toadd1"`
	ToAdd2      string `json:"toadd2"`
	ToArea      string `json:"toarea"`
	ToPincode   string `json:"topincode"`
	ToPhone     string `json:"tophone"`
	GoodsName   string `json:"goodsname"`
	GoodsValue  string `json:"goodsvalue"`
	DocType     string `json:"doctype"`
	TransMode   string `json:"transmode"`
	Qty         string `json:"qty"`
	Weight      string `json:"weight"`
	VolWeight   string `json:"volweight"`
	ToPayAmount string `json:"topayamt"`
	CODAmount   string `json:"codamt"`
	InvFileType string `json:"invfiletype"`
	InvCopy     string `json:"invcopy"`
	EWayBill    string `json:"ewaybill"`
}

type cancelLine struct {
	AWBNo     string `json:"awbno"`
	OriginSrc string `json:"originsrc"`
	Remarks   string `json:"remarks"`
}

func buildBookingLine(order domain.Order, weight float64, customerCode string, sender Sender) bookingLine {
	addr := order.ShippingAddress
	lines := len(order.Items)
	if lines == 0 {
		lines = 1
	}
	qty := order.TotalQuantity()
	if qty == 0 {
		qty = 1
	}
	cod := "0"
	if order.PaymentMethod == domain.PaymentMethodCOD {
		cod = formatAmount(order.TotalAmount)
	}
	toName := strings.TrimSpace(order.UserName)
	if toName == "" {
		toName = "Customer"
	}
	return bookingLine{
		AWBNo:       "AUTO",
		RefNo:       order.ID,
		OriginSrc:   customerCode,
		FromName:    sender.Name,
		FromAdd1:    sender.Address1,
		FromAdd2:    sender.Address2,
		FromPincode: sender.Pincode,
		FromPhone:   sender.Phone,
		ToName:      toName,
		ToAdd1:      addr.Street,
		ToAdd2:      fmt.Sprintf("%s, %s", addr.Village, addr.PO),
		ToArea:      addr.District,
		ToPincode:   addr.Pincode,
		ToPhone:     LastTenDigits(order.CustomerPhone),
		GoodsName:   fmt.Sprintf("Saree Order - %d pcs", lines),
		GoodsValue:  formatAmount(order.TotalAmount),
		DocType:     "N",
		TransMode:   "S",
		Qty:         strconv.Itoa(qty),
		Weight:      FormatWeight(weight),
		VolWeight:   VolumetricWeight(weight),
		ToPayAmount: "0",
		CODAmount:   cod,
		InvFileType: "",
		InvCopy:     "0",
		EWayBill:    "",
	}
}

// LastTenDigits strips every non-digit and keeps the trailing ten digits.
func LastTenDigits(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

// VolumetricWeight is 20% of the actual weight, rendered with two decimals.
func VolumetricWeight(weight float64) string {
	return strconv.FormatFloat(weight*0.2, 'f', 2, 64)
}

// FormatWeight renders weight without trailing zeros ("1", "0.5").
func FormatWeight(weight float64) string {
	return strconv.FormatFloat(weight, 'f', -1, 64)
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
