package domain

import "time"

// Cart is the customer's basket. Placing an order empties it.
type Cart struct {
	UserID     string
	Items      []CartItem
	TotalPrice float64
	TotalItems int
	UpdatedAt  time.Time
}

// CartItem is one basket line.
type CartItem struct {
	ProductID     string
	Title         string
	Image         string
	Price         float64
	OriginalPrice float64
	Discount      float64
	Size          string
	Color         string
	Quantity      int
	Collection    string
}
