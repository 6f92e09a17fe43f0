package repositories

import "fmt"

// InventoryErrorCode enumerates repository error causes for ledger operations.
type InventoryErrorCode string

const (
	// InventoryErrorUnknown represents an unspecified failure.
	InventoryErrorUnknown InventoryErrorCode = "inventory_unknown"
	// InventoryErrorInsufficientStock indicates the requested quantity exceeds the variant counter.
	InventoryErrorInsufficientStock InventoryErrorCode = "inventory_insufficient_stock"
	// InventoryErrorProductNotFound indicates the product has no stock record.
	InventoryErrorProductNotFound InventoryErrorCode = "inventory_product_not_found"
	// InventoryErrorVariantNotFound indicates the size or color does not exist on the product.
	InventoryErrorVariantNotFound InventoryErrorCode = "inventory_variant_not_found"
)

// InventoryError wraps ledger failures with machine readable codes and the offending variant.
type InventoryError struct {
	Op        string
	Code      InventoryErrorCode
	Message   string
	ProductID string
	Size      string
	Color     string
	Available int
	Err       error
}

// Error implements the error interface.
func (e *InventoryError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *InventoryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewInventoryError constructs a typed inventory error.
func NewInventoryError(code InventoryErrorCode, message string, err error) *InventoryError {
	if message == "" {
		message = string(code)
	}
	return &InventoryError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InsufficientStock builds the error returned when a variant cannot cover the requested quantity.
func InsufficientStock(productID, size, color, label string, available int) *InventoryError {
	name := label
	if name == "" {
		name = productID
	}
	err := NewInventoryError(InventoryErrorInsufficientStock,
		fmt.Sprintf("insufficient stock for %s (%s/%s): %d available", name, size, color, available), nil)
	err.ProductID = productID
	err.Size = size
	err.Color = color
	err.Available = available
	return err
}

// ProductNotFound builds the error returned when a product has no stock record.
func ProductNotFound(productID, label string) *InventoryError {
	name := label
	if name == "" {
		name = productID
	}
	err := NewInventoryError(InventoryErrorProductNotFound, fmt.Sprintf("product not found: %s", name), nil)
	err.ProductID = productID
	return err
}

// VariantNotFound builds the error returned when the size or color is unknown on the product.
func VariantNotFound(productID, size, color string, sizeKnown bool) *InventoryError {
	message := fmt.Sprintf("size %s not available", size)
	if sizeKnown {
		message = fmt.Sprintf("color %s not available", color)
	}
	err := NewInventoryError(InventoryErrorVariantNotFound, message, nil)
	err.ProductID = productID
	err.Size = size
	err.Color = color
	return err
}
