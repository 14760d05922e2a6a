package services

import "errors"

// Sentinel errors shared across services. Handlers map them onto the HTTP
// error taxonomy.
var (
	ErrValidation        = errors.New("invalid request")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderInvalidState = errors.New("order state does not allow this operation")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
)
