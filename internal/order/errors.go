package order

import "errors"

var (
	ErrEmptyOrder          = errors.New("order must contain at least one item")
	ErrInvalidItemQuantity = errors.New("item quantity must be greater than 0")
	ErrInvalidAmount       = errors.New("amount outside the valid lovelace range")
	ErrInvalidTransition   = errors.New("illegal order status transition")
)
