package checkout

import "errors"

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrNoWallet        = errors.New("no wallet connected")
	ErrNoOrder         = errors.New("no order placed for this attempt")
	ErrPaymentInFlight = errors.New("a payment is already in flight")
	ErrPaymentTimeout  = errors.New("payment timed out")
)
