package wallet

import "errors"

var (
	ErrWalletNotFound    = errors.New("wallet provider not available")
	ErrConnectionRefused = errors.New("wallet connection refused")
	ErrPaymentRejected   = errors.New("payment rejected by wallet")
)
