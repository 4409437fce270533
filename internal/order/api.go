package order

import "context"

// CreateOrderRequest carries everything the order API needs to persist a new
// pending order.
type CreateOrderRequest struct {
	PayerAddress  string `json:"payer_address"`
	Items         []Item `json:"items"`
	TotalLovelace int64  `json:"total_lovelace"`
}

// StatusUpdateRequest moves an order along the status graph. TransactionID
// accompanies a move to paid, PaymentError a move to payment_failed.
type StatusUpdateRequest struct {
	OrderID       string `json:"-"`
	Status        Status `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	PaymentError  string `json:"payment_error,omitempty"`
}

// API is the external order collaborator. Consumers define this interface;
// the HTTP client and the server-side store both satisfy it.
type API interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	UpdateOrderStatus(ctx context.Context, req StatusUpdateRequest) (*Order, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListOrders(ctx context.Context, payerAddress string) ([]*Order, error)
}
