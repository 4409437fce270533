package order

import "time"

// Item is an order line with its price snapshotted at creation time. The
// snapshot protects the buyer from catalog price changes mid-checkout and is
// immutable once the order exists.
type Item struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	PriceLovelace  int64  `json:"price_lovelace"`
	TokenPolicyID  string `json:"token_policy_id,omitempty"`
	TokenAssetName string `json:"token_asset_name,omitempty"`
}

// Order is the persisted order record. Orders are never deleted, only
// soft-retired via DeletedAt.
type Order struct {
	ID            string     `json:"id"`
	PayerAddress  string     `json:"payer_address"`
	TotalLovelace int64      `json:"total_lovelace"`
	Status        Status     `json:"status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaymentError  string     `json:"payment_error,omitempty"`
	Items         []Item     `json:"items"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}
