package wallet

import "context"

// PaymentRequest describes a single on-chain payment to build and submit.
type PaymentRequest struct {
	AmountLovelace int64             `json:"amount_lovelace"`
	Recipient      string            `json:"recipient"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Wallet is an established connection to a user's wallet. Implementations
// talk to a browser extension bridge or a hosted signing service; callers
// only see addresses and transaction hashes.
type Wallet interface {
	// GetChangeAddress returns the payer address funds change returns to.
	GetChangeAddress(ctx context.Context) (string, error)
	// SubmitTransaction builds, signs and submits the payment and returns
	// the transaction hash. It blocks until the wallet responds or ctx is
	// done, whichever comes first.
	SubmitTransaction(ctx context.Context, req PaymentRequest) (string, error)
}

// Connector establishes a session with one wallet provider.
type Connector interface {
	Connect(ctx context.Context) (Wallet, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Wallet, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Wallet, error) {
	return f(ctx)
}
