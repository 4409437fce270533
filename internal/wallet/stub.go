package wallet

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// StubWallet is a deterministic wallet for development and tests. Delay and
// outcome are configurable so callers can exercise slow wallets, rejections
// and deadline behavior without a real signing service.
type StubWallet struct {
	// Address returned by GetChangeAddress.
	Address string
	// Delay applied before SubmitTransaction resolves.
	Delay time.Duration
	// Reject makes every submission fail with ErrPaymentRejected.
	Reject bool

	submissions atomic.Int64
}

func NewStubWallet(address string) *StubWallet {
	return &StubWallet{Address: address}
}

func (w *StubWallet) GetChangeAddress(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return w.Address, nil
}

func (w *StubWallet) SubmitTransaction(ctx context.Context, req PaymentRequest) (string, error) {
	if w.Delay > 0 {
		select {
		case <-time.After(w.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	w.submissions.Add(1)
	if w.Reject {
		return "", fmt.Errorf("%w: user declined to sign", ErrPaymentRejected)
	}
	return fmt.Sprintf("tx-%s", uuid.NewString()), nil
}

// Submissions reports how many transactions reached the wallet, including
// rejected ones.
func (w *StubWallet) Submissions() int64 {
	return w.submissions.Load()
}
