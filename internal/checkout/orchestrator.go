package checkout

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/adashop/storefront/internal/cart"
	"github.com/adashop/storefront/internal/order"
	"github.com/adashop/storefront/internal/wallet"
)

// PaymentTimeout bounds how long a submitted payment may stay unresolved,
// roughly three Cardano block intervals.
const PaymentTimeout = 60 * time.Second

// Stage is the checkout flow position.
type Stage string

const (
	StageReview        Stage = "review"
	StageWalletConnect Stage = "wallet_connect"
	StagePayment       Stage = "payment"
	StageResult        Stage = "result"
)

// Result is the terminal outcome of one payment attempt.
type Result struct {
	Success bool
	OrderID string
	TxID    string
	Timeout bool
	Err     error
}

// Cart is the slice of the cart store the orchestrator needs.
type Cart interface {
	Lines(ctx context.Context) ([]cart.Line, error)
	Clear(ctx context.Context) error
	IsEmpty(ctx context.Context) (bool, error)
}

// Orders is the slice of the order manager the orchestrator needs.
type Orders interface {
	Create(ctx context.Context, payerAddress string, items []order.Item) (*order.Order, error)
	Transition(ctx context.Context, orderID string, to order.Status, tc order.TransitionContext) (*order.Order, error)
}

// Wallets resolves a provider name to a connected wallet.
type Wallets interface {
	Connect(ctx context.Context, name string) (wallet.Wallet, error)
}

type payOutcome struct {
	txID string
	err  error
}

// Orchestrator drives a checkout attempt through review, wallet connection,
// payment and result. One orchestrator serves one shopping session; its
// methods are safe for concurrent use but at most one payment is in flight
// at a time.
type Orchestrator struct {
	cart      Cart
	orders    Orders
	wallets   Wallets
	recipient string
	timeout   time.Duration

	mu         sync.Mutex
	stage      Stage
	wallet     wallet.Wallet
	walletName string
	current    *order.Order
	placing    bool
	inFlight   bool
	result     *Result
}

// NewOrchestrator wires a checkout flow paying the shop's recipient address.
func NewOrchestrator(c Cart, o Orders, w Wallets, recipient string) *Orchestrator {
	return &Orchestrator{
		cart:      c,
		orders:    o,
		wallets:   w,
		recipient: recipient,
		timeout:   PaymentTimeout,
		stage:     StageReview,
	}
}

// Stage returns the current flow position.
func (o *Orchestrator) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

// Result returns the outcome of the last finished attempt, or nil while no
// attempt has resolved.
func (o *Orchestrator) Result() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Begin starts a checkout over the current cart contents. An empty cart
// cannot be checked out.
func (o *Orchestrator) Begin(ctx context.Context) error {
	empty, err := o.cart.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("load cart failed: %w", err)
	}
	if empty {
		return ErrEmptyCart
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return ErrPaymentInFlight
	}
	o.stage = StageReview
	o.current = nil
	o.result = nil
	return nil
}

// ConnectWallet establishes a session with the named provider. Reconnecting
// to the already-connected provider is a no-op; a different name replaces
// the session.
func (o *Orchestrator) ConnectWallet(ctx context.Context, name string) error {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return ErrPaymentInFlight
	}
	if o.wallet != nil && o.walletName == name {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	w, err := o.wallets.Connect(ctx, name)
	if err != nil {
		// no session was established, the flow stays where it was
		return err
	}

	o.mu.Lock()
	o.wallet = w
	o.walletName = name
	o.stage = StageWalletConnect
	o.mu.Unlock()
	return nil
}

// PlaceOrder snapshots the cart into a new pending order. At most one order
// exists per attempt; calling PlaceOrder again returns the same order until
// Retry discards it.
func (o *Orchestrator) PlaceOrder(ctx context.Context) (*order.Order, error) {
	o.mu.Lock()
	if o.inFlight || o.placing {
		o.mu.Unlock()
		return nil, ErrPaymentInFlight
	}
	if o.current != nil {
		current := o.current
		o.mu.Unlock()
		return current, nil
	}
	w := o.wallet
	// holds the at-most-one-order invariant across the unlocked cart and
	// wallet calls below
	o.placing = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.placing = false
		o.mu.Unlock()
	}()

	if w == nil {
		return nil, ErrNoWallet
	}

	lines, err := o.cart.Lines(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart failed: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	payer, err := w.GetChangeAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve payer address failed: %w", err)
	}

	items := make([]order.Item, 0, len(lines))
	for _, ln := range lines {
		items = append(items, order.Item{
			ProductID:     ln.Item.ProductID,
			Quantity:      ln.Item.Quantity,
			PriceLovelace: ln.Product.PriceLovelace,
		})
	}

	created, err := o.orders.Create(ctx, payer, items)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.current = created
	o.stage = StagePayment
	o.mu.Unlock()
	return created, nil
}

// SubmitPayment sends the current order's total to the wallet and waits for
// the transaction hash, the timeout, or ctx, whichever resolves first. A
// wallet response landing after the deadline is discarded; the attempt it
// belonged to has already failed. The cart is cleared only once the order is
// recorded as paid.
func (o *Orchestrator) SubmitPayment(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, ErrPaymentInFlight
	}
	if o.current == nil {
		o.mu.Unlock()
		return nil, ErrNoOrder
	}
	if o.wallet == nil {
		o.mu.Unlock()
		return nil, ErrNoWallet
	}
	o.inFlight = true
	w := o.wallet
	ord := o.current
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	outcomes := make(chan payOutcome, 1)
	go func() {
		txID, err := w.SubmitTransaction(ctx, wallet.PaymentRequest{
			AmountLovelace: ord.TotalLovelace,
			Recipient:      o.recipient,
			Metadata:       map[string]string{"order_id": ord.ID},
		})
		outcomes <- payOutcome{txID: txID, err: err}
	}()

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case out := <-outcomes:
		if out.err != nil {
			return o.finishFailed(ctx, ord, out.err, false)
		}
		return o.finishPaid(ctx, ord, out.txID)

	case <-timer.C:
		go func() {
			out := <-outcomes
			log.Printf("discarding late payment result for order %s (tx=%q err=%v)", ord.ID, out.txID, out.err)
		}()
		return o.finishFailed(ctx, ord, fmt.Errorf("%w after %s", ErrPaymentTimeout, o.timeout), true)

	case <-ctx.Done():
		go func() {
			out := <-outcomes
			log.Printf("discarding payment result for abandoned order %s (tx=%q err=%v)", ord.ID, out.txID, out.err)
		}()
		return o.finishFailed(ctx, ord, ctx.Err(), false)
	}
}

func (o *Orchestrator) finishPaid(ctx context.Context, ord *order.Order, txID string) (*Result, error) {
	if _, err := o.orders.Transition(ctx, ord.ID, order.StatusPaid, order.TransitionContext{TransactionID: txID}); err != nil {
		return nil, fmt.Errorf("record payment for order %s failed: %w", ord.ID, err)
	}

	if err := o.cart.Clear(ctx); err != nil {
		// the payment stands, losing the cart cleanup is recoverable
		log.Printf("clear cart after paid order %s failed: %v", ord.ID, err)
	}

	res := &Result{Success: true, OrderID: ord.ID, TxID: txID}
	o.mu.Lock()
	o.result = res
	o.stage = StageResult
	o.mu.Unlock()
	return res, nil
}

func (o *Orchestrator) finishFailed(ctx context.Context, ord *order.Order, cause error, timedOut bool) (*Result, error) {
	if _, err := o.orders.Transition(ctx, ord.ID, order.StatusPaymentFailed, order.TransitionContext{Reason: cause.Error()}); err != nil {
		log.Printf("record payment failure for order %s failed: %v", ord.ID, err)
	}

	res := &Result{OrderID: ord.ID, Timeout: timedOut, Err: cause}
	o.mu.Lock()
	o.result = res
	o.stage = StageResult
	o.mu.Unlock()
	return res, nil
}

// Retry abandons the failed attempt and returns to review. The order handle
// is discarded, so the next PlaceOrder creates a brand-new order; the failed
// one stays payment_failed forever. The wallet session is kept.
func (o *Orchestrator) Retry() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight {
		return ErrPaymentInFlight
	}
	o.current = nil
	o.result = nil
	o.stage = StageReview
	return nil
}
