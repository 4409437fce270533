package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adashop/storefront/internal/cart"
	"github.com/adashop/storefront/internal/catalog"
	"github.com/adashop/storefront/internal/order"
	"github.com/adashop/storefront/internal/wallet"
)

// fakeCart is a minimal cart for orchestrator tests.
type fakeCart struct {
	mu       sync.Mutex
	lines    []cart.Line
	clears   int
	clearErr error
}

func newFakeCart(lines ...cart.Line) *fakeCart {
	return &fakeCart{lines: lines}
}

func (c *fakeCart) Lines(context.Context) ([]cart.Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]cart.Line(nil), c.lines...), nil
}

func (c *fakeCart) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearErr != nil {
		return c.clearErr
	}
	c.clears++
	c.lines = nil
	return nil
}

func (c *fakeCart) IsEmpty(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0, nil
}

func (c *fakeCart) empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

func (c *fakeCart) clearCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clears
}

func testLine(productID string, qty int, price int64) cart.Line {
	return cart.Line{
		Item:    cart.Item{ProductID: productID, Quantity: qty, AddedAt: time.Now()},
		Product: &catalog.Product{ID: productID, Name: productID, PriceLovelace: price, Stock: 100, IsActive: true},
	}
}

// fakeOrders records created orders and transitions in memory.
type fakeOrders struct {
	mu     sync.Mutex
	nextID int
	orders map[string]*order.Order

	createErr     error
	transitionErr error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string]*order.Order{}}
}

func (f *fakeOrders) Create(_ context.Context, payer string, items []order.Item) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	var total int64
	for _, it := range items {
		total += it.PriceLovelace * int64(it.Quantity)
	}
	f.nextID++
	o := &order.Order{
		ID:            fmt.Sprintf("order-%d", f.nextID),
		PayerAddress:  payer,
		TotalLovelace: total,
		Status:        order.StatusPending,
		Items:         items,
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeOrders) Transition(_ context.Context, orderID string, to order.Status, tc order.TransitionContext) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transitionErr != nil {
		return nil, f.transitionErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	if !order.CanTransitionTo(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	o.TransactionID = tc.TransactionID
	o.PaymentError = tc.Reason
	return o, nil
}

func (f *fakeOrders) get(orderID string) *order.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[orderID]
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

// gateWallet parks GetChangeAddress until released so tests can hold a
// placement mid-flight.
type gateWallet struct {
	address string
	entered chan struct{}
	release chan struct{}
}

func newGateWallet(address string) *gateWallet {
	return &gateWallet{
		address: address,
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
}

func (w *gateWallet) GetChangeAddress(ctx context.Context) (string, error) {
	w.entered <- struct{}{}
	select {
	case <-w.release:
		return w.address, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (w *gateWallet) SubmitTransaction(context.Context, wallet.PaymentRequest) (string, error) {
	return "tx-gate", nil
}

// fixedWallets always hands out the given wallet.
type fixedWallets struct {
	wallet  wallet.Wallet
	err     error
	connect int
}

func (f *fixedWallets) Connect(context.Context, string) (wallet.Wallet, error) {
	f.connect++
	if f.err != nil {
		return nil, f.err
	}
	return f.wallet, nil
}
