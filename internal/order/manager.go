package order

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/adashop/storefront/internal/currency"
)

// TransitionContext carries the data a status move needs beyond the target
// status itself.
type TransitionContext struct {
	// TransactionID is the on-chain transaction hash. Required when moving
	// to paid.
	TransactionID string
	// Reason describes why a payment failed. Recorded when moving to
	// payment_failed.
	Reason string
}

// Manager validates orders before they reach the API and guards every status
// move against the transition graph. Subscribers are notified after each
// successful transition so caches keyed on order data can invalidate.
type Manager struct {
	api API

	mu   sync.Mutex
	subs []func(Order)
}

func NewManager(api API) *Manager {
	return &Manager{api: api}
}

// Subscribe registers fn to run after every successful status transition.
// Callbacks run synchronously on the transitioning goroutine.
func (m *Manager) Subscribe(fn func(Order)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Create validates the items, computes the total from the snapshotted line
// prices and persists a new pending order.
func (m *Manager) Create(ctx context.Context, payerAddress string, items []Item) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	var total int64
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidItemQuantity, it.ProductID)
		}
		if !currency.IsValidLovelace(it.PriceLovelace) {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidAmount, it.ProductID)
		}
		total += it.PriceLovelace * int64(it.Quantity)
		if !currency.IsValidLovelace(total) {
			return nil, fmt.Errorf("%w: order total", ErrInvalidAmount)
		}
	}

	created, err := m.api.CreateOrder(ctx, CreateOrderRequest{
		PayerAddress:  payerAddress,
		Items:         items,
		TotalLovelace: total,
	})
	if err != nil {
		return nil, fmt.Errorf("create order failed: %w", err)
	}
	return created, nil
}

// Transition moves an order to the target status, rejecting moves the status
// graph does not allow. An illegal request is a caller defect and never
// reaches the API.
func (m *Manager) Transition(ctx context.Context, orderID string, to Status, tc TransitionContext) (*Order, error) {
	current, err := m.api.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s failed: %w", orderID, err)
	}

	if !CanTransitionTo(current.Status, to) {
		log.Printf("defect: rejected order %s transition %s -> %s", orderID, current.Status, to)
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	req := StatusUpdateRequest{OrderID: orderID, Status: to}
	switch to {
	case StatusPaid:
		req.TransactionID = tc.TransactionID
	case StatusPaymentFailed:
		req.PaymentError = tc.Reason
	}

	updated, err := m.api.UpdateOrderStatus(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("update order %s status failed: %w", orderID, err)
	}

	m.notify(*updated)
	return updated, nil
}

func (m *Manager) notify(o Order) {
	m.mu.Lock()
	subs := make([]func(Order), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(o)
	}
}
