package order

import (
	"context"
	"fmt"
	"time"
)

// mockAPI is an in-memory order API used by the manager tests.
type mockAPI struct {
	orders map[string]*Order
	nextID int

	createErr error
	updateErr error

	createCalls []CreateOrderRequest
	updateCalls []StatusUpdateRequest
}

func newMockAPI() *mockAPI {
	return &mockAPI{orders: map[string]*Order{}}
}

func (m *mockAPI) CreateOrder(_ context.Context, req CreateOrderRequest) (*Order, error) {
	m.createCalls = append(m.createCalls, req)
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	o := &Order{
		ID:            fmt.Sprintf("order-%d", m.nextID),
		PayerAddress:  req.PayerAddress,
		TotalLovelace: req.TotalLovelace,
		Status:        StatusPending,
		Items:         req.Items,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *mockAPI) UpdateOrderStatus(_ context.Context, req StatusUpdateRequest) (*Order, error) {
	m.updateCalls = append(m.updateCalls, req)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	o, ok := m.orders[req.OrderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", req.OrderID)
	}
	o.Status = req.Status
	if req.TransactionID != "" {
		o.TransactionID = req.TransactionID
	}
	if req.PaymentError != "" {
		o.PaymentError = req.PaymentError
	}
	o.UpdatedAt = time.Now()
	return o, nil
}

func (m *mockAPI) GetOrder(_ context.Context, orderID string) (*Order, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	return o, nil
}

func (m *mockAPI) ListOrders(_ context.Context, payerAddress string) ([]*Order, error) {
	var out []*Order
	for _, o := range m.orders {
		if o.PayerAddress == payerAddress {
			out = append(out, o)
		}
	}
	return out, nil
}
