package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adashop/storefront/internal/catalog"
	"github.com/adashop/storefront/internal/order"
	"github.com/adashop/storefront/internal/orderstore"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
}

func newFakeCatalog(products ...*catalog.Product) *fakeCatalog {
	f := &fakeCatalog{products: map[string]*catalog.Product{}}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || !p.IsActive {
		return nil, catalog.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) ListActive(context.Context) ([]*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*catalog.Product
	for _, p := range f.products {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeCatalog) UpsertProduct(_ context.Context, p *catalog.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
	return nil
}

func (f *fakeCatalog) DecrementStock(_ context.Context, id string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return catalog.ErrProductNotFound
	}
	if p.Stock < quantity {
		return catalog.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

func (f *fakeCatalog) IncrementStock(_ context.Context, id string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.Stock += quantity
	return nil
}

func (f *fakeCatalog) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

type fakeOrderAPI struct {
	mu        sync.Mutex
	nextID    int
	orders    map[string]*order.Order
	createErr error
}

func newFakeOrderAPI() *fakeOrderAPI {
	return &fakeOrderAPI{orders: map[string]*order.Order{}}
}

func (f *fakeOrderAPI) CreateOrder(_ context.Context, req order.CreateOrderRequest) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	o := &order.Order{
		ID:            fmt.Sprintf("order-%d", f.nextID),
		PayerAddress:  req.PayerAddress,
		TotalLovelace: req.TotalLovelace,
		Status:        order.StatusPending,
		Items:         req.Items,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeOrderAPI) UpdateOrderStatus(_ context.Context, req order.StatusUpdateRequest) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[req.OrderID]
	if !ok {
		return nil, orderstore.ErrOrderNotFound
	}
	if !order.CanTransitionTo(o.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", order.ErrInvalidTransition, o.Status, req.Status)
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

func (f *fakeOrderAPI) GetOrder(_ context.Context, orderID string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, orderstore.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderAPI) ListOrders(_ context.Context, payerAddress string) ([]*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*order.Order
	for _, o := range f.orders {
		if o.PayerAddress == payerAddress {
			out = append(out, o)
		}
	}
	return out, nil
}
