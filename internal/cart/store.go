package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/adashop/storefront/internal/catalog"
)

// ProductLookup is the read-only catalog view the store validates against.
// The view may be stale; the check is advisory and the order API performs
// the authoritative one.
type ProductLookup interface {
	Lookup(id string) (*catalog.Product, bool)
}

// Line is a cart item joined with its resolved product snapshot.
type Line struct {
	Item
	Product  *catalog.Product
	Subtotal int64
}

// Totals is the derived money view of the cart.
type Totals struct {
	SubtotalLovelace int64
	ItemCount        int
}

// Store owns the buyer's cart. Every mutation validates against the catalog
// snapshot first, then persists; a failed mutation leaves both the in-memory
// and the persisted cart unchanged.
type Store struct {
	mu      sync.Mutex
	storage Storage
	catalog ProductLookup
	cart    *Cart
	subs    []func()
}

func NewStore(storage Storage, catalog ProductLookup) *Store {
	return &Store{
		storage: storage,
		catalog: catalog,
	}
}

// current lazily loads the persisted cart, creating an empty one on first
// access. Callers must hold s.mu.
func (s *Store) current(ctx context.Context) (*Cart, error) {
	if s.cart != nil {
		return s.cart, nil
	}

	cart, err := s.storage.Load(ctx)
	if errors.Is(err, ErrCartNotFound) {
		cart = NewCart()
	} else if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	s.cart = cart
	return s.cart, nil
}

// validateStock checks that the cart's existing quantity plus the pending
// addition fits into the snapshotted stock.
func (s *Store) validateStock(cart *Cart, productID string, addition int) error {
	product, ok := s.catalog.Lookup(productID)
	if !ok {
		return ErrProductNotFound
	}

	if cart.quantityOf(productID)+addition > product.Stock {
		return fmt.Errorf("%w: only %d available", ErrInsufficientStock, product.Stock)
	}

	return nil
}

// Add puts quantity units of a product into the cart, merging with an
// existing line for the same product.
func (s *Store) Add(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.current(ctx)
	if err != nil {
		return err
	}

	if err := s.validateStock(cart, productID, quantity); err != nil {
		return err
	}

	next := cart.clone()
	if i := next.find(productID); i >= 0 {
		next.Items[i].Quantity += quantity
	} else {
		next.Items = append(next.Items, Item{
			ProductID: productID,
			Quantity:  quantity,
			AddedAt:   time.Now(),
		})
	}

	return s.commit(ctx, next)
}

// Remove deletes the product's line. Removing an absent product is a no-op.
func (s *Store) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, productID)
}

func (s *Store) removeLocked(ctx context.Context, productID string) error {
	cart, err := s.current(ctx)
	if err != nil {
		return err
	}

	i := cart.find(productID)
	if i < 0 {
		return nil
	}

	next := cart.clone()
	next.Items = append(next.Items[:i], next.Items[i+1:]...)
	return s.commit(ctx, next)
}

// SetQuantity replaces a line's quantity. A non-positive quantity removes
// the line. The stock check runs against the delta versus the held quantity
// so the line's own reservation is not counted twice.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(ctx, productID)
	}

	cart, err := s.current(ctx)
	if err != nil {
		return err
	}

	if err := s.validateStock(cart, productID, quantity-cart.quantityOf(productID)); err != nil {
		return err
	}

	i := cart.find(productID)
	if i < 0 {
		return nil
	}

	next := cart.clone()
	next.Items[i].Quantity = quantity
	return s.commit(ctx, next)
}

// Clear empties the cart. Called exactly once per successful payment.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Delete(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.cart = NewCart()
	return nil
}

// Lines returns the resolvable cart lines, most recently added first. Lines
// whose product is missing from the snapshot are excluded from the view but
// stay in storage; they come back once the catalog resolves them again.
func (s *Store) Lines(ctx context.Context) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, ok := s.catalog.Lookup(item.ProductID)
		if !ok {
			continue
		}
		lines = append(lines, Line{
			Item:     item,
			Product:  product,
			Subtotal: product.PriceLovelace * int64(item.Quantity),
		})
	}

	sort.Slice(lines, func(i, j int) bool {
		return lines[i].AddedAt.After(lines[j].AddedAt)
	})

	return lines, nil
}

// Totals derives subtotal and item count from the resolvable lines.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	lines, err := s.Lines(ctx)
	if err != nil {
		return Totals{}, err
	}

	var t Totals
	for _, line := range lines {
		t.SubtotalLovelace += line.Subtotal
		t.ItemCount += line.Quantity
	}
	return t, nil
}

// IsEmpty reports whether the cart has no resolvable lines.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	lines, err := s.Lines(ctx)
	if err != nil {
		return false, err
	}
	return len(lines) == 0, nil
}

// Subscribe registers a callback fired after the persisted cart is changed
// by another writer (second tab) and this store has reloaded it.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// WatchExternal reloads the cart whenever the storage reports a change by
// another writer, then notifies subscribers. Runs until ctx is done.
func (s *Store) WatchExternal(ctx context.Context) error {
	events, err := s.storage.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch cart storage: %w", err)
	}

	go func() {
		for range events {
			if err := s.reload(ctx); err != nil {
				log.Printf("cart reload after external change failed: %v", err)
				continue
			}
			s.mu.Lock()
			subs := make([]func(), len(s.subs))
			copy(subs, s.subs)
			s.mu.Unlock()
			for _, fn := range subs {
				fn()
			}
		}
	}()

	return nil
}

func (s *Store) reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.storage.Load(ctx)
	if errors.Is(err, ErrCartNotFound) {
		cart = NewCart()
	} else if err != nil {
		return err
	}

	s.cart = cart
	return nil
}

// commit persists the mutated copy and only then swaps it in, so storage
// errors cannot leave memory ahead of the persisted record.
func (s *Store) commit(ctx context.Context, next *Cart) error {
	if err := s.storage.Save(ctx, next); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	s.cart = next
	return nil
}
