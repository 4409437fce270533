package catalog

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Source is where the snapshot fills itself from: the Mongo repository on
// the server side, the storefront API client on the buyer side.
type Source interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListActive(ctx context.Context) ([]*Product, error)
}

// Snapshot is the client-held view of the catalog the cart validates
// against. It is read-shared and possibly stale; mutation happens only
// through Fetch/Refresh, never through its consumers.
type Snapshot struct {
	mu       sync.RWMutex
	products map[string]*Product
	src      Source
	sfg      singleflight.Group // prevents duplicate concurrent fetches for the same product
}

func NewSnapshot(src Source) *Snapshot {
	return &Snapshot{
		products: make(map[string]*Product),
		src:      src,
	}
}

// Lookup returns the snapshotted product without touching the source.
// Callers that get false must treat the line as unresolvable, not gone.
func (s *Snapshot) Lookup(id string) (*Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// Fetch reads one product through the source and stores it in the snapshot.
// Concurrent fetches for the same id collapse into a single source call.
func (s *Snapshot) Fetch(ctx context.Context, id string) (*Product, error) {
	v, err, _ := s.sfg.Do(id, func() (interface{}, error) {
		p, err := s.src.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.products[p.ID] = p
		s.mu.Unlock()

		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

// Refresh replaces the whole snapshot with the source's current active set.
func (s *Snapshot) Refresh(ctx context.Context) error {
	products, err := s.src.ListActive(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]*Product, len(products))
	for _, p := range products {
		next[p.ID] = p
	}

	s.mu.Lock()
	s.products = next
	s.mu.Unlock()

	return nil
}

// Put seeds the snapshot directly; used by wiring code and tests.
func (s *Snapshot) Put(p *Product) {
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
}
