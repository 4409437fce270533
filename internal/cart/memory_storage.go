package cart

import (
	"context"
	"sync"
)

// MemoryStorage is a process-local Storage used by tests and single-surface
// wiring. Watch notifications fire for every write, there is no second
// writer to distinguish from.
type MemoryStorage struct {
	mu       sync.Mutex
	cart     *Cart
	watchers []chan struct{}
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load(context.Context) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cart == nil {
		return nil, ErrCartNotFound
	}
	return m.cart.clone(), nil
}

func (m *MemoryStorage) Save(_ context.Context, cart *Cart) error {
	m.mu.Lock()
	m.cart = cart.clone()
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *MemoryStorage) Delete(context.Context) error {
	m.mu.Lock()
	m.cart = nil
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *MemoryStorage) Watch(ctx context.Context) (<-chan struct{}, error) {
	events := make(chan struct{}, 1)

	m.mu.Lock()
	m.watchers = append(m.watchers, events)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		for i, w := range m.watchers {
			if w == events {
				m.watchers = append(m.watchers[:i], m.watchers[i+1:]...)
				break
			}
		}
		m.mu.Unlock()
		close(events)
	}()

	return events, nil
}

func (m *MemoryStorage) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.watchers {
		select {
		case w <- struct{}{}:
		default:
		}
	}
}
