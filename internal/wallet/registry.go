package wallet

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps wallet provider names (eternl, nami, ...) to their
// connectors. Providers register at startup; lookups happen per checkout.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

func NewRegistry() *Registry {
	return &Registry{connectors: map[string]Connector{}}
}

// Register makes a provider available under name. Registering the same name
// twice replaces the previous connector.
func (r *Registry) Register(name string, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[name] = c
}

// Names lists registered providers in a stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connect establishes a session with the named provider. An unknown name is
// reported as ErrWalletNotFound; a provider that declines the handshake
// surfaces its own error.
func (r *Registry) Connect(ctx context.Context, name string) (Wallet, error) {
	r.mu.RLock()
	c, ok := r.connectors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, name)
	}

	w, err := c.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to %s failed: %w", name, err)
	}
	return w, nil
}
