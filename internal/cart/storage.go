package cart

import (
	"context"
	"errors"
)

var ErrCartNotFound = errors.New("cart not found")

// Storage is the persistence collaborator for the cart record. The persisted
// form is shared across storefront surfaces of the same buyer, so Watch
// exposes the external-change notifications a second surface needs to
// invalidate its view.
type Storage interface {
	Load(ctx context.Context) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context) error

	// Watch emits one signal per change made by another writer to the same
	// key. The channel closes when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
