package catalog

import (
	"context"
	"errors"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Repository defines the interface for catalog data operations.
// Consumers define this interface, not the MongoDB implementation.
type Repository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListActive(ctx context.Context) ([]*Product, error)
	UpsertProduct(ctx context.Context, p *Product) error

	// DecrementStock is the authoritative, race-safe stock check: it only
	// succeeds when the product holds at least quantity units.
	DecrementStock(ctx context.Context, id string, quantity int) error

	// IncrementStock returns units taken by a decrement that could not be
	// followed through.
	IncrementStock(ctx context.Context, id string, quantity int) error
}
