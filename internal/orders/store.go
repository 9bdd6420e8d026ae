package orders

import (
	"context"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

// Store is a document collection of orders keyed by id.
//
// GetByID, Update and Mutate return a nil order and nil error when the id
// does not exist. Delete returns domain.ErrNotFound instead.
type Store interface {
	List(ctx context.Context) ([]domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Create(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, id string, upd domain.OrderUpdate) (*domain.Order, error)
	// Mutate loads the order, applies fn and writes the result back without
	// letting another writer interleave. An error from fn aborts the write
	// and is returned as is.
	Mutate(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error)
	Delete(ctx context.Context, id string) error
}
