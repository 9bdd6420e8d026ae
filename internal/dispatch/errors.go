package dispatch

import (
	"errors"
	"fmt"

	"github.com/joao-fontenele/storefront-dispatch/internal/domain"
)

var (
	ErrOrderNotFound  = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrItemNotFound   = fmt.Errorf("item %w", domain.ErrNotFound)
	ErrForbidden      = errors.New("item belongs to another vendor")
	ErrInvalidStatus  = errors.New("invalid item status")
	ErrOrderCancelled = errors.New("order is cancelled")
)

// StoreError marks a failure of the underlying order store, as opposed to a
// missing order or an ownership violation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
