// Package apperr holds the error taxonomy shared by the catalog and order
// packages. Callers match with errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductInUse      = errors.New("product has recorded orders")
	ErrDuplicateRequest  = errors.New("request key already used")

	// ErrConflict is retried by the order engine and never reaches HTTP callers
	// unless retries are exhausted, in which case it is wrapped in ErrTransient.
	ErrConflict  = errors.New("concurrency conflict")
	ErrTransient = errors.New("transient storage failure")
)

// InsufficientStockError carries the stock observed under the product lock.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d in stock", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Invalid returns an ErrInvalidInput carrying a caller-facing message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Transient wraps a storage fault so it matches ErrTransient and still
// exposes the underlying cause.
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
