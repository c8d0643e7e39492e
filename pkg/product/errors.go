package product

import "errors"

var (
	// ErrNotFound is returned when no product exists for the given id.
	ErrNotFound = errors.New("product not found")
	// ErrInactive is returned when a command targets a soft-deleted product.
	// There is no modeled transition back to active.
	ErrInactive = errors.New("product is inactive")
)
