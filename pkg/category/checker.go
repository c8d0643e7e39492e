package category

import "context"

// Checker answers whether a category id refers to an existing category.
// Product commands consult it before accepting a category reference.
type Checker interface {
	Exists(ctx context.Context, categoryID string) (bool, error)
}
