package category

import "context"

type staticChecker struct {
	known map[string]struct{}
}

// NewStaticChecker builds a Checker over a fixed category list, for
// standalone runs without a category service.
func NewStaticChecker(categoryIDs []string) Checker {
	known := make(map[string]struct{}, len(categoryIDs))
	for _, id := range categoryIDs {
		known[id] = struct{}{}
	}
	return &staticChecker{known: known}
}

func (c *staticChecker) Exists(_ context.Context, categoryID string) (bool, error) {
	_, ok := c.known[categoryID]
	return ok, nil
}
