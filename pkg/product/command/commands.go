package command

// CreateProduct starts a new aggregate. ProductID may be left empty, in
// which case the service assigns one.
type CreateProduct struct {
	ProductID   string
	Name        string
	Description string
	Price       float64
	CategoryID  string
	SKU         string
	Stock       int
	Attributes  map[string]string
	Featured    bool
	UserID      string
}

// UpdateProduct replaces the product metadata. Price and stock are changed
// through their own commands. ExpectedVersion of 0 means the caller has no
// version expectation and lets the service retry conflicts internally.
type UpdateProduct struct {
	ProductID       string
	ExpectedVersion int
	Name            string
	Description     string
	CategoryID      string
	Attributes      map[string]string
	Featured        bool
	UserID          string
}

// ChangePrice moves the product to a new price.
type ChangePrice struct {
	ProductID       string
	ExpectedVersion int
	NewPrice        float64
	Reason          string
	UserID          string
}

// ChangeStock moves the product to an absolute stock level. The stored event
// carries the signed delta derived from the state the command applied to.
type ChangeStock struct {
	ProductID       string
	ExpectedVersion int
	NewStock        int
	Reason          string
	UserID          string
}

// DeleteProduct soft-deletes the product, keeping its event history.
type DeleteProduct struct {
	ProductID       string
	ExpectedVersion int
	Reason          string
	UserID          string
}
