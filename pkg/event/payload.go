package event

import "fmt"

// Payload is the variant-specific part of an event. The five concrete types
// below form a closed set; code folding events over aggregates switches
// exhaustively on them and fails hard on anything else.
type Payload interface {
	EventType() Type
}

// Created carries the full initial state of a product.
type Created struct {
	Name        string            `json:"name" bson:"name"`
	Description string            `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64           `json:"price" bson:"price"`
	CategoryID  string            `json:"categoryId" bson:"categoryId"`
	SKU         string            `json:"sku" bson:"sku"`
	Stock       int               `json:"stock" bson:"stock"`
	Attributes  map[string]string `json:"attributes,omitempty" bson:"attributes,omitempty"`
	Featured    bool              `json:"featured" bson:"featured"`
}

func (Created) EventType() Type { return TypeCreated }

// Updated carries replacement values for product metadata. Price and stock
// have dedicated events and are never touched by an update.
type Updated struct {
	Name        string            `json:"name" bson:"name"`
	Description string            `json:"description,omitempty" bson:"description,omitempty"`
	CategoryID  string            `json:"categoryId" bson:"categoryId"`
	Attributes  map[string]string `json:"attributes,omitempty" bson:"attributes,omitempty"`
	Featured    bool              `json:"featured" bson:"featured"`
}

func (Updated) EventType() Type { return TypeUpdated }

// PriceChanged records a price transition with both sides of the change.
type PriceChanged struct {
	OldPrice float64 `json:"oldPrice" bson:"oldPrice"`
	NewPrice float64 `json:"newPrice" bson:"newPrice"`
	Reason   string  `json:"reason,omitempty" bson:"reason,omitempty"`
}

func (PriceChanged) EventType() Type { return TypePriceChanged }

// StockChanged records a stock delta. Folding deltas in version order yields
// the current stock level.
type StockChanged struct {
	Delta  int    `json:"delta" bson:"delta"`
	Reason string `json:"reason,omitempty" bson:"reason,omitempty"`
}

func (StockChanged) EventType() Type { return TypeStockChanged }

// Deleted soft-deletes the product. History is preserved; there is no
// modeled transition back to active.
type Deleted struct {
	Reason     string `json:"reason,omitempty" bson:"reason,omitempty"`
	SoftDelete bool   `json:"softDelete" bson:"softDelete"`
}

func (Deleted) EventType() Type { return TypeDeleted }

// NewPayload returns a zero payload value for the given type, used when
// decoding stored events. An unrecognized type yields ErrUnknownType.
func NewPayload(t Type) (Payload, error) {
	switch t {
	case TypeCreated:
		return &Created{}, nil
	case TypeUpdated:
		return &Updated{}, nil
	case TypePriceChanged:
		return &PriceChanged{}, nil
	case TypeStockChanged:
		return &StockChanged{}, nil
	case TypeDeleted:
		return &Deleted{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}
