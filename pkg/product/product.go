package product

import (
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/event"
)

// Product is the aggregate state derived by folding an event stream. It is
// never persisted as the source of truth; the projection document and the
// snapshots are both rebuildable from events.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	CategoryID  string
	SKU         string
	Stock       int
	Attributes  map[string]string
	Active      bool
	Featured    bool
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Apply folds a single event into the state and returns the next state.
// It is pure: no I/O, no clock, no randomness. The receiver is taken by
// value so callers keep their old state on error.
func (p Product) Apply(ev event.Event) (Product, error) {
	if _, ok := ev.Payload.(*event.Created); ok {
		if p.Version != 0 {
			return p, fmt.Errorf("created event at version %d on existing aggregate %s (version %d)",
				ev.Version, ev.AggregateID, p.Version)
		}
		if ev.Version != 1 {
			return p, fmt.Errorf("created event of aggregate %s has version %d, want 1",
				ev.AggregateID, ev.Version)
		}
	} else {
		if p.Version == 0 {
			return p, fmt.Errorf("%s event at version %d precedes creation of aggregate %s",
				ev.Type, ev.Version, ev.AggregateID)
		}
		if ev.Version != p.Version+1 {
			return p, fmt.Errorf("version gap in aggregate %s: have %d, next event is %d",
				ev.AggregateID, p.Version, ev.Version)
		}
	}

	switch payload := ev.Payload.(type) {
	case *event.Created:
		p.ID = ev.AggregateID
		p.Name = payload.Name
		p.Description = payload.Description
		p.Price = payload.Price
		p.CategoryID = payload.CategoryID
		p.SKU = payload.SKU
		p.Stock = payload.Stock
		p.Attributes = copyAttributes(payload.Attributes)
		p.Active = true
		p.Featured = payload.Featured
		p.CreatedAt = ev.Timestamp
	case *event.Updated:
		p.Name = payload.Name
		p.Description = payload.Description
		p.CategoryID = payload.CategoryID
		p.Attributes = copyAttributes(payload.Attributes)
		p.Featured = payload.Featured
	case *event.PriceChanged:
		p.Price = payload.NewPrice
	case *event.StockChanged:
		p.Stock += payload.Delta
	case *event.Deleted:
		p.Active = false
	default:
		return p, fmt.Errorf("%w: %q in aggregate %s", event.ErrUnknownType, ev.Type, ev.AggregateID)
	}

	p.Version = ev.Version
	p.UpdatedAt = ev.Timestamp
	return p, nil
}

func copyAttributes(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
