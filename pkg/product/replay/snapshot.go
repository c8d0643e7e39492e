package replay

import (
	"context"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/product"
)

// Snapshot is a cached fold result. Snapshots are an optimization only:
// losing all of them must never lose data, the event stream stays the
// source of truth.
type Snapshot struct {
	AggregateID string
	Version     int
	State       product.Product
	TakenAt     time.Time
}

// SnapshotStore persists fold results keyed by aggregate id. At most one
// snapshot is kept per aggregate, the newest one wins.
type SnapshotStore interface {
	// Save stores the snapshot, replacing any older one for the aggregate.
	Save(ctx context.Context, snapshot Snapshot) error
	// Latest returns the newest snapshot of an aggregate, or
	// persistence.ErrEntityNotFound when none exists.
	Latest(ctx context.Context, aggregateID string) (Snapshot, error)
	// Delete removes the snapshot of an aggregate if one exists.
	Delete(ctx context.Context, aggregateID string) error
}
