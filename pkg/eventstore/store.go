package eventstore

import (
	"context"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/event"
)

// Store is the append-only product event log. Events are never updated or
// deleted once appended.
type Store interface {
	// Append writes a single event. It fails with ErrVersionConflict when
	// the (aggregateId, version) slot is already taken.
	Append(ctx context.Context, ev event.Event) error

	// Events returns the full stream of an aggregate in ascending version
	// order. An unknown aggregate yields an empty slice, not an error.
	Events(ctx context.Context, aggregateID string) ([]event.Event, error)

	// EventsSince returns events with version > afterVersion, used to top up
	// a snapshot-restored aggregate.
	EventsSince(ctx context.Context, aggregateID string, afterVersion int) ([]event.Event, error)

	// EventsInVersionRange returns events with from <= version <= to, used
	// by point-in-time replay.
	EventsInVersionRange(ctx context.Context, aggregateID string, from, to int) ([]event.Event, error)

	// EventsInTimeRange returns events with from <= timestamp <= to in
	// ascending timestamp order, the time-travel query.
	EventsInTimeRange(ctx context.Context, aggregateID string, from, to time.Time) ([]event.Event, error)

	// LatestVersion returns the highest stored version of an aggregate, or
	// 0 when the aggregate has no events.
	LatestVersion(ctx context.Context, aggregateID string) (int, error)

	// Count returns the number of stored events of an aggregate.
	Count(ctx context.Context, aggregateID string) (int64, error)
}
