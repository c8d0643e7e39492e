package replay

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sokol111/ecommerce-product-service/pkg/core/logger"
	"github.com/Sokol111/ecommerce-product-service/pkg/event"
	"github.com/Sokol111/ecommerce-product-service/pkg/eventstore"
	"github.com/Sokol111/ecommerce-product-service/pkg/persistence"
	"github.com/Sokol111/ecommerce-product-service/pkg/product"
	"go.uber.org/zap"
)

// ErrCorruptStream marks an event stream that cannot be folded: a version
// gap, an unknown event type, or a payload that fails to apply. Replay
// never skips over bad events.
var ErrCorruptStream = errors.New("corrupt event stream")

// Replayer derives aggregate state by folding event streams.
type Replayer interface {
	// Replay rebuilds the aggregate, restoring from the latest snapshot
	// when one is available and folding the remaining events on top. An
	// aggregate with no events yields product.ErrNotFound.
	Replay(ctx context.Context, aggregateID string) (product.Product, error)
	// ReplayFull rebuilds the aggregate from the complete stream, ignoring
	// snapshots. Used by projection rebuilds and as the corruption
	// cross-check when a snapshot looks suspect.
	ReplayFull(ctx context.Context, aggregateID string) (product.Product, error)
	// ReplayAt rebuilds the aggregate state as of the given version.
	ReplayAt(ctx context.Context, aggregateID string, version int) (product.Product, error)
}

type replayer struct {
	store     eventstore.Store
	snapshots SnapshotStore
}

// NewReplayer builds a Replayer. The snapshot store may be nil, in which
// case every replay is a full fold.
func NewReplayer(store eventstore.Store, snapshots SnapshotStore) Replayer {
	return &replayer{store: store, snapshots: snapshots}
}

// fold applies events onto base in order, checking ctx between events so a
// canceled replay of a long stream stops promptly.
func fold(ctx context.Context, base product.Product, events []event.Event) (product.Product, error) {
	state := base
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return product.Product{}, err
		}
		next, err := state.Apply(ev)
		if err != nil {
			return product.Product{}, fmt.Errorf("%w: %v", ErrCorruptStream, err)
		}
		state = next
	}
	return state, nil
}

func (r *replayer) ReplayFull(ctx context.Context, aggregateID string) (product.Product, error) {
	events, err := r.store.Events(ctx, aggregateID)
	if err != nil {
		return product.Product{}, err
	}
	if len(events) == 0 {
		return product.Product{}, fmt.Errorf("%w: %s", product.ErrNotFound, aggregateID)
	}
	return fold(ctx, product.Product{}, events)
}

func (r *replayer) Replay(ctx context.Context, aggregateID string) (product.Product, error) {
	if r.snapshots == nil {
		return r.ReplayFull(ctx, aggregateID)
	}

	snapshot, err := r.snapshots.Latest(ctx, aggregateID)
	if errors.Is(err, persistence.ErrEntityNotFound) {
		return r.ReplayFull(ctx, aggregateID)
	}
	if err != nil {
		// Snapshots are an optimization, a broken snapshot store must not
		// make the aggregate unreadable.
		logger.Get(ctx).Warn("failed to load snapshot, falling back to full replay",
			zap.String("aggregate-id", aggregateID), zap.Error(err))
		return r.ReplayFull(ctx, aggregateID)
	}

	events, err := r.store.EventsSince(ctx, aggregateID, snapshot.Version)
	if err != nil {
		return product.Product{}, err
	}

	state, err := fold(ctx, snapshot.State, events)
	if err != nil && errors.Is(err, ErrCorruptStream) {
		// A stale or mismatched snapshot folds like corruption. Retry from
		// scratch before declaring the stream itself broken.
		logger.Get(ctx).Warn("snapshot-based replay failed, retrying full replay",
			zap.String("aggregate-id", aggregateID), zap.Error(err))
		return r.ReplayFull(ctx, aggregateID)
	}
	return state, err
}

func (r *replayer) ReplayAt(ctx context.Context, aggregateID string, version int) (product.Product, error) {
	if version < 1 {
		return product.Product{}, fmt.Errorf("version must be 1-based, got %d", version)
	}
	events, err := r.store.EventsInVersionRange(ctx, aggregateID, 1, version)
	if err != nil {
		return product.Product{}, err
	}
	if len(events) == 0 {
		return product.Product{}, fmt.Errorf("%w: %s", product.ErrNotFound, aggregateID)
	}
	state, err := fold(ctx, product.Product{}, events)
	if err != nil {
		return product.Product{}, err
	}
	if state.Version != version {
		return product.Product{}, fmt.Errorf("%w: aggregate %s has no version %d, stream ends at %d",
			ErrCorruptStream, aggregateID, version, state.Version)
	}
	return state, nil
}
