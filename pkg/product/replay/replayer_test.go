package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/event"
	"github.com/Sokol111/ecommerce-product-service/pkg/persistence"
	"github.com/Sokol111/ecommerce-product-service/pkg/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventStore struct {
	events map[string][]event.Event
	err    error
}

func (f *fakeEventStore) Append(_ context.Context, ev event.Event) error {
	f.events[ev.AggregateID] = append(f.events[ev.AggregateID], ev)
	return nil
}

func (f *fakeEventStore) Events(_ context.Context, id string) ([]event.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events[id], nil
}

func (f *fakeEventStore) EventsSince(_ context.Context, id string, after int) ([]event.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []event.Event
	for _, ev := range f.events[id] {
		if ev.Version > after {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeEventStore) EventsInVersionRange(_ context.Context, id string, from, to int) ([]event.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []event.Event
	for _, ev := range f.events[id] {
		if ev.Version >= from && ev.Version <= to {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeEventStore) EventsInTimeRange(_ context.Context, id string, from, to time.Time) ([]event.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []event.Event
	for _, ev := range f.events[id] {
		if !ev.Timestamp.Before(from) && !ev.Timestamp.After(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeEventStore) LatestVersion(_ context.Context, id string) (int, error) {
	events := f.events[id]
	if len(events) == 0 {
		return 0, nil
	}
	return events[len(events)-1].Version, nil
}

func (f *fakeEventStore) Count(_ context.Context, id string) (int64, error) {
	return int64(len(f.events[id])), nil
}

type fakeSnapshotStore struct {
	snapshots map[string]Snapshot
	latestErr error
}

func (f *fakeSnapshotStore) Save(_ context.Context, s Snapshot) error {
	if existing, ok := f.snapshots[s.AggregateID]; ok && existing.Version >= s.Version {
		return nil
	}
	f.snapshots[s.AggregateID] = s
	return nil
}

func (f *fakeSnapshotStore) Latest(_ context.Context, id string) (Snapshot, error) {
	if f.latestErr != nil {
		return Snapshot{}, f.latestErr
	}
	s, ok := f.snapshots[id]
	if !ok {
		return Snapshot{}, persistence.ErrEntityNotFound
	}
	return s, nil
}

func (f *fakeSnapshotStore) Delete(_ context.Context, id string) error {
	delete(f.snapshots, id)
	return nil
}

func streamOf(t *testing.T, id string, payloads ...event.Payload) []event.Event {
	t.Helper()
	events := make([]event.Event, 0, len(payloads))
	for i, payload := range payloads {
		events = append(events, event.New(id, i+1, "u1", payload))
	}
	return events
}

func storeWith(events ...event.Event) *fakeEventStore {
	store := &fakeEventStore{events: map[string][]event.Event{}}
	for _, ev := range events {
		store.events[ev.AggregateID] = append(store.events[ev.AggregateID], ev)
	}
	return store
}

func TestReplayFullFoldsStream(t *testing.T) {
	events := streamOf(t, "p1",
		&event.Created{Name: "Keyboard", Price: 50, CategoryID: "electronics", SKU: "KB-1", Stock: 10},
		&event.PriceChanged{OldPrice: 50, NewPrice: 45},
		&event.StockChanged{Delta: -3},
	)
	r := NewReplayer(storeWith(events...), nil)

	state, err := r.ReplayFull(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 45.0, state.Price)
	assert.Equal(t, 7, state.Stock)
	assert.Equal(t, 3, state.Version)
}

func TestReplayUnknownAggregate(t *testing.T) {
	r := NewReplayer(storeWith(), nil)

	_, err := r.Replay(context.Background(), "ghost")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestReplayCorruptStream(t *testing.T) {
	events := streamOf(t, "p1",
		&event.Created{Name: "Keyboard", Price: 50, CategoryID: "electronics", SKU: "KB-1"},
		&event.StockChanged{Delta: 1},
	)
	events[1].Version = 3 // gap
	r := NewReplayer(storeWith(events...), nil)

	_, err := r.ReplayFull(context.Background(), "p1")
	require.ErrorIs(t, err, ErrCorruptStream)
}

func TestReplayFromSnapshot(t *testing.T) {
	events := streamOf(t, "p1",
		&event.Created{Name: "Keyboard", Price: 50, CategoryID: "electronics", SKU: "KB-1", Stock: 10},
		&event.StockChanged{Delta: -1},
		&event.StockChanged{Delta: -1},
		&event.StockChanged{Delta: -1},
	)
	store := storeWith(events...)

	base, err := product.Product{}.Apply(events[0])
	require.NoError(t, err)
	base, err = base.Apply(events[1])
	require.NoError(t, err)

	snapshots := &fakeSnapshotStore{snapshots: map[string]Snapshot{
		"p1": {AggregateID: "p1", Version: 2, State: base, TakenAt: time.Now()},
	}}
	r := NewReplayer(store, snapshots)

	state, err := r.Replay(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, state.Stock, "snapshot plus two remaining events")
	assert.Equal(t, 4, state.Version)
}

func TestReplayFallsBackWhenSnapshotStoreFails(t *testing.T) {
	events := streamOf(t, "p1",
		&event.Created{Name: "Keyboard", Price: 50, CategoryID: "electronics", SKU: "KB-1", Stock: 10},
	)
	snapshots := &fakeSnapshotStore{
		snapshots: map[string]Snapshot{},
		latestErr: errors.New("snapshot collection unavailable"),
	}
	r := NewReplayer(storeWith(events...), snapshots)

	state, err := r.Replay(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Version)
}

func TestReplayFallsBackWhenSnapshotIsStale(t *testing.T) {
	events := streamOf(t, "p1",
		&event.Created{Name: "Keyboard", Price: 50, CategoryID: "electronics", SKU: "KB-1", Stock: 10},
		&event.StockChanged{Delta: -1},
	)
	// Snapshot claims a version the stream never reached; folding the
	// remaining events on top of it cannot line up.
	snapshots := &fakeSnapshotStore{snapshots: map[string]Snapshot{
		"p1": {AggregateID: "p1", Version: 1, State: product.Product{ID: "p1", Version: 5, Active: true}},
	}}
	r := NewReplayer(storeWith(events...), snapshots)

	state, err := r.Replay(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Version)
	assert.Equal(t, 9, state.Stock)
}

func TestReplayAt(t *testing.T) {
	events := streamOf(t, "p1",
		&event.Created{Name: "Keyboard", Price: 50, CategoryID: "electronics", SKU: "KB-1", Stock: 10},
		&event.PriceChanged{OldPrice: 50, NewPrice: 45},
		&event.PriceChanged{OldPrice: 45, NewPrice: 40},
	)
	r := NewReplayer(storeWith(events...), nil)

	state, err := r.ReplayAt(context.Background(), "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 45.0, state.Price)
	assert.Equal(t, 2, state.Version)

	_, err = r.ReplayAt(context.Background(), "p1", 9)
	require.ErrorIs(t, err, ErrCorruptStream)
}

func TestReplayHonorsCancellation(t *testing.T) {
	events := streamOf(t, "p1",
		&event.Created{Name: "Keyboard", Price: 50, CategoryID: "electronics", SKU: "KB-1"},
		&event.StockChanged{Delta: 1},
	)
	r := NewReplayer(storeWith(events...), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ReplayFull(ctx, "p1")
	require.ErrorIs(t, err, context.Canceled)
}
