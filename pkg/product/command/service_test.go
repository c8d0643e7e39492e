package command

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/event"
	"github.com/Sokol111/ecommerce-product-service/pkg/eventstore"
	"github.com/Sokol111/ecommerce-product-service/pkg/persistence"
	mongopkg "github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo"
	"github.com/Sokol111/ecommerce-product-service/pkg/product"
	"github.com/Sokol111/ecommerce-product-service/pkg/product/replay"
	"github.com/Sokol111/ecommerce-product-service/pkg/security/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memEventStore enforces the (aggregateId, version) uniqueness the real
// store gets from its index. beforeAppend lets tests inject a competing
// writer right before an append.
type memEventStore struct {
	mu           sync.Mutex
	streams      map[string][]event.Event
	beforeAppend func(ev event.Event)
	appendCalls  int
}

func newMemEventStore() *memEventStore {
	return &memEventStore{streams: map[string][]event.Event{}}
}

func (s *memEventStore) Append(_ context.Context, ev event.Event) error {
	if s.beforeAppend != nil {
		hook := s.beforeAppend
		s.beforeAppend = nil
		hook(ev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	for _, existing := range s.streams[ev.AggregateID] {
		if existing.Version == ev.Version {
			return fmt.Errorf("%w: aggregate %s version %d", eventstore.ErrVersionConflict, ev.AggregateID, ev.Version)
		}
	}
	s.streams[ev.AggregateID] = append(s.streams[ev.AggregateID], ev)
	return nil
}

func (s *memEventStore) forceAppend(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[ev.AggregateID] = append(s.streams[ev.AggregateID], ev)
}

func (s *memEventStore) Events(_ context.Context, id string) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Event(nil), s.streams[id]...), nil
}

func (s *memEventStore) EventsSince(ctx context.Context, id string, after int) ([]event.Event, error) {
	all, _ := s.Events(ctx, id)
	var out []event.Event
	for _, ev := range all {
		if ev.Version > after {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memEventStore) EventsInVersionRange(ctx context.Context, id string, from, to int) ([]event.Event, error) {
	all, _ := s.Events(ctx, id)
	var out []event.Event
	for _, ev := range all {
		if ev.Version >= from && ev.Version <= to {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memEventStore) EventsInTimeRange(ctx context.Context, id string, from, to time.Time) ([]event.Event, error) {
	all, _ := s.Events(ctx, id)
	var out []event.Event
	for _, ev := range all {
		if !ev.Timestamp.Before(from) && !ev.Timestamp.After(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memEventStore) LatestVersion(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := 0
	for _, ev := range s.streams[id] {
		if ev.Version > latest {
			latest = ev.Version
		}
	}
	return latest, nil
}

func (s *memEventStore) Count(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.streams[id])), nil
}

type memProjection struct {
	mu   sync.Mutex
	docs map[string]product.Product
}

func newMemProjection() *memProjection {
	return &memProjection{docs: map[string]product.Product{}}
}

func (p *memProjection) Upsert(_ context.Context, prod *product.Product) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.docs[prod.ID]; ok && existing.Version >= prod.Version {
		return false, nil
	}
	p.docs[prod.ID] = *prod
	return true, nil
}

func (p *memProjection) Overwrite(_ context.Context, prod *product.Product) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs[prod.ID] = *prod
	return nil
}

func (p *memProjection) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.docs, id)
	return nil
}

func (p *memProjection) GetByID(_ context.Context, id string) (*product.Product, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, ok := p.docs[id]
	if !ok {
		return nil, persistence.ErrEntityNotFound
	}
	return &doc, nil
}

func (p *memProjection) GetBySKU(_ context.Context, sku string) (*product.Product, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, doc := range p.docs {
		if doc.SKU == sku {
			d := doc
			return &d, nil
		}
	}
	return nil, persistence.ErrEntityNotFound
}

func (p *memProjection) SKUExists(ctx context.Context, sku string) (bool, error) {
	_, err := p.GetBySKU(ctx, sku)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (p *memProjection) FindByCategory(context.Context, string, int, int) (*mongopkg.PageResult[product.Product], error) {
	return &mongopkg.PageResult[product.Product]{}, nil
}

func (p *memProjection) FindByPriceRange(context.Context, float64, float64, int, int) (*mongopkg.PageResult[product.Product], error) {
	return &mongopkg.PageResult[product.Product]{}, nil
}

func (p *memProjection) FindBelowStock(context.Context, int, int, int) (*mongopkg.PageResult[product.Product], error) {
	return &mongopkg.PageResult[product.Product]{}, nil
}

func (p *memProjection) Search(context.Context, string, int, int) (*mongopkg.PageResult[product.Product], error) {
	return &mongopkg.PageResult[product.Product]{}, nil
}

type memSnapshots struct {
	mu        sync.Mutex
	snapshots map[string]replay.Snapshot
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{snapshots: map[string]replay.Snapshot{}}
}

func (s *memSnapshots) Save(_ context.Context, snap replay.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.snapshots[snap.AggregateID]; ok && existing.Version >= snap.Version {
		return nil
	}
	s.snapshots[snap.AggregateID] = snap
	return nil
}

func (s *memSnapshots) Latest(_ context.Context, id string) (replay.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return replay.Snapshot{}, persistence.ErrEntityNotFound
	}
	return snap, nil
}

func (s *memSnapshots) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, id)
	return nil
}

type staticChecker map[string]bool

func (c staticChecker) Exists(_ context.Context, id string) (bool, error) {
	return c[id], nil
}

type memPublisher struct {
	mu     sync.Mutex
	staged []event.Event
}

func (p *memPublisher) Stage(_ context.Context, ev event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staged = append(p.staged, ev)
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(sessCtx context.Context) (any, error)) (any, error) {
	return fn(ctx)
}

type fixture struct {
	svc         Service
	events      *memEventStore
	projections *memProjection
	snapshots   *memSnapshots
	publisher   *memPublisher
}

func newFixture(t *testing.T, conf Config) *fixture {
	t.Helper()
	if conf.RetryAttempts == 0 {
		conf.RetryAttempts = 3
	}
	if conf.RetryInitialInterval == 0 {
		conf.RetryInitialInterval = time.Millisecond
	}

	events := newMemEventStore()
	projections := newMemProjection()
	snapshots := newMemSnapshots()
	publisher := &memPublisher{}
	replayer := replay.NewReplayer(events, snapshots)
	checker := staticChecker{"electronics": true, "books": true}

	svc := NewService(events, replayer, snapshots, projections, checker, publisher, passthroughTx{}, conf)

	return &fixture{
		svc:         svc,
		events:      events,
		projections: projections,
		snapshots:   snapshots,
		publisher:   publisher,
	}
}

func createCmd() CreateProduct {
	return CreateProduct{
		Name:       "Keyboard",
		Price:      49.90,
		CategoryID: "electronics",
		SKU:        "KB-1",
		Stock:      10,
		UserID:     "u1",
	}
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t, Config{})

	created, err := f.svc.Create(context.Background(), createCmd())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)
	assert.True(t, created.Active)

	events, err := f.events.Events(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeCreated, events[0].Type)
	assert.Equal(t, "u1", events[0].UserID)

	doc, err := f.projections.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)

	require.Len(t, f.publisher.staged, 1)
	assert.Equal(t, created.ID, f.publisher.staged[0].AggregateID)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	cmd := createCmd()
	cmd.Name = ""
	cmd.Price = -1
	cmd.SKU = ""
	_, err := f.svc.Create(ctx, cmd)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]bool{}
	for _, fe := range verr.Fields {
		fields[fe.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["price"])
	assert.True(t, fields["sku"])

	// Nothing was appended for a rejected command.
	count, _ := f.events.Count(ctx, "any")
	assert.Zero(t, count)
}

func TestCreateUnknownCategory(t *testing.T) {
	f := newFixture(t, Config{})

	cmd := createCmd()
	cmd.CategoryID = "furniture"
	_, err := f.svc.Create(context.Background(), cmd)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCreateDuplicateSKU(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)

	cmd := createCmd()
	cmd.Name = "Other Keyboard"
	_, err = f.svc.Create(ctx, cmd)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCreateExistingAggregate(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	cmd := createCmd()
	cmd.ProductID = "p1"
	_, err := f.svc.Create(ctx, cmd)
	require.NoError(t, err)

	dup := createCmd()
	dup.ProductID = "p1"
	dup.SKU = "KB-2"
	_, err = f.svc.Create(ctx, dup)
	require.ErrorIs(t, err, eventstore.ErrVersionConflict)
}

func TestUpdateBumpsVersion(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, UpdateProduct{
		ProductID:  created.ID,
		Name:       "Mechanical Keyboard",
		CategoryID: "electronics",
		Featured:   true,
		UserID:     "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Mechanical Keyboard", updated.Name)
	assert.Equal(t, 49.90, updated.Price, "update must not touch price")

	doc, err := f.projections.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Version)
	assert.Equal(t, "Mechanical Keyboard", doc.Name)
}

func TestConcurrentCommandRetries(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)

	// A competing writer claims version 2 right before our append, so the
	// first attempt conflicts and the retry rebuilds on version 2.
	f.events.beforeAppend = func(event.Event) {
		competing := event.New(created.ID, 2, "u2", &event.StockChanged{Delta: -1})
		f.events.forceAppend(competing)
	}

	result, err := f.svc.ChangeStock(ctx, ChangeStock{
		ProductID: created.ID,
		NewStock:  8,
		UserID:    "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Version, "retried command lands after the competing event")
	assert.Equal(t, 8, result.Stock, "absolute target holds despite the competing delta")
}

func TestRetryBudgetExhausted(t *testing.T) {
	f := newFixture(t, Config{RetryAttempts: 3})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)

	// Every attempt loses the race.
	version := 2
	var hook func(event.Event)
	hook = func(event.Event) {
		f.events.forceAppend(event.New(created.ID, version, "u2", &event.StockChanged{Delta: 1}))
		version++
		f.events.beforeAppend = hook
	}
	f.events.beforeAppend = hook

	appendsBefore := f.events.appendCalls
	_, err = f.svc.ChangeStock(ctx, ChangeStock{ProductID: created.ID, NewStock: 9, UserID: "u1"})
	require.ErrorIs(t, err, eventstore.ErrVersionConflict)
	assert.Equal(t, 3, f.events.appendCalls-appendsBefore, "attempt budget is 3")
}

func TestExpectedVersionMismatch(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)
	_, err = f.svc.ChangeStock(ctx, ChangeStock{ProductID: created.ID, NewStock: 11, UserID: "u1"})
	require.NoError(t, err)

	appendsBefore := f.events.appendCalls
	_, err = f.svc.ChangePrice(ctx, ChangePrice{
		ProductID:       created.ID,
		ExpectedVersion: 1,
		NewPrice:        60,
		UserID:          "u1",
	})
	require.ErrorIs(t, err, eventstore.ErrVersionConflict)
	assert.Equal(t, 0, f.events.appendCalls-appendsBefore, "stale expectation fails without retrying")
}

func TestChangePriceToSameValue(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)

	_, err = f.svc.ChangePrice(ctx, ChangePrice{ProductID: created.ID, NewPrice: 49.90, UserID: "u1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	count, _ := f.events.Count(ctx, created.ID)
	assert.EqualValues(t, 1, count, "no event for a no-op price change")
}

func TestChangeStockValidation(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)

	_, err = f.svc.ChangeStock(ctx, ChangeStock{ProductID: created.ID, NewStock: -1, UserID: "u1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "negative target rejected")

	_, err = f.svc.ChangeStock(ctx, ChangeStock{ProductID: created.ID, NewStock: 10, UserID: "u1"})
	require.ErrorAs(t, err, &verr, "target equal to current stock is a no-op")

	count, _ := f.events.Count(ctx, created.ID)
	assert.EqualValues(t, 1, count, "no event for a rejected stock change")
}

func TestChangeStockDerivesDelta(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)

	result, err := f.svc.ChangeStock(ctx, ChangeStock{ProductID: created.ID, NewStock: 4, Reason: "shrinkage", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Stock)

	events, err := f.events.Events(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	payload, ok := events[1].Payload.(*event.StockChanged)
	require.True(t, ok)
	assert.Equal(t, -6, payload.Delta, "delta derived from the state the command applied to")
	assert.Equal(t, "shrinkage", payload.Reason)
}

func TestDeletePreservesHistory(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)

	deleted, err := f.svc.Delete(ctx, DeleteProduct{ProductID: created.ID, Reason: "discontinued", UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, deleted.Active)
	assert.Equal(t, 2, deleted.Version)

	// History stays, only the state flips.
	events, err := f.events.Events(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	doc, err := f.projections.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, doc.Active)

	// Further mutations are rejected, but not found stays distinct.
	_, err = f.svc.ChangeStock(ctx, ChangeStock{ProductID: created.ID, NewStock: 11, UserID: "u1"})
	require.ErrorIs(t, err, product.ErrInactive)

	_, err = f.svc.ChangeStock(ctx, ChangeStock{ProductID: "ghost", NewStock: 1, UserID: "u1"})
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestRebuildRepairsProjection(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)
	_, err = f.svc.ChangeStock(ctx, ChangeStock{ProductID: created.ID, NewStock: 7, UserID: "u1"})
	require.NoError(t, err)

	// Corrupt the read model.
	require.NoError(t, f.projections.Overwrite(ctx, &product.Product{ID: created.ID, Name: "garbage", Version: 99}))

	state, err := f.svc.Rebuild(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Version)
	assert.Equal(t, 7, state.Stock)

	doc, err := f.projections.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keyboard", doc.Name)
	assert.Equal(t, 2, doc.Version)

	// Idempotent: a second rebuild changes nothing.
	again, err := f.svc.Rebuild(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *state, *again)

	_, err = f.svc.Rebuild(ctx, "ghost")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestRebuildRemovesOrphanProjection(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	// A projection document with no event stream behind it, e.g. left over
	// from a bad import.
	require.NoError(t, f.projections.Overwrite(ctx, &product.Product{ID: "orphan", Name: "ghost", Version: 4, Active: true}))
	require.NoError(t, f.snapshots.Save(ctx, replay.Snapshot{AggregateID: "orphan", Version: 4}))

	_, err := f.svc.Rebuild(ctx, "orphan")
	require.ErrorIs(t, err, product.ErrNotFound)

	_, err = f.projections.GetByID(ctx, "orphan")
	require.ErrorIs(t, err, persistence.ErrEntityNotFound, "orphan document removed")

	_, err = f.snapshots.Latest(ctx, "orphan")
	require.ErrorIs(t, err, persistence.ErrEntityNotFound, "orphan snapshot removed")
}

func TestSnapshotPolicy(t *testing.T) {
	f := newFixture(t, Config{SnapshotThreshold: 2})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, createCmd())
	require.NoError(t, err)

	_, err = f.snapshots.Latest(ctx, created.ID)
	require.ErrorIs(t, err, persistence.ErrEntityNotFound, "no snapshot at version 1")

	_, err = f.svc.ChangeStock(ctx, ChangeStock{ProductID: created.ID, NewStock: 9, UserID: "u1"})
	require.NoError(t, err)

	snap, err := f.snapshots.Latest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Version)
	assert.Equal(t, 9, snap.State.Stock)
}

func TestUserIDFromClaims(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := token.ContextWithClaims(context.Background(), &token.Claims{UserID: "claims-user"})

	cmd := createCmd()
	cmd.UserID = ""
	created, err := f.svc.Create(ctx, cmd)
	require.NoError(t, err)

	events, err := f.events.Events(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "claims-user", events[0].UserID)

	// No identity at all is rejected.
	anon := createCmd()
	anon.SKU = "KB-9"
	anon.UserID = ""
	_, err = f.svc.Create(context.Background(), anon)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
