package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/category"
	"github.com/Sokol111/ecommerce-product-service/pkg/core/logger"
	"github.com/Sokol111/ecommerce-product-service/pkg/event"
	"github.com/Sokol111/ecommerce-product-service/pkg/eventstore"
	"github.com/Sokol111/ecommerce-product-service/pkg/outbox"
	"github.com/Sokol111/ecommerce-product-service/pkg/persistence"
	"github.com/Sokol111/ecommerce-product-service/pkg/product"
	"github.com/Sokol111/ecommerce-product-service/pkg/product/projection"
	"github.com/Sokol111/ecommerce-product-service/pkg/product/replay"
	"github.com/Sokol111/ecommerce-product-service/pkg/security/token"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the write side of the product catalog. Every mutation derives
// one event from the current aggregate state, appends it, and synchronizes
// the read model. Concurrency control is optimistic: a lost append race is
// retried from a fresh state within the configured attempt budget.
type Service interface {
	Create(ctx context.Context, cmd CreateProduct) (*product.Product, error)
	Update(ctx context.Context, cmd UpdateProduct) (*product.Product, error)
	ChangePrice(ctx context.Context, cmd ChangePrice) (*product.Product, error)
	ChangeStock(ctx context.Context, cmd ChangeStock) (*product.Product, error)
	Delete(ctx context.Context, cmd DeleteProduct) (*product.Product, error)

	// Rebuild replays the full event stream and overwrites the projection
	// document and snapshot with the result. Idempotent.
	Rebuild(ctx context.Context, productID string) (*product.Product, error)
}

type service struct {
	events      eventstore.Store
	replayer    replay.Replayer
	snapshots   replay.SnapshotStore
	projections projection.Store
	categories  category.Checker
	publisher   outbox.Publisher
	tx          persistence.TxManager
	conf        Config
}

func NewService(
	events eventstore.Store,
	replayer replay.Replayer,
	snapshots replay.SnapshotStore,
	projections projection.Store,
	categories category.Checker,
	publisher outbox.Publisher,
	tx persistence.TxManager,
	conf Config,
) Service {
	return &service{
		events:      events,
		replayer:    replayer,
		snapshots:   snapshots,
		projections: projections,
		categories:  categories,
		publisher:   publisher,
		tx:          tx,
		conf:        conf,
	}
}

// userID resolves the acting user, preferring authenticated claims over the
// command field.
func userID(ctx context.Context, fromCommand string) (string, error) {
	if claims := token.ClaimsFromContext(ctx); claims != nil && claims.UserID != "" {
		return claims.UserID, nil
	}
	if fromCommand != "" {
		return fromCommand, nil
	}
	return "", &ValidationError{Fields: []FieldError{{Field: "userId", Message: "is required"}}}
}

func (s *service) Create(ctx context.Context, cmd CreateProduct) (*product.Product, error) {
	uid, err := userID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.validateCreate(ctx, cmd); err != nil {
		return nil, err
	}

	id := cmd.ProductID
	if id == "" {
		id = uuid.NewString()
	}

	ev := event.New(id, 1, uid, &event.Created{
		Name:        cmd.Name,
		Description: cmd.Description,
		Price:       cmd.Price,
		CategoryID:  cmd.CategoryID,
		SKU:         cmd.SKU,
		Stock:       cmd.Stock,
		Attributes:  cmd.Attributes,
		Featured:    cmd.Featured,
	})

	next, err := product.Product{}.Apply(ev)
	if err != nil {
		return nil, err
	}

	// A duplicate id loses the race for version 1. There is nothing to
	// retry from, the aggregate simply already exists.
	if err := s.appendAndStage(ctx, ev); err != nil {
		return nil, err
	}

	s.finish(ctx, next)
	return &next, nil
}

func (s *service) Update(ctx context.Context, cmd UpdateProduct) (*product.Product, error) {
	uid, err := userID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.validateUpdate(ctx, cmd); err != nil {
		return nil, err
	}

	return s.mutate(ctx, cmd.ProductID, cmd.ExpectedVersion, uid,
		func(current product.Product) (event.Payload, error) {
			return &event.Updated{
				Name:        cmd.Name,
				Description: cmd.Description,
				CategoryID:  cmd.CategoryID,
				Attributes:  cmd.Attributes,
				Featured:    cmd.Featured,
			}, nil
		})
}

func (s *service) ChangePrice(ctx context.Context, cmd ChangePrice) (*product.Product, error) {
	uid, err := userID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, cmd.ProductID, cmd.ExpectedVersion, uid,
		func(current product.Product) (event.Payload, error) {
			if err := validateChangePrice(cmd, current); err != nil {
				return nil, err
			}
			return &event.PriceChanged{
				OldPrice: current.Price,
				NewPrice: cmd.NewPrice,
				Reason:   cmd.Reason,
			}, nil
		})
}

func (s *service) ChangeStock(ctx context.Context, cmd ChangeStock) (*product.Product, error) {
	uid, err := userID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, cmd.ProductID, cmd.ExpectedVersion, uid,
		func(current product.Product) (event.Payload, error) {
			if err := validateChangeStock(cmd, current); err != nil {
				return nil, err
			}
			// The delta is derived inside the retry loop, so a replayed
			// attempt still lands the product exactly on the target level.
			return &event.StockChanged{
				Delta:  cmd.NewStock - current.Stock,
				Reason: cmd.Reason,
			}, nil
		})
}

func (s *service) Delete(ctx context.Context, cmd DeleteProduct) (*product.Product, error) {
	uid, err := userID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, cmd.ProductID, cmd.ExpectedVersion, uid,
		func(current product.Product) (event.Payload, error) {
			return &event.Deleted{
				Reason:     cmd.Reason,
				SoftDelete: true,
			}, nil
		})
}

// mutate runs the load/derive/append cycle for an existing aggregate. On a
// version conflict the whole cycle restarts from freshly loaded state, so
// the derived event is always based on what actually won.
func (s *service) mutate(
	ctx context.Context,
	id string,
	expectedVersion int,
	uid string,
	derive func(current product.Product) (event.Payload, error),
) (*product.Product, error) {
	if id == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "productId", Message: "is required"}}}
	}

	var next product.Product

	attempt := func() error {
		current, err := s.loadCurrent(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !current.Active {
			return backoff.Permanent(fmt.Errorf("%w: %s", product.ErrInactive, id))
		}
		// A caller-supplied expectation is checked once against live state;
		// a mismatch means the caller decided on stale data and must re-read.
		if expectedVersion != 0 && expectedVersion != current.Version {
			return backoff.Permanent(fmt.Errorf("%w: aggregate %s is at version %d, expected %d",
				eventstore.ErrVersionConflict, id, current.Version, expectedVersion))
		}

		payload, err := derive(current)
		if err != nil {
			return backoff.Permanent(err)
		}

		ev := event.New(id, current.Version+1, uid, payload)
		next, err = current.Apply(ev)
		if err != nil {
			return backoff.Permanent(err)
		}

		if err := s.appendAndStage(ctx, ev); err != nil {
			if errors.Is(err, eventstore.ErrVersionConflict) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(s.conf.RetryInitialInterval),
			backoff.WithMaxElapsedTime(0),
		),
		uint64(s.conf.RetryAttempts-1),
	), ctx)

	if err := backoff.Retry(attempt, policy); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return nil, permanent.Unwrap()
		}
		return nil, err
	}

	s.finish(ctx, next)
	return &next, nil
}

// loadCurrent prefers the projection when it is caught up with the event
// log, falling back to replay otherwise. The event log decides what
// "current" means, the projection is only a shortcut.
func (s *service) loadCurrent(ctx context.Context, id string) (product.Product, error) {
	latest, err := s.events.LatestVersion(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	if latest == 0 {
		return product.Product{}, fmt.Errorf("%w: %s", product.ErrNotFound, id)
	}

	proj, err := s.projections.GetByID(ctx, id)
	if err == nil && proj.Version == latest {
		return *proj, nil
	}
	if err != nil && !errors.Is(err, persistence.ErrEntityNotFound) {
		logger.Get(ctx).Warn("failed to read projection, replaying instead",
			zap.String("product-id", id), zap.Error(err))
	}

	return s.replayer.Replay(ctx, id)
}

// appendAndStage commits the event and its outbox row in one transaction.
// Version conflicts come back as eventstore.ErrVersionConflict untouched.
func (s *service) appendAndStage(ctx context.Context, ev event.Event) error {
	_, err := s.tx.WithTransaction(ctx, func(sessCtx context.Context) (any, error) {
		if err := s.events.Append(sessCtx, ev); err != nil {
			return nil, err
		}
		if err := s.publisher.Stage(sessCtx, ev); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// finish synchronizes the derived artifacts after a successful append. Both
// are best-effort: the events are committed, and anything that fails here is
// recovered by the next write or an explicit rebuild.
func (s *service) finish(ctx context.Context, next product.Product) {
	if _, err := s.projections.Upsert(ctx, &next); err != nil {
		logger.Get(ctx).Warn("failed to sync projection",
			zap.String("product-id", next.ID), zap.Error(err))
	}
	s.maybeSnapshot(ctx, next)
}

func (s *service) maybeSnapshot(ctx context.Context, next product.Product) {
	if s.conf.SnapshotThreshold <= 0 || next.Version%s.conf.SnapshotThreshold != 0 {
		return
	}
	snapshot := replay.Snapshot{
		AggregateID: next.ID,
		Version:     next.Version,
		State:       next,
		TakenAt:     time.Now().UTC(),
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		logger.Get(ctx).Warn("failed to save snapshot",
			zap.String("product-id", next.ID), zap.Int("version", next.Version), zap.Error(err))
	}
}

func (s *service) Rebuild(ctx context.Context, productID string) (*product.Product, error) {
	if productID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "productId", Message: "is required"}}}
	}

	state, err := s.replayer.ReplayFull(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			s.removeOrphans(ctx, productID)
		}
		return nil, err
	}

	if err := s.projections.Overwrite(ctx, &state); err != nil {
		return nil, err
	}

	// Refresh the snapshot so a later replay starts from verified state.
	snapshot := replay.Snapshot{
		AggregateID: state.ID,
		Version:     state.Version,
		State:       state,
		TakenAt:     time.Now().UTC(),
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		logger.Get(ctx).Warn("failed to refresh snapshot after rebuild",
			zap.String("product-id", state.ID), zap.Error(err))
	}

	return &state, nil
}

// removeOrphans drops derived artifacts of an aggregate that has no event
// stream, typically a projection document left behind by a bad import. The
// event log stays untouched because there is nothing in it.
func (s *service) removeOrphans(ctx context.Context, id string) {
	if err := s.projections.Delete(ctx, id); err != nil {
		logger.Get(ctx).Warn("failed to remove orphan projection",
			zap.String("product-id", id), zap.Error(err))
	}
	if err := s.snapshots.Delete(ctx, id); err != nil {
		logger.Get(ctx).Warn("failed to remove orphan snapshot",
			zap.String("product-id", id), zap.Error(err))
	}
}
