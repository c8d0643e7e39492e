package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	mongopkg "github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "product_outbox"

var errEntityNotFound = errors.New("no outbox entity to fetch")

const (
	baseLockMs = 30_000
	maxLockMs  = 300_000
)

type Store interface {
	// Create stages a publication. Runs inside the caller's transaction when
	// ctx is a session context.
	Create(ctx context.Context, payload, key, topic string) (outboxEntity, error)

	// FetchAndLock claims the next unsent entity whose lock has expired.
	// The lock duration grows exponentially with the attempt count so a
	// poisonous message backs off instead of spinning. Returns
	// errEntityNotFound when nothing is claimable.
	FetchAndLock(ctx context.Context) (outboxEntity, error)

	// MarkSentByIDs finalizes delivered entities.
	MarkSentByIDs(ctx context.Context, ids []primitive.ObjectID) error
}

type store struct {
	collection mongopkg.Collection
}

func NewStore(m mongopkg.Mongo) Store {
	return &store{collection: m.GetCollection(collectionName)}
}

func (s *store) Create(ctx context.Context, payload, key, topic string) (outboxEntity, error) {
	entity := outboxEntity{
		Payload:        payload,
		Key:            key,
		Topic:          topic,
		Status:         statusPending,
		CreatedAt:      time.Now().UTC(),
		LockExpiresAt:  time.Now().UTC(),
		AttemptsToSend: 0,
	}

	result, err := s.collection.InsertOne(ctx, entity)
	if err != nil {
		return outboxEntity{}, fmt.Errorf("failed to insert outbox entity: %w", err)
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return outboxEntity{}, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	entity.ID = id
	return entity, nil
}

func (s *store) FetchAndLock(ctx context.Context) (outboxEntity, error) {
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "lockExpiresAt", Value: 1}, {Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.After)

	filter := bson.M{
		"status":        bson.M{"$ne": statusSent},
		"lockExpiresAt": bson.M{"$lt": time.Now().UTC()},
	}

	// Pipeline update so the new lock expiry is computed server-side from
	// the attempt count: base * 2^attempts, capped.
	update := bson.A{
		bson.M{"$set": bson.M{
			"attemptsToSend": bson.M{"$add": bson.A{"$attemptsToSend", 1}},
			"lockExpiresAt": bson.M{"$add": bson.A{
				"$$NOW",
				bson.M{"$min": bson.A{
					maxLockMs,
					bson.M{"$multiply": bson.A{
						baseLockMs,
						bson.M{"$pow": bson.A{2, "$attemptsToSend"}},
					}},
				}},
			}},
		}},
	}

	var entity outboxEntity
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&entity)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return outboxEntity{}, errEntityNotFound
		}
		return outboxEntity{}, fmt.Errorf("failed to fetch outbox entity: %w", err)
	}
	return entity, nil
}

func (s *store) MarkSentByIDs(ctx context.Context, ids []primitive.ObjectID) error {
	_, err := s.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"status": statusSent}})
	if err != nil {
		return fmt.Errorf("failed to mark outbox entities as sent: %w", err)
	}
	return nil
}
