package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/event"
	mongopkg "github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "product_events"

type eventDoc struct {
	ID          string     `bson:"_id"`
	AggregateID string     `bson:"aggregateId"`
	Type        event.Type `bson:"eventType"`
	Version     int        `bson:"version"`
	Timestamp   time.Time  `bson:"timestamp"`
	UserID      string     `bson:"userId"`
	Payload     bson.Raw   `bson:"payload"`
}

type mongoStore struct {
	collection mongopkg.Collection
}

// NewMongoStore builds the event log backed by the product_events collection.
// The unique (aggregateId, version) index created by migrations is what turns
// concurrent appends into ErrVersionConflict.
func NewMongoStore(m mongopkg.Mongo) Store {
	return &mongoStore{collection: m.GetCollection(collectionName)}
}

func toDoc(ev event.Event) (eventDoc, error) {
	raw, err := bson.Marshal(ev.Payload)
	if err != nil {
		return eventDoc{}, fmt.Errorf("failed to encode %s payload: %w", ev.Type, err)
	}
	return eventDoc{
		ID:          ev.EventID,
		AggregateID: ev.AggregateID,
		Type:        ev.Type,
		Version:     ev.Version,
		Timestamp:   ev.Timestamp,
		UserID:      ev.UserID,
		Payload:     raw,
	}, nil
}

func fromDoc(doc eventDoc) (event.Event, error) {
	payload, err := event.NewPayload(doc.Type)
	if err != nil {
		return event.Event{}, fmt.Errorf("event %s of aggregate %s: %w", doc.ID, doc.AggregateID, err)
	}
	if err := bson.Unmarshal(doc.Payload, payload); err != nil {
		return event.Event{}, fmt.Errorf("failed to decode %s payload of event %s: %w", doc.Type, doc.ID, err)
	}
	return event.Event{
		EventID:     doc.ID,
		AggregateID: doc.AggregateID,
		Type:        doc.Type,
		Version:     doc.Version,
		Timestamp:   doc.Timestamp,
		UserID:      doc.UserID,
		Payload:     payload,
	}, nil
}

func (s *mongoStore) Append(ctx context.Context, ev event.Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("refusing to append invalid event: %w", err)
	}

	doc, err := toDoc(ev)
	if err != nil {
		return err
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: aggregate %s version %d", ErrVersionConflict, ev.AggregateID, ev.Version)
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *mongoStore) find(ctx context.Context, filter bson.M, sortKey string) ([]event.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: sortKey, Value: 1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []event.Event
	for cursor.Next(ctx) {
		var doc eventDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode event document: %w", err)
		}
		ev, err := fromDoc(doc)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func (s *mongoStore) Events(ctx context.Context, aggregateID string) ([]event.Event, error) {
	return s.find(ctx, bson.M{"aggregateId": aggregateID}, "version")
}

func (s *mongoStore) EventsSince(ctx context.Context, aggregateID string, afterVersion int) ([]event.Event, error) {
	return s.find(ctx, bson.M{
		"aggregateId": aggregateID,
		"version":     bson.M{"$gt": afterVersion},
	}, "version")
}

func (s *mongoStore) EventsInVersionRange(ctx context.Context, aggregateID string, from, to int) ([]event.Event, error) {
	return s.find(ctx, bson.M{
		"aggregateId": aggregateID,
		"version":     bson.M{"$gte": from, "$lte": to},
	}, "version")
}

// EventsInTimeRange is served by the timestamp index created in migrations.
func (s *mongoStore) EventsInTimeRange(ctx context.Context, aggregateID string, from, to time.Time) ([]event.Event, error) {
	return s.find(ctx, bson.M{
		"aggregateId": aggregateID,
		"timestamp":   bson.M{"$gte": from, "$lte": to},
	}, "timestamp")
}

func (s *mongoStore) LatestVersion(ctx context.Context, aggregateID string) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "version", Value: -1}}).
		SetProjection(bson.M{"version": 1})

	var doc struct {
		Version int `bson:"version"`
	}
	err := s.collection.FindOne(ctx, bson.M{"aggregateId": aggregateID}, opts).Decode(&doc)
	if err == mongodriver.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query latest version: %w", err)
	}
	return doc.Version, nil
}

func (s *mongoStore) Count(ctx context.Context, aggregateID string) (int64, error) {
	count, err := s.collection.CountDocuments(ctx, bson.M{"aggregateId": aggregateID})
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}
