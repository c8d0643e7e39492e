package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/persistence"
	mongopkg "github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo"
	"github.com/Sokol111/ecommerce-product-service/pkg/product"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const snapshotCollection = "product_snapshots"

type snapshotState struct {
	Name        string            `bson:"name"`
	Description string            `bson:"description,omitempty"`
	Price       float64           `bson:"price"`
	CategoryID  string            `bson:"categoryId"`
	SKU         string            `bson:"sku"`
	Stock       int               `bson:"stock"`
	Attributes  map[string]string `bson:"attributes,omitempty"`
	Active      bool              `bson:"active"`
	Featured    bool              `bson:"featured"`
	CreatedAt   time.Time         `bson:"createdAt"`
	UpdatedAt   time.Time         `bson:"updatedAt"`
}

type snapshotDoc struct {
	ID      string        `bson:"_id"`
	Version int           `bson:"version"`
	State   snapshotState `bson:"state"`
	TakenAt time.Time     `bson:"takenAt"`
}

type mongoSnapshotStore struct {
	collection mongopkg.Collection
}

func NewMongoSnapshotStore(m mongopkg.Mongo) SnapshotStore {
	return &mongoSnapshotStore{collection: m.GetCollection(snapshotCollection)}
}

func toSnapshotDoc(s Snapshot) snapshotDoc {
	return snapshotDoc{
		ID:      s.AggregateID,
		Version: s.Version,
		State: snapshotState{
			Name:        s.State.Name,
			Description: s.State.Description,
			Price:       s.State.Price,
			CategoryID:  s.State.CategoryID,
			SKU:         s.State.SKU,
			Stock:       s.State.Stock,
			Attributes:  s.State.Attributes,
			Active:      s.State.Active,
			Featured:    s.State.Featured,
			CreatedAt:   s.State.CreatedAt,
			UpdatedAt:   s.State.UpdatedAt,
		},
		TakenAt: s.TakenAt,
	}
}

func fromSnapshotDoc(doc snapshotDoc) Snapshot {
	return Snapshot{
		AggregateID: doc.ID,
		Version:     doc.Version,
		State: product.Product{
			ID:          doc.ID,
			Name:        doc.State.Name,
			Description: doc.State.Description,
			Price:       doc.State.Price,
			CategoryID:  doc.State.CategoryID,
			SKU:         doc.State.SKU,
			Stock:       doc.State.Stock,
			Attributes:  doc.State.Attributes,
			Active:      doc.State.Active,
			Featured:    doc.State.Featured,
			Version:     doc.Version,
			CreatedAt:   doc.State.CreatedAt,
			UpdatedAt:   doc.State.UpdatedAt,
		},
		TakenAt: doc.TakenAt,
	}
}

// Save keeps the newest snapshot per aggregate. An older snapshot arriving
// late hits the duplicate-key guard and is dropped silently.
func (s *mongoSnapshotStore) Save(ctx context.Context, snapshot Snapshot) error {
	filter := bson.M{
		"_id":     snapshot.AggregateID,
		"version": bson.M{"$lt": snapshot.Version},
	}
	opts := options.Replace().SetUpsert(true)

	_, err := s.collection.ReplaceOne(ctx, filter, toSnapshotDoc(snapshot), opts)
	if mongodriver.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *mongoSnapshotStore) Latest(ctx context.Context, aggregateID string) (Snapshot, error) {
	var doc snapshotDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": aggregateID}).Decode(&doc)
	if err == mongodriver.ErrNoDocuments {
		return Snapshot{}, persistence.ErrEntityNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return fromSnapshotDoc(doc), nil
}

func (s *mongoSnapshotStore) Delete(ctx context.Context, aggregateID string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": aggregateID}); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
