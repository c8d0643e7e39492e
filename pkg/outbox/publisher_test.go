package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Sokol111/ecommerce-product-service/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingStore struct {
	payload string
	key     string
	topic   string
}

func (s *recordingStore) Create(_ context.Context, payload, key, topic string) (outboxEntity, error) {
	s.payload = payload
	s.key = key
	s.topic = topic
	return outboxEntity{ID: primitive.NewObjectID()}, nil
}

func (s *recordingStore) FetchAndLock(context.Context) (outboxEntity, error) {
	return outboxEntity{}, errEntityNotFound
}

func (s *recordingStore) MarkSentByIDs(context.Context, []primitive.ObjectID) error {
	return nil
}

func TestStageSerializesEnvelope(t *testing.T) {
	store := &recordingStore{}
	pub := NewPublisher(store, Config{Topic: "product-events"})

	ev := event.New("p1", 2, "u1", &event.PriceChanged{OldPrice: 10, NewPrice: 12})
	require.NoError(t, pub.Stage(context.Background(), ev))

	assert.Equal(t, "p1", store.key, "aggregate id keys the partition")
	assert.Equal(t, "product-events", store.topic)

	var decoded event.Event
	require.NoError(t, json.Unmarshal([]byte(store.payload), &decoded))
	assert.Equal(t, ev.EventID, decoded.EventID)
	assert.Equal(t, ev.Version, decoded.Version)

	payload, ok := decoded.Payload.(*event.PriceChanged)
	require.True(t, ok)
	assert.Equal(t, 12.0, payload.NewPrice)
}
