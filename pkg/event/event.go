package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the discriminator tag of a product event.
type Type string

const (
	// TypeCreated records the creation of a product aggregate (always version 1).
	TypeCreated Type = "Created"
	// TypeUpdated records changes to product metadata.
	TypeUpdated Type = "Updated"
	// TypePriceChanged records a price transition.
	TypePriceChanged Type = "PriceChanged"
	// TypeStockChanged records a stock delta.
	TypeStockChanged Type = "StockChanged"
	// TypeDeleted marks the product inactive while preserving its history.
	TypeDeleted Type = "Deleted"
)

// ErrUnknownType is returned when an event carries a type this service does
// not recognize. Consumers must treat it as a hard error, never skip it: an
// unknown type means the stream is corrupt or the schema has drifted.
var ErrUnknownType = errors.New("unknown event type")

// IsValid reports whether t is one of the recognized event types.
func (t Type) IsValid() bool {
	switch t {
	case TypeCreated, TypeUpdated, TypePriceChanged, TypeStockChanged, TypeDeleted:
		return true
	}
	return false
}

// Event is the immutable envelope shared by all product event variants.
// Once appended to the store an event is never updated or deleted.
// (AggregateID, Version) is unique across the store and is the sole
// concurrency-control primitive.
type Event struct {
	// EventID is globally unique, assigned once at creation.
	EventID string `json:"eventId" bson:"_id"`
	// AggregateID identifies the product this event belongs to.
	AggregateID string `json:"aggregateId" bson:"aggregateId"`
	// Type discriminates the payload variant.
	Type Type `json:"eventType" bson:"eventType"`
	// Version is a strictly increasing, gap-free, 1-based integer per
	// aggregate. It is the sole source of ordering and the concurrency token.
	Version int `json:"version" bson:"version"`
	// Timestamp is the event occurrence time, set once at creation.
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	// UserID identifies the actor that caused the event.
	UserID string `json:"userId" bson:"userId"`
	// Payload holds the variant-specific data.
	Payload Payload `json:"payload" bson:"payload"`
}

// New builds an event envelope around the given payload, assigning a fresh
// event id and timestamp. The payload determines the event type.
func New(aggregateID string, version int, userID string, payload Payload) Event {
	return Event{
		EventID:     uuid.NewString(),
		AggregateID: aggregateID,
		Type:        payload.EventType(),
		Version:     version,
		Timestamp:   time.Now().UTC(),
		UserID:      userID,
		Payload:     payload,
	}
}

// Validate checks envelope integrity before the event is appended.
func (e Event) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event id is required")
	}
	if e.AggregateID == "" {
		return fmt.Errorf("aggregate id is required")
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
	if e.Version < 1 {
		return fmt.Errorf("version must be 1-based, got %d", e.Version)
	}
	if e.Payload == nil {
		return fmt.Errorf("payload is required")
	}
	if e.Payload.EventType() != e.Type {
		return fmt.Errorf("payload type %q does not match envelope type %q", e.Payload.EventType(), e.Type)
	}
	return nil
}
