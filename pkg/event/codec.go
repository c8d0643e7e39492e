package event

import (
	"encoding/json"
	"fmt"
	"time"
)

type envelope struct {
	EventID     string          `json:"eventId"`
	AggregateID string          `json:"aggregateId"`
	Type        Type            `json:"eventType"`
	Version     int             `json:"version"`
	Timestamp   time.Time       `json:"timestamp"`
	UserID      string          `json:"userId"`
	Payload     json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes an event, resolving the payload variant from the
// eventType discriminator. Unknown types fail with ErrUnknownType.
func (e *Event) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to decode event envelope: %w", err)
	}

	payload, err := NewPayload(env.Type)
	if err != nil {
		return err
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", env.Type, err)
		}
	}

	e.EventID = env.EventID
	e.AggregateID = env.AggregateID
	e.Type = env.Type
	e.Version = env.Version
	e.Timestamp = env.Timestamp
	e.UserID = env.UserID
	e.Payload = payload
	return nil
}
