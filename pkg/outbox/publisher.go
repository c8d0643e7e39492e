package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sokol111/ecommerce-product-service/pkg/event"
)

// Publisher stages events for asynchronous delivery. Stage must be called
// with the same session context as the event append so both land or neither
// does; the dispatcher picks the row up after commit.
type Publisher interface {
	Stage(ctx context.Context, ev event.Event) error
}

type publisher struct {
	store Store
	topic string
}

func NewPublisher(store Store, conf Config) Publisher {
	return &publisher{store: store, topic: conf.Topic}
}

// Stage serializes the event envelope as-is. The aggregate id is the
// partition key, which keeps events of one product in order on the topic.
func (p *publisher) Stage(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", ev.EventID, err)
	}
	if _, err := p.store.Create(ctx, string(payload), ev.AggregateID, p.topic); err != nil {
		return fmt.Errorf("failed to stage event %s: %w", ev.EventID, err)
	}
	return nil
}
