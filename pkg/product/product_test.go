package product

import (
	"testing"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createdEvent() event.Event {
	return event.Event{
		EventID:     "e1",
		AggregateID: "p1",
		Type:        event.TypeCreated,
		Version:     1,
		Timestamp:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		UserID:      "u1",
		Payload: &event.Created{
			Name:       "Keyboard",
			Price:      49.90,
			CategoryID: "electronics",
			SKU:        "KB-1",
			Stock:      10,
			Attributes: map[string]string{"layout": "ansi"},
		},
	}
}

func nextEvent(version int, payload event.Payload) event.Event {
	return event.Event{
		EventID:     "e" + string(rune('0'+version)),
		AggregateID: "p1",
		Type:        payload.EventType(),
		Version:     version,
		Timestamp:   time.Date(2026, 3, 1, 10, version, 0, 0, time.UTC),
		UserID:      "u1",
		Payload:     payload,
	}
}

func TestApplyCreated(t *testing.T) {
	p, err := Product{}.Apply(createdEvent())
	require.NoError(t, err)

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Keyboard", p.Name)
	assert.Equal(t, 49.90, p.Price)
	assert.Equal(t, "electronics", p.CategoryID)
	assert.Equal(t, "KB-1", p.SKU)
	assert.Equal(t, 10, p.Stock)
	assert.True(t, p.Active)
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
}

func TestApplyCreatedOnExistingFails(t *testing.T) {
	p, err := Product{}.Apply(createdEvent())
	require.NoError(t, err)

	dup := createdEvent()
	dup.Version = 2
	_, err = p.Apply(dup)
	assert.Error(t, err)
}

func TestApplyNonCreatedOnEmptyFails(t *testing.T) {
	_, err := Product{}.Apply(nextEvent(1, &event.StockChanged{Delta: 1}))
	assert.Error(t, err)
}

func TestApplyVersionGapFails(t *testing.T) {
	p, err := Product{}.Apply(createdEvent())
	require.NoError(t, err)

	_, err = p.Apply(nextEvent(3, &event.StockChanged{Delta: 1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version gap")

	// Same event applied twice is a gap in the other direction.
	_, err = p.Apply(nextEvent(1, &event.StockChanged{Delta: 1}))
	assert.Error(t, err)
}

func TestApplyUpdated(t *testing.T) {
	p, err := Product{}.Apply(createdEvent())
	require.NoError(t, err)

	p, err = p.Apply(nextEvent(2, &event.Updated{
		Name:       "Mechanical Keyboard",
		CategoryID: "peripherals",
		Featured:   true,
	}))
	require.NoError(t, err)

	assert.Equal(t, "Mechanical Keyboard", p.Name)
	assert.Equal(t, "peripherals", p.CategoryID)
	assert.True(t, p.Featured)
	// Price, stock and sku are untouched by updates.
	assert.Equal(t, 49.90, p.Price)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, "KB-1", p.SKU)
	assert.Equal(t, 2, p.Version)
}

func TestApplyPriceAndStock(t *testing.T) {
	p, err := Product{}.Apply(createdEvent())
	require.NoError(t, err)

	p, err = p.Apply(nextEvent(2, &event.PriceChanged{OldPrice: 49.90, NewPrice: 39.90}))
	require.NoError(t, err)
	assert.Equal(t, 39.90, p.Price)

	p, err = p.Apply(nextEvent(3, &event.StockChanged{Delta: -4}))
	require.NoError(t, err)
	assert.Equal(t, 6, p.Stock)

	p, err = p.Apply(nextEvent(4, &event.StockChanged{Delta: 10}))
	require.NoError(t, err)
	assert.Equal(t, 16, p.Stock)
	assert.Equal(t, 4, p.Version)
}

func TestApplyDeletedKeepsState(t *testing.T) {
	p, err := Product{}.Apply(createdEvent())
	require.NoError(t, err)

	p, err = p.Apply(nextEvent(2, &event.Deleted{Reason: "discontinued", SoftDelete: true}))
	require.NoError(t, err)

	assert.False(t, p.Active)
	assert.Equal(t, "Keyboard", p.Name, "soft delete keeps the last known state")
	assert.Equal(t, 2, p.Version)
}

func TestApplyIsPure(t *testing.T) {
	base, err := Product{}.Apply(createdEvent())
	require.NoError(t, err)

	// Mutating the derived state's attributes must not leak into base.
	next, err := base.Apply(nextEvent(2, &event.Updated{
		Name:       "Keyboard",
		CategoryID: "electronics",
		Attributes: map[string]string{"layout": "iso"},
	}))
	require.NoError(t, err)
	next.Attributes["layout"] = "mutated"
	assert.Equal(t, "ansi", base.Attributes["layout"])

	// Same input, same output.
	again, err := base.Apply(nextEvent(2, &event.Updated{
		Name:       "Keyboard",
		CategoryID: "electronics",
		Attributes: map[string]string{"layout": "iso"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "iso", again.Attributes["layout"])
	assert.Equal(t, next.Version, again.Version)
}
