package product

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/shopfront/internal/eventlog"
)

func mustPayload(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func createdEvent(t *testing.T, stock int, images []string) eventlog.Event {
	return eventlog.Event{
		EventType: EventCreated,
		Version:   0,
		Payload: mustPayload(t, CreatedPayload{
			Name: "Widget", Description: "a widget", Price: 100,
			CategoryID: "cat_1", Stock: stock, ImageURLs: images,
		}),
	}
}

func TestStock_ClampsAtZeroOnReplay(t *testing.T) {
	events := []eventlog.Event{
		createdEvent(t, 2, nil),
		{EventType: EventStockDecreased, Version: 1, Payload: mustPayload(t, StockDecreasedPayload{Qty: 5, OrderID: "o1"})},
	}

	p := LoadFromEvents("p1", events)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, StockStatusOutOfStock, p.StockStatus())
}

func TestStock_IncreaseNeverClamps(t *testing.T) {
	events := []eventlog.Event{
		createdEvent(t, 0, nil),
		{EventType: EventStockIncreased, Version: 1, Payload: mustPayload(t, StockIncreasedPayload{Qty: 3, OrderID: "o1"})},
	}

	p := LoadFromEvents("p1", events)
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, StockStatusInStock, p.StockStatus())
}

func TestImages_ClampedAtTenOnCreate(t *testing.T) {
	urls := make([]string, 15)
	for i := range urls {
		urls[i] = "http://img/" + string(rune('a'+i))
	}

	p := LoadFromEvents("p1", []eventlog.Event{createdEvent(t, 1, urls)})
	assert.Len(t, p.ImageURLs, maxImages)
}

func TestImages_SilentlyDroppedPastLimitOnReplay(t *testing.T) {
	urls := make([]string, maxImages)
	events := []eventlog.Event{createdEvent(t, 1, urls)}
	events = append(events, eventlog.Event{
		EventType: EventImageAssociated, Version: 1,
		Payload: mustPayload(t, ImageAssociatedPayload{URL: "http://img/overflow"}),
	})

	p := LoadFromEvents("p1", events)
	assert.Len(t, p.ImageURLs, maxImages)
}

func TestDelete_UnpublishesWithoutClearingState(t *testing.T) {
	events := []eventlog.Event{
		createdEvent(t, 5, nil),
		{EventType: EventDeleted, Version: 1},
	}

	p := LoadFromEvents("p1", events)
	assert.Equal(t, StatusUnpublished, p.Status)
	assert.Equal(t, 5, p.Stock)
}

func TestUpdate_AppliesOnlyKnownFields(t *testing.T) {
	events := []eventlog.Event{
		createdEvent(t, 5, nil),
		{EventType: EventUpdated, Version: 1, Payload: mustPayload(t, UpdatedPayload{
			Changes: map[string]any{"name": "New Name", "price": float64(200), "unknown_field": "ignored"},
		})},
	}

	p := LoadFromEvents("p1", events)
	assert.Equal(t, "New Name", p.Name)
	assert.Equal(t, 200, p.Price)
}

func TestExists_FalseBeforeAnyEvent(t *testing.T) {
	p := LoadFromEvents("p1", nil)
	assert.False(t, p.Exists())
}
