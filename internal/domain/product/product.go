// Package product implements the Product aggregate: replay rules, state
// machine invariants, and the event variants that drive them.
package product

import (
	"encoding/json"
	"time"

	"github.com/koopa0/shopfront/internal/eventlog"
)

const maxImages = 10

type Status string

const (
	StatusPublished   Status = "PUBLISHED"
	StatusUnpublished Status = "UNPUBLISHED"
)

type StockStatus string

const (
	StockStatusInStock    StockStatus = "IN_STOCK"
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
)

// Product is the replayed aggregate state.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int // minor units, non-negative
	CategoryID  string
	Stock       int
	Status      Status
	ImageURLs   []string
	Version     int

	exists bool
}

// Exists reports whether any event has been applied (vs. a fresh, never
// created aggregate).
func (p *Product) Exists() bool { return p.exists }

// StockStatus is derived, never stored directly.
func (p *Product) StockStatus() StockStatus {
	if p.Stock > 0 {
		return StockStatusInStock
	}
	return StockStatusOutOfStock
}

// Event variant payloads. Each is the typed shape of Event.Payload for its
// EventType; Event.Extra still carries any fields a future version adds
// that this binary doesn't know about.
type CreatedPayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int      `json:"price"`
	CategoryID  string   `json:"category_id"`
	Stock       int      `json:"stock"`
	ImageURLs   []string `json:"image_urls"`
}

type UpdatedPayload struct {
	Changes map[string]any `json:"changes"`
}

type StockUpdatedPayload struct {
	Qty int `json:"qty"`
}

type StockDecreasedPayload struct {
	Qty     int    `json:"qty"`
	OrderID string `json:"order_id"`
}

type StockIncreasedPayload struct {
	Qty     int    `json:"qty"`
	OrderID string `json:"order_id"`
}

type ImageAssociatedPayload struct {
	URL string `json:"url"`
}

const (
	EventCreated          = "ProductCreated"
	EventUpdated          = "ProductUpdated"
	EventDeleted          = "ProductDeleted"
	EventStockUpdated     = "StockUpdated"
	EventStockDecreased   = "StockDecreased"
	EventStockIncreased   = "StockIncreased"
	EventImageAssociated  = "ProductImageAssociated"
)

// New returns an empty aggregate ready for replay.
func New(id string) *Product {
	return &Product{ID: id}
}

// Apply folds a single event into the aggregate. Replay never fails on an
// invalid transition — events are ground truth; invalid transitions are
// only ever raised by new commands, never discovered during replay.
func (p *Product) Apply(e eventlog.Event) {
	switch e.EventType {
	case EventCreated:
		var payload CreatedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		p.Name = payload.Name
		p.Description = payload.Description
		p.Price = payload.Price
		p.CategoryID = payload.CategoryID
		p.Stock = payload.Stock
		p.Status = StatusPublished
		p.ImageURLs = clampImages(payload.ImageURLs)
		p.exists = true

	case EventUpdated:
		var payload UpdatedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		applyChanges(p, payload.Changes)

	case EventDeleted:
		p.Status = StatusUnpublished

	case EventStockUpdated:
		var payload StockUpdatedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		p.Stock = max(0, payload.Qty)

	case EventStockDecreased:
		var payload StockDecreasedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		p.Stock = max(0, p.Stock-payload.Qty)

	case EventStockIncreased:
		var payload StockIncreasedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		p.Stock += payload.Qty

	case EventImageAssociated:
		var payload ImageAssociatedPayload
		_ = json.Unmarshal(e.Payload, &payload)
		// Past the 10-image ceiling, replay silently drops the image so
		// historical over-grown state never fails rehydration; the
		// command surface is what enforces IMAGE_LIMIT_EXCEEDED.
		if len(p.ImageURLs) < maxImages {
			p.ImageURLs = append(p.ImageURLs, payload.URL)
		}
	}

	p.Version = e.Version
}

func applyChanges(p *Product, changes map[string]any) {
	if v, ok := changes["name"].(string); ok {
		p.Name = v
	}
	if v, ok := changes["description"].(string); ok {
		p.Description = v
	}
	if v, ok := changes["price"].(float64); ok {
		p.Price = int(v)
	}
	if v, ok := changes["category_id"].(string); ok {
		p.CategoryID = v
	}
}

func clampImages(urls []string) []string {
	if len(urls) > maxImages {
		return urls[:maxImages]
	}
	return urls
}

// LoadFromEvents replays a full ordered event sequence.
func LoadFromEvents(id string, events []eventlog.Event) *Product {
	p := New(id)
	for _, e := range events {
		p.Apply(e)
	}
	return p
}

// CreatedAt is tracked separately from replay since the event envelope
// already carries created_at for the first event; kept here for read-model
// convenience when a caller wants it without a second query.
func CreatedAtFromEvents(events []eventlog.Event) time.Time {
	if len(events) == 0 {
		return time.Time{}
	}
	return events[0].CreatedAt
}
