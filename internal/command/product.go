package command

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	productdom "github.com/koopa0/shopfront/internal/domain/product"
	"github.com/koopa0/shopfront/internal/eventlog"
	"github.com/koopa0/shopfront/pkg/apperr"
)

const maxProductImages = 10

type CreateProductInput struct {
	Name        string
	Description string
	Price       int
	CategoryID  string
	Stock       int
	ImageURLs   []string
}

// CreateProduct appends ProductCreated at expectedVersion=0 — a fresh
// aggregate identity.
func (h *Handlers) CreateProduct(ctx context.Context, in CreateProductInput) (string, *apperr.Error) {
	productID := uuid.NewString()

	payload, err := json.Marshal(productdom.CreatedPayload{
		Name: in.Name, Description: in.Description, Price: in.Price,
		CategoryID: in.CategoryID, Stock: in.Stock, ImageURLs: in.ImageURLs,
	})
	if err != nil {
		return "", apperr.Internal(err)
	}
	if err := h.Log.Append(ctx, eventlog.AggregateProduct, productID, 0, []eventlog.NewEvent{
		{EventType: productdom.EventCreated, Payload: payload},
	}); err != nil {
		return "", apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: productID, Version: 1, EventType: productdom.EventCreated, Payload: payload}
	if err := h.ProductProj.Apply(ctx, ev); err != nil {
		return "", apperr.Internal(err)
	}
	return productID, nil
}

func (h *Handlers) loadProduct(ctx context.Context, productID string) (*productdom.Product, *apperr.Error) {
	events, err := h.Log.Load(ctx, productID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	p := productdom.LoadFromEvents(productID, events)
	if !p.Exists() || p.Status != productdom.StatusPublished {
		return nil, apperr.New(apperr.CodeProductNotFound, "product not found")
	}
	return p, nil
}

// UpdateProduct appends ProductUpdated with only the provided changes;
// unprovided fields are left untouched on replay per the domain's
// applyChanges semantics.
func (h *Handlers) UpdateProduct(ctx context.Context, productID string, changes map[string]any) *apperr.Error {
	p, appErr := h.loadProduct(ctx, productID)
	if appErr != nil {
		return appErr
	}

	payload, err := json.Marshal(productdom.UpdatedPayload{Changes: changes})
	if err != nil {
		return apperr.Internal(err)
	}
	if err := h.Log.Append(ctx, eventlog.AggregateProduct, productID, p.Version, []eventlog.NewEvent{
		{EventType: productdom.EventUpdated, Payload: payload},
	}); err != nil {
		return apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: productID, Version: p.Version + 1, EventType: productdom.EventUpdated, Payload: payload}
	if err := h.ProductProj.Apply(ctx, ev); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (h *Handlers) DeleteProduct(ctx context.Context, productID string) *apperr.Error {
	p, appErr := h.loadProduct(ctx, productID)
	if appErr != nil {
		return appErr
	}
	if err := h.Log.Append(ctx, eventlog.AggregateProduct, productID, p.Version, []eventlog.NewEvent{
		{EventType: productdom.EventDeleted, Payload: []byte("{}")},
	}); err != nil {
		return apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: productID, Version: p.Version + 1, EventType: productdom.EventDeleted, Payload: []byte("{}")}
	if err := h.ProductProj.Apply(ctx, ev); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (h *Handlers) UpdateStock(ctx context.Context, productID string, qty int) *apperr.Error {
	p, appErr := h.loadProduct(ctx, productID)
	if appErr != nil {
		return appErr
	}
	payload, err := json.Marshal(productdom.StockUpdatedPayload{Qty: qty})
	if err != nil {
		return apperr.Internal(err)
	}
	if err := h.Log.Append(ctx, eventlog.AggregateProduct, productID, p.Version, []eventlog.NewEvent{
		{EventType: productdom.EventStockUpdated, Payload: payload},
	}); err != nil {
		return apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: productID, Version: p.Version + 1, EventType: productdom.EventStockUpdated, Payload: payload}
	if err := h.ProductProj.Apply(ctx, ev); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// AssociateImage enforces IMAGE_LIMIT_EXCEEDED at the command surface — the
// 11th image is rejected here, never silently dropped the way replay
// drops an over-grown historical list.
func (h *Handlers) AssociateImage(ctx context.Context, productID string, data []byte, contentType string) (string, *apperr.Error) {
	p, appErr := h.loadProduct(ctx, productID)
	if appErr != nil {
		return "", appErr
	}
	if len(p.ImageURLs) >= maxProductImages {
		return "", apperr.New(apperr.CodeImageLimitExceeded, "product already has the maximum number of images")
	}

	url, err := h.Images.Upload(ctx, data, contentType, productID)
	if err != nil {
		return "", apperr.Internal(err)
	}

	payload, err := json.Marshal(productdom.ImageAssociatedPayload{URL: url})
	if err != nil {
		return "", apperr.Internal(err)
	}
	if err := h.Log.Append(ctx, eventlog.AggregateProduct, productID, p.Version, []eventlog.NewEvent{
		{EventType: productdom.EventImageAssociated, Payload: payload},
	}); err != nil {
		return "", apperr.Internal(err)
	}
	ev := eventlog.Event{AggregateID: productID, Version: p.Version + 1, EventType: productdom.EventImageAssociated, Payload: payload}
	if err := h.ProductProj.Apply(ctx, ev); err != nil {
		return "", apperr.Internal(err)
	}
	return url, nil
}
