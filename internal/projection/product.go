// Package projection applies domain events to denormalised read-model
// tables kept eventually consistent with the event log. Each projector is
// a total function over its aggregate's event variants: update-in-place,
// no-op when the target row is missing (the log remains authoritative).
package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/shopfront/internal/domain/product"
	"github.com/koopa0/shopfront/internal/eventlog"
)

type ProductProjection struct {
	pool *pgxpool.Pool
}

func NewProductProjection(pool *pgxpool.Pool) *ProductProjection {
	return &ProductProjection{pool: pool}
}

// Apply dispatches a single product event to its read-model update. Stock
// events read current stock then write the clamped value — non-atomic by
// design (see DESIGN.md Open Question 1); this is acceptable because the
// event log remains authoritative on conflict.
func (p *ProductProjection) Apply(ctx context.Context, e eventlog.Event) error {
	switch e.EventType {
	case product.EventCreated:
		var payload product.CreatedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		imagesJSON, _ := json.Marshal(payload.ImageURLs)
		status := product.StockStatusOutOfStock
		if payload.Stock > 0 {
			status = product.StockStatusInStock
		}
		_, err := p.pool.Exec(ctx,
			`INSERT INTO products_rm (id, name, description, price, category_id, stock, stock_status, status, image_urls, version, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now(), now())
			 ON CONFLICT (id) DO NOTHING`,
			e.AggregateID, payload.Name, payload.Description, payload.Price, payload.CategoryID,
			payload.Stock, status, product.StatusPublished, imagesJSON, e.Version,
		)
		return err

	case product.EventUpdated:
		var payload product.UpdatedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		return p.applyChanges(ctx, e.AggregateID, e.Version, payload.Changes)

	case product.EventDeleted:
		return p.noopUpdate(ctx,
			`UPDATE products_rm SET status=$1, version=$2, updated_at=now() WHERE id=$3`,
			product.StatusUnpublished, e.Version, e.AggregateID)

	case product.EventStockUpdated:
		var payload product.StockUpdatedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		return p.writeStock(ctx, e.AggregateID, e.Version, max(0, payload.Qty))

	case product.EventStockDecreased:
		var payload product.StockDecreasedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		current, ok, err := p.currentStock(ctx, e.AggregateID)
		if err != nil || !ok {
			return err
		}
		return p.writeStock(ctx, e.AggregateID, e.Version, max(0, current-payload.Qty))

	case product.EventStockIncreased:
		var payload product.StockIncreasedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		current, ok, err := p.currentStock(ctx, e.AggregateID)
		if err != nil || !ok {
			return err
		}
		return p.writeStock(ctx, e.AggregateID, e.Version, current+payload.Qty)

	case product.EventImageAssociated:
		var payload product.ImageAssociatedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		return p.appendImage(ctx, e.AggregateID, e.Version, payload.URL)
	}

	return nil
}

func (p *ProductProjection) currentStock(ctx context.Context, id string) (int, bool, error) {
	var stock int
	err := p.pool.QueryRow(ctx, `SELECT stock FROM products_rm WHERE id=$1`, id).Scan(&stock)
	if err != nil {
		return 0, false, nil //nolint:nilerr // missing row is a no-op, not a failure
	}
	return stock, true, nil
}

func (p *ProductProjection) writeStock(ctx context.Context, id string, version, stock int) error {
	status := product.StockStatusOutOfStock
	if stock > 0 {
		status = product.StockStatusInStock
	}
	return p.noopUpdate(ctx,
		`UPDATE products_rm SET stock=$1, stock_status=$2, version=$3, updated_at=now() WHERE id=$4`,
		stock, status, version, id)
}

func (p *ProductProjection) appendImage(ctx context.Context, id string, version int, url string) error {
	var imagesJSON []byte
	err := p.pool.QueryRow(ctx, `SELECT image_urls FROM products_rm WHERE id=$1`, id).Scan(&imagesJSON)
	if err != nil {
		return nil //nolint:nilerr // missing row is a no-op
	}
	var urls []string
	_ = json.Unmarshal(imagesJSON, &urls)
	if len(urls) >= 10 {
		return nil
	}
	urls = append(urls, url)
	newJSON, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	return p.noopUpdate(ctx,
		`UPDATE products_rm SET image_urls=$1, version=$2, updated_at=now() WHERE id=$3`,
		newJSON, version, id)
}

func (p *ProductProjection) applyChanges(ctx context.Context, id string, version int, changes map[string]any) error {
	if len(changes) == 0 {
		return p.noopUpdate(ctx, `UPDATE products_rm SET version=$1, updated_at=now() WHERE id=$2`, version, id)
	}
	if name, ok := changes["name"].(string); ok {
		if err := p.noopUpdate(ctx, `UPDATE products_rm SET name=$1 WHERE id=$2`, name, id); err != nil {
			return err
		}
	}
	if desc, ok := changes["description"].(string); ok {
		if err := p.noopUpdate(ctx, `UPDATE products_rm SET description=$1 WHERE id=$2`, desc, id); err != nil {
			return err
		}
	}
	if price, ok := changes["price"].(float64); ok {
		if err := p.noopUpdate(ctx, `UPDATE products_rm SET price=$1 WHERE id=$2`, int(price), id); err != nil {
			return err
		}
	}
	if categoryID, ok := changes["category_id"].(string); ok {
		if err := p.noopUpdate(ctx, `UPDATE products_rm SET category_id=$1 WHERE id=$2`, categoryID, id); err != nil {
			return err
		}
	}
	return p.noopUpdate(ctx, `UPDATE products_rm SET version=$1, updated_at=now() WHERE id=$2`, version, id)
}

// noopUpdate runs an update statement; a missing row is not an error —
// the projection is best-effort and must never fail a command that
// already appended successfully.
func (p *ProductProjection) noopUpdate(ctx context.Context, sql string, args ...any) error {
	_, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("projection update: %w", err)
	}
	return nil
}
