package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/shopfront/internal/domain/order"
	"github.com/koopa0/shopfront/internal/eventlog"
)

type OrderProjection struct {
	pool *pgxpool.Pool
}

func NewOrderProjection(pool *pgxpool.Pool) *OrderProjection {
	return &OrderProjection{pool: pool}
}

func (p *OrderProjection) Apply(ctx context.Context, e eventlog.Event) error {
	switch e.EventType {
	case order.EventCreated:
		var payload order.CreatedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		itemsJSON, _ := json.Marshal(payload.Items)
		_, err := p.pool.Exec(ctx,
			`INSERT INTO orders_rm (id, customer_id, items, shipping_address, payment_method, subtotal, shipping_fee, total, status, version, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, now(), now())
			 ON CONFLICT (id) DO NOTHING`,
			e.AggregateID, payload.CustomerID, itemsJSON, payload.ShippingAddress, payload.PaymentMethod,
			payload.Subtotal, payload.ShippingFee, payload.Total, order.StatusAccepted, e.Version,
		)
		return err

	case order.EventPaymentCompleted:
		var payload order.PaymentCompletedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		return p.update(ctx,
			`UPDATE orders_rm SET transaction_id=$1, version=$2, updated_at=now() WHERE id=$3`,
			payload.TransactionID, e.Version, e.AggregateID)

	case order.EventConvenienceStorePaymentIssued:
		var payload order.ConvenienceStorePaymentIssuedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		return p.update(ctx,
			`UPDATE orders_rm SET payment_code=$1, payment_expires_at=$2, version=$3, updated_at=now() WHERE id=$4`,
			payload.PaymentCode, payload.ExpiresAt, e.Version, e.AggregateID)

	case order.EventShipped:
		return p.update(ctx,
			`UPDATE orders_rm SET status=$1, version=$2, updated_at=now() WHERE id=$3`,
			order.StatusShipped, e.Version, e.AggregateID)

	case order.EventCompleted:
		return p.update(ctx,
			`UPDATE orders_rm SET status=$1, version=$2, updated_at=now() WHERE id=$3`,
			order.StatusCompleted, e.Version, e.AggregateID)

	case order.EventCancelled:
		return p.update(ctx,
			`UPDATE orders_rm SET status=$1, version=$2, updated_at=now() WHERE id=$3`,
			order.StatusCancelled, e.Version, e.AggregateID)

	case order.EventRefundCompleted:
		// No-op for the order row — refund state lives on the aggregate
		// (replayed from the log), not on the read model.
		return nil
	}

	return nil
}

func (p *OrderProjection) update(ctx context.Context, sql string, args ...any) error {
	_, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("order projection update: %w", err)
	}
	return nil
}
