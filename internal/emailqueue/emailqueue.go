// Package emailqueue is the self-managed retry queue for outbound
// transactional email. Enqueue is idempotent by (orderId, emailType); the
// Postgres ledger table is the durable source of truth for attempt counts
// and idempotency, while a Redis sorted set keyed by due-time is a
// scheduling accelerant the worker can rebuild from the ledger at any
// time. Host-platform automatic redelivery must stay disabled — retries
// are entirely driven by the ledger's attempt_count, or MAX_ATTEMPTS is
// meaningless.
package emailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/koopa0/shopfront/internal/external"
)

const (
	MaxAttempts  = 3
	RetryDelay   = 30 * time.Minute
	dueSetKey    = "emailqueue:due"
	pollInterval = 10 * time.Second
)

type EmailType string

const (
	TypeOrderConfirmation EmailType = "ORDER_CONFIRMATION"
	TypeRefundNotification EmailType = "REFUND_NOTIFICATION"
)

// OrderConfirmationParams / RefundNotificationParams carry exactly what the
// consumer needs to retry a send without re-deriving it from other state.
type OrderConfirmationParams struct {
	OrderID  string `json:"order_id"`
	ToEmail  string `json:"to_email"`
	Total    int    `json:"total"`
}

type RefundNotificationParams struct {
	OrderID string `json:"order_id"`
	ToEmail string `json:"to_email"`
	Amount  int    `json:"amount"`
}

// Queue is the producer + consumer. Producer methods are called from
// command handlers; Run drives the consumer loop.
type Queue struct {
	pool    *pgxpool.Pool
	redis   *redis.Client
	email   external.EmailService
	logger  *slog.Logger
}

func New(pool *pgxpool.Pool, rdb *redis.Client, email external.EmailService, logger *slog.Logger) *Queue {
	return &Queue{pool: pool, redis: rdb, email: email, logger: logger}
}

// Ping checks both the ledger store and the scheduling accelerant, for
// readiness probes.
func (q *Queue) Ping(ctx context.Context) error {
	if err := q.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := q.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// EnqueueOrderConfirmation is idempotent by (orderId, emailType): a second
// call for the same order is a no-op.
func (q *Queue) EnqueueOrderConfirmation(ctx context.Context, params OrderConfirmationParams) error {
	return q.enqueue(ctx, params.OrderID, TypeOrderConfirmation, params.ToEmail, params)
}

func (q *Queue) EnqueueRefundNotification(ctx context.Context, params RefundNotificationParams) error {
	return q.enqueue(ctx, params.OrderID, TypeRefundNotification, params.ToEmail, params)
}

func (q *Queue) enqueue(ctx context.Context, orderID string, emailType EmailType, toEmail string, params any) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal email params: %w", err)
	}

	id := uuid.NewString()
	tag, err := q.pool.Exec(ctx,
		`INSERT INTO email_send_attempts (id, order_id, email_type, to_email, payload, attempt_count, status, created_at, next_attempt_at)
		 VALUES ($1,$2,$3,$4,$5,0,'pending', now(), now())
		 ON CONFLICT (order_id, email_type) DO NOTHING`,
		id, orderID, emailType, toEmail, payload,
	)
	if err != nil {
		return fmt.Errorf("insert email ledger row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil // already enqueued — idempotent no-op
	}

	if q.redis != nil {
		if err := q.redis.ZAdd(ctx, dueSetKey, redis.Z{Score: 0, Member: id}).Err(); err != nil {
			q.log().Warn("failed to schedule email in redis, recovery worker will pick it up", "error", err)
		}
	}
	return nil
}

func (q *Queue) log() *slog.Logger {
	if q.logger != nil {
		return q.logger
	}
	return slog.Default()
}

// ledgerRow mirrors email_send_attempts for the consumer loop.
type ledgerRow struct {
	ID            string
	OrderID       string
	EmailType     EmailType
	ToEmail       string
	Payload       []byte
	AttemptCount  int
}

// RecoverDueSet rebuilds the Redis due-set from the Postgres ledger, so a
// Redis restart never loses a retry permanently — the ledger remains the
// source of truth.
func (q *Queue) RecoverDueSet(ctx context.Context) error {
	if q.redis == nil {
		return nil
	}
	rows, err := q.pool.Query(ctx,
		`SELECT id, extract(epoch from next_attempt_at) FROM email_send_attempts WHERE status='pending'`)
	if err != nil {
		return fmt.Errorf("query pending email rows: %w", err)
	}
	defer rows.Close()

	var members []redis.Z
	for rows.Next() {
		var id string
		var dueAt float64
		if err := rows.Scan(&id, &dueAt); err != nil {
			return err
		}
		members = append(members, redis.Z{Score: dueAt, Member: id})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	return q.redis.ZAdd(ctx, dueSetKey, members...).Err()
}

// Run drives the consumer loop until ctx is cancelled: pop due work,
// attempt send, record outcome, self-manage retry.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.drainDue(ctx)
		}
	}
}

func (q *Queue) drainDue(ctx context.Context) {
	if q.redis == nil {
		return
	}
	now := float64(time.Now().Unix())
	ids, err := q.redis.ZRangeByScore(ctx, dueSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%f", now)}).Result()
	if err != nil {
		q.log().Error("poll due email set", "error", err)
		return
	}
	for _, id := range ids {
		q.redis.ZRem(ctx, dueSetKey, id)
		if err := q.process(ctx, id); err != nil {
			q.log().Error("process email ledger row", "id", id, "error", err)
		}
	}
}

func (q *Queue) process(ctx context.Context, id string) error {
	row, err := q.loadRow(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	sendErr := q.send(ctx, row)
	if sendErr == nil {
		_, err := q.pool.Exec(ctx, `UPDATE email_send_attempts SET status='sent' WHERE id=$1`, id)
		return err
	}

	newCount := row.AttemptCount + 1
	if newCount < MaxAttempts {
		nextAttempt := time.Now().Add(RetryDelay)
		_, err := q.pool.Exec(ctx,
			`UPDATE email_send_attempts SET attempt_count=$1, last_error=$2, next_attempt_at=$3 WHERE id=$4`,
			newCount, sendErr.Error(), nextAttempt, id)
		if err != nil {
			return err
		}
		if q.redis != nil {
			_ = q.redis.ZAdd(ctx, dueSetKey, redis.Z{Score: float64(nextAttempt.Unix()), Member: id}).Err()
		}
		return nil
	}

	_, err = q.pool.Exec(ctx,
		`UPDATE email_send_attempts SET attempt_count=$1, last_error=$2, status='failed' WHERE id=$3`,
		newCount, sendErr.Error(), id)
	if err == nil {
		q.log().Error("email send permanently failed", "id", id, "order_id", row.OrderID, "email_type", row.EmailType, "error", sendErr)
	}
	return err
}

func (q *Queue) loadRow(ctx context.Context, id string) (ledgerRow, error) {
	var row ledgerRow
	err := q.pool.QueryRow(ctx,
		`SELECT id, order_id, email_type, to_email, payload, attempt_count FROM email_send_attempts WHERE id=$1`, id,
	).Scan(&row.ID, &row.OrderID, &row.EmailType, &row.ToEmail, &row.Payload, &row.AttemptCount)
	return row, err
}

func (q *Queue) send(ctx context.Context, row ledgerRow) error {
	switch row.EmailType {
	case TypeOrderConfirmation:
		var p OrderConfirmationParams
		if err := json.Unmarshal(row.Payload, &p); err != nil {
			return err
		}
		return q.email.SendOrderConfirmation(ctx, row.ToEmail, p.OrderID, p.Total)
	case TypeRefundNotification:
		var p RefundNotificationParams
		if err := json.Unmarshal(row.Payload, &p); err != nil {
			return err
		}
		return q.email.SendRefundNotification(ctx, row.ToEmail, p.OrderID, p.Amount)
	default:
		return fmt.Errorf("unknown email type %q", row.EmailType)
	}
}
