package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/shopfront/internal/domain/user"
	"github.com/koopa0/shopfront/internal/eventlog"
)

type UserProjection struct {
	pool *pgxpool.Pool
}

func NewUserProjection(pool *pgxpool.Pool) *UserProjection {
	return &UserProjection{pool: pool}
}

// Apply updates the write-through `users` table. Password hashes never
// travel through events — they are written directly by the Register and
// ConfirmPasswordReset command handlers, not by this projector.
func (p *UserProjection) Apply(ctx context.Context, e eventlog.Event) error {
	switch e.EventType {
	case user.EventRegistered:
		var payload user.RegisteredPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		role := payload.Role
		if role == "" {
			role = user.RoleCustomer
		}
		_, err := p.pool.Exec(ctx,
			`INSERT INTO users (id, email, name, role, email_verified, failed_login_attempts, version, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,false,0,$5, now(), now())
			 ON CONFLICT (id) DO NOTHING`,
			e.AggregateID, payload.Email, payload.Name, role, e.Version,
		)
		return err

	case user.EventEmailVerified:
		return p.update(ctx,
			`UPDATE users SET email_verified=true, version=$1, updated_at=now() WHERE id=$2`,
			e.Version, e.AggregateID)

	case user.EventLoginFailed:
		return p.update(ctx,
			`UPDATE users SET failed_login_attempts = failed_login_attempts + 1, version=$1, updated_at=now() WHERE id=$2`,
			e.Version, e.AggregateID)

	case user.EventAccountLocked:
		var payload user.AccountLockedPayload
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		return p.update(ctx,
			`UPDATE users SET locked_until=$1, version=$2, updated_at=now() WHERE id=$3`,
			payload.LockedUntil, e.Version, e.AggregateID)

	case user.EventAccountUnlocked:
		return p.update(ctx,
			`UPDATE users SET failed_login_attempts=0, locked_until=NULL, version=$1, updated_at=now() WHERE id=$2`,
			e.Version, e.AggregateID)
	}

	return nil
}

func (p *UserProjection) update(ctx context.Context, sql string, args ...any) error {
	_, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("user projection update: %w", err)
	}
	return nil
}
