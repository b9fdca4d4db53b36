// Package command implements the write-path command handlers: identify →
// load → decide → append → project → notify. Each handler composes the
// event log, the aggregate replay functions, the read-model projections,
// and the external collaborators with an ordering and failure semantics
// that are contracts, not suggestions.
package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/koopa0/shopfront/internal/auth"
	"github.com/koopa0/shopfront/internal/cart"
	"github.com/koopa0/shopfront/internal/emailqueue"
	"github.com/koopa0/shopfront/internal/eventlog"
	"github.com/koopa0/shopfront/internal/external"
	"github.com/koopa0/shopfront/internal/projection"
	"github.com/koopa0/shopfront/internal/ratelimit"
)

// Config is the explicit set of tunables command handlers need — no
// ambient globals.
type Config struct {
	PaymentTimeout      time.Duration
	ConvenienceCodeTTL  time.Duration
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	PasswordResetTTL    time.Duration
	EmailVerifyTTL      time.Duration
	LockoutThreshold    int
	LockoutDuration     time.Duration
	ShippingFeeCOD      int
}

func DefaultConfig() Config {
	return Config{
		PaymentTimeout:     30 * time.Second,
		ConvenienceCodeTTL: 72 * time.Hour,
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    30 * 24 * time.Hour,
		PasswordResetTTL:   time.Hour,
		EmailVerifyTTL:     24 * time.Hour,
		LockoutThreshold:   5,
		LockoutDuration:    15 * time.Minute,
		ShippingFeeCOD:     300,
	}
}

// Handlers holds every collaborator a command handler may need, passed in
// explicitly at construction time.
type Handlers struct {
	Log         *eventlog.EventLog
	ProductProj *projection.ProductProjection
	OrderProj   *projection.OrderProjection
	UserProj    *projection.UserProjection
	Query       *projection.Query
	Carts       *cart.Manager
	Emails      *emailqueue.Queue
	Payment     external.PaymentGateway
	Images      external.ImageRepository
	Tokens      *auth.TokenStore
	Signer      *auth.Signer
	LoginLimit  *ratelimit.Limiter
	Cfg         Config
	Logger      *slog.Logger
}

func New(
	log *eventlog.EventLog,
	productProj *projection.ProductProjection,
	orderProj *projection.OrderProjection,
	userProj *projection.UserProjection,
	query *projection.Query,
	carts *cart.Manager,
	emails *emailqueue.Queue,
	payment external.PaymentGateway,
	images external.ImageRepository,
	tokens *auth.TokenStore,
	signer *auth.Signer,
	loginLimit *ratelimit.Limiter,
	cfg Config,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		Log: log, ProductProj: productProj, OrderProj: orderProj, UserProj: userProj,
		Query: query, Carts: carts, Emails: emails, Payment: payment, Images: images,
		Tokens: tokens, Signer: signer, LoginLimit: loginLimit, Cfg: cfg, Logger: logger,
	}
}

// Ping reports whether the event log's Postgres and the email queue's
// Redis are reachable, for HTTP readiness checks.
func (h *Handlers) Ping(ctx context.Context) error {
	if err := h.Query.Ping(ctx); err != nil {
		return err
	}
	return h.Emails.Ping(ctx)
}
