// Package testutils provides the shared test environment used by
// integration tests: disposable Postgres and Redis containers, migrated
// schema, and small assertion helpers.
package testutils

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/koopa0/shopfront/internal/migrations"
)

// TestEnvironment bundles a migrated Postgres pool and a Redis client
// backed by disposable containers, torn down via t.Cleanup.
type TestEnvironment struct {
	PostgresPool   *pgxpool.Pool
	RedisClient    *redis.Client
	PostgresDSN    string
	RedisAddr      string
	PgContainer    tc.Container
	RedisContainer tc.Container
	Logger         *slog.Logger
}

// SetupTestEnvironment starts Postgres and Redis containers, runs the
// embedded schema migrations, and registers cleanup on t.
func SetupTestEnvironment(t testing.TB) *TestEnvironment {
	t.Helper()

	ctx := context.Background()
	env := &TestEnvironment{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}

	env.setupPostgres(t, ctx)
	env.setupRedis(t, ctx)

	t.Cleanup(env.Cleanup)

	return env
}

func (env *TestEnvironment) setupPostgres(t testing.TB, ctx context.Context) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shopfront_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	env.PgContainer = pgContainer

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	env.PostgresDSN = dsn

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse postgres config: %v", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2

	env.PostgresPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		t.Fatalf("create postgres pool: %v", err)
	}
	if err := env.PostgresPool.Ping(ctx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}

	migrator, err := migrations.New(dsn, env.Logger)
	if err != nil {
		t.Fatalf("create migrator: %v", err)
	}
	defer migrator.Close() //nolint:errcheck
	if err := migrator.Up(); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
}

func (env *TestEnvironment) setupRedis(t testing.TB, ctx context.Context) {
	t.Helper()

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	env.RedisContainer = redisContainer

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("redis endpoint: %v", err)
	}
	env.RedisAddr = endpoint

	env.RedisClient = redis.NewClient(&redis.Options{
		Addr:         endpoint,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := env.RedisClient.Ping(pingCtx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
}

// Cleanup closes clients and terminates both containers. Safe to call
// directly; also registered automatically via t.Cleanup.
func (env *TestEnvironment) Cleanup() {
	ctx := context.Background()

	if env.RedisClient != nil {
		_ = env.RedisClient.Close()
	}
	if env.PostgresPool != nil {
		env.PostgresPool.Close()
	}
	if env.RedisContainer != nil {
		_ = env.RedisContainer.Terminate(ctx)
	}
	if env.PgContainer != nil {
		_ = env.PgContainer.Terminate(ctx)
	}
}

// TruncateAll wipes every domain table between test cases, leaving the
// schema itself intact.
func (env *TestEnvironment) TruncateAll(t testing.TB) {
	t.Helper()

	ctx := context.Background()
	const stmt = `TRUNCATE TABLE domain_events, products_rm, categories_rm,
		orders_rm, users, refresh_tokens, password_reset_tokens,
		email_verification_tokens, email_send_attempts, addresses, wishlists
		RESTART IDENTITY CASCADE`
	if _, err := env.PostgresPool.Exec(ctx, stmt); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	if err := env.RedisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
}
