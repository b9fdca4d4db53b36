package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/koopa0/shopfront/internal/auth"
	"github.com/koopa0/shopfront/internal/cart"
	"github.com/koopa0/shopfront/internal/command"
	"github.com/koopa0/shopfront/internal/config"
	"github.com/koopa0/shopfront/internal/emailqueue"
	"github.com/koopa0/shopfront/internal/eventlog"
	"github.com/koopa0/shopfront/internal/external"
	"github.com/koopa0/shopfront/internal/httpapi"
	"github.com/koopa0/shopfront/internal/migrations"
	"github.com/koopa0/shopfront/internal/projection"
	"github.com/koopa0/shopfront/internal/ratelimit"
	applogger "github.com/koopa0/shopfront/pkg/logger"
)

const loginRateLimit = 10 // login attempts per 60s window per key

func main() {
	cfg, err := loadConfig("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := applogger.Init(cfg.Log.Level, cfg.Log.Format, "stdout", false); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	logger := slog.Default()

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	pgConfig, err := pgxpool.ParseConfig(cfg.PostgresDSN())
	if err != nil {
		logger.Error("failed to parse postgres config", "error", err)
		os.Exit(1)
	}
	pgConfig.MaxConns = cfg.Postgres.MaxConns
	pgConfig.MinConns = cfg.Postgres.MinConns

	pgPool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	migrator, err := migrations.New(cfg.PostgresDSN(), logger)
	if err != nil {
		logger.Error("failed to create migrator", "error", err)
		os.Exit(1)
	}
	if err := migrator.Up(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	_ = migrator.Close()

	handlers := buildHandlers(pgPool, redisClient, cfg, logger)

	// RecoverDueSet rebuilds the Redis scheduling accelerant from the
	// Postgres ledger on startup, since Redis holds no durable guarantee.
	if err := handlers.Emails.RecoverDueSet(ctx); err != nil {
		logger.Error("failed to recover email due set", "error", err)
	}

	emailCtx, stopEmails := context.WithCancel(context.Background())
	go handlers.Emails.Run(emailCtx)

	server := httpapi.NewServer(handlers, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		handlers.Carts.Stop()
		stopEmails()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server", "error", err)
			if closeErr := srv.Close(); closeErr != nil {
				logger.Error("failed to force close server", "error", closeErr)
			}
		}
	}

	logger.Info("server stopped")
}

// buildHandlers wires every collaborator command.Handlers needs: the event
// log and projections over Postgres, the cart actor registry, the email
// retry queue over Postgres+Redis, the login rate limiter over Redis, and
// the auth token/signing components — composed explicitly rather than
// through ambient globals.
func buildHandlers(pool *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, logger *slog.Logger) *command.Handlers {
	log := eventlog.New(pool)
	productProj := projection.NewProductProjection(pool)
	orderProj := projection.NewOrderProjection(pool)
	userProj := projection.NewUserProjection(pool)
	query := projection.NewQuery(pool)

	carts := cart.NewManager(query, logger)
	payment := external.NewMockPaymentGateway()
	emailSvc := external.NewMockEmailService()
	images := external.NewMockImageRepository(cfg.App.ObjectStoreBaseURL)
	emails := emailqueue.New(pool, rdb, emailSvc, logger)

	tokens := auth.NewTokenStore(pool)
	signer := auth.NewSigner(cfg.JWTSecretValue())
	loginLimit := ratelimit.New(rdb, loginRateLimit, 60)

	handlerCfg := command.Config{
		PaymentTimeout:     cfg.Payment.Timeout,
		ConvenienceCodeTTL: cfg.Payment.ConvenienceCodeTTL,
		AccessTokenTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL:    cfg.Auth.RefreshTokenTTL,
		PasswordResetTTL:   cfg.Auth.PasswordResetTTL,
		EmailVerifyTTL:     cfg.Auth.EmailVerifyTTL,
		LockoutThreshold:   cfg.Auth.LockoutThreshold,
		LockoutDuration:    cfg.Auth.LockoutDuration,
		ShippingFeeCOD:     300,
	}

	return command.New(log, productProj, orderProj, userProj, query, carts, emails, payment, images, tokens, signer, loginLimit, handlerCfg, logger)
}

func loadConfig(path string) (*config.Config, error) {
	// #nosec G304 - path is a hardcoded configuration file path, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

