// Package config loads the application's runtime configuration into one
// explicit struct passed at call time — there is no ambient global state.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the whole application's configuration.
type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Redis struct {
		Addr         string        `yaml:"addr"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size"`
		MinIdleConns int           `yaml:"min_idle_conns"`
		MaxRetries   int           `yaml:"max_retries"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"redis"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		MaxConns int32  `yaml:"max_conns"`
		MinConns int32  `yaml:"min_conns"`
	} `yaml:"postgres"`

	Auth struct {
		JWTSecret          string        `yaml:"jwt_secret"`
		AccessTokenTTL     time.Duration `yaml:"access_token_ttl"`
		RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl"`
		PasswordResetTTL   time.Duration `yaml:"password_reset_ttl"`
		EmailVerifyTTL     time.Duration `yaml:"email_verify_ttl"`
		LockoutThreshold   int           `yaml:"lockout_threshold"`
		LockoutDuration    time.Duration `yaml:"lockout_duration"`
	} `yaml:"auth"`

	Payment struct {
		ProviderAPIKey    string        `yaml:"provider_api_key"`
		Timeout           time.Duration `yaml:"timeout"`
		ConvenienceCodeTTL time.Duration `yaml:"convenience_code_ttl"`
	} `yaml:"payment"`

	Email struct {
		ProviderAPIKey string `yaml:"provider_api_key"`
		FromAddress    string `yaml:"from_address"`
		MaxAttempts    int    `yaml:"max_attempts"`
		RetryDelay     time.Duration `yaml:"retry_delay"`
	} `yaml:"email"`

	App struct {
		BaseURL           string `yaml:"base_url"`
		ObjectStoreBaseURL string `yaml:"object_store_base_url"`
	} `yaml:"app"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// PostgresDSN builds the PostgreSQL connection string, honoring the
// DATABASE_URL environment override common in production deployments.
func (c *Config) PostgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.DBName,
	)
}

// JWTSecretValue honors a JWT_SECRET environment override over the yaml value.
func (c *Config) JWTSecretValue() string {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}
	return c.Auth.JWTSecret
}
