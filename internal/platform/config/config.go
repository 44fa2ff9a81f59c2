// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file is
loaded first (when present) through 'joho/godotenv' so that development setups
do not need to export every variable by hand.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Signer, Mailer) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Configuration Schema

// Mail provider identifiers accepted by MAIL_PROVIDER.
const (
	MailProviderLog  = "log"
	MailProviderSMTP = "smtp"
)

// Config holds all runtime configuration for the Gatekeeper API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Counter Store (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// StoreTimeout bounds every single counter-store and account-store call.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"2s"`

	// Token signing. Each token class has its own secret and lifetime.
	Tokens TokenConfig `envPrefix:"JWT_"`

	// Per-client request budget.
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`

	// Outbound mail delivery
	Mail MailConfig `envPrefix:"MAIL_"`

	// Cross-Origin Resource Sharing
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// TrustProxyHeaders lets X-Real-IP / X-Forwarded-For pick the rate-limit key.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
}

// TokenConfig holds the signer secrets and expiration policy.
type TokenConfig struct {
	AccessSecret  string        `env:"ACCESS_SECRET,required"`
	RefreshSecret string        `env:"REFRESH_SECRET,required"`
	AccessTTL     time.Duration `env:"ACCESS_TTL"  envDefault:"15m"`
	RefreshTTL    time.Duration `env:"REFRESH_TTL" envDefault:"168h"`
}

// RateLimitConfig holds the fixed-window budget applied per client address.
type RateLimitConfig struct {
	Max    int           `env:"MAX"    envDefault:"15"`
	Window time.Duration `env:"WINDOW" envDefault:"60s"`
}

// MailConfig selects and configures the mail delivery backend.
type MailConfig struct {
	Provider      string  `env:"PROVIDER"        envDefault:"log"`
	From          string  `env:"FROM"            envDefault:"Fugal Labs <no-reply@fugallabs.dev>"`
	SMTPHost      string  `env:"SMTP_HOST"`
	SMTPPort      int     `env:"SMTP_PORT"       envDefault:"587"`
	SMTPUser      string  `env:"SMTP_USER"`
	SMTPPassword  string  `env:"SMTP_PASSWORD"`
	RatePerSecond float64 `env:"RATE_PER_SECOND" envDefault:"5"`
	Burst         int     `env:"BURST"           envDefault:"10"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// A missing .env file is the normal case outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env file: %w", err)
	}

	return Parse()
}

// Parse maps the current process environment into a validated [Config].
func Parse() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Tokens.AccessSecret) == "" || strings.TrimSpace(c.Tokens.RefreshSecret) == "" {
		return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if c.Tokens.AccessSecret == c.Tokens.RefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	if c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if c.Tokens.AccessTTL >= c.Tokens.RefreshTTL {
		return errors.New("config: access token lifetime must be shorter than refresh token lifetime")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("config: STORE_TIMEOUT must be positive")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("config: RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}

	switch c.Mail.Provider {
	case MailProviderLog:
	case MailProviderSMTP:
		if c.Mail.SMTPHost == "" || c.Mail.SMTPUser == "" {
			return errors.New("config: MAIL_SMTP_HOST and MAIL_SMTP_USER are required for the smtp provider")
		}
	default:
		return fmt.Errorf("config: unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
