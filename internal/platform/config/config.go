// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Domain services receive narrow config structs built from it in cmd/api.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Warden API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis). Empty disables caching.
	RedisURL string `env:"REDIS_URL"`

	// Token signing
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET,required,notEmpty"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET,required,notEmpty"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Cookie and CSRF protection
	CookieSecret string `env:"COOKIE_SECRET,required,notEmpty"`
	CSRFSecret   string `env:"CSRF_SECRET"  envDefault:"defaultValCSRF"`
	UseCSRF      bool   `env:"USE_CSRF"     envDefault:"true"`

	// Password hashing work factor
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	// Email verification links
	EmailLinkKey string `env:"EMAIL_LINK_KEY,required"`
	LinkProtocol string `env:"LINK_PROTOCOL" envDefault:"http"`
	LinkDomain   string `env:"LINK_DOMAIN"   envDefault:"localhost"`
	LinkPort     string `env:"LINK_PORT"`
	WebsiteName  string `env:"WEBSITE_NAME"  envDefault:"Warden"`
	FrontendURL  string `env:"FRONTEND_URL"`

	// Outbound email (SMTP)
	SMTPHost     string `env:"SMTP_HOST"     envDefault:"localhost"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"     envDefault:"no-reply@warden.local"`

	// Object Storage (Cloudflare R2 / S3-compatible) for avatars
	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION"   envDefault:"auto"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3PublicURL       string `env:"S3_PUBLIC_URL"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`

	// Per-IP rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"100"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"150"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field and format constraints that struct tags cannot express.
func (c *Config) Validate() error {
	key, err := hex.DecodeString(c.EmailLinkKey)
	if err != nil || len(key) != 32 {
		return errors.New("config: EMAIL_LINK_KEY must be 64 hex characters (32 bytes)")
	}

	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= c.AccessTokenTTL {
		return errors.New("config: REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("config: BCRYPT_COST %d out of range [4, 31]", c.BcryptCost)
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

// CacheEnabled reports whether a Redis URL was provided.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

// StorageEnabled reports whether avatar uploads have a bucket to write to.
func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != ""
}
