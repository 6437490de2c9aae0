// Package config loads process configuration from the environment so main
// stays lean. Defaults favor local development; production deployments
// override via TAXGATE_* variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr string `env:"TAXGATE_ADDR" envDefault:":8080"`

	// DatabaseURL selects the postgres-backed stores. When empty the server
	// runs on in-memory stores (development and tests only).
	DatabaseURL string `env:"TAXGATE_DATABASE_URL"`

	// RedisURL selects the Redis token denylist. Empty falls back to the
	// in-process denylist, which is correct for a single instance.
	RedisURL string `env:"TAXGATE_REDIS_URL"`

	// JWTSigningKey signs staff access tokens. The default exists so the
	// binary boots in development; override it everywhere else.
	JWTSigningKey string `env:"TAXGATE_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	OTPTTL        time.Duration `env:"TAXGATE_OTP_TTL" envDefault:"5m"`
	TokenTTL      time.Duration `env:"TAXGATE_TOKEN_TTL" envDefault:"8h"`
	SweepInterval time.Duration `env:"TAXGATE_SWEEP_INTERVAL" envDefault:"15m"`

	// SMTPAddr selects the SMTP relay for OTP and alert delivery. When empty
	// messages go to the log instead.
	SMTPAddr     string `env:"TAXGATE_SMTP_ADDR"`
	SMTPFrom     string `env:"TAXGATE_SMTP_FROM" envDefault:"no-reply@taxgate.gov.gh"`
	SMTPUsername string `env:"TAXGATE_SMTP_USERNAME"`
	SMTPPassword string `env:"TAXGATE_SMTP_PASSWORD"`

	// NotifierTimeout bounds the best-effort delivery goroutine so a slow
	// mail relay can never hold a request open.
	NotifierTimeout time.Duration `env:"TAXGATE_NOTIFIER_TIMEOUT" envDefault:"10s"`

	ShutdownTimeout time.Duration `env:"TAXGATE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// FromEnv parses the environment into a Config.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config from env: %w", err)
	}
	return cfg, nil
}
