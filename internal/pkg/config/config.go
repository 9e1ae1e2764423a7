package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Billing   BillingConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
}

type BillingConfig struct {
	URL     string        `env:"BILLING_URL,     default=http://localhost:8000/api/v1"`
	Timeout time.Duration `env:"BILLING_TIMEOUT, default=5s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=study_on"`
}

type RedisConfig struct {
	URL      string `env:"REDIS_URL"`
	Addr     string `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=0"`
}

type SessionConfig struct {
	CookieName string        `env:"SESSION_COOKIE, default=STUDYON_SESSION"`
	TTL        time.Duration `env:"SESSION_TTL,    default=24h"`
	Secure     bool          `env:"SESSION_SECURE, default=false"`
}

// RateLimitConfig throttles the login and register endpoints per client IP.
type RateLimitConfig struct {
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS, default=10"`
	Burst             int `env:"RATE_LIMIT_BURST,    default=5"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Billing.URL = strings.TrimRight(cfg.Billing.URL, "/")
	if cfg.Billing.URL == "" {
		return nil, fmt.Errorf("config: BILLING_URL must not be empty")
	}
	if cfg.Billing.Timeout <= 0 {
		return nil, fmt.Errorf("config: BILLING_TIMEOUT must be positive")
	}
	return &cfg, nil
}

// IsProduction switches to JSON logs and secure cookies.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}
