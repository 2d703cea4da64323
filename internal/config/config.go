// Package config loads service configuration from the environment.
// A .env file in the working directory is honoured when present.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"dev"`
	Storage string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	HTTP      HTTPConfig
	DB        DBConfig
	Redis     RedisConfig
	Stats     StatsConfig
	Rabbit    RabbitConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type HTTPConfig struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DBConfig holds PostgreSQL connection settings. DATABASE_URL wins over the
// individual DB_* variables.
type DBConfig struct {
	URL             string        `env:"DATABASE_URL"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name            string        `env:"DB_NAME" envDefault:"ewm"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	ConnectAttempts int           `env:"DB_CONNECT_ATTEMPTS" envDefault:"5"`
	ConnectBackoff  time.Duration `env:"DB_CONNECT_BACKOFF" envDefault:"2s"`
	Migrate         bool          `env:"DB_MIGRATE" envDefault:"true"`
}

// DSN builds a postgres URL, escaping credentials.
func (c DBConfig) DSN() string {
	if strings.TrimSpace(c.URL) != "" {
		return c.URL
	}
	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig configures the directory cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"DIRECTORY_CACHE_TTL" envDefault:"10m"`
}

type StatsConfig struct {
	URL     string        `env:"STATS_SERVER_URL" envDefault:"http://localhost:9090"`
	App     string        `env:"STATS_APP_NAME" envDefault:"ewm-main-service"`
	Timeout time.Duration `env:"STATS_TIMEOUT" envDefault:"3s"`
}

// RabbitConfig configures notifications. An empty URL selects the no-op publisher.
type RabbitConfig struct {
	URL      string `env:"RABBITMQ_URL"`
	Exchange string `env:"RABBITMQ_EXCHANGE" envDefault:"ewm.events"`
}

type RateLimitConfig struct {
	Enabled bool          `env:"RL_ENABLED" envDefault:"true"`
	Limit   int           `env:"RL_REQUESTS_LIMIT" envDefault:"100"`
	Window  time.Duration `env:"RL_WINDOW" envDefault:"1m"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q (want %s or %s)", c.Storage, StoragePostgres, StorageMemory)
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.HTTP.Port)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit < 1 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit requires RL_REQUESTS_LIMIT >= 1 and RL_WINDOW > 0")
	}
	if c.DB.ConnectAttempts < 1 {
		return fmt.Errorf("DB_CONNECT_ATTEMPTS must be >= 1")
	}
	if c.AppEnv != "dev" && c.Storage == StorageMemory {
		return fmt.Errorf("STORAGE_DRIVER=memory is only allowed when APP_ENV=dev")
	}
	return nil
}
