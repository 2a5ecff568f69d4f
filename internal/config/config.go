package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server       ServerConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Booking      BookingConfig
	Availability AvailabilityConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Telegram     TelegramConfig
	Log          LogConfig

	// Location is resolved from App.Timezone by New.
	Location *time.Location `ignored:"true"`
	App      AppConfig
}

type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"localhost"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"5s"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
}

type PostgresConfig struct {
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Name     string `envconfig:"POSTGRES_DB"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxConns int32  `envconfig:"POSTGRES_MAX_CONNS" default:"0"`
	Migrate  bool   `envconfig:"POSTGRES_MIGRATE" default:"true"`
}

func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	// Addr empty disables the cache, event fan-out, idempotency and rate
	// limiting.
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6380"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type AppConfig struct {
	Timezone string `envconfig:"APP_TIMEZONE" default:"Local"`
}

type BookingConfig struct {
	TxAttempts     int           `envconfig:"BOOKING_TX_ATTEMPTS" default:"3"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"2h"`
}

type AvailabilityConfig struct {
	CacheTTL          time.Duration `envconfig:"AVAILABILITY_CACHE_TTL" default:"30s"`
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"10m"`
	ReconcileHorizon  int           `envconfig:"RECONCILE_HORIZON_DAYS" default:"90"`
}

type RateLimitConfig struct {
	PublicBookings int           `envconfig:"RATE_LIMIT_PUBLIC_BOOKINGS" default:"10"`
	Window         time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

type CORSConfig struct {
	AllowOrigins []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	MaxAge       time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type TelegramConfig struct {
	BotToken     string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	APIURL       string  `envconfig:"TELEGRAM_API_URL" default:"https://api.telegram.org"`
	AdminChatIDs []int64 `envconfig:"TELEGRAM_ADMIN_CHAT_IDS"`
}

func (c TelegramConfig) Enabled() bool { return c.BotToken != "" && len(c.AdminChatIDs) > 0 }

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// SlogLevel maps LOG_LEVEL onto slog; unknown values mean info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New loads .env if present, then the process environment.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid APP_TIMEZONE: %w", op, err)
	}
	cfg.Location = loc

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.User == "" {
			return fmt.Errorf("missing POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			return fmt.Errorf("missing POSTGRES_PASSWORD")
		}
		if c.Postgres.Name == "" {
			return fmt.Errorf("missing POSTGRES_DB")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER %q: want %s or %s", c.Storage.Driver, DriverPostgres, DriverMemory)
	}

	if c.Booking.TxAttempts < 1 {
		return fmt.Errorf("BOOKING_TX_ATTEMPTS must be at least 1")
	}
	if c.Availability.ReconcileInterval < 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must not be negative")
	}
	if c.Availability.ReconcileHorizon < 0 {
		return fmt.Errorf("RECONCILE_HORIZON_DAYS must not be negative")
	}
	if c.RateLimit.PublicBookings < 1 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_PUBLIC_BOOKINGS and RATE_LIMIT_WINDOW must be positive")
	}

	return nil
}
