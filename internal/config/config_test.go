package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 3, cfg.Booking.TxAttempts)
	assert.Equal(t, 2*time.Hour, cfg.Booking.IdempotencyTTL)
	assert.Equal(t, 30*time.Second, cfg.Availability.CacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.Availability.ReconcileInterval)
	assert.Equal(t, 90, cfg.Availability.ReconcileHorizon)
	assert.Equal(t, 10, cfg.RateLimit.PublicBookings)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.APIURL)
	assert.False(t, cfg.Telegram.Enabled())
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.Postgres.Migrate)
}

func TestNew_PostgresRequiresCredentials(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "resort")

	_, err := New()
	assert.ErrorContains(t, err, "POSTGRES_USER")
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"driver", map[string]string{"STORAGE_DRIVER": "sqlite"}, "STORAGE_DRIVER"},
		{"attempts", map[string]string{"STORAGE_DRIVER": "memory", "BOOKING_TX_ATTEMPTS": "0"}, "BOOKING_TX_ATTEMPTS"},
		{"timezone", map[string]string{"STORAGE_DRIVER": "memory", "APP_TIMEZONE": "Mars/Olympus"}, "APP_TIMEZONE"},
		{"port", map[string]string{"STORAGE_DRIVER": "memory", "SERVER_PORT": "http"}, "SERVER_PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNew_TelegramChatIDs(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ADMIN_CHAT_IDS", "1001,-2002")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, []int64{1001, -2002}, cfg.Telegram.AdminChatIDs)
	assert.True(t, cfg.Telegram.Enabled())
}

func TestPostgresConfig_DSN(t *testing.T) {
	c := PostgresConfig{User: "app", Password: "p@ss", Name: "resort", Host: "db", Port: 5432, SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/resort?sslmode=disable", c.DSN())
}

func TestLogConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "verbose"}.SlogLevel())
}
