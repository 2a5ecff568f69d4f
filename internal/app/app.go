package app

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

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/resortbook/internal/config"
	"github.com/kirinyoku/resortbook/internal/metrics"
	"github.com/kirinyoku/resortbook/internal/notify"
	"github.com/kirinyoku/resortbook/internal/pkg/clock"
	"github.com/kirinyoku/resortbook/internal/postgres"
	"github.com/kirinyoku/resortbook/internal/redis"
	"github.com/kirinyoku/resortbook/internal/repository"
	"github.com/kirinyoku/resortbook/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/resortbook/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/resortbook/internal/repository/redis"
	"github.com/kirinyoku/resortbook/internal/service"
	"github.com/kirinyoku/resortbook/internal/service/availability"
	httpgin "github.com/kirinyoku/resortbook/internal/transport/http/gin"
	"github.com/kirinyoku/resortbook/internal/uow"
)

const (
	telegramTimeout = 5 * time.Second
	eventClaimTTL   = 24 * time.Hour
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	events     *redisrepo.EventsPubSub
	claims     *redisrepo.EventClaims
	notifier   *notify.AdminNotifier
	closers    []func()
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	var (
		cache   *redisrepo.Cache
		idem    *redisrepo.IdempotencyStore
		limiter httpgin.RateLimiter
		events  service.EventPublisher
	)
	if cfg.Redis.Enabled() {
		rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		cache = redisrepo.New(rdb)
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, "bookings", cfg.RateLimit.PublicBookings, cfg.RateLimit.Window)
		a.events = redisrepo.NewEventsPubSub(rdb)
		a.claims = redisrepo.NewEventClaims(rdb, eventClaimTTL)
		events = a.events
	} else {
		logger.Warn("REDIS_ADDR is empty: availability cache, idempotency keys, rate limiting and notifications are off")
	}

	if cfg.Telegram.Enabled() {
		if a.events == nil {
			logger.Warn("telegram notifications need redis for event delivery; notifier disabled")
		} else {
			client := notify.NewTelegramClient(cfg.Telegram.APIURL, cfg.Telegram.BotToken, telegramTimeout)
			a.notifier = notify.NewAdminNotifier(client, a.claims, cfg.Telegram.AdminChatIDs, logger)
		}
	}

	m := metrics.New()

	a.services = service.NewServices(store, cache, events, clock.NewRealClock(), service.Config{
		UoW: uow.Config{Attempts: cfg.Booking.TxAttempts},
		Availability: availability.Config{
			CacheTTL: cfg.Availability.CacheTTL,
			Location: cfg.Location,
		},
	}, logger, m)

	router := httpgin.NewRouter(a.services, httpgin.Options{
		Idempotency: idem,
		Limiter:     limiter,
		Metrics:     m,
		CORS: httpgin.CORSConfig{
			AllowOrigins: cfg.CORS.AllowOrigins,
			MaxAge:       cfg.CORS.MaxAge,
		},
		Location:             cfg.Location,
		ReconcileHorizonDays: cfg.Availability.ReconcileHorizon,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.Storage.Driver == config.DriverMemory {
		a.logger.Warn("using in-memory storage: data is lost on restart")
		return memory.NewStore(), nil
	}

	pool, err := postgres.New(ctx, postgres.Config{DSN: a.cfg.Postgres.DSN(), MaxConns: a.cfg.Postgres.MaxConns})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	store := postgresrepo.NewStore(pool)
	if a.cfg.Postgres.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
	}

	return store, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	if interval := a.cfg.Availability.ReconcileInterval; interval > 0 {
		g.Go(func() error {
			a.logger.Info("availability reconciler started",
				"interval", interval.String(),
				"horizon_days", a.cfg.Availability.ReconcileHorizon)
			return a.services.Availability.RunReconciler(gCtx, interval, a.cfg.Availability.ReconcileHorizon)
		})
	}

	if a.events != nil && a.notifier != nil {
		g.Go(func() error {
			a.logger.Info("admin notifier subscribed", "chats", len(a.cfg.Telegram.AdminChatIDs))
			err := a.events.Subscribe(gCtx, a.notifier.Handle)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("booking event subscription: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
