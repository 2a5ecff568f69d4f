package availability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/metrics"
	"github.com/kirinyoku/resortbook/internal/pkg/clock"
	"github.com/kirinyoku/resortbook/internal/repository"
	redisrepo "github.com/kirinyoku/resortbook/internal/repository/redis"
	"github.com/kirinyoku/resortbook/internal/uow"
)

// MaxReconcileDays bounds a single reconciliation sweep.
const MaxReconcileDays = 731

type Config struct {
	CacheTTL time.Duration
	// Location decides which calendar day is today.
	Location *time.Location
}

// Service derives slot availability from holidays and bookings and keeps
// the per-date snapshot current.
type Service struct {
	store   repository.Store
	cache   *redisrepo.Cache
	uow     *uow.UoW
	clock   clock.Clock
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New builds the projector. cache may be nil, in which case reads go
// straight to the snapshot store.
func New(
	store repository.Store,
	cache *redisrepo.Cache,
	u *uow.UoW,
	clk clock.Clock,
	cfg Config,
	log *slog.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Service{
		store:   store,
		cache:   cache,
		uow:     u,
		clock:   clk,
		cfg:     cfg,
		log:     log,
		metrics: m,
	}
}

func (s *Service) Today() time.Time {
	return s.clock.Now().In(s.cfg.Location)
}

func (s *Service) TodayKey() domain.DateKey {
	return domain.ToDateKey(s.Today())
}

func (s *Service) isBlackout(ctx context.Context, repos repository.Repositories, key domain.DateKey) (bool, error) {
	if domain.IsPast(key, s.Today()) {
		return true, nil
	}

	return repos.Holidays().Exists(ctx, key)
}

// Derive computes the authoritative status of one slot from repos. Inside
// a transaction the result is consistent with the writes that follow.
func (s *Service) Derive(
	ctx context.Context,
	repos repository.Repositories,
	key domain.DateKey,
	slot domain.Slot,
) (domain.SlotStatus, error) {
	const op = "service.availability.Derive"

	blackout, err := s.isBlackout(ctx, repos, key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if blackout {
		return domain.SlotBooked, nil
	}

	bookings, err := repos.Bookings().ListByDateSlot(ctx, key, slot)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return domain.SlotStatusFor(bookings), nil
}

// RefreshTx recomputes the snapshot of key through repos. With no slots
// given both are refreshed. A past or holiday date forces both slots to
// booked; otherwise only the named slots are written.
func (s *Service) RefreshTx(
	ctx context.Context,
	repos repository.Repositories,
	key domain.DateKey,
	slots ...domain.Slot,
) error {
	const op = "service.availability.RefreshTx"

	blackout, err := s.isBlackout(ctx, repos, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if blackout {
		if err := repos.Availability().Merge(ctx, key, domain.AvailabilityUpdate{
			domain.SlotMorning: domain.SlotBooked,
			domain.SlotEvening: domain.SlotBooked,
		}); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	if len(slots) == 0 {
		slots = domain.Slots[:]
	}

	update := make(domain.AvailabilityUpdate, len(slots))
	for _, slot := range slots {
		if !slot.Valid() {
			return fmt.Errorf("%s: %w", op, &domain.ValidationError{Field: "slot", Reason: fmt.Sprintf("%q is not morning or evening", slot)})
		}

		bookings, err := repos.Bookings().ListByDateSlot(ctx, key, slot)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		update[slot] = domain.SlotStatusFor(bookings)
	}

	if err := repos.Availability().Merge(ctx, key, update); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Refresh recomputes and stores the snapshot of key in its own
// transaction, then drops the cached copy.
func (s *Service) Refresh(ctx context.Context, key domain.DateKey, slots ...domain.Slot) error {
	const op = "service.availability.Refresh"

	_, err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repositories, after func(uow.AfterCommit)) error {
		if err := s.RefreshTx(ctx, tx, key, slots...); err != nil {
			return err
		}

		after(func(ctx context.Context) error {
			s.Invalidate(ctx, key)
			return nil
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	return nil
}

// Invalidate drops cached snapshots. Failures are logged; the cache entry
// then expires on its own.
func (s *Service) Invalidate(ctx context.Context, keys ...domain.DateKey) {
	if s.cache == nil || len(keys) == 0 {
		return
	}

	if err := s.cache.InvalidateAvailability(ctx, keys...); err != nil {
		s.log.Warn("availability cache invalidation failed",
			"date_keys", keys,
			"error", err.Error())
	}
}

// GetAvailability returns the snapshot for the calendar day of date. Past
// days and holidays are always fully booked; a day without a snapshot is
// fully available. The read never recomputes.
func (s *Service) GetAvailability(ctx context.Context, date time.Time) (domain.DailyAvailability, error) {
	return s.GetAvailabilityByKey(ctx, domain.ToDateKey(date))
}

func (s *Service) GetAvailabilityByKey(ctx context.Context, key domain.DateKey) (domain.DailyAvailability, error) {
	const op = "service.availability.GetAvailability"

	if domain.IsPast(key, s.Today()) {
		return domain.FullyBooked(), nil
	}

	load := func(ctx context.Context) (domain.DailyAvailability, error) {
		return s.load(ctx, key)
	}

	var (
		a   domain.DailyAvailability
		err error
	)
	if s.cache != nil {
		a, err = redisrepo.GetOrSetVersionedJSON(ctx, s.cache, redisrepo.KeyAvailability(key), s.cfg.CacheTTL, load)
	} else {
		a, err = load(ctx)
	}
	if err != nil {
		return domain.DailyAvailability{}, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	return normalize(a), nil
}

func (s *Service) load(ctx context.Context, key domain.DateKey) (domain.DailyAvailability, error) {
	holiday, err := s.store.Holidays().Exists(ctx, key)
	if err != nil {
		return domain.DailyAvailability{}, err
	}
	if holiday {
		return domain.FullyBooked(), nil
	}

	a, _, err := s.store.Availability().Get(ctx, key)
	if err != nil {
		return domain.DailyAvailability{}, err
	}

	return a, nil
}

// Reconcile re-derives every date in [from, to] and returns how many were
// refreshed. It stops at the first failure.
func (s *Service) Reconcile(ctx context.Context, from, to domain.DateKey) (int, error) {
	const op = "service.availability.Reconcile"

	if to < from {
		return 0, fmt.Errorf("%s: %w", op, &domain.ValidationError{Field: "to", Reason: "must not be before from"})
	}
	if from.AddDays(MaxReconcileDays) <= to {
		return 0, fmt.Errorf("%s: %w", op, &domain.ValidationError{Field: "to", Reason: fmt.Sprintf("range exceeds %d days", MaxReconcileDays)})
	}

	n := 0
	for key := from; key <= to; key = key.AddDays(1) {
		if err := ctx.Err(); err != nil {
			s.metrics.Reconciled(n)
			return n, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.Refresh(ctx, key); err != nil {
			s.metrics.Reconciled(n)
			return n, fmt.Errorf("%s: %s: %w", op, key, err)
		}
		n++
	}

	s.metrics.Reconciled(n)
	s.log.Info("availability reconciled", "from", from, "to", to, "dates", n)

	return n, nil
}

// RunReconciler sweeps [today, today+horizonDays] every interval until
// ctx ends.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration, horizonDays int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			from := s.TodayKey()
			if _, err := s.Reconcile(ctx, from, from.AddDays(horizonDays)); err != nil && ctx.Err() == nil {
				s.log.Error("availability reconciliation failed", "error", err.Error())
			}
		}
	}
}

func normalize(a domain.DailyAvailability) domain.DailyAvailability {
	return domain.DailyAvailability{
		Morning: domain.ParseSlotStatus(string(a.Morning)),
		Evening: domain.ParseSlotStatus(string(a.Evening)),
	}
}
