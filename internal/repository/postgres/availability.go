package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/resortbook/internal/domain"
)

type AvailabilityRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *AvailabilityRepo) With(db DB) *AvailabilityRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AvailabilityRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *AvailabilityRepo) Get(ctx context.Context, key domain.DateKey) (domain.DailyAvailability, bool, error) {
	const op = "postgresrepo.AvailabilityRepo.Get"

	var morning, evening string
	err := r.handle().QueryRow(ctx,
		`SELECT morning, evening FROM availability WHERE date_key = $1`,
		key.Time(),
	).Scan(&morning, &evening)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FullyAvailable(), false, nil
	}
	if err != nil {
		return domain.DailyAvailability{}, false, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return domain.DailyAvailability{
		Morning: domain.ParseSlotStatus(morning),
		Evening: domain.ParseSlotStatus(evening),
	}, true, nil
}

// Merge upserts the snapshot row. A NULL parameter keeps the stored value
// of that slot.
func (r *AvailabilityRepo) Merge(ctx context.Context, key domain.DateKey, u domain.AvailabilityUpdate) error {
	const op = "postgresrepo.AvailabilityRepo.Merge"

	if len(u) == 0 {
		return nil
	}

	_, err := r.handle().Exec(ctx,
		`INSERT INTO availability(date_key, morning, evening, updated_at)
		 VALUES ($1, COALESCE($2::text, 'available'), COALESCE($3::text, 'available'), now())
		 ON CONFLICT (date_key) DO UPDATE
		 SET morning = COALESCE($2::text, availability.morning),
		     evening = COALESCE($3::text, availability.evening),
		     updated_at = now()`,
		key.Time(), slotParam(u, domain.SlotMorning), slotParam(u, domain.SlotEvening),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

func slotParam(u domain.AvailabilityUpdate, slot domain.Slot) *string {
	st, ok := u[slot]
	if !ok {
		return nil
	}
	v := string(st)
	return &v
}
