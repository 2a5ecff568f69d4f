package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/resortbook/internal/domain"
)

type HolidayRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *HolidayRepo) With(db DB) *HolidayRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *HolidayRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *HolidayRepo) Upsert(ctx context.Context, h domain.Holiday) error {
	const op = "postgresrepo.HolidayRepo.Upsert"

	_, err := r.handle().Exec(ctx,
		`INSERT INTO holidays(date_key, name, holiday_date)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (date_key) DO UPDATE
		 SET name = EXCLUDED.name, holiday_date = EXCLUDED.holiday_date`,
		h.DateKey.Time(), h.Name, h.Date,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

func (r *HolidayRepo) Delete(ctx context.Context, key domain.DateKey) (bool, error) {
	const op = "postgresrepo.HolidayRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM holidays WHERE date_key = $1`, key.Time())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return tag.RowsAffected() > 0, nil
}

func (r *HolidayRepo) Get(ctx context.Context, key domain.DateKey) (*domain.Holiday, error) {
	const op = "postgresrepo.HolidayRepo.Get"

	var (
		h       domain.Holiday
		dateKey time.Time
	)
	err := r.handle().QueryRow(ctx,
		`SELECT date_key, name, holiday_date FROM holidays WHERE date_key = $1`,
		key.Time(),
	).Scan(&dateKey, &h.Name, &h.Date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	h.DateKey = domain.ToDateKey(dateKey)
	return &h, nil
}

func (r *HolidayRepo) Exists(ctx context.Context, key domain.DateKey) (bool, error) {
	const op = "postgresrepo.HolidayRepo.Exists"

	var ok bool
	err := r.handle().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM holidays WHERE date_key = $1)`,
		key.Time(),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return ok, nil
}

func (r *HolidayRepo) List(ctx context.Context) ([]domain.Holiday, error) {
	const op = "postgresrepo.HolidayRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT date_key, name, holiday_date FROM holidays ORDER BY date_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Holiday
	for rows.Next() {
		var (
			h       domain.Holiday
			dateKey time.Time
		)
		if err := rows.Scan(&dateKey, &h.Name, &h.Date); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}
		h.DateKey = domain.ToDateKey(dateKey)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return out, nil
}
