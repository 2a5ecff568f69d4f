package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/resortbook/internal/domain"
)

const bookingColumns = `id, name, phone, event_date, slot, event_type, guests, message, status, created_at, updated_at`

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a booking row.
//
// Returns:
//   - uuid.UUID: the booking id, generated when b.ID is zero.
//   - error: repository.ErrConflict if b is confirmed and the slot already
//     holds a confirmed booking (bookings_one_confirmed_per_slot).
func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) (uuid.UUID, error) {
	const op = "postgresrepo.BookingRepo.Create"

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO bookings(`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.Name, b.Phone, b.EventDate.Time(), string(b.Slot), b.EventType,
		b.Guests, b.Message, string(b.Status), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return b.ID, nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.Get"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return b, nil
}

// GetForUpdate locks the row until the enclosing transaction ends. Outside
// a transaction the lock is released immediately.
func (r *BookingRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.GetForUpdate"

	b, err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return b, nil
}

func (r *BookingRepo) ListByDate(ctx context.Context, key domain.DateKey) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListByDate"

	out, err := r.query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE event_date = $1
		 ORDER BY created_at`,
		key.Time(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (r *BookingRepo) ListByDateSlot(ctx context.Context, key domain.DateKey, slot domain.Slot) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListByDateSlot"

	out, err := r.query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE event_date = $1 AND slot = $2
		 ORDER BY created_at`,
		key.Time(), string(slot),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (r *BookingRepo) ListAll(ctx context.Context) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListAll"

	out, err := r.query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// FindConfirmed looks for a confirmed booking on (key, slot) other than
// exclude. Under SERIALIZABLE the predicate read conflicts with any
// concurrent confirmation of the same slot.
func (r *BookingRepo) FindConfirmed(
	ctx context.Context,
	key domain.DateKey,
	slot domain.Slot,
	exclude uuid.UUID,
) (uuid.UUID, bool, error) {
	const op = "postgresrepo.BookingRepo.FindConfirmed"

	var id uuid.UUID
	err := r.handle().QueryRow(ctx,
		`SELECT id
		 FROM bookings
		 WHERE event_date = $1 AND slot = $2 AND status = 'confirmed' AND id <> $3
		 LIMIT 1`,
		key.Time(), string(slot), exclude,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return id, true, nil
}

// UpdateStatus sets the status and updated_at of a booking.
//
// Returns:
//   - domain.BookingStatus: the status before the update.
//   - error: repository.ErrNotFound if the booking does not exist.
//   - error: repository.ErrConflict if confirming would give the slot a
//     second confirmed booking.
func (r *BookingRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.BookingStatus,
	at time.Time,
) (domain.BookingStatus, error) {
	const op = "postgresrepo.BookingRepo.UpdateStatus"

	var prev string
	err := r.handle().QueryRow(ctx,
		`WITH prev AS (
		     SELECT id, status FROM bookings WHERE id = $1 FOR UPDATE
		 )
		 UPDATE bookings AS b
		 SET status = $2, updated_at = $3
		 FROM prev
		 WHERE b.id = prev.id
		 RETURNING prev.status`,
		id, string(status), at,
	).Scan(&prev)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return domain.BookingStatus(prev), nil
}

func (r *BookingRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Booking, error) {
	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, translateDBErr(err)
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, translateDBErr(err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBErr(err)
	}

	return out, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b         domain.Booking
		eventDate time.Time
		slot      string
		status    string
	)

	if err := row.Scan(
		&b.ID, &b.Name, &b.Phone, &eventDate, &slot, &b.EventType,
		&b.Guests, &b.Message, &status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	b.EventDate = domain.ToDateKey(eventDate)
	b.Slot = domain.Slot(slot)
	b.Status = domain.BookingStatus(status)

	return &b, nil
}
