package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/repository"
)

type BookingRepo struct {
	h handle
}

func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) (uuid.UUID, error) {
	const op = "memory.BookingRepo.Create"

	err := r.h.do(ctx, OpBookingCreate, func(d *data) error {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		if _, ok := d.bookings[b.ID]; ok {
			return repository.ErrConflict
		}
		if b.Status == domain.StatusConfirmed && confirmedExists(d, b.EventDate, b.Slot, b.ID) {
			return repository.ErrConflict
		}

		d.seq++
		d.bookings[b.ID] = &storedBooking{seq: d.seq, b: b}
		id := b.ID
		r.h.onRollback(func(d *data) { delete(d.bookings, id) })
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return b.ID, nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "memory.BookingRepo.Get"

	var out domain.Booking
	err := r.h.do(ctx, OpBookingGet, func(d *data) error {
		sb, ok := d.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = sb.b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// GetForUpdate is Get; the store lock already isolates the transaction.
func (r *BookingRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.Get(ctx, id)
}

func (r *BookingRepo) ListByDate(ctx context.Context, key domain.DateKey) ([]domain.Booking, error) {
	const op = "memory.BookingRepo.ListByDate"

	out, err := r.list(ctx, func(b domain.Booking) bool { return b.EventDate == key }, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *BookingRepo) ListByDateSlot(ctx context.Context, key domain.DateKey, slot domain.Slot) ([]domain.Booking, error) {
	const op = "memory.BookingRepo.ListByDateSlot"

	out, err := r.list(ctx, func(b domain.Booking) bool {
		return b.EventDate == key && b.Slot == slot
	}, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *BookingRepo) ListAll(ctx context.Context) ([]domain.Booking, error) {
	const op = "memory.BookingRepo.ListAll"

	out, err := r.list(ctx, func(domain.Booking) bool { return true }, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *BookingRepo) FindConfirmed(
	ctx context.Context,
	key domain.DateKey,
	slot domain.Slot,
	exclude uuid.UUID,
) (uuid.UUID, bool, error) {
	const op = "memory.BookingRepo.FindConfirmed"

	var found uuid.UUID
	err := r.h.do(ctx, OpBookingGet, func(d *data) error {
		for id, sb := range d.bookings {
			if id != exclude && isConfirmedAt(sb.b, key, slot) {
				found = id
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return found, found != uuid.Nil, nil
}

func (r *BookingRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.BookingStatus,
	at time.Time,
) (domain.BookingStatus, error) {
	const op = "memory.BookingRepo.UpdateStatus"

	var prev domain.BookingStatus
	err := r.h.do(ctx, OpBookingUpdateStatus, func(d *data) error {
		sb, ok := d.bookings[id]
		if !ok {
			return repository.ErrNotFound
		}
		if status == domain.StatusConfirmed && confirmedExists(d, sb.b.EventDate, sb.b.Slot, id) {
			return repository.ErrConflict
		}

		prev = sb.b.Status
		prevUpdated := sb.b.UpdatedAt

		updated := at
		sb.b.Status = status
		sb.b.UpdatedAt = &updated

		r.h.onRollback(func(d *data) {
			if sb, ok := d.bookings[id]; ok {
				sb.b.Status = prev
				sb.b.UpdatedAt = prevUpdated
			}
		})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return prev, nil
}

func (r *BookingRepo) list(ctx context.Context, keep func(domain.Booking) bool, newestFirst bool) ([]domain.Booking, error) {
	var rows []*storedBooking
	err := r.h.do(ctx, OpBookingList, func(d *data) error {
		for _, sb := range d.bookings {
			if keep(sb.b) {
				cp := *sb
				rows = append(rows, &cp)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if newestFirst {
			if !rows[i].b.CreatedAt.Equal(rows[j].b.CreatedAt) {
				return rows[i].b.CreatedAt.After(rows[j].b.CreatedAt)
			}
			return rows[i].seq > rows[j].seq
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]domain.Booking, 0, len(rows))
	for _, sb := range rows {
		out = append(out, sb.b)
	}
	return out, nil
}

func isConfirmedAt(b domain.Booking, key domain.DateKey, slot domain.Slot) bool {
	return b.Status == domain.StatusConfirmed && b.EventDate == key && b.Slot == slot
}

func confirmedExists(d *data, key domain.DateKey, slot domain.Slot, exclude uuid.UUID) bool {
	for id, sb := range d.bookings {
		if id != exclude && isConfirmedAt(sb.b, key, slot) {
			return true
		}
	}
	return false
}
