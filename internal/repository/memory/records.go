package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/repository"
)

type AuditRepo struct {
	h handle
}

func (r *AuditRepo) Append(ctx context.Context, e domain.AuditLogEntry) error {
	const op = "memory.AuditRepo.Append"

	err := r.h.do(ctx, OpAuditAppend, func(d *data) error {
		if _, ok := d.bookings[e.BookingID]; !ok {
			return repository.ErrNotFound
		}
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}

		bookingID := e.BookingID
		d.audit[bookingID] = append(d.audit[bookingID], e)
		r.h.onRollback(func(d *data) {
			entries := d.audit[bookingID]
			d.audit[bookingID] = entries[:len(entries)-1]
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *AuditRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.AuditLogEntry, error) {
	const op = "memory.AuditRepo.ListByBooking"

	var out []domain.AuditLogEntry
	err := r.h.do(ctx, OpBookingGet, func(d *data) error {
		out = append(out, d.audit[bookingID]...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

type HolidayRepo struct {
	h handle
}

func (r *HolidayRepo) Upsert(ctx context.Context, hol domain.Holiday) error {
	const op = "memory.HolidayRepo.Upsert"

	err := r.h.do(ctx, OpHolidayWrite, func(d *data) error {
		prev, existed := d.holidays[hol.DateKey]
		d.holidays[hol.DateKey] = hol
		r.h.onRollback(func(d *data) {
			if existed {
				d.holidays[hol.DateKey] = prev
				return
			}
			delete(d.holidays, hol.DateKey)
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *HolidayRepo) Delete(ctx context.Context, key domain.DateKey) (bool, error) {
	const op = "memory.HolidayRepo.Delete"

	var existed bool
	err := r.h.do(ctx, OpHolidayWrite, func(d *data) error {
		var prev domain.Holiday
		prev, existed = d.holidays[key]
		if !existed {
			return nil
		}
		delete(d.holidays, key)
		r.h.onRollback(func(d *data) { d.holidays[key] = prev })
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return existed, nil
}

func (r *HolidayRepo) Get(ctx context.Context, key domain.DateKey) (*domain.Holiday, error) {
	const op = "memory.HolidayRepo.Get"

	var out domain.Holiday
	err := r.h.do(ctx, OpHolidayRead, func(d *data) error {
		h, ok := d.holidays[key]
		if !ok {
			return repository.ErrNotFound
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (r *HolidayRepo) Exists(ctx context.Context, key domain.DateKey) (bool, error) {
	const op = "memory.HolidayRepo.Exists"

	var ok bool
	err := r.h.do(ctx, OpHolidayRead, func(d *data) error {
		_, ok = d.holidays[key]
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

func (r *HolidayRepo) List(ctx context.Context) ([]domain.Holiday, error) {
	const op = "memory.HolidayRepo.List"

	var out []domain.Holiday
	err := r.h.do(ctx, OpHolidayRead, func(d *data) error {
		for _, h := range d.holidays {
			out = append(out, h)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DateKey < out[j].DateKey })
	return out, nil
}

type AvailabilityRepo struct {
	h handle
}

func (r *AvailabilityRepo) Get(ctx context.Context, key domain.DateKey) (domain.DailyAvailability, bool, error) {
	const op = "memory.AvailabilityRepo.Get"

	var (
		out domain.DailyAvailability
		ok  bool
	)
	err := r.h.do(ctx, OpAvailabilityGet, func(d *data) error {
		out, ok = d.availability[key]
		return nil
	})
	if err != nil {
		return domain.DailyAvailability{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return domain.FullyAvailable(), false, nil
	}

	return domain.DailyAvailability{
		Morning: domain.ParseSlotStatus(string(out.Morning)),
		Evening: domain.ParseSlotStatus(string(out.Evening)),
	}, true, nil
}

func (r *AvailabilityRepo) Merge(ctx context.Context, key domain.DateKey, u domain.AvailabilityUpdate) error {
	const op = "memory.AvailabilityRepo.Merge"

	err := r.h.do(ctx, OpAvailabilityMerge, func(d *data) error {
		prev, existed := d.availability[key]
		base := prev
		if !existed {
			base = domain.FullyAvailable()
		}
		d.availability[key] = base.Merge(u)

		r.h.onRollback(func(d *data) {
			if existed {
				d.availability[key] = prev
				return
			}
			delete(d.availability, key)
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// PutRawAvailability stores a snapshot without normalizing it, for
// exercising the read path against corrupt rows.
func (s *Store) PutRawAvailability(key domain.DateKey, a domain.DailyAvailability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.availability[key] = a
}
