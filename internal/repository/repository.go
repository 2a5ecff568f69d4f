package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/resortbook/internal/domain"
)

type BookingRepository interface {
	// Create stores b as given. It does not check the one-confirmed-per-slot
	// rule beyond what storage constraints enforce.
	Create(ctx context.Context, b domain.Booking) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	// GetForUpdate reads the booking and locks it for the rest of the
	// enclosing transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ListByDate(ctx context.Context, key domain.DateKey) ([]domain.Booking, error)
	ListByDateSlot(ctx context.Context, key domain.DateKey, slot domain.Slot) ([]domain.Booking, error)
	// ListAll returns every booking, newest first.
	ListAll(ctx context.Context) ([]domain.Booking, error)
	// FindConfirmed returns the id of a confirmed booking for (key, slot)
	// other than exclude.
	FindConfirmed(ctx context.Context, key domain.DateKey, slot domain.Slot, exclude uuid.UUID) (uuid.UUID, bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus, at time.Time) (domain.BookingStatus, error)
}

type AuditRepository interface {
	Append(ctx context.Context, e domain.AuditLogEntry) error
	// ListByBooking returns entries oldest first.
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.AuditLogEntry, error)
}

type HolidayRepository interface {
	Upsert(ctx context.Context, h domain.Holiday) error
	// Delete reports whether a holiday existed.
	Delete(ctx context.Context, key domain.DateKey) (bool, error)
	Get(ctx context.Context, key domain.DateKey) (*domain.Holiday, error)
	Exists(ctx context.Context, key domain.DateKey) (bool, error)
	// List returns holidays by date ascending.
	List(ctx context.Context) ([]domain.Holiday, error)
}

type AvailabilityRepository interface {
	// Get returns the stored snapshot with every value normalized, and false
	// when no snapshot has been written for key.
	Get(ctx context.Context, key domain.DateKey) (domain.DailyAvailability, bool, error)
	// Merge writes the slots in u and leaves the others untouched. A missing
	// snapshot is created with absent slots set to available.
	Merge(ctx context.Context, key domain.DateKey, u domain.AvailabilityUpdate) error
}

// Repositories groups the repositories bound to one handle, either the
// shared pool or a transaction.
type Repositories interface {
	Bookings() BookingRepository
	Audit() AuditRepository
	Holidays() HolidayRepository
	Availability() AvailabilityRepository
}

type Transactor interface {
	// RunTx runs fn atomically. If fn returns an error nothing it wrote is
	// kept.
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}

type Store interface {
	Repositories
	Transactor
}
