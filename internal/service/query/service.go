package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/repository"
)

// Service serves the admin views of bookings. Reads go to the store on
// every call; bookings are never cached.
type Service struct {
	store repository.Repositories
}

func New(store repository.Repositories) *Service {
	return &Service{store: store}
}

// ListBookings returns every booking newest first, or, when date is set,
// the bookings of that calendar day in creation order.
func (s *Service) ListBookings(ctx context.Context, date *time.Time) ([]domain.Booking, error) {
	const op = "service.query.ListBookings"

	var (
		out []domain.Booking
		err error
	)
	if date != nil {
		out, err = s.store.Bookings().ListByDate(ctx, domain.ToDateKey(*date))
	} else {
		out, err = s.store.Bookings().ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	if out == nil {
		out = []domain.Booking{}
	}

	return out, nil
}

// GetBooking returns one booking with its audit trail, oldest entry first.
//
// Returns:
//   - error: domain.ErrNotFound if the booking does not exist.
func (s *Service) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.query.GetBooking"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: booking %s: %w", op, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	entries, err := s.store.Audit().ListByBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}
	b.AuditLog = entries

	return b, nil
}
