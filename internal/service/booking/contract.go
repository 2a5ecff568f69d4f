package booking

import (
	"context"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/repository"
)

// Projector derives and refreshes slot availability.
type Projector interface {
	Derive(ctx context.Context, repos repository.Repositories, key domain.DateKey, slot domain.Slot) (domain.SlotStatus, error)
	Refresh(ctx context.Context, key domain.DateKey, slots ...domain.Slot) error
}

// EventPublisher announces committed changes. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.BookingEvent) error
}
