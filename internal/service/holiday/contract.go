package holiday

import (
	"context"
	"time"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/repository"
)

type Projector interface {
	RefreshTx(ctx context.Context, repos repository.Repositories, key domain.DateKey, slots ...domain.Slot) error
	Invalidate(ctx context.Context, keys ...domain.DateKey)
	Today() time.Time
}

type EventPublisher interface {
	Publish(ctx context.Context, ev domain.BookingEvent) error
}
