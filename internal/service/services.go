package service

import (
	"log/slog"

	"github.com/kirinyoku/resortbook/internal/metrics"
	"github.com/kirinyoku/resortbook/internal/pkg/clock"
	"github.com/kirinyoku/resortbook/internal/repository"
	redisrepo "github.com/kirinyoku/resortbook/internal/repository/redis"
	"github.com/kirinyoku/resortbook/internal/service/availability"
	"github.com/kirinyoku/resortbook/internal/service/booking"
	"github.com/kirinyoku/resortbook/internal/service/holiday"
	"github.com/kirinyoku/resortbook/internal/service/query"
	"github.com/kirinyoku/resortbook/internal/uow"
)

type Services struct {
	Availability *availability.Service
	Booking      *booking.Service
	Holiday      *holiday.Service
	Query        *query.Service
}

type Config struct {
	UoW          uow.Config
	Availability availability.Config
}

// EventPublisher is satisfied by *redisrepo.EventsPubSub.
type EventPublisher interface {
	booking.EventPublisher
	holiday.EventPublisher
}

// NewServices wires the services over one store. cache and events may be
// nil when Redis is not configured.
func NewServices(
	store repository.Store,
	cache *redisrepo.Cache,
	events EventPublisher,
	clk clock.Clock,
	cfg Config,
	log *slog.Logger,
	m *metrics.Metrics,
) *Services {
	u := uow.New(store, cfg.UoW, log, m)
	projector := availability.New(store, cache, u, clk, cfg.Availability, log, m)

	var bookingEvents booking.EventPublisher
	var holidayEvents holiday.EventPublisher
	if events != nil {
		bookingEvents = events
		holidayEvents = events
	}

	return &Services{
		Availability: projector,
		Booking:      booking.New(store, u, projector, bookingEvents, clk, log, m),
		Holiday:      holiday.New(store, u, projector, holidayEvents, log),
		Query:        query.New(store),
	}
}
