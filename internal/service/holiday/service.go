package holiday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/repository"
	"github.com/kirinyoku/resortbook/internal/uow"
)

const DefaultName = "Holiday"

type Service struct {
	store     repository.Store
	uow       *uow.UoW
	projector Projector
	events    EventPublisher
	log       *slog.Logger
}

func New(
	store repository.Store,
	u *uow.UoW,
	projector Projector,
	events EventPublisher,
	log *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		uow:       u,
		projector: projector,
		events:    events,
		log:       log,
	}
}

// MarkHoliday blocks the calendar day of date, replacing any holiday
// already stored for it. The holiday and the forced availability are
// written in one transaction.
//
// Returns:
//   - error: *domain.ValidationError if the day is in the past.
//   - error: domain.ErrTransientStore if storage failed; nothing changed.
func (s *Service) MarkHoliday(ctx context.Context, date time.Time, name string) (domain.Outcome, error) {
	const op = "service.holiday.MarkHoliday"

	key := domain.ToDateKey(date)
	if domain.IsPast(key, s.projector.Today()) {
		return domain.Outcome{}, fmt.Errorf("%s: %w", op,
			&domain.ValidationError{Field: "date", Reason: "cannot mark a past date as a holiday"})
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}

	h := domain.Holiday{DateKey: key, Name: name, Date: date}

	_, err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repositories, after func(uow.AfterCommit)) error {
		if err := tx.Holidays().Upsert(ctx, h); err != nil {
			return err
		}
		if err := s.projector.RefreshTx(ctx, tx, key); err != nil {
			return err
		}

		after(s.afterChange(domain.BookingEvent{Type: domain.EventHolidayMarked, DateKey: key, Name: name}, true))
		return nil
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	return domain.Outcome{Changed: true}, nil
}

// RemoveHoliday unblocks key and re-derives its availability from bookings
// in the same transaction. Removing a missing holiday succeeds with
// Outcome.Changed false.
func (s *Service) RemoveHoliday(ctx context.Context, key domain.DateKey) (domain.Outcome, error) {
	const op = "service.holiday.RemoveHoliday"

	var existed bool

	_, err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repositories, after func(uow.AfterCommit)) error {
		var err error
		existed, err = tx.Holidays().Delete(ctx, key)
		if err != nil {
			return err
		}
		if err := s.projector.RefreshTx(ctx, tx, key); err != nil {
			return err
		}

		after(s.afterChange(domain.BookingEvent{Type: domain.EventHolidayRemoved, DateKey: key}, existed))
		return nil
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	return domain.Outcome{Changed: existed}, nil
}

// ListHolidays returns every holiday by date ascending.
func (s *Service) ListHolidays(ctx context.Context) ([]domain.Holiday, error) {
	const op = "service.holiday.ListHolidays"

	list, err := s.store.Holidays().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	return list, nil
}

func (s *Service) IsHoliday(ctx context.Context, key domain.DateKey) (bool, error) {
	const op = "service.holiday.IsHoliday"

	ok, err := s.store.Holidays().Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	return ok, nil
}

func (s *Service) GetHoliday(ctx context.Context, key domain.DateKey) (*domain.Holiday, error) {
	const op = "service.holiday.GetHoliday"

	h, err := s.store.Holidays().Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: holiday %s: %w", op, key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	return h, nil
}

func (s *Service) afterChange(ev domain.BookingEvent, publish bool) uow.AfterCommit {
	return func(ctx context.Context) error {
		s.projector.Invalidate(ctx, ev.DateKey)

		if !publish || s.events == nil {
			return nil
		}
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.Warn("holiday event not published",
				"type", ev.Type,
				"date_key", ev.DateKey,
				"error", err.Error())
		}
		return nil
	}
}
