package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/metrics"
	"github.com/kirinyoku/resortbook/internal/pkg/clock"
	"github.com/kirinyoku/resortbook/internal/pkg/errs"
	"github.com/kirinyoku/resortbook/internal/repository"
	"github.com/kirinyoku/resortbook/internal/uow"
)

const AdminBookingNote = "Booking added manually via admin panel."

const (
	stepAudit   = "audit"
	stepRefresh = "refresh"
)

// Service is the booking state machine. It creates bookings and moves them
// between pending, confirmed and cancelled while keeping at most one
// confirmed booking per date and slot.
type Service struct {
	store     repository.Store
	uow       *uow.UoW
	projector Projector
	events    EventPublisher
	clock     clock.Clock
	log       *slog.Logger
	metrics   *metrics.Metrics
}

// New builds the engine. events may be nil.
func New(
	store repository.Store,
	u *uow.UoW,
	projector Projector,
	events EventPublisher,
	clk clock.Clock,
	log *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:     store,
		uow:       u,
		projector: projector,
		events:    events,
		clock:     clk,
		log:       log,
		metrics:   m,
	}
}

// CreatePublicBooking stores a pending booking if the requested slot is
// available.
//
// Returns:
//   - uuid.UUID: id of the new booking.
//   - domain.Outcome: Degraded is set when the audit entry or the
//     availability refresh failed after the booking was stored.
//   - error: *domain.ValidationError for a malformed draft.
//   - error: *domain.SlotUnavailableError if the slot is pending or booked.
//   - error: domain.ErrTransientStore if storage failed; nothing was stored.
func (s *Service) CreatePublicBooking(ctx context.Context, draft domain.BookingDraft) (uuid.UUID, domain.Outcome, error) {
	const op = "service.booking.CreatePublicBooking"

	if err := draft.Validate(); err != nil {
		return uuid.Nil, domain.Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	b := s.newBooking(draft, domain.StatusPending)

	res, err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repositories, after func(uow.AfterCommit)) error {
		status, err := s.projector.Derive(ctx, tx, b.EventDate, b.Slot)
		if err != nil {
			return err
		}
		if status != domain.SlotAvailable {
			return &domain.SlotUnavailableError{Date: b.EventDate, Slot: b.Slot, Status: status}
		}

		if _, err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}

		s.afterCreate(after, b, domain.AuditLogEntry{
			ActorID:   domain.ActorPublic,
			Action:    domain.ActionBookingCreated,
			NewStatus: domain.StatusPtr(b.Status),
			Details:   map[string]any{"name": b.Name, "phone": b.Phone},
		})

		return nil
	})
	if err != nil {
		return uuid.Nil, domain.Outcome{}, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	return b.ID, s.outcome(true, res), nil
}

// CreateAdminBooking stores a booking entered by an admin with status
// pending or confirmed. A confirmed booking is only stored if the slot has
// no other confirmed booking; past dates and holidays are not refused.
//
// Returns:
//   - error: *domain.ValidationError for a malformed draft or status.
//   - error: *domain.SlotConflictError if confirming would double-book.
//   - error: domain.ErrTransientStore if storage failed; nothing was stored.
func (s *Service) CreateAdminBooking(ctx context.Context, draft domain.BookingDraft, actorID string) (uuid.UUID, domain.Outcome, error) {
	const op = "service.booking.CreateAdminBooking"

	if draft.Status == "" {
		draft.Status = domain.StatusPending
	}
	if draft.Status != domain.StatusPending && draft.Status != domain.StatusConfirmed {
		return uuid.Nil, domain.Outcome{}, fmt.Errorf("%s: %w", op,
			&domain.ValidationError{Field: "status", Reason: fmt.Sprintf("%q is not pending or confirmed", draft.Status)})
	}
	if err := draft.Validate(); err != nil {
		return uuid.Nil, domain.Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	if actorID == "" {
		actorID = domain.ActorSystemAdmin
	}

	b := s.newBooking(draft, draft.Status)

	res, err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repositories, after func(uow.AfterCommit)) error {
		if b.Status == domain.StatusConfirmed {
			if err := s.checkNoOtherConfirmed(ctx, tx, b.EventDate, b.Slot, b.ID); err != nil {
				return err
			}
		}

		if _, err := tx.Bookings().Create(ctx, b); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				s.metrics.SlotConflict()
				return &domain.SlotConflictError{Date: b.EventDate, Slot: b.Slot}
			}
			return err
		}

		s.afterCreate(after, b, domain.AuditLogEntry{
			ActorID:   actorID,
			Action:    domain.ActionAdminBookingCreated,
			NewStatus: domain.StatusPtr(b.Status),
			Notes:     AdminBookingNote,
			Details:   map[string]any{"name": b.Name},
		})

		return nil
	})
	if err != nil {
		return uuid.Nil, domain.Outcome{}, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	return b.ID, s.outcome(true, res), nil
}

// ChangeStatus moves booking id to newStatus. Setting the current status
// again succeeds without writing anything, so the call is safe to retry.
//
// Returns:
//   - domain.Outcome: Changed is false for the no-op case; Degraded is set
//     when the audit entry or the availability refresh failed after the
//     status change committed.
//   - error: domain.ErrNotFound if the booking does not exist.
//   - error: *domain.SlotConflictError if another booking already holds the
//     slot as confirmed.
//   - error: domain.ErrTransientStore if storage failed, including after
//     the bounded retry of serialization conflicts; nothing was changed.
func (s *Service) ChangeStatus(
	ctx context.Context,
	id uuid.UUID,
	newStatus domain.BookingStatus,
	notes string,
	actorID string,
) (domain.Outcome, error) {
	const op = "service.booking.ChangeStatus"

	if !newStatus.Valid() {
		return domain.Outcome{}, fmt.Errorf("%s: %w", op,
			&domain.ValidationError{Field: "status", Reason: fmt.Sprintf("%q is not pending, confirmed or cancelled", newStatus)})
	}
	if actorID == "" {
		actorID = domain.ActorSystemAdmin
	}

	var changed bool

	res, err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Repositories, after func(uow.AfterCommit)) error {
		changed = false

		b, err := tx.Bookings().GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
			}
			return err
		}

		if b.Status == newStatus {
			return nil
		}

		if newStatus == domain.StatusConfirmed {
			if err := s.checkNoOtherConfirmed(ctx, tx, b.EventDate, b.Slot, b.ID); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		prev, err := tx.Bookings().UpdateStatus(ctx, id, newStatus, now)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				s.metrics.SlotConflict()
				return &domain.SlotConflictError{Date: b.EventDate, Slot: b.Slot}
			}
			return err
		}
		changed = true

		entry := domain.AuditLogEntry{
			ID:             uuid.New(),
			BookingID:      id,
			Timestamp:      now,
			ActorID:        actorID,
			Action:         domain.ActionStatusChanged,
			PreviousStatus: domain.StatusPtr(prev),
			NewStatus:      domain.StatusPtr(newStatus),
			Notes:          notes,
			Details:        map[string]any{"previous_status": string(prev), "new_status": string(newStatus)},
		}

		after(func(context.Context) error {
			s.metrics.StatusTransition(string(prev), string(newStatus))
			return nil
		})
		after(s.followUp(stepAudit, id, b.EventDate, func(ctx context.Context) error {
			return s.store.Audit().Append(ctx, entry)
		}))
		after(s.followUp(stepRefresh, id, b.EventDate, func(ctx context.Context) error {
			return s.projector.Refresh(ctx, b.EventDate)
		}))
		after(s.publish(domain.BookingEvent{
			Type:           domain.EventStatusChanged,
			BookingID:      id,
			DateKey:        b.EventDate,
			Slot:           b.Slot,
			Status:         newStatus,
			PreviousStatus: prev,
			ActorID:        actorID,
			Name:           b.Name,
		}))

		return nil
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%s: %w", op, domain.MarkTransient(err))
	}

	return s.outcome(changed, res), nil
}

func (s *Service) newBooking(draft domain.BookingDraft, status domain.BookingStatus) domain.Booking {
	return domain.Booking{
		ID:        uuid.New(),
		Name:      draft.Name,
		Phone:     draft.Phone,
		EventDate: domain.ToDateKey(draft.EventDate),
		Slot:      draft.Slot,
		EventType: draft.EventType,
		Guests:    draft.Guests,
		Message:   draft.Message,
		Status:    status,
		CreatedAt: s.clock.Now(),
	}
}

func (s *Service) checkNoOtherConfirmed(
	ctx context.Context,
	tx repository.Repositories,
	key domain.DateKey,
	slot domain.Slot,
	self uuid.UUID,
) error {
	other, found, err := tx.Bookings().FindConfirmed(ctx, key, slot, self)
	if err != nil {
		return err
	}
	if found {
		s.metrics.SlotConflict()
		s.log.Info("confirmation rejected, slot already confirmed",
			"booking_id", self,
			"conflicting_id", other,
			"date_key", key,
			"slot", slot)
		return &domain.SlotConflictError{Date: key, Slot: slot, ConflictingID: other}
	}
	return nil
}

// afterCreate registers the follow-up steps shared by both creation paths.
func (s *Service) afterCreate(after func(uow.AfterCommit), b domain.Booking, entry domain.AuditLogEntry) {
	entry.ID = uuid.New()
	entry.BookingID = b.ID
	entry.Timestamp = b.CreatedAt

	after(s.followUp(stepAudit, b.ID, b.EventDate, func(ctx context.Context) error {
		return s.store.Audit().Append(ctx, entry)
	}))
	after(s.followUp(stepRefresh, b.ID, b.EventDate, func(ctx context.Context) error {
		return s.projector.Refresh(ctx, b.EventDate)
	}))
	after(s.publish(domain.BookingEvent{
		Type:      domain.EventBookingCreated,
		BookingID: b.ID,
		DateKey:   b.EventDate,
		Slot:      b.Slot,
		Status:    b.Status,
		ActorID:   entry.ActorID,
		Name:      b.Name,
	}))
}

// followUp wraps a post-commit step so that its failure is logged, counted
// and reported without undoing the commit.
func (s *Service) followUp(step string, bookingID uuid.UUID, key domain.DateKey, fn func(ctx context.Context) error) uow.AfterCommit {
	return func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			s.metrics.PostCommitFailure(step)
			s.log.Warn("post-commit step failed",
				"step", step,
				"booking_id", bookingID,
				"date_key", key,
				"error", err.Error())
			return fmt.Errorf("%s: %w", step, err)
		}
		return nil
	}
}

func (s *Service) publish(ev domain.BookingEvent) uow.AfterCommit {
	return func(ctx context.Context) error {
		if s.events == nil {
			return nil
		}
		if ev.TsUnix == 0 {
			ev.TsUnix = s.clock.Now().Unix()
		}
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.Warn("booking event not published",
				"type", ev.Type,
				"booking_id", ev.BookingID,
				"error", err.Error())
		}
		return nil
	}
}

func (s *Service) outcome(changed bool, res uow.Result) domain.Outcome {
	out := domain.Outcome{Changed: changed}
	if res.AfterErr != nil {
		out.Degraded = errs.Mark(res.AfterErr, domain.ErrDegradedSuccess)
	}
	return out
}
