package postgresrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/resortbook/internal/domain"
)

type AuditRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *AuditRepo) With(db DB) *AuditRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AuditRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *AuditRepo) Append(ctx context.Context, e domain.AuditLogEntry) error {
	const op = "postgresrepo.AuditRepo.Append"

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	details := e.Details
	if details == nil {
		details = map[string]any{}
	}

	_, err := r.handle().Exec(ctx,
		`INSERT INTO booking_audit_log(id, booking_id, ts, actor_id, action, previous_status, new_status, notes, details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.BookingID, e.Timestamp, e.ActorID, string(e.Action),
		statusText(e.PreviousStatus), statusText(e.NewStatus), e.Notes, details,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return nil
}

func (r *AuditRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.AuditLogEntry, error) {
	const op = "postgresrepo.AuditRepo.ListByBooking"

	rows, err := r.handle().Query(ctx,
		`SELECT id, booking_id, ts, actor_id, action, previous_status, new_status, notes, details
		 FROM booking_audit_log
		 WHERE booking_id = $1
		 ORDER BY ts, id`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.AuditLogEntry
	for rows.Next() {
		var (
			e          domain.AuditLogEntry
			action     string
			prev, next *string
		)
		if err := rows.Scan(
			&e.ID, &e.BookingID, &e.Timestamp, &e.ActorID, &action,
			&prev, &next, &e.Notes, &e.Details,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
		}

		e.Action = domain.AuditAction(action)
		e.PreviousStatus = statusFromText(prev)
		e.NewStatus = statusFromText(next)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, translateDBErr(err))
	}

	return out, nil
}

func statusText(s *domain.BookingStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func statusFromText(s *string) *domain.BookingStatus {
	if s == nil {
		return nil
	}
	return domain.StatusPtr(domain.BookingStatus(*s))
}
