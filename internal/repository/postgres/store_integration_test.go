//go:build integration

package postgresrepo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewStore(pool)
	require.NoError(t, s.Migrate(ctx))

	_, err = pool.Exec(ctx, `TRUNCATE booking_audit_log, bookings, holidays, availability`)
	require.NoError(t, err)

	return s
}

func testBooking(date domain.DateKey, slot domain.Slot, status domain.BookingStatus) domain.Booking {
	return domain.Booking{
		ID:        uuid.New(),
		Name:      "Guest",
		Phone:     "0771234567",
		EventDate: date,
		Slot:      slot,
		EventType: "wedding",
		Guests:    80,
		Status:    status,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestStore_BookingLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	b := testBooking("2025-06-01", domain.SlotMorning, domain.StatusPending)
	id, err := s.Bookings().Create(ctx, b)
	require.NoError(t, err)

	got, err := s.Bookings().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.DateKey("2025-06-01"), got.EventDate)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.UpdatedAt)

	at := time.Now().UTC().Truncate(time.Microsecond)
	err = s.RunTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if _, err := tx.Bookings().GetForUpdate(ctx, id); err != nil {
			return err
		}
		prev, err := tx.Bookings().UpdateStatus(ctx, id, domain.StatusConfirmed, at)
		assert.Equal(t, domain.StatusPending, prev)
		return err
	})
	require.NoError(t, err)

	other := testBooking("2025-06-01", domain.SlotMorning, domain.StatusPending)
	_, err = s.Bookings().Create(ctx, other)
	require.NoError(t, err)

	_, err = s.Bookings().UpdateStatus(ctx, other.ID, domain.StatusConfirmed, at)
	assert.ErrorIs(t, err, repository.ErrConflict)

	conflicting, ok, err := s.Bookings().FindConfirmed(ctx, "2025-06-01", domain.SlotMorning, other.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, conflicting)

	_, err = s.Bookings().UpdateStatus(ctx, uuid.New(), domain.StatusCancelled, at)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_AuditAndSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	b := testBooking("2025-07-01", domain.SlotEvening, domain.StatusPending)
	_, err := s.Bookings().Create(ctx, b)
	require.NoError(t, err)

	require.NoError(t, s.Audit().Append(ctx, domain.AuditLogEntry{
		BookingID: b.ID,
		Timestamp: time.Now().UTC(),
		ActorID:   domain.ActorPublic,
		Action:    domain.ActionBookingCreated,
		Details:   map[string]any{"name": "Guest"},
	}))
	require.NoError(t, s.Audit().Append(ctx, domain.AuditLogEntry{
		BookingID:      b.ID,
		Timestamp:      time.Now().UTC().Add(time.Second),
		ActorID:        "admin-1",
		Action:         domain.ActionStatusChanged,
		PreviousStatus: domain.StatusPtr(domain.StatusPending),
		NewStatus:      domain.StatusPtr(domain.StatusCancelled),
	}))

	entries, err := s.Audit().ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ActionBookingCreated, entries[0].Action)
	assert.Equal(t, "Guest", entries[0].Details["name"])
	require.NotNil(t, entries[1].NewStatus)
	assert.Equal(t, domain.StatusCancelled, *entries[1].NewStatus)

	require.NoError(t, s.Availability().Merge(ctx, "2025-07-01", domain.AvailabilityUpdate{domain.SlotEvening: domain.SlotPending}))
	require.NoError(t, s.Availability().Merge(ctx, "2025-07-01", domain.AvailabilityUpdate{domain.SlotMorning: domain.SlotBooked}))

	a, ok, err := s.Availability().Get(ctx, "2025-07-01")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.DailyAvailability{Morning: domain.SlotBooked, Evening: domain.SlotPending}, a)
}

func TestStore_Holidays(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	day := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Holidays().Upsert(ctx, domain.Holiday{DateKey: "2025-12-25", Name: "Christmas", Date: day}))
	require.NoError(t, s.Holidays().Upsert(ctx, domain.Holiday{DateKey: "2025-12-25", Name: "Christmas Day", Date: day}))

	list, err := s.Holidays().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Christmas Day", list[0].Name)

	existed, err := s.Holidays().Delete(ctx, "2025-12-25")
	require.NoError(t, err)
	assert.True(t, existed)

	ok, err := s.Holidays().Exists(ctx, "2025-12-25")
	require.NoError(t, err)
	assert.False(t, ok)
}
