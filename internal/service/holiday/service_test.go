package holiday_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/pkg/clock"
	"github.com/kirinyoku/resortbook/internal/repository/memory"
	"github.com/kirinyoku/resortbook/internal/service/availability"
	"github.com/kirinyoku/resortbook/internal/service/holiday"
	"github.com/kirinyoku/resortbook/internal/uow"
)

var (
	now       = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	christmas = time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func newService(t *testing.T) (*holiday.Service, *availability.Service, *memory.Store, *recordingPublisher) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	u := uow.New(store, uow.Config{Attempts: 3, BaseBackoff: time.Millisecond}, log, nil)
	projector := availability.New(store, nil, u, clock.NewMockClock(now), availability.Config{Location: time.UTC}, log, nil)
	events := &recordingPublisher{}

	return holiday.New(store, u, projector, events, log), projector, store, events
}

func TestMarkHoliday_ForcesBookedAndRemoveReverts(t *testing.T) {
	ctx := context.Background()
	svc, projector, store, events := newService(t)
	key := domain.ToDateKey(christmas)

	_, err := store.Bookings().Create(ctx, domain.Booking{
		ID:        uuid.New(),
		Name:      "Kamala",
		Phone:     "0712345678",
		EventDate: key,
		Slot:      domain.SlotEvening,
		Guests:    40,
		Status:    domain.StatusPending,
		CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, projector.Refresh(ctx, key))

	out, err := svc.MarkHoliday(ctx, christmas, "Christmas")
	require.NoError(t, err)
	assert.True(t, out.Changed)

	a, err := projector.GetAvailabilityByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.FullyBooked(), a)

	snapshot, _, err := store.Availability().Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.FullyBooked(), snapshot, "the stored snapshot is forced too")

	out, err = svc.RemoveHoliday(ctx, key)
	require.NoError(t, err)
	assert.True(t, out.Changed)

	a, err = projector.GetAvailabilityByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.DailyAvailability{Morning: domain.SlotAvailable, Evening: domain.SlotPending}, a)

	require.Len(t, events.events, 2)
	assert.Equal(t, domain.EventHolidayMarked, events.events[0].Type)
	assert.Equal(t, "Christmas", events.events[0].Name)
	assert.Equal(t, domain.EventHolidayRemoved, events.events[1].Type)
}

func TestMarkHoliday_RejectsPastDates(t *testing.T) {
	svc, _, store, _ := newService(t)

	_, err := svc.MarkHoliday(context.Background(), now.AddDate(0, 0, -1), "Yesterday")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)

	list, err := store.Holidays().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMarkHoliday_TodayIsAllowed(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.MarkHoliday(context.Background(), now, "")
	require.NoError(t, err)

	h, err := svc.GetHoliday(context.Background(), domain.ToDateKey(now))
	require.NoError(t, err)
	assert.Equal(t, holiday.DefaultName, h.Name)
}

func TestMarkHoliday_ReplacesName(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	_, err := svc.MarkHoliday(ctx, christmas, "Xmas")
	require.NoError(t, err)
	_, err = svc.MarkHoliday(ctx, christmas, "  Christmas Day ")
	require.NoError(t, err)

	list, err := svc.ListHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Christmas Day", list[0].Name)
}

func TestMarkHoliday_FailedRefreshRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, _, store, events := newService(t)

	store.InjectFault(memory.OpAvailabilityMerge, assert.AnError, 1)

	_, err := svc.MarkHoliday(ctx, christmas, "Christmas")
	assert.ErrorIs(t, err, domain.ErrTransientStore)

	ok, err := svc.IsHoliday(ctx, domain.ToDateKey(christmas))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, events.events)
}

func TestRemoveHoliday_Missing(t *testing.T) {
	svc, projector, _, events := newService(t)
	key := domain.DateKey("2025-07-01")

	out, err := svc.RemoveHoliday(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Empty(t, events.events)

	a, err := projector.GetAvailabilityByKey(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, domain.FullyAvailable(), a)
}

func TestListHolidays_Ascending(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	for _, d := range []time.Time{christmas, now.AddDate(0, 1, 0), now.AddDate(0, 0, 3)} {
		_, err := svc.MarkHoliday(ctx, d, "")
		require.NoError(t, err)
	}

	list, err := svc.ListHolidays(ctx)
	require.NoError(t, err)

	keys := make([]domain.DateKey, 0, len(list))
	for _, h := range list {
		keys = append(keys, h.DateKey)
	}
	assert.Equal(t, []domain.DateKey{"2025-06-04", "2025-07-01", "2025-12-25"}, keys)
}

func TestGetHoliday_NotFound(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.GetHoliday(context.Background(), "2025-08-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
