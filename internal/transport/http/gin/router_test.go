package httpgin

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/metrics"
	"github.com/kirinyoku/resortbook/internal/pkg/clock"
	"github.com/kirinyoku/resortbook/internal/repository/memory"
	redisrepo "github.com/kirinyoku/resortbook/internal/repository/redis"
	"github.com/kirinyoku/resortbook/internal/service"
	"github.com/kirinyoku/resortbook/internal/service/availability"
	"github.com/kirinyoku/resortbook/internal/uow"
)

var now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	router *gin.Engine
	store  *memory.Store
}

func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memory.NewStore()
	m := metrics.New()
	svcs := service.NewServices(
		store,
		redisrepo.New(rdb),
		redisrepo.NewEventsPubSub(rdb),
		clock.NewMockClock(now),
		service.Config{
			UoW:          uow.Config{Attempts: 3, BaseBackoff: time.Millisecond},
			Availability: availability.Config{Location: time.UTC},
		},
		log,
		m,
	)

	router := NewRouter(svcs, Options{
		Idempotency: redisrepo.NewIdempotencyStore(rdb, time.Hour),
		Limiter:     redisrepo.NewSlidingWindowLimiter(rdb, "bookings", rateLimit, time.Minute),
		Metrics:     m,
		Location:    time.UTC,
	}, log)

	return &testEnv{router: router, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func bookingBody(slot string) map[string]any {
	return map[string]any{
		"name":             "Nimal Perera",
		"phone":            "0771234567",
		"event_date":       "2025-06-10",
		"event_slot":       slot,
		"event_type":       "wedding",
		"number_of_guests": 150,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t, 100)

	w := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = e.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `resortbook_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestGetAvailability(t *testing.T) {
	e := newTestEnv(t, 100)

	w := e.do(t, http.MethodGet, "/availability/2025-06-10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=15", w.Header().Get("Cache-Control"))

	got := decode[AvailabilityResponse](t, w)
	assert.Equal(t, AvailabilityResponse{Date: "2025-06-10", Morning: domain.SlotAvailable, Evening: domain.SlotAvailable}, got)

	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)
	w = e.do(t, http.MethodGet, "/availability/2025-06-10", nil, "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = e.do(t, http.MethodGet, "/availability/2025-05-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.SlotBooked, decode[AvailabilityResponse](t, w).Morning)

	w = e.do(t, http.MethodGet, "/availability/10-06-2025", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePublicBooking(t *testing.T) {
	e := newTestEnv(t, 100)

	w := e.do(t, http.MethodPost, "/bookings", bookingBody("morning"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[CreateBookingResponse](t, w)
	_, err := uuid.Parse(resp.BookingID)
	require.NoError(t, err)
	assert.Empty(t, resp.Warning)

	w = e.do(t, http.MethodGet, "/availability/2025-06-10", nil)
	assert.Equal(t, domain.SlotPending, decode[AvailabilityResponse](t, w).Morning)

	w = e.do(t, http.MethodPost, "/bookings", bookingBody("morning"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Error, "no longer available")
}

func TestCreatePublicBooking_ShapeValidation(t *testing.T) {
	e := newTestEnv(t, 100)

	tests := []struct {
		name  string
		field string
		value any
	}{
		{"no guests", "number_of_guests", 0},
		{"too many guests", "number_of_guests", 1001},
		{"unknown slot", "event_slot", "noon"},
		{"bad date", "event_date", "10/06/2025"},
		{"empty name", "name", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bookingBody("evening")
			body[tt.field] = tt.value

			w := e.do(t, http.MethodPost, "/bookings", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	all, err := e.store.Bookings().ListAll(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreatePublicBooking_IdempotencyKey(t *testing.T) {
	e := newTestEnv(t, 100)

	first := e.do(t, http.MethodPost, "/bookings", bookingBody("evening"), "Idempotency-Key", "req-1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "req-1", first.Header().Get("Idempotency-Key"))

	second := e.do(t, http.MethodPost, "/bookings", bookingBody("evening"), "Idempotency-Key", "req-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, decode[CreateBookingResponse](t, first).BookingID, decode[CreateBookingResponse](t, second).BookingID)

	all, err := e.store.Bookings().ListAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreatePublicBooking_RateLimited(t *testing.T) {
	e := newTestEnv(t, 2)

	for _, slot := range []string{"morning", "evening"} {
		w := e.do(t, http.MethodPost, "/bookings", bookingBody(slot))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := e.do(t, http.MethodPost, "/bookings", bookingBody("morning"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = e.do(t, http.MethodGet, "/availability/2025-06-10", nil)
	assert.Equal(t, http.StatusOK, w.Code, "reads are not limited")
}

func TestAdminBookingLifecycle(t *testing.T) {
	e := newTestEnv(t, 100)

	body := bookingBody("evening")
	body["status"] = "confirmed"
	w := e.do(t, http.MethodPost, "/admin/bookings", body, "X-Actor-ID", "admin-7")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	confirmedID := decode[CreateBookingResponse](t, w).BookingID

	w = e.do(t, http.MethodPost, "/admin/bookings", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Error, "already has a confirmed booking")

	delete(body, "status")
	w = e.do(t, http.MethodPost, "/admin/bookings", body)
	require.Equal(t, http.StatusCreated, w.Code)
	pendingID := decode[CreateBookingResponse](t, w).BookingID

	w = e.do(t, http.MethodPatch, "/admin/bookings/"+pendingID+"/status", ChangeStatusRequest{Status: "confirmed"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPatch, "/admin/bookings/"+confirmedID+"/status",
		ChangeStatusRequest{Status: "cancelled", Notes: "guest called"}, "X-Actor-ID", "admin-7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[ChangeStatusResponse](t, w).Changed)

	w = e.do(t, http.MethodPatch, "/admin/bookings/"+confirmedID+"/status", ChangeStatusRequest{Status: "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[ChangeStatusResponse](t, w).Changed)

	w = e.do(t, http.MethodGet, "/admin/bookings/"+confirmedID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	b := decode[domain.Booking](t, w)
	assert.Equal(t, domain.StatusCancelled, b.Status)
	require.Len(t, b.AuditLog, 2)
	assert.Equal(t, "admin-7", b.AuditLog[0].ActorID)
	assert.Equal(t, "guest called", b.AuditLog[1].Notes)

	w = e.do(t, http.MethodGet, "/admin/bookings?date=2025-06-10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Booking](t, w), 2)

	w = e.do(t, http.MethodGet, "/admin/bookings?date=2025-06-11", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestChangeStatus_Errors(t *testing.T) {
	e := newTestEnv(t, 100)

	w := e.do(t, http.MethodPatch, "/admin/bookings/"+uuid.NewString()+"/status", ChangeStatusRequest{Status: "confirmed"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPatch, "/admin/bookings/not-a-uuid/status", ChangeStatusRequest{Status: "confirmed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPatch, "/admin/bookings/"+uuid.NewString()+"/status", ChangeStatusRequest{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeStatus_DegradedSuccess(t *testing.T) {
	e := newTestEnv(t, 100)

	w := e.do(t, http.MethodPost, "/bookings", bookingBody("morning"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[CreateBookingResponse](t, w).BookingID

	e.store.InjectFault(memory.OpAuditAppend, errors.New("audit unavailable"), 1)

	w = e.do(t, http.MethodPatch, "/admin/bookings/"+id+"/status", ChangeStatusRequest{Status: "confirmed"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ChangeStatusResponse](t, w)
	assert.True(t, resp.Changed)
	assert.Equal(t, msgDegraded, resp.Warning)
}

func TestTransientFailure(t *testing.T) {
	e := newTestEnv(t, 100)
	e.store.InjectFault(memory.OpBookingList, errors.New("connection refused"), 1)

	w := e.do(t, http.MethodGet, "/admin/bookings", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, retryAfterTransient, w.Header().Get("Retry-After"))
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestHolidays(t *testing.T) {
	e := newTestEnv(t, 100)

	w := e.do(t, http.MethodPut, "/admin/holidays/2025-12-25", MarkHolidayRequest{Name: "Christmas"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Christmas", decode[HolidayResponse](t, w).Name)

	w = e.do(t, http.MethodPut, "/admin/holidays/2025-07-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Holiday", decode[HolidayResponse](t, w).Name)

	w = e.do(t, http.MethodGet, "/availability/2025-12-25", nil)
	got := decode[AvailabilityResponse](t, w)
	assert.Equal(t, domain.SlotBooked, got.Morning)
	assert.Equal(t, domain.SlotBooked, got.Evening)

	w = e.do(t, http.MethodGet, "/admin/holidays", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]domain.Holiday](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, domain.DateKey("2025-07-01"), list[0].DateKey)

	w = e.do(t, http.MethodDelete, "/admin/holidays/2025-12-25", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[HolidayResponse](t, w).Changed)

	w = e.do(t, http.MethodDelete, "/admin/holidays/2025-12-25", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[HolidayResponse](t, w).Changed)

	w = e.do(t, http.MethodGet, "/availability/2025-12-25", nil)
	assert.Equal(t, domain.SlotAvailable, decode[AvailabilityResponse](t, w).Morning)

	w = e.do(t, http.MethodPut, "/admin/holidays/2025-05-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(decode[ErrorResponse](t, w).Error, "date"))
}

func TestReconcile(t *testing.T) {
	e := newTestEnv(t, 100)

	e.store.PutRawAvailability("2025-06-02", domain.FullyBooked())

	w := e.do(t, http.MethodPost, "/admin/availability/reconcile?from=2025-06-01&to=2025-06-03", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, ReconcileResponse{From: "2025-06-01", To: "2025-06-03", Refreshed: 3}, decode[ReconcileResponse](t, w))

	w = e.do(t, http.MethodGet, "/availability/2025-06-02", nil)
	assert.Equal(t, domain.SlotAvailable, decode[AvailabilityResponse](t, w).Morning)

	w = e.do(t, http.MethodPost, "/admin/availability/reconcile?from=2025-06-03&to=2025-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
