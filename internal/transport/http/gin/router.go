package httpgin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/resortbook/internal/domain"
	"github.com/kirinyoku/resortbook/internal/metrics"
	redisrepo "github.com/kirinyoku/resortbook/internal/repository/redis"
	"github.com/kirinyoku/resortbook/internal/service"
	"github.com/kirinyoku/resortbook/internal/service/holiday"
)

const (
	idempotencyLockTTL      = 60 * time.Second
	defaultReconcileHorizon = 90
)

// Options carries the optional collaborators of the router. Nil fields
// switch the matching feature off.
type Options struct {
	Idempotency *redisrepo.IdempotencyStore
	Limiter     RateLimiter
	Metrics     *metrics.Metrics
	CORS        CORSConfig
	// Location interprets YYYY-MM-DD path and body dates.
	Location             *time.Location
	ReconcileHorizonDays int
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.ReconcileHorizonDays <= 0 {
		opts.ReconcileHorizonDays = defaultReconcileHorizon
	}

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS(opts.CORS))
	if opts.Metrics != nil {
		r.Use(MetricsMiddleware(opts.Metrics))
	}
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// Public API
	r.GET("/availability/:date", handleGetAvailability(svcs, opts.Location))

	create := []gin.HandlerFunc{}
	if opts.Limiter != nil {
		create = append(create, RateLimitMiddleware(opts.Limiter, logger))
	}
	create = append(create, handleCreatePublicBooking(svcs, opts.Idempotency, opts.Location))
	r.POST("/bookings", create...)

	// Admin API. Authentication happens in front of this service.
	admin := r.Group("/admin")
	{
		admin.GET("/bookings", handleListBookings(svcs, opts.Location))
		admin.GET("/bookings/:id", handleGetBooking(svcs))
		admin.POST("/bookings", handleCreateAdminBooking(svcs, opts.Location))
		admin.PATCH("/bookings/:id/status", handleChangeStatus(svcs))

		admin.GET("/holidays", handleListHolidays(svcs))
		admin.PUT("/holidays/:date", handleMarkHoliday(svcs, opts.Location))
		admin.DELETE("/holidays/:date", handleRemoveHoliday(svcs))

		admin.POST("/availability/reconcile", handleReconcile(svcs, opts.ReconcileHorizonDays))
	}

	return r
}

// @Summary  Get slot availability of a date
// @Param    date  path  string  true  "Date (YYYY-MM-DD)"
// @Success  200  {object}  AvailabilityResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  503  {object}  ErrorResponse
// @Router   /availability/{date} [get]
func handleGetAvailability(svcs *service.Services, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDateParam(c, loc)
		if !ok {
			return
		}

		a, err := svcs.Availability.GetAvailability(c.Request.Context(), date)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, AvailabilityResponse{
			Date:    domain.ToDateKey(date),
			Morning: a.Morning,
			Evening: a.Evening,
		}, "public, max-age=15", true)
	}
}

// @Summary  Request a booking (idempotent with Idempotency-Key)
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} CreateBookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "slot unavailable / idempotency key in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  503 {object} ErrorResponse
// @Router   /bookings [post]
func handleCreatePublicBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	loc *time.Location,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		draft, err := req.draft(loc)
		if err != nil {
			badRequest(c, "invalid event_date (YYYY-MM-DD)")
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader(headerIdempotency))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(idemKey)

			if replayed := replayIdempotent(c, idem, idemStorageKey, idemKey); replayed {
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, idempotencyLockTTL)
			if err != nil {
				respondErr(c, domain.MarkTransient(err))
				return
			}
			if !locked {
				if replayed := replayIdempotent(c, idem, idemStorageKey, idemKey); replayed {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "A request with this Idempotency-Key is still being processed."})
				return
			}
		}

		id, out, err := svcs.Booking.CreatePublicBooking(ctx, draft)
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := CreateBookingResponse{BookingID: id.String(), Warning: warning(out)}

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(ctx, idemStorageKey, string(b))
			c.Header(headerIdempotency, idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

func replayIdempotent(c *gin.Context, idem *redisrepo.IdempotencyStore, storageKey, idemKey string) bool {
	payload, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}
	c.Header(headerIdempotency, idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
	return true
}

// @Summary  List bookings, newest first or for one date
// @Param    date  query  string  false  "Date (YYYY-MM-DD)"
// @Success  200  {array}   domain.Booking
// @Failure  400  {object}  ErrorResponse
// @Router   /admin/bookings [get]
func handleListBookings(svcs *service.Services, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		var date *time.Time
		if s := c.Query("date"); s != "" {
			d, err := parseDate(s, loc)
			if err != nil {
				badRequest(c, "invalid date (YYYY-MM-DD)")
				return
			}
			date = &d
		}

		list, err := svcs.Query.ListBookings(c.Request.Context(), date)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Get booking with its audit trail
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.Booking
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		b, err := svcs.Query.GetBooking(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Add a booking manually
// @Param    X-Actor-ID  header  string  false  "admin id for the audit trail"
// @Param    req body  CreateAdminBookingRequest true "payload"
// @Success  201 {object} CreateBookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "slot already confirmed"
// @Router   /admin/bookings [post]
func handleCreateAdminBooking(svcs *service.Services, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAdminBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		draft, err := req.draft(loc)
		if err != nil {
			badRequest(c, "invalid event_date (YYYY-MM-DD)")
			return
		}
		draft.Status = domain.BookingStatus(req.Status)

		id, out, err := svcs.Booking.CreateAdminBooking(c.Request.Context(), draft, actorID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateBookingResponse{BookingID: id.String(), Warning: warning(out)})
	}
}

// @Summary  Change booking status (safe to retry)
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Param    X-Actor-ID  header  string  false  "admin id for the audit trail"
// @Param    req body  ChangeStatusRequest true "payload"
// @Success  200 {object} ChangeStatusResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "slot already confirmed"
// @Failure  503 {object} ErrorResponse
// @Router   /admin/bookings/{id}/status [patch]
func handleChangeStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req ChangeStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		status := domain.BookingStatus(req.Status)
		out, err := svcs.Booking.ChangeStatus(c.Request.Context(), id, status, req.Notes, actorID(c))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ChangeStatusResponse{
			BookingID: id.String(),
			Status:    status,
			Changed:   out.Changed,
			Warning:   warning(out),
		})
	}
}

// @Summary  List holidays by date
// @Success  200  {array}  domain.Holiday
// @Router   /admin/holidays [get]
func handleListHolidays(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Holiday.ListHolidays(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		if list == nil {
			list = []domain.Holiday{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Mark a date as holiday
// @Param    date  path  string  true  "Date (YYYY-MM-DD)"
// @Param    req body  MarkHolidayRequest false "payload"
// @Success  200 {object} HolidayResponse
// @Failure  400 {object} ErrorResponse "past date"
// @Router   /admin/holidays/{date} [put]
func handleMarkHoliday(svcs *service.Services, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDateParam(c, loc)
		if !ok {
			return
		}
		var req MarkHolidayRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}

		out, err := svcs.Holiday.MarkHoliday(c.Request.Context(), date, req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = holiday.DefaultName
		}
		c.JSON(http.StatusOK, HolidayResponse{
			Date:    domain.ToDateKey(date),
			Name:    name,
			Changed: out.Changed,
			Warning: warning(out),
		})
	}
}

// @Summary  Remove a holiday (no-op when absent)
// @Param    date  path  string  true  "Date (YYYY-MM-DD)"
// @Success  200 {object} HolidayResponse
// @Router   /admin/holidays/{date} [delete]
func handleRemoveHoliday(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := domain.ParseDateKey(c.Param("date"))
		if err != nil {
			badRequest(c, "invalid date (YYYY-MM-DD)")
			return
		}

		out, err := svcs.Holiday.RemoveHoliday(c.Request.Context(), key)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, HolidayResponse{Date: key, Changed: out.Changed, Warning: warning(out)})
	}
}

// @Summary  Recompute availability for a date range
// @Param    from  query  string  false  "first date, default today"
// @Param    to    query  string  false  "last date, default from + horizon"
// @Success  200 {object} ReconcileResponse
// @Failure  400 {object} ErrorResponse
// @Router   /admin/availability/reconcile [post]
func handleReconcile(svcs *service.Services, horizonDays int) gin.HandlerFunc {
	return func(c *gin.Context) {
		from := svcs.Availability.TodayKey()
		if s := c.Query("from"); s != "" {
			k, err := domain.ParseDateKey(s)
			if err != nil {
				badRequest(c, "invalid from (YYYY-MM-DD)")
				return
			}
			from = k
		}

		to := from.AddDays(horizonDays)
		if s := c.Query("to"); s != "" {
			k, err := domain.ParseDateKey(s)
			if err != nil {
				badRequest(c, "invalid to (YYYY-MM-DD)")
				return
			}
			to = k
		}

		n, err := svcs.Availability.Reconcile(c.Request.Context(), from, to)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ReconcileResponse{From: from, To: to, Refreshed: n})
	}
}

// --- Helpers ---

func parseDateParam(c *gin.Context, loc *time.Location) (time.Time, bool) {
	d, err := parseDate(c.Param("date"), loc)
	if err != nil {
		badRequest(c, "invalid date (YYYY-MM-DD)")
		return time.Time{}, false
	}
	return d, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
