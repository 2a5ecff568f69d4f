package httpgin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kirinyoku/resortbook/internal/metrics"
)

const (
	headerRequestID   = "X-Request-ID"
	headerActorID     = "X-Actor-ID"
	headerIdempotency = "Idempotency-Key"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set(headerRequestID, reqID)
		c.Set("request_id", reqID)

		c.Next()
	}
}

type CORSConfig struct {
	AllowOrigins []string
	MaxAge       time.Duration
}

func CORS(cfg CORSConfig) gin.HandlerFunc {
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 12 * time.Hour
	}

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			headerRequestID,
			headerActorID,
			headerIdempotency,
			"If-None-Match",
		},
		ExposeHeaders: []string{
			headerRequestID,
			headerIdempotency,
			"ETag",
			"Cache-Control",
			"Retry-After",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
		},
		AllowCredentials: false,
		MaxAge:           maxAge,
	})
}

func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		reqID, _ := c.Get("request_id")
		attrs := []any{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
			slog.String("ua", c.Request.UserAgent()),
			slog.Any("request_id", reqID),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", c.Writer.Size()),
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
			logger.Error("http", slog.Group("http", attrs...))
			return
		}
		logger.Info("http", slog.Group("http", attrs...))
	}
}

// MetricsMiddleware records request counts and latency by route template.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// RateLimiter is satisfied by *redisrepo.SlidingWindowLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, id string) (allowed bool, current int64, retryAfter time.Duration, err error)
	Limit() int
}

// RateLimitMiddleware limits requests per client IP. When the limiter
// itself fails the request is let through.
func RateLimitMiddleware(l RateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, current, retryAfter, err := l.Allow(c.Request.Context(), "ip:"+c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		remaining := int64(l.Limit()) - current
		if remaining < 0 || !allowed {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			secs := int(retryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "Too many booking requests. Please wait a moment and try again.",
			})
			return
		}

		c.Next()
	}
}

// actorID names the admin performing a request for the audit trail.
// Callers are authenticated upstream.
func actorID(c *gin.Context) string {
	return c.GetHeader(headerActorID)
}
