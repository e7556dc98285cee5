package httpgin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/metrics"
	"github.com/kirinyoku/staygo/internal/notify"
	redisrepo "github.com/kirinyoku/staygo/internal/repository/redis"
	"github.com/kirinyoku/staygo/internal/service"
)

// Options carries the optional collaborators of the router. Nil Redis
// components disable idempotency replay and rate limiting; a nil Changes
// broker disables the change stream.
type Options struct {
	Idempotency     *redisrepo.IdempotencyStore
	HoldLimiter     *redisrepo.SlidingWindowLimiter
	Changes         *notify.Broker
	Logger          zerolog.Logger
	StreamKeepAlive time.Duration
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	if opts.StreamKeepAlive <= 0 {
		opts.StreamKeepAlive = 25 * time.Second
	}

	r := gin.New()

	r.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		LoggingMiddleware(opts.Logger),
		MetricsMiddleware(),
		CORS(),
		ActorMiddleware(),
	)
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	metrics.Register()
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	staff := RequireRoles(domain.RoleOperator, domain.RoleAdmin)

	// Public API
	r.GET("/resources/:id", handleGetResource(svcs))
	r.GET("/resources/:id/availability", handleCheckAvailability(svcs))
	r.GET("/resources/:id/calendar", handleProjectCalendar(svcs))
	r.GET("/resources/:id/ledger", staff, handleListLedger(svcs))
	r.GET("/resources/:id/changes", handleChanges(svcs, opts.Changes, opts.StreamKeepAlive))

	r.POST("/holds", handleCreateHold(svcs, opts.Idempotency, opts.HoldLimiter, opts.Logger))
	r.GET("/holds/:id", handleGetHold(svcs))
	r.DELETE("/holds/:id", handleReleaseHold(svcs))
	r.POST("/holds/:id/commit", handleCommit(svcs, opts.Idempotency, opts.Logger))

	r.GET("/bookings/:id", handleGetBooking(svcs))
	r.POST("/bookings/:id/cancel", handleCancelBooking(svcs))
	r.POST("/bookings/:id/reconcile", handleReconcile(svcs))

	r.POST("/payments/webhook", RequireRoles(domain.RoleSystem, domain.RoleAdmin), handlePaymentWebhook(svcs))

	// Operator API
	admin := r.Group("/admin", staff)
	{
		admin.POST("/resources", handleCreateResource(svcs))
		admin.PUT("/resources/:id/capacity/:date", handleSetCapacity(svcs))
		admin.PUT("/resources/:id/active", handleSetActive(svcs))
		admin.POST("/resources/:id/blocks", handleBlock(svcs))
		admin.GET("/resources/:id/blocks", handleListBlocks(svcs))
		admin.DELETE("/blocks/:id", handleUnblock(svcs))
		admin.POST("/bookings", handleDirectBooking(svcs))
		admin.POST("/bookings/:id/complete", handleCompleteBooking(svcs))
	}

	return r
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// parseRangeQuery reads the inclusive from/to query parameters.
func parseRangeQuery(c *gin.Context) (domain.DateRange, bool) {
	r, err := domain.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		respondErr(c, err)
		return domain.DateRange{}, false
	}
	return r, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func unavailable(c *gin.Context, msg string) {
	c.Header("Retry-After", "1")
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: msg, Retriable: true})
}

// respondErr maps domain errors to status codes. Anything unrecognised is a
// 500 and is attached to the context for the request logger.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var short *domain.CapacityUnavailableError

	switch {
	case errors.As(err, &short):
		days := make([]string, 0, len(short.Short))
		for _, d := range short.Short {
			days = append(days, domain.DayKey(d))
		}
		c.JSON(http.StatusConflict, ErrorResponse{Error: domain.ErrCapacityUnavailable.Error(), ShortDays: days})
	case errors.Is(err, domain.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrInvalidRange.Error()})
	case errors.Is(err, domain.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrInvalidQuantity.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: domain.ErrForbidden.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrNotFound.Error()})
	case errors.Is(err, domain.ErrHoldNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: domain.ErrHoldNotActive.Error()})
	case errors.Is(err, domain.ErrBookingNotCancellable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: domain.ErrBookingNotCancellable.Error()})
	case errors.Is(err, domain.ErrNotABlock):
		c.JSON(http.StatusConflict, ErrorResponse{Error: domain.ErrNotABlock.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: domain.ErrInvalidTransition.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: domain.ErrConflict.Error()})
	case errors.Is(err, domain.ErrLockTimeout):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusLocked, ErrorResponse{Error: domain.ErrLockTimeout.Error(), Retriable: true})
	case errors.Is(err, context.DeadlineExceeded):
		_ = c.Error(err)
		unavailable(c, "upstream timeout")
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
