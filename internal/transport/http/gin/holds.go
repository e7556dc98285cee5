package httpgin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kirinyoku/staygo/internal/domain"
	redisrepo "github.com/kirinyoku/staygo/internal/repository/redis"
	"github.com/kirinyoku/staygo/internal/service"
	"github.com/kirinyoku/staygo/internal/service/booking"
	"github.com/kirinyoku/staygo/internal/service/holds"
)

// @Summary  Create hold (idempotent)
// @Param    Idempotency-Key  header  string  false  "Client retry key"
// @Param    req body  CreateHoldRequest true "payload"
// @Success  201 {object} HoldResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "capacity unavailable / idem in progress"
// @Failure  423 {object} ErrorResponse "lock timeout, retry"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /holds [post]
func handleCreateHold(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	limiter *redisrepo.SlidingWindowLimiter,
	logger zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateHoldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		r, err := domain.ParseDateRange(req.From, req.To)
		if err != nil {
			respondErr(c, err)
			return
		}

		a := actor(c)

		var userID string
		if a.Role == domain.RoleCustomer {
			userID = a.ID
		}

		if req.SessionID == "" && userID == "" {
			badRequest(c, "session_id is required for anonymous checkout")
			return
		}

		subject := userID
		if subject == "" {
			subject = req.SessionID
		}

		if limiter != nil {
			allowed, _, retryAfter, err := limiter.Allow(c.Request.Context(), subject)
			if err != nil {
				logger.Warn().Err(err).Msg("hold rate limiter unavailable")
			} else if !allowed {
				c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second)/time.Second)))
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited", Retriable: true})
				return
			}
		}

		idempotent(c, idem, "holds:"+subject, func() (int, any, error) {
			h, err := svcs.Holds.Create(c.Request.Context(), holds.CreateInput{
				ResourceID:  req.ResourceID,
				Range:       r,
				Quantity:    req.Quantity,
				TTL:         time.Duration(req.TTLSec) * time.Second,
				SessionID:   req.SessionID,
				UserID:      userID,
				AmountCents: req.AmountCents,
			})
			if err != nil {
				return 0, nil, err
			}
			return http.StatusCreated, toHoldResponse(h), nil
		})
	}
}

// @Summary  Get hold status
// @Param    id  path  string  true  "Hold ID (uuid)"
// @Success  200 {object} HoldResponse
// @Failure  404 {object} ErrorResponse
// @Router   /holds/{id} [get]
func handleGetHold(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		h, err := svcs.Holds.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, toHoldResponse(h))
	}
}

// @Summary  Release hold
// @Param    id  path  string  true  "Hold ID (uuid)"
// @Success  200 {object} HoldResponse
// @Failure  409 {object} ErrorResponse "hold consumed or expired"
// @Router   /holds/{id} [delete]
func handleReleaseHold(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		h, err := svcs.Holds.Release(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toHoldResponse(h))
	}
}

// @Summary  Commit hold into a booking (idempotent)
// @Param    id  path  string  true  "Hold ID (uuid)"
// @Param    Idempotency-Key  header  string  false  "Client retry key"
// @Param    req body  CommitRequest false "guest details"
// @Success  201 {object} BookingResponse
// @Failure  409 {object} ErrorResponse "hold not active / capacity unavailable"
// @Router   /holds/{id}/commit [post]
func handleCommit(svcs *service.Services, idem *redisrepo.IdempotencyStore, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req CommitRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}

		a := actor(c)
		if req.PaymentConfirmed && a.Role != domain.RoleSystem && a.Role != domain.RoleAdmin {
			respondErr(c, domain.ErrForbidden)
			return
		}

		idempotent(c, idem, "commit:"+id.String(), func() (int, any, error) {
			ctx := c.Request.Context()

			b, err := svcs.Booking.Commit(ctx, id, booking.Details{
				Guest:            domain.Guest(req.Guest),
				PaymentConfirmed: req.PaymentConfirmed,
				PaymentReference: req.PaymentReference,
				Actor:            a,
			})
			if err != nil {
				return 0, nil, err
			}

			var paymentURL string
			if b.Status == domain.BookingPendingPayment {
				paymentURL, err = svcs.Booking.InitiatePayment(ctx, b.ID)
				if err != nil {
					logger.Warn().Err(err).Str("booking_id", b.ID.String()).Msg("payment initiation failed")
				} else if fresh, err := svcs.Booking.Get(ctx, b.ID); err == nil {
					b = fresh
				}
			}

			resp := toBookingResponse(b)
			resp.PaymentURL = paymentURL

			return http.StatusCreated, resp, nil
		})
	}
}
