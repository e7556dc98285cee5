package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/service"
	"github.com/kirinyoku/staygo/internal/service/booking"
)

// @Summary  Get booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} BookingResponse
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		b, err := svcs.Booking.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		// Bookings the caller may not see look absent rather than forbidden.
		if !canView(c, svcs, actor(c), b) {
			respondErr(c, domain.ErrNotFound)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Cancel booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Param    req body  CancelRequest false "reason"
// @Success  200 {object} BookingResponse
// @Failure  403 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "booking not cancellable"
// @Router   /bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var req CancelRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}

		b, err := svcs.Booking.Cancel(c.Request.Context(), id, req.Reason, actor(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

// @Summary  Reconcile payment with the gateway
// @Description With wait=true the server polls the gateway within its budget and answers 202 while the payment stays pending.
// @Param    id    path   string  true   "Booking ID (uuid)"
// @Param    wait  query  bool    false  "Poll until settled"
// @Success  200 {object} ReconcileResponse
// @Success  202 {object} ReconcileResponse "still pending"
// @Router   /bookings/{id}/reconcile [post]
func handleReconcile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()

		b, err := svcs.Booking.Get(ctx, id)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !canView(c, svcs, actor(c), b) {
			respondErr(c, domain.ErrNotFound)
			return
		}

		if c.Query("wait") == "true" {
			settled, err := svcs.Booking.AwaitPayment(ctx, id)
			if settled != nil {
				b = settled
			}

			switch {
			case errors.Is(err, booking.ErrStillPending):
				c.JSON(http.StatusAccepted, ReconcileResponse{Booking: toBookingResponse(b), GatewayStatus: "pending"})
				return
			case err != nil:
				respondErr(c, err)
				return
			}

			c.JSON(http.StatusOK, ReconcileResponse{Booking: toBookingResponse(b), GatewayStatus: string(b.PaymentStatus)})
			return
		}

		b, st, err := svcs.Booking.Reconcile(ctx, id)
		if err != nil {
			respondErr(c, err)
			return
		}

		status := http.StatusOK
		if b.Status == domain.BookingPendingPayment {
			status = http.StatusAccepted
		}

		c.JSON(status, ReconcileResponse{Booking: toBookingResponse(b), GatewayStatus: string(st)})
	}
}

// @Summary  Payment gateway webhook
// @Param    req body  WebhookRequest true "payment outcome"
// @Success  200 {object} BookingResponse
// @Failure  409 {object} ErrorResponse "invalid transition"
// @Router   /payments/webhook [post]
func handlePaymentWebhook(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WebhookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		id, err := uuid.Parse(req.BookingID)
		if err != nil {
			badRequest(c, "invalid booking_id")
			return
		}

		var b *domain.Booking
		if req.Status == "success" {
			b, err = svcs.Booking.ConfirmPayment(c.Request.Context(), id, req.Reference)
		} else {
			b, err = svcs.Booking.FailPayment(c.Request.Context(), id, req.Reason)
		}
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

func canView(c *gin.Context, svcs *service.Services, a domain.Actor, b *domain.Booking) bool {
	switch a.Role {
	case domain.RoleAdmin, domain.RoleSystem:
		return true
	case domain.RoleCustomer:
		return a.Owns(b.CreatedBy)
	}

	for _, l := range b.Lines {
		res, err := svcs.Resources.Get(c.Request.Context(), l.ResourceID)
		if err == nil && a.CanManage(res.ProviderID) {
			return true
		}
	}
	return false
}
