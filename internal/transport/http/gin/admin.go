package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/service"
	"github.com/kirinyoku/staygo/internal/service/adjustment"
	"github.com/kirinyoku/staygo/internal/service/booking"
	"github.com/kirinyoku/staygo/internal/service/resources"
)

// @Summary  Register resource
// @Param    req body  CreateResourceRequest true "resource"
// @Success  201 {object} ResourceResponse
// @Failure  403 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "already exists"
// @Router   /admin/resources [post]
func handleCreateResource(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateResourceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := svcs.Resources.Create(c.Request.Context(), resources.CreateInput{
			ID:         req.ID,
			ProviderID: req.ProviderID,
			Name:       req.Name,
			Capacity:   req.Capacity,
		}, actor(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toResourceResponse(res))
	}
}

// @Summary  Override capacity for one day
// @Param    id    path  string  true  "Resource ID"
// @Param    date  path  string  true  "Day (YYYY-MM-DD)"
// @Param    req body  SetCapacityRequest true "capacity"
// @Success  204
// @Router   /admin/resources/{id}/capacity/{date} [put]
func handleSetCapacity(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		day, err := domain.ParseDay(c.Param("date"))
		if err != nil {
			badRequest(c, "invalid date")
			return
		}

		var req SetCapacityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if err := svcs.Resources.SetCapacity(c.Request.Context(), c.Param("id"), day, req.Capacity, actor(c)); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Activate or deactivate resource
// @Param    id  path  string  true  "Resource ID"
// @Param    req body  SetActiveRequest true "active flag"
// @Success  204
// @Router   /admin/resources/{id}/active [put]
func handleSetActive(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if err := svcs.Resources.SetActive(c.Request.Context(), c.Param("id"), *req.Active, actor(c)); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Block units
// @Param    id  path  string  true  "Resource ID"
// @Param    req body  BlockRequest true "block"
// @Success  201 {object} AdjustmentResponse
// @Failure  409 {object} ErrorResponse "capacity unavailable"
// @Router   /admin/resources/{id}/blocks [post]
func handleBlock(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BlockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		r, err := domain.ParseDateRange(req.From, req.To)
		if err != nil {
			respondErr(c, err)
			return
		}

		adj, err := svcs.Adjustment.Block(c.Request.Context(), adjustment.BlockInput{
			ResourceID: c.Param("id"),
			Range:      r,
			Quantity:   req.Quantity,
			Reason:     req.Reason,
		}, actor(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toAdjustmentResponse(adj))
	}
}

// @Summary  List blocks overlapping a range
// @Param    id    path   string  true  "Resource ID"
// @Param    from  query  string  true  "First day (YYYY-MM-DD)"
// @Param    to    query  string  true  "Last day, inclusive (YYYY-MM-DD)"
// @Success  200 {array} AdjustmentResponse
// @Router   /admin/resources/{id}/blocks [get]
func handleListBlocks(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := parseRangeQuery(c)
		if !ok {
			return
		}

		blocks, err := svcs.Adjustment.ListBlocks(c.Request.Context(), c.Param("id"), r)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]AdjustmentResponse, 0, len(blocks))
		for i := range blocks {
			out = append(out, toAdjustmentResponse(&blocks[i]))
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Reverse a block
// @Param    id  path  string  true  "Adjustment ID (uuid)"
// @Success  200 {object} AdjustmentResponse
// @Failure  409 {object} ErrorResponse "not a block"
// @Router   /admin/blocks/{id} [delete]
func handleUnblock(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		adj, err := svcs.Adjustment.Unblock(c.Request.Context(), id, actor(c))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toAdjustmentResponse(adj))
	}
}

// @Summary  Direct booking without a hold
// @Param    req body  DirectBookingRequest true "lines and guest"
// @Success  201 {object} BookingResponse
// @Failure  409 {object} ErrorResponse "capacity unavailable"
// @Router   /admin/bookings [post]
func handleDirectBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DirectBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		lines := make([]domain.BookingLine, 0, len(req.Lines))
		for _, l := range req.Lines {
			r, err := domain.ParseDateRange(l.From, l.To)
			if err != nil {
				respondErr(c, err)
				return
			}

			lines = append(lines, domain.BookingLine{ResourceID: l.ResourceID, Range: r, Quantity: l.Quantity})
		}

		b, err := svcs.Booking.CreateDirect(c.Request.Context(), lines, booking.Details{
			Guest:            domain.Guest(req.Guest),
			PaymentConfirmed: req.PaymentConfirmed,
			PaymentReference: req.PaymentReference,
			TotalCents:       req.TotalCents,
			Actor:            actor(c),
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toBookingResponse(b))
	}
}

// @Summary  Mark booking completed
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} BookingResponse
// @Failure  409 {object} ErrorResponse "invalid transition"
// @Router   /admin/bookings/{id}/complete [post]
func handleCompleteBooking(svcs *service.Services) gin.HandlerFunc {
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
			respondErr(c, domain.ErrForbidden)
			return
		}

		b, err = svcs.Booking.Complete(ctx, id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}
