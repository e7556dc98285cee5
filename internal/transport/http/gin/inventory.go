package httpgin

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/staygo/internal/notify"
	"github.com/kirinyoku/staygo/internal/service"
)

// @Summary  Get resource
// @Param    id  path  string  true  "Resource ID"
// @Success  200  {object}  ResourceResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /resources/{id} [get]
func handleGetResource(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svcs.Resources.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toResourceResponse(res))
	}
}

// @Summary  Check availability
// @Description Remaining units per day, counting committed entries and active holds.
// @Param    id        path   string  true   "Resource ID"
// @Param    from      query  string  true   "First day (YYYY-MM-DD)"
// @Param    to        query  string  true   "Last day, inclusive (YYYY-MM-DD)"
// @Param    quantity  query  int     false  "Units per day (default 1)"
// @Success  200  {object}  AvailabilityResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /resources/{id}/availability [get]
func handleCheckAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := parseRangeQuery(c)
		if !ok {
			return
		}

		qty := parseIntDefault(c.Query("quantity"), 1)

		a, err := svcs.Availability.Check(c.Request.Context(), c.Param("id"), r, qty)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithETag(c, http.StatusOK, toAvailabilityResponse(a), cacheRevalidate)
	}
}

// @Summary  Operator calendar
// @Description Committed occupancy per day. Active holds are not subtracted.
// @Param    id    path   string  true  "Resource ID"
// @Param    from  query  string  true  "First day (YYYY-MM-DD)"
// @Param    to    query  string  true  "Last day, inclusive (YYYY-MM-DD)"
// @Success  200  {array}   CalendarDayResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /resources/{id}/calendar [get]
func handleProjectCalendar(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := parseRangeQuery(c)
		if !ok {
			return
		}

		days, err := svcs.Calendar.Project(c.Request.Context(), c.Param("id"), r)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithETag(c, http.StatusOK, toCalendarResponse(days), cacheCalendar)
	}
}

// @Summary  Ledger audit
// @Param    id    path   string  true  "Resource ID"
// @Param    from  query  string  true  "First day (YYYY-MM-DD)"
// @Param    to    query  string  true  "Last day, inclusive (YYYY-MM-DD)"
// @Success  200  {object}  LedgerResponse
// @Failure  403  {object}  ErrorResponse
// @Router   /resources/{id}/ledger [get]
func handleListLedger(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := parseRangeQuery(c)
		if !ok {
			return
		}

		l, err := svcs.Calendar.Entries(c.Request.Context(), c.Param("id"), r)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toLedgerResponse(l))
	}
}

// @Summary  Inventory change stream
// @Description Server-sent events: "ready" once subscribed, then "inventory_changed" after every committed write to the resource.
// @Param    id  path  string  true  "Resource ID"
// @Produce  text/event-stream
// @Success  200
// @Failure  404  {object}  ErrorResponse
// @Failure  503  {object}  ErrorResponse
// @Router   /resources/{id}/changes [get]
func handleChanges(svcs *service.Services, broker *notify.Broker, keepAlive time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if broker == nil {
			unavailable(c, "change stream disabled")
			return
		}

		id := c.Param("id")
		if _, err := svcs.Resources.Get(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}

		changes, cancel := broker.Subscribe(id)
		defer cancel()

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		ping := time.NewTicker(keepAlive)
		defer ping.Stop()

		c.SSEvent("ready", gin.H{"resource_id": id})
		c.Writer.Flush()

		c.Stream(func(io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case ch, ok := <-changes:
				if !ok {
					return false
				}
				c.SSEvent("inventory_changed", ch)
				return true
			case t := <-ping.C:
				c.SSEvent("ping", t.Unix())
				return true
			}
		})
	}
}
