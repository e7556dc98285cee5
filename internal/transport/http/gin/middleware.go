package httpgin

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/metrics"
)

const (
	headerActorID    = "X-Actor-ID"
	headerActorRole  = "X-Actor-Role"
	headerProviderID = "X-Provider-ID"
	headerSessionID  = "X-Session-ID"

	ctxRequestID = "request_id"
	ctxActor     = "actor"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set(ctxRequestID, reqID)

		c.Next()
	}
}

func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			"GET", "POST", "PUT", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-ID",
			"Idempotency-Key",
			"If-None-Match",
			headerActorID,
			headerActorRole,
			headerProviderID,
			headerSessionID,
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"ETag",
			"Cache-Control",
			"Retry-After",
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(cfg)
}

func LoggingMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		reqID, _ := c.Get(ctxRequestID)

		ev := logger.Info()
		switch {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			ev = logger.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("error", c.Errors.String())
			}
		case status >= http.StatusBadRequest:
			ev = logger.Warn()
		}

		ev.
			Int("status", status).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("ip", c.ClientIP()).
			Str("ua", c.Request.UserAgent()).
			Interface("request_id", reqID).
			Str("actor_id", c.GetHeader(headerActorID)).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Msg("http")
	}
}

// MetricsMiddleware counts requests by route template and status.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.IncHTTP(route, c.Writer.Status())
	}
}

// ActorMiddleware turns the identity headers set by the upstream
// authenticator into a domain.Actor. Requests without headers act as an
// anonymous customer; X-Session-ID then ties them to their checkout.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := domain.Role(c.GetHeader(headerActorRole))
		switch role {
		case "":
			role = domain.RoleCustomer
		case domain.RoleCustomer, domain.RoleOperator, domain.RoleAdmin, domain.RoleSystem:
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "unknown actor role"})
			return
		}

		c.Set(ctxActor, domain.Actor{
			ID:         c.GetHeader(headerActorID),
			Role:       role,
			ProviderID: c.GetHeader(headerProviderID),
			SessionID:  c.GetHeader(headerSessionID),
		})

		c.Next()
	}
}

// RequireRoles rejects actors outside roles with 403.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := actor(c)
		for _, r := range roles {
			if a.Role == r {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	}
}

func actor(c *gin.Context) domain.Actor {
	if v, ok := c.Get(ctxActor); ok {
		if a, ok := v.(domain.Actor); ok {
			return a
		}
	}
	return domain.Actor{Role: domain.RoleCustomer}
}
