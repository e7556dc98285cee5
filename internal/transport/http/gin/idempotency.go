package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	redisrepo "github.com/kirinyoku/staygo/internal/repository/redis"
)

const idemLockTTL = 60 * time.Second

// idempotent runs fn at most once per Idempotency-Key within scope and
// replays the stored response to retries. Without a key or a store, fn
// simply runs.
func idempotent(
	c *gin.Context,
	idem *redisrepo.IdempotencyStore,
	scope string,
	fn func() (int, any, error),
) {
	key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if idem == nil || key == "" {
		status, body, err := fn()
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(status, body)
		return
	}

	ctx := c.Request.Context()
	storageKey := redisrepo.KeyIdempotency(scope, key)

	if replayed(c, idem, storageKey, key) {
		return
	}

	locked, err := idem.AcquireLock(ctx, storageKey, idemLockTTL)
	if err != nil {
		_ = c.Error(err)
		unavailable(c, "idempotency store unavailable")
		return
	}

	if !locked {
		if replayed(c, idem, storageKey, key) {
			return
		}
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress", Retriable: true})
		return
	}

	status, body, err := fn()
	if err != nil {
		_ = idem.Release(ctx, storageKey)
		respondErr(c, err)
		return
	}

	b, err := json.Marshal(body)
	if err != nil {
		_ = idem.Release(ctx, storageKey)
		respondErr(c, err)
		return
	}

	if err := idem.SaveResult(ctx, storageKey, status, string(b)); err != nil {
		_ = c.Error(err)
	}

	c.Header("Idempotency-Key", key)
	c.Data(status, "application/json; charset=utf-8", b)
}

func replayed(c *gin.Context, idem *redisrepo.IdempotencyStore, storageKey, key string) bool {
	status, body, ok, err := idem.GetResult(c.Request.Context(), storageKey)
	if err != nil || !ok {
		return false
	}

	c.Header("Idempotency-Key", key)
	c.Header("Idempotent-Replayed", "true")
	c.Data(status, "application/json; charset=utf-8", []byte(body))
	return true
}
