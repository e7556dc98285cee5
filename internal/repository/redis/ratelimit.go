package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set of hit timestamps.
// KEYS[1] = key
// ARGV[1] = now_ms
// ARGV[2] = window_ms
// ARGV[3] = limit
// ARGV[4] = member (unique)
const luaSlidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)

if count >= limit then
  local earliest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local earliestScore = tonumber(earliest[2]) or (now - window)
  local retry_ms = window - (now - earliestScore)
  if retry_ms < 0 then retry_ms = 0 end
  return {0, count, retry_ms}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return {1, count + 1, 0}
`

// SlidingWindowLimiter allows at most limit hits per window for each
// subject. Rejected hits are not recorded.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
	script *redis.Script
	now    func() time.Time
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	scope string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaSlidingWindow),
		now:    time.Now,
	}
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, subject string) (allowed bool, current int64, retryAfter time.Duration, err error) {
	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{KeyRateLimit(l.scope, subject)},
		l.now().UnixMilli(), l.window.Milliseconds(), l.limit, randomHex(12),
	).Result()
	if err != nil {
		return false, 0, 0, err
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return false, 0, 0, fmt.Errorf("bad script result: %v", res)
	}

	allowed = toInt(arr[0]) == 1
	current = toInt(arr[1])
	retryAfter = time.Duration(toInt(arr[2])) * time.Millisecond

	return
}

func toInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		x, _ := strconv.ParseInt(t, 10, 64)
		return x
	default:
		return 0
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
