package redis

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock   = "LOCK"
	idemResult = "RES:"
)

// IdempotencyStore remembers the response of a keyed request so retries get
// the same answer. A key is either locked (request in flight) or holds a
// result.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
}

func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, status int, jsonPayload string) error {
	val := idemResult + strconv.Itoa(status) + ":" + jsonPayload
	return s.rdb.Set(ctx, key, val, s.ttl).Err()
}

// GetResult returns the stored status code and body.
func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (int, string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	if !strings.HasPrefix(v, idemResult) {
		return 0, "", false, nil
	}

	rest := strings.TrimPrefix(v, idemResult)
	code, body, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, "", false, nil
	}

	status, err := strconv.Atoi(code)
	if err != nil {
		return 0, "", false, nil
	}

	return status, body, true, nil
}

func (s *IdempotencyStore) IsLocked(ctx context.Context, key string) (bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == idemLock, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
