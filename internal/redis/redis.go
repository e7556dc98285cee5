package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	ClientName string
}

// New connects and pings; the caller owns Close.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	const op = "redis.New"

	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		ClientName: cfg.ClientName,
	}

	client := redis.NewClient(opts)

	ctxPing, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := client.Ping(ctxPing).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return client, nil
}
