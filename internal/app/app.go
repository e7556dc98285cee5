package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/staygo/internal/clock"
	"github.com/kirinyoku/staygo/internal/config"
	"github.com/kirinyoku/staygo/internal/notify"
	"github.com/kirinyoku/staygo/internal/payment"
	"github.com/kirinyoku/staygo/internal/postgres"
	"github.com/kirinyoku/staygo/internal/redis"
	"github.com/kirinyoku/staygo/internal/repository"
	"github.com/kirinyoku/staygo/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/staygo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/staygo/internal/repository/redis"
	"github.com/kirinyoku/staygo/internal/retry"
	"github.com/kirinyoku/staygo/internal/service"
	"github.com/kirinyoku/staygo/internal/service/booking"
	"github.com/kirinyoku/staygo/internal/service/holds"
	httpgin "github.com/kirinyoku/staygo/internal/transport/http/gin"
	"github.com/kirinyoku/staygo/internal/worker"
	"github.com/kirinyoku/staygo/migrations"
)

type App struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	sweeper    *worker.Sweeper
	pubsub     *redisrepo.InventoryPubSub
	broker     *notify.Broker
	closers    []func()
}

func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger, broker: notify.NewBroker(64)}

	// Initialize storage
	store, err := a.newStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var (
		cache    *redisrepo.Cache
		idem     *redisrepo.IdempotencyStore
		limiter  *redisrepo.SlidingWindowLimiter
		notifier notify.Notifier = a.broker
	)

	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, redis.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			ClientName: cfg.App.Name,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		cache = redisrepo.New(rdb)
		a.pubsub = redisrepo.NewInventoryPubSub(rdb)
		notifier = redisrepo.NewNotifier(cache, a.pubsub, logger)
		idem = redisrepo.NewIdempotencyStore(rdb, 24*time.Hour)
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, "holds", cfg.RateLimit.HoldsPerWindow, cfg.RateLimit.Window)
	} else {
		logger.Warn().Msg("redis disabled: no idempotency replay, rate limiting or calendar cache")
	}

	gateway := payment.NewFakeGateway(cfg.Payment.CheckoutURL, payment.Status(cfg.Payment.GatewayMode))

	inv := cfg.Inventory

	// Initialize services
	services := service.NewServices(store, cache, gateway, notifier, clock.NewSystem(), logger, service.Config{
		Holds: holds.Config{
			DefaultTTL: inv.HoldTTL,
			MinTTL:     inv.MinHoldTTL,
			MaxTTL:     inv.MaxHoldTTL,
			SweepBatch: inv.SweepBatch,
		},
		Booking: booking.Config{
			PollInterval: cfg.Payment.PollInterval,
			PollAttempts: cfg.Payment.PollAttempts,
		},
		TxRetry: retry.Policy{
			MaxAttempts:   inv.TxRetries,
			InitialDelay:  20 * time.Millisecond,
			MaxDelay:      250 * time.Millisecond,
			BackoffFactor: 2,
		},
		MaxRangeDays:     inv.MaxRangeDays,
		CalendarCacheTTL: inv.CalendarCacheTTL,
	})

	a.sweeper = worker.NewSweeper(services.Holds, inv.SweepInterval, retry.Policy{}, logger)

	// Initialize Gin router
	router := httpgin.NewRouter(services, httpgin.Options{
		Idempotency: idem,
		HoldLimiter: limiter,
		Changes:     a.broker,
		Logger:      logger,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

func (a *App) newStore(ctx context.Context) (repository.Store, error) {
	lockTimeout := a.cfg.Inventory.LockTimeout

	if a.cfg.Storage == config.StorageMemory {
		a.logger.Warn().Msg("using in-memory storage; state is lost on restart")
		return memory.New(lockTimeout), nil
	}

	pool, err := postgres.New(ctx, postgres.Config{
		DSN:             a.cfg.Postgres.DSN(),
		MaxConns:        a.cfg.Postgres.MaxConns,
		ApplicationName: a.cfg.App.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if a.cfg.Postgres.Migrate {
		if err := migrations.Apply(ctx, pool); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		a.logger.Info().Msg("migrations applied")
	}

	return postgresrepo.NewStore(pool, lockTimeout), nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info().Str("host", a.cfg.Server.Host).Int("port", a.cfg.Server.Port).Msg("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Expire due holds
	g.Go(func() error {
		return a.sweeper.Run(gCtx)
	})

	// Fan changes from other instances into the local change stream
	if a.pubsub != nil {
		g.Go(func() error {
			err := a.pubsub.Subscribe(gCtx, func(_ context.Context, msg redisrepo.InventoryChanged) {
				a.broker.Publish(notify.Change{
					ResourceID: msg.ResourceID,
					From:       msg.From,
					To:         msg.To,
					Reason:     msg.Reason,
					At:         time.Unix(msg.TsUnix, 0).UTC(),
				})
			})
			if err != nil && gCtx.Err() == nil {
				return fmt.Errorf("inventory subscription: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info().Msg("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	err := g.Wait()
	a.Close()

	return err
}

// Close releases storage connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
