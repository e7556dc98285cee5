package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kirinyoku/staygo/internal/clock"
	"github.com/kirinyoku/staygo/internal/notify"
	"github.com/kirinyoku/staygo/internal/payment"
	"github.com/kirinyoku/staygo/internal/repository"
	redisrepo "github.com/kirinyoku/staygo/internal/repository/redis"
	"github.com/kirinyoku/staygo/internal/retry"
	"github.com/kirinyoku/staygo/internal/service/adjustment"
	"github.com/kirinyoku/staygo/internal/service/availability"
	"github.com/kirinyoku/staygo/internal/service/booking"
	"github.com/kirinyoku/staygo/internal/service/calendar"
	"github.com/kirinyoku/staygo/internal/service/holds"
	"github.com/kirinyoku/staygo/internal/service/resources"
	"github.com/kirinyoku/staygo/internal/uow"
)

type Services struct {
	Availability *availability.Service
	Holds        *holds.Service
	Booking      *booking.Service
	Adjustment   *adjustment.Service
	Calendar     *calendar.Service
	Resources    *resources.Service
}

type Config struct {
	Holds            holds.Config
	Booking          booking.Config
	TxRetry          retry.Policy
	MaxRangeDays     int
	CalendarCacheTTL time.Duration
}

// NewServices wires every service over one store. cache and notifier may be
// nil when Redis is disabled.
func NewServices(
	store repository.Store,
	cache *redisrepo.Cache,
	gateway payment.Gateway,
	notifier notify.Notifier,
	clk clock.Clock,
	log zerolog.Logger,
	cfg Config,
) *Services {
	u := uow.NewUoW(store, cfg.TxRetry)

	cfg.Holds.MaxRangeDays = cfg.MaxRangeDays
	cfg.Booking.MaxRangeDays = cfg.MaxRangeDays

	return &Services{
		Availability: availability.New(u, availability.Config{MaxRangeDays: cfg.MaxRangeDays}),
		Holds:        holds.New(store, u, clk, notifier, log, cfg.Holds),
		Booking:      booking.New(store, u, clk, gateway, notifier, log, cfg.Booking),
		Adjustment:   adjustment.New(store, u, clk, notifier, log, cfg.MaxRangeDays),
		Calendar:     calendar.New(store, cache, cfg.CalendarCacheTTL, cfg.MaxRangeDays, log),
		Resources:    resources.New(store, u, clk, notifier),
	}
}
