package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kirinyoku/staygo/internal/retry"
)

// HoldSweeper is the part of the hold manager the sweeper drives.
type HoldSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Sweeper expires due holds on a fixed interval. After a failed pass it
// retries sooner, backing off per policy, until a pass succeeds.
type Sweeper struct {
	holds    HoldSweeper
	interval time.Duration
	backoff  retry.Policy
	log      zerolog.Logger
}

// NewSweeper builds a sweeper with sane defaults.
func NewSweeper(holds HoldSweeper, interval time.Duration, backoff retry.Policy, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if backoff.InitialDelay <= 0 {
		backoff.InitialDelay = time.Second
	}
	if backoff.MaxDelay <= 0 || backoff.MaxDelay > interval {
		backoff.MaxDelay = interval
	}
	if backoff.BackoffFactor <= 0 {
		backoff.BackoffFactor = 2
	}

	return &Sweeper{
		holds:    holds,
		interval: interval,
		backoff:  backoff,
		log:      log.With().Str("component", "sweeper").Logger(),
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("hold sweeper started")
	defer s.log.Info().Msg("hold sweeper stopped")

	failures := 0

	for {
		wait := s.interval
		if err := s.pass(ctx); err != nil {
			failures++
			wait = s.backoff.NextDelay(failures)
		} else {
			failures = 0
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (s *Sweeper) pass(ctx context.Context) error {
	start := time.Now()

	n, err := s.holds.Sweep(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.log.Error().Err(err).Int("expired", n).Msg("hold sweep failed")
		return err
	}

	if n > 0 {
		s.log.Info().Int("expired", n).Dur("took", time.Since(start)).Msg("expired holds")
	}

	return nil
}
