package holds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kirinyoku/staygo/internal/clock"
	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/metrics"
	"github.com/kirinyoku/staygo/internal/notify"
	"github.com/kirinyoku/staygo/internal/repository"
	"github.com/kirinyoku/staygo/internal/service/availability"
	"github.com/kirinyoku/staygo/internal/uow"
)

type Config struct {
	DefaultTTL   time.Duration
	MinTTL       time.Duration
	MaxTTL       time.Duration
	SweepBatch   int
	MaxRangeDays int
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	clock    clock.Clock
	notifier notify.Notifier
	log      zerolog.Logger
	cfg      Config
}

func New(
	store repository.Store,
	u *uow.UoW,
	clk clock.Clock,
	notifier notify.Notifier,
	log zerolog.Logger,
	cfg Config,
) *Service {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 15 * time.Minute
	}

	if cfg.MinTTL <= 0 {
		cfg.MinTTL = time.Minute
	}

	if cfg.MaxTTL <= 0 || cfg.MaxTTL < cfg.MinTTL {
		cfg.MaxTTL = 30 * time.Minute
	}

	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 500
	}

	return &Service{
		store:    store,
		uow:      u,
		clock:    clk,
		notifier: notify.OrNop(notifier),
		log:      log.With().Str("component", "holds").Logger(),
		cfg:      cfg,
	}
}

type CreateInput struct {
	ResourceID  string
	Range       domain.DateRange
	Quantity    int
	TTL         time.Duration
	SessionID   string
	UserID      string
	AmountCents int64
}

// Create reserves units for a checkout. The availability check and the insert
// run in one transaction under the per-day locks of the range.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: hold request; a zero TTL means the default, others are clamped.
//
// Returns:
//   - *domain.Hold: the active hold.
//   - error: domain.ErrCapacityUnavailable (a *domain.CapacityUnavailableError) when any day is short.
//   - error: domain.ErrInvalidRange, domain.ErrInvalidQuantity, domain.ErrNotFound, domain.ErrLockTimeout.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Hold, error) {
	const op = "service.holds.Create"

	if err := availability.Validate(in.Range, in.Quantity, s.cfg.MaxRangeDays); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	now := s.clock.Now()
	ttl := s.clampTTL(in.TTL)

	hold := domain.Hold{
		ID:          uuid.New(),
		SessionID:   in.SessionID,
		UserID:      in.UserID,
		ResourceID:  in.ResourceID,
		Range:       domain.NewDateRange(in.Range.From, in.Range.To),
		Quantity:    in.Quantity,
		AmountCents: in.AmountCents,
		Status:      domain.HoldActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		UpdatedAt:   now,
	}

	err := s.uow.Do(ctx, domain.LockKeys(hold.ResourceID, hold.Range), func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		a, err := availability.Compute(ctx, tx, hold.ResourceID, hold.Range, hold.Quantity, uuid.Nil)
		if err != nil {
			return err
		}

		if !a.Available {
			return availability.Shortfall(*a)
		}

		if err := tx.Holds().Create(ctx, hold); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			metrics.IncHold(metrics.HoldCreated)
			s.notifier.InventoryChanged(ctx, hold.ResourceID, hold.Range, notify.ReasonHoldCreated)
		})

		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCapacityUnavailable):
			metrics.IncHold(metrics.HoldRejected)
		case errors.Is(err, domain.ErrLockTimeout):
			metrics.IncLockTimeout()
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &hold, nil
}

// Get is the idempotent status read polled by checkout clients.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	const op = "service.holds.Get"

	h, err := s.store.Holds().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return h, nil
}

// Release gives the units back immediately. Releasing a released hold is a
// no-op.
//
// Returns:
//   - *domain.Hold: the hold after the call.
//   - error: domain.ErrHoldNotActive if the hold was consumed or expired.
//   - error: domain.ErrNotFound if the hold does not exist.
func (s *Service) Release(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	const op = "service.holds.Release"

	h, err := s.store.Holds().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.Hold

	err = s.uow.Do(ctx, domain.LockKeys(h.ResourceID, h.Range), func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		cur, err := tx.Holds().Get(ctx, id)
		if err != nil {
			return err
		}

		switch cur.Status {
		case domain.HoldReleased:
			out = cur
			return nil
		case domain.HoldActive:
		default:
			return &domain.HoldNotActiveError{HoldID: id, Status: cur.Status}
		}

		now := s.clock.Now()
		if _, err := tx.Holds().Transition(ctx, id, domain.HoldActive, domain.HoldReleased, now); err != nil {
			return err
		}

		cur.Status = domain.HoldReleased
		cur.UpdatedAt = now
		out = cur

		after(func(ctx context.Context) {
			metrics.IncHold(metrics.HoldReleased)
			s.notifier.InventoryChanged(ctx, cur.ResourceID, cur.Range, notify.ReasonHoldReleased)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Expire moves a due active hold to expired. Terminal and not-yet-due holds
// are left alone. It reports whether this call expired the hold.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "service.holds.Expire"

	h, err := s.store.Holds().Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	if !h.Due(s.clock.Now()) {
		return false, nil
	}

	var expired bool

	err = s.uow.Do(ctx, domain.LockKeys(h.ResourceID, h.Range), func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		cur, err := tx.Holds().Get(ctx, id)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if !cur.Due(now) {
			return nil
		}

		changed, err := tx.Holds().Transition(ctx, id, domain.HoldActive, domain.HoldExpired, now)
		if err != nil {
			return err
		}

		expired = changed

		if changed {
			after(func(ctx context.Context) {
				s.notifier.InventoryChanged(ctx, cur.ResourceID, cur.Range, notify.ReasonHoldExpired)
			})
		}

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, err)
	}

	return expired, nil
}

// Sweep expires due holds in batches and returns how many it expired. A hold
// that fails to expire is logged and left for the next sweep; the first such
// error is returned after the pass.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	const op = "service.holds.Sweep"

	var (
		total    int
		firstErr error
		skipped  = make(map[uuid.UUID]struct{})
	)

	for {
		limit := s.cfg.SweepBatch + len(skipped)

		ids, err := s.store.Holds().ListDue(ctx, s.clock.Now(), limit)
		if err != nil {
			return total, fmt.Errorf("%s:%w", op, err)
		}

		progressed := false
		for _, id := range ids {
			if _, ok := skipped[id]; ok {
				continue
			}

			if ctx.Err() != nil {
				return total, ctx.Err()
			}

			ok, err := s.Expire(ctx, id)
			if err != nil {
				s.log.Warn().Err(err).Str("hold_id", id.String()).Msg("hold expiry failed")
				skipped[id] = struct{}{}
				if firstErr == nil {
					firstErr = err
				}
				continue
			}

			progressed = true
			if ok {
				total++
			}
		}

		if !progressed || len(ids) < limit {
			break
		}
	}

	if total > 0 {
		metrics.AddHolds(metrics.HoldExpired, total)
	}

	if firstErr != nil {
		return total, fmt.Errorf("%s:%w", op, firstErr)
	}

	return total, nil
}

func (s *Service) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	if ttl < s.cfg.MinTTL {
		return s.cfg.MinTTL
	}

	if ttl > s.cfg.MaxTTL {
		return s.cfg.MaxTTL
	}

	return ttl
}
