package adjustment

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

type Service struct {
	store        repository.Store
	uow          *uow.UoW
	clock        clock.Clock
	notifier     notify.Notifier
	log          zerolog.Logger
	maxRangeDays int
}

func New(
	store repository.Store,
	u *uow.UoW,
	clk clock.Clock,
	notifier notify.Notifier,
	log zerolog.Logger,
	maxRangeDays int,
) *Service {
	return &Service{
		store:        store,
		uow:          u,
		clock:        clk,
		notifier:     notify.OrNop(notifier),
		log:          log.With().Str("component", "adjustment").Logger(),
		maxRangeDays: maxRangeDays,
	}
}

type BlockInput struct {
	ResourceID string
	Range      domain.DateRange
	Quantity   int
	Reason     string
}

// Block takes quantity units out of sale on every day of the range. Committed
// occupancy may not exceed capacity afterwards; active holds are not
// consulted and fail at commit if squeezed.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: resource, inclusive range, units and a free-text reason.
//   - actor: must manage the resource's provider.
//
// Returns:
//   - *domain.Adjustment: the recorded block.
//   - error: domain.ErrForbidden, domain.ErrCapacityUnavailable, domain.ErrInvalidRange, domain.ErrInvalidQuantity.
func (s *Service) Block(ctx context.Context, in BlockInput, actor domain.Actor) (*domain.Adjustment, error) {
	const op = "service.adjustment.Block"

	if err := availability.Validate(in.Range, in.Quantity, s.maxRangeDays); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	now := s.clock.Now()

	adj := domain.Adjustment{
		ID:         uuid.New(),
		ResourceID: in.ResourceID,
		Range:      domain.NewDateRange(in.Range.From, in.Range.To),
		Quantity:   in.Quantity,
		Reason:     strings.TrimSpace(in.Reason),
		ActorID:    actor.ID,
		CreatedAt:  now,
	}

	err := s.uow.Do(ctx, domain.LockKeys(adj.ResourceID, adj.Range), func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		res, err := tx.Resources().Get(ctx, adj.ResourceID)
		if err != nil {
			return err
		}

		if !actor.CanManage(res.ProviderID) {
			return domain.ErrForbidden
		}

		overrides, err := tx.Resources().CapacityOverrides(ctx, adj.ResourceID, adj.Range)
		if err != nil {
			return err
		}

		totals, err := tx.Ledger().DailyTotals(ctx, adj.ResourceID, adj.Range)
		if err != nil {
			return err
		}

		// Committed occupancy only: holds are deliberately left out.
		a := availability.Evaluate(*res, overrides, totals, nil, adj.Range, adj.Quantity)
		if !a.Available {
			return availability.Shortfall(a)
		}

		if err := tx.Adjustments().Create(ctx, adj); err != nil {
			return err
		}

		for _, day := range adj.Range.Days() {
			e := domain.NewEntry(domain.KindManualBlock, adj.ResourceID, day, adj.Quantity, adj.ID, actor.ID, now)
			if _, err := tx.Ledger().Append(ctx, e); err != nil {
				return err
			}
		}

		after(func(ctx context.Context) {
			metrics.IncAdjustment(string(domain.KindManualBlock))
			s.notifier.InventoryChanged(ctx, adj.ResourceID, adj.Range, notify.ReasonBlocked)
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			metrics.IncLockTimeout()
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.log.Info().
		Str("adjustment_id", adj.ID.String()).
		Str("resource_id", adj.ResourceID).
		Str("range", adj.Range.String()).
		Int("quantity", adj.Quantity).
		Str("actor_id", actor.ID).
		Msg("inventory blocked")

	return &adj, nil
}

// Unblock reverses every entry of a manual block. Only whole blocks can be
// reversed; to shorten one, unblock it and block the remaining days again.
//
// Returns:
//   - error: domain.ErrNotABlock for unknown or already reversed adjustments.
//   - error: domain.ErrForbidden if the actor does not manage the resource.
func (s *Service) Unblock(ctx context.Context, id uuid.UUID, actor domain.Actor) (*domain.Adjustment, error) {
	const op = "service.adjustment.Unblock"

	adj, err := s.store.Adjustments().Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w: %s", op, domain.ErrNotABlock, id)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.Adjustment

	err = s.uow.Do(ctx, domain.LockKeys(adj.ResourceID, adj.Range), func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		cur, err := tx.Adjustments().Get(ctx, id)
		if err != nil {
			return err
		}

		res, err := tx.Resources().Get(ctx, cur.ResourceID)
		if err != nil {
			return err
		}

		if !actor.CanManage(res.ProviderID) {
			return domain.ErrForbidden
		}

		if cur.Reversed() {
			return fmt.Errorf("%w: %s already reversed", domain.ErrNotABlock, id)
		}

		now := s.clock.Now()

		entries, err := tx.Ledger().EntriesByReference(ctx, domain.KindManualBlock, id)
		if err != nil {
			return err
		}

		for _, e := range entries {
			rev, ok := e.Reverse(actor.ID, now)
			if !ok {
				continue
			}

			if _, err := tx.Ledger().Append(ctx, rev); err != nil {
				return err
			}
		}

		if err := tx.Adjustments().MarkReversed(ctx, id, now); err != nil {
			return err
		}

		cur.ReversedAt = &now
		out = cur

		after(func(ctx context.Context) {
			metrics.IncAdjustment(string(domain.KindManualUnblock))
			s.notifier.InventoryChanged(ctx, cur.ResourceID, cur.Range, notify.ReasonUnblocked)
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			err = fmt.Errorf("%w: %s already reversed", domain.ErrNotABlock, id)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListBlocks returns adjustments of the resource overlapping r, reversed ones
// included.
func (s *Service) ListBlocks(ctx context.Context, resourceID string, r domain.DateRange) ([]domain.Adjustment, error) {
	const op = "service.adjustment.ListBlocks"

	if err := r.Validate(s.maxRangeDays); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if _, err := s.store.Resources().Get(ctx, resourceID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out, err := s.store.Adjustments().ListOverlapping(ctx, resourceID, r)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
