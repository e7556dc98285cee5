package resources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/staygo/internal/clock"
	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/notify"
	"github.com/kirinyoku/staygo/internal/repository"
	"github.com/kirinyoku/staygo/internal/uow"
)

// ErrInvalidResource is returned for resources without an id or with
// negative capacity.
var ErrInvalidResource = fmt.Errorf("%w: invalid resource", domain.ErrInvalidQuantity)

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	clock    clock.Clock
	notifier notify.Notifier
}

func New(store repository.Store, u *uow.UoW, clk clock.Clock, notifier notify.Notifier) *Service {
	return &Service{store: store, uow: u, clock: clk, notifier: notify.OrNop(notifier)}
}

type CreateInput struct {
	ID         string
	ProviderID string
	Name       string
	Capacity   int
}

// Create registers a sellable resource owned by a provider. Operators can
// only create resources for their own provider.
func (s *Service) Create(ctx context.Context, in CreateInput, actor domain.Actor) (*domain.Resource, error) {
	const op = "service.resources.Create"

	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" || in.Capacity < 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidResource)
	}

	if in.ProviderID == "" {
		in.ProviderID = actor.ProviderID
	}

	if !actor.CanManage(in.ProviderID) {
		return nil, fmt.Errorf("%s:%w", op, domain.ErrForbidden)
	}

	res := domain.Resource{
		ID:         in.ID,
		ProviderID: in.ProviderID,
		Name:       in.Name,
		Capacity:   in.Capacity,
		Active:     true,
		CreatedAt:  s.clock.Now(),
	}

	err := s.uow.Do(ctx, nil, func(ctx context.Context, tx repository.Repos, _ func(uow.AfterCommit)) error {
		return tx.Resources().Create(ctx, res)
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &res, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Resource, error) {
	const op = "service.resources.Get"

	res, err := s.store.Resources().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return res, nil
}

// SetCapacity overrides the capacity of one day. It runs under the day's lock
// so it cannot interleave with a hold or block on that day.
//
// Returns:
//   - error: domain.ErrCapacityUnavailable if booked plus blocked units exceed capacity.
func (s *Service) SetCapacity(ctx context.Context, id string, day time.Time, capacity int, actor domain.Actor) error {
	const op = "service.resources.SetCapacity"

	if capacity < 0 {
		return fmt.Errorf("%s:%w", op, ErrInvalidResource)
	}

	day = domain.Day(day)
	r := domain.NewDateRange(day, day)

	err := s.uow.Do(ctx, domain.LockKeys(id, r), func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		res, err := tx.Resources().Get(ctx, id)
		if err != nil {
			return err
		}

		if !actor.CanManage(res.ProviderID) {
			return domain.ErrForbidden
		}

		totals, err := tx.Ledger().DailyTotals(ctx, id, r)
		if err != nil {
			return err
		}

		// Capacity may not drop below committed occupancy; holds are not counted.
		if t := totals[domain.DayKey(day)]; capacity < t.Booked+t.Blocked {
			return &domain.CapacityUnavailableError{
				ResourceID: id,
				Requested:  t.Booked + t.Blocked - capacity,
				Short:      []time.Time{day},
			}
		}

		if err := tx.Resources().SetCapacityOverride(ctx, id, day, capacity); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.notifier.InventoryChanged(ctx, id, r, notify.ReasonCapacitySet)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// SetActive toggles whether the resource is sellable. Inactive resources
// report zero capacity everywhere.
func (s *Service) SetActive(ctx context.Context, id string, active bool, actor domain.Actor) error {
	const op = "service.resources.SetActive"

	res, err := s.store.Resources().Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if !actor.CanManage(res.ProviderID) {
		return fmt.Errorf("%s:%w", op, domain.ErrForbidden)
	}

	err = s.uow.Do(ctx, nil, func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		if err := tx.Resources().SetActive(ctx, id, active); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.notifier.InventoryChanged(ctx, id, domain.DateRange{}, notify.ReasonActiveChanged)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
