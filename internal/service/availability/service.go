package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/repository"
	"github.com/kirinyoku/staygo/internal/uow"
)

type Config struct {
	MaxRangeDays int
}

type Service struct {
	uow *uow.UoW
	cfg Config
}

func New(u *uow.UoW, cfg Config) *Service {
	return &Service{uow: u, cfg: cfg}
}

// Validate rejects bad ranges and non-positive quantities before any storage
// access.
func Validate(r domain.DateRange, quantity, maxDays int) error {
	if err := r.Validate(maxDays); err != nil {
		return err
	}

	if quantity <= 0 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, quantity)
	}

	return nil
}

// Check reports whether quantity units of resourceID are free on every day of
// r, counting committed ledger entries and all active holds.
//
// Parameters:
//   - ctx: request-scoped context.
//   - resourceID: resource to check.
//   - r: inclusive date range.
//   - quantity: units requested per day.
//
// Returns:
//   - *domain.Availability: per-day breakdown; Available is false when any day is short.
//   - error: domain.ErrInvalidRange, domain.ErrInvalidQuantity or domain.ErrNotFound.
func (s *Service) Check(ctx context.Context, resourceID string, r domain.DateRange, quantity int) (*domain.Availability, error) {
	const op = "service.availability.Check"

	if err := Validate(r, quantity, s.cfg.MaxRangeDays); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.Availability

	err := s.uow.Do(ctx, domain.LockKeys(resourceID, r), func(
		ctx context.Context,
		tx repository.Repos,
		_ func(uow.AfterCommit),
	) error {
		a, err := Compute(ctx, tx, resourceID, r, quantity, uuid.Nil)
		if err != nil {
			return err
		}

		out = a

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Compute loads capacity, ledger totals and active hold quantities through
// repos and evaluates them. Callers that go on to write must pass a
// transaction holding the locks for the range. The hold named by exclude is
// not counted.
func Compute(
	ctx context.Context,
	repos repository.Repos,
	resourceID string,
	r domain.DateRange,
	quantity int,
	exclude uuid.UUID,
) (*domain.Availability, error) {
	res, err := repos.Resources().Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	overrides, err := repos.Resources().CapacityOverrides(ctx, resourceID, r)
	if err != nil {
		return nil, err
	}

	totals, err := repos.Ledger().DailyTotals(ctx, resourceID, r)
	if err != nil {
		return nil, err
	}

	held, err := repos.Holds().ActiveQuantities(ctx, resourceID, r, exclude)
	if err != nil {
		return nil, err
	}

	a := Evaluate(*res, overrides, totals, held, r, quantity)

	return &a, nil
}

// Evaluate computes remaining = capacity + net ledger delta - held for each
// day of r. Maps are keyed by domain.DayKey; missing keys count as zero.
func Evaluate(
	res domain.Resource,
	overrides map[string]int,
	totals map[string]domain.DayTotals,
	held map[string]int,
	r domain.DateRange,
	quantity int,
) domain.Availability {
	out := domain.Availability{
		ResourceID: res.ID,
		Range:      r,
		Quantity:   quantity,
		Available:  true,
	}

	for _, d := range r.Days() {
		key := domain.DayKey(d)
		capacity := res.CapacityOn(d, overrides)
		t := totals[key]

		day := domain.DayAvailability{
			Date:     d,
			Capacity: capacity,
			Booked:   t.Booked,
			Blocked:  t.Blocked,
			Held:     held[key],
		}
		day.Remaining = capacity + t.Net() - day.Held

		if day.Remaining < quantity || capacity <= 0 {
			out.Available = false
		}

		out.Days = append(out.Days, day)
	}

	return out
}

// Shortfall is the error reported for an unavailable result.
func Shortfall(a domain.Availability) error {
	return &domain.CapacityUnavailableError{
		ResourceID: a.ResourceID,
		Requested:  a.Quantity,
		Short:      a.Short(),
	}
}
