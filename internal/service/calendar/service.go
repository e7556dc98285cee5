package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/repository"
	redisrepo "github.com/kirinyoku/staygo/internal/repository/redis"
	"github.com/kirinyoku/staygo/internal/service/availability"
)

type Service struct {
	repos        repository.Repos
	cache        *redisrepo.Cache
	ttl          time.Duration
	maxRangeDays int
	log          zerolog.Logger
}

// New returns the operator calendar. A nil cache computes every projection
// from storage.
func New(repos repository.Repos, cache *redisrepo.Cache, ttl time.Duration, maxRangeDays int, log zerolog.Logger) *Service {
	return &Service{
		repos:        repos,
		cache:        cache,
		ttl:          ttl,
		maxRangeDays: maxRangeDays,
		log:          log.With().Str("component", "calendar").Logger(),
	}
}

// Project returns committed occupancy per day of r. Active holds are not
// subtracted. Results may be served from the cache until the next committed
// write to the resource invalidates them.
//
// Parameters:
//   - ctx: request-scoped context.
//   - resourceID: resource to project.
//   - r: inclusive date range.
//
// Returns:
//   - []domain.CalendarDay: one entry per day, available = capacity - booked - blocked.
//   - error: domain.ErrInvalidRange or domain.ErrNotFound.
func (s *Service) Project(ctx context.Context, resourceID string, r domain.DateRange) ([]domain.CalendarDay, error) {
	const op = "service.calendar.Project"

	if err := r.Validate(s.maxRangeDays); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if s.cache == nil {
		days, err := s.compute(ctx, resourceID, r)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return days, nil
	}

	version, err := s.cache.CalendarVersion(ctx, resourceID)
	if err != nil {
		s.log.Warn().Err(err).Str("resource_id", resourceID).Msg("calendar cache unavailable")

		days, err := s.compute(ctx, resourceID, r)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return days, nil
	}

	days, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisrepo.KeyCalendar(resourceID, version, r), s.ttl,
		func(ctx context.Context) ([]domain.CalendarDay, error) {
			return s.compute(ctx, resourceID, r)
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return days, nil
}

func (s *Service) compute(ctx context.Context, resourceID string, r domain.DateRange) ([]domain.CalendarDay, error) {
	res, err := s.repos.Resources().Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	overrides, err := s.repos.Resources().CapacityOverrides(ctx, resourceID, r)
	if err != nil {
		return nil, err
	}

	totals, err := s.repos.Ledger().DailyTotals(ctx, resourceID, r)
	if err != nil {
		return nil, err
	}

	a := availability.Evaluate(*res, overrides, totals, nil, r, 0)

	out := make([]domain.CalendarDay, 0, len(a.Days))
	for _, d := range a.Days {
		out = append(out, domain.CalendarDay{
			Date:      d.Date,
			Capacity:  d.Capacity,
			Booked:    d.Booked,
			Blocked:   d.Blocked,
			Available: d.Remaining,
		})
	}

	return out, nil
}

// Ledger is the audit view of a resource over a range.
type Ledger struct {
	ResourceID string
	Range      domain.DateRange
	Entries    []domain.LedgerEntry
	// Net is the sum of all deltas in the range.
	Net int
}

// Entries lists the raw ledger entries behind a projection, oldest first per day.
func (s *Service) Entries(ctx context.Context, resourceID string, r domain.DateRange) (*Ledger, error) {
	const op = "service.calendar.Entries"

	if err := r.Validate(s.maxRangeDays); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if _, err := s.repos.Resources().Get(ctx, resourceID); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	entries, err := s.repos.Ledger().ListEntries(ctx, resourceID, r)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	net, err := s.repos.Ledger().SumDeltas(ctx, resourceID, r)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Ledger{ResourceID: resourceID, Range: r, Entries: entries, Net: net}, nil
}
