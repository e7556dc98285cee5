// Package memory is an in-process Store used by tests and single-node
// development. Transactions are serialized by one writer slot and roll back
// by restoring a snapshot. A write outside RunTx waits for the writer slot so
// it never lands inside a snapshot that a failing transaction restores.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/repository"
)

type txKey struct{}

type state struct {
	resources   map[string]domain.Resource
	overrides   map[string]map[string]int
	entries     []domain.LedgerEntry
	entryKeys   map[string]struct{}
	nextEntryID int64
	holds       map[uuid.UUID]domain.Hold
	bookings    map[uuid.UUID]domain.Booking
	byHold      map[uuid.UUID]uuid.UUID
	adjustments map[uuid.UUID]domain.Adjustment
}

func newState() *state {
	return &state{
		resources:   map[string]domain.Resource{},
		overrides:   map[string]map[string]int{},
		entryKeys:   map[string]struct{}{},
		holds:       map[uuid.UUID]domain.Hold{},
		bookings:    map[uuid.UUID]domain.Booking{},
		byHold:      map[uuid.UUID]uuid.UUID{},
		adjustments: map[uuid.UUID]domain.Adjustment{},
	}
}

// clone copies every container. Stored values are replaced, never mutated in
// place, so a shallow copy of each value is enough.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.resources {
		c.resources[k] = v
	}
	for k, v := range s.overrides {
		m := make(map[string]int, len(v))
		for d, n := range v {
			m[d] = n
		}
		c.overrides[k] = m
	}
	c.entries = append([]domain.LedgerEntry(nil), s.entries...)
	for k := range s.entryKeys {
		c.entryKeys[k] = struct{}{}
	}
	c.nextEntryID = s.nextEntryID
	for k, v := range s.holds {
		c.holds[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.byHold {
		c.byHold[k] = v
	}
	for k, v := range s.adjustments {
		c.adjustments[k] = v
	}
	return c
}

type Store struct {
	mu          sync.RWMutex
	st          *state
	writer      chan struct{}
	lockTimeout time.Duration
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store. lockTimeout bounds the wait for the writer
// slot; zero waits until ctx is done.
func New(lockTimeout time.Duration) *Store {
	return &Store{
		st:          newState(),
		writer:      make(chan struct{}, 1),
		lockTimeout: lockTimeout,
	}
}

func (s *Store) Resources() repository.ResourceRepo     { return resourceRepo{s} }
func (s *Store) Ledger() repository.LedgerRepo           { return ledgerRepo{s} }
func (s *Store) Holds() repository.HoldRepo              { return holdRepo{s} }
func (s *Store) Bookings() repository.BookingRepo        { return bookingRepo{s} }
func (s *Store) Adjustments() repository.AdjustmentRepo { return adjustmentRepo{s} }

func (s *Store) IsRetryable(error) bool { return false }

// RunTx ignores keys: the single writer slot already serializes every
// transaction. Nested calls reuse the outer transaction.
func (s *Store) RunTx(ctx context.Context, _ []domain.LockKey, fn func(ctx context.Context, tx repository.Repos) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx, s)
	}

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-s.writer }()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	err := fn(context.WithValue(ctx, txKey{}, true), s)
	if err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}

	return nil
}

func (s *Store) acquire(ctx context.Context) error {
	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		t := time.NewTimer(s.lockTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case s.writer <- struct{}{}:
		return nil
	case <-timeout:
		return domain.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if ctx.Value(txKey{}) == nil {
		if err := s.acquire(ctx); err != nil {
			return err
		}
		defer func() { <-s.writer }()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

type resourceRepo struct{ s *Store }

func (r resourceRepo) Create(ctx context.Context, res domain.Resource) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.resources[res.ID]; ok {
			return domain.ErrConflict
		}
		st.resources[res.ID] = res
		return nil
	})
}

func (r resourceRepo) Get(_ context.Context, id string) (*domain.Resource, error) {
	var (
		res domain.Resource
		ok  bool
	)
	r.s.read(func(st *state) { res, ok = st.resources[id] })
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &res, nil
}

func (r resourceRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.s.write(ctx, func(st *state) error {
		res, ok := st.resources[id]
		if !ok {
			return domain.ErrNotFound
		}
		res.Active = active
		st.resources[id] = res
		return nil
	})
}

func (r resourceRepo) SetCapacityOverride(ctx context.Context, id string, day time.Time, capacity int) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.resources[id]; !ok {
			return domain.ErrNotFound
		}
		m := st.overrides[id]
		if m == nil {
			m = map[string]int{}
			st.overrides[id] = m
		}
		m[domain.DayKey(day)] = capacity
		return nil
	})
}

func (r resourceRepo) CapacityOverrides(_ context.Context, id string, rng domain.DateRange) (map[string]int, error) {
	out := map[string]int{}
	var found bool
	r.s.read(func(st *state) {
		_, found = st.resources[id]
		for _, d := range rng.Days() {
			if c, ok := st.overrides[id][domain.DayKey(d)]; ok {
				out[domain.DayKey(d)] = c
			}
		}
	})
	if !found {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

type ledgerRepo struct{ s *Store }

func entryKey(e domain.LedgerEntry) string {
	return string(e.Kind) + "|" + e.Reference.String() + "|" + e.ResourceID + "|" + domain.DayKey(e.Date)
}

func (l ledgerRepo) Append(ctx context.Context, e domain.LedgerEntry) (int64, error) {
	var id int64
	err := l.s.write(ctx, func(st *state) error {
		k := entryKey(e)
		if _, ok := st.entryKeys[k]; ok {
			return domain.ErrConflict
		}
		st.nextEntryID++
		e.ID = st.nextEntryID
		e.Date = domain.Day(e.Date)
		st.entries = append(st.entries, e)
		st.entryKeys[k] = struct{}{}
		id = e.ID
		return nil
	})
	return id, err
}

func (l ledgerRepo) each(resourceID string, rng domain.DateRange, fn func(e domain.LedgerEntry)) {
	l.s.read(func(st *state) {
		for _, e := range st.entries {
			if e.ResourceID == resourceID && rng.Contains(e.Date) {
				fn(e)
			}
		}
	})
}

func (l ledgerRepo) SumDeltas(_ context.Context, resourceID string, rng domain.DateRange) (int, error) {
	sum := 0
	l.each(resourceID, rng, func(e domain.LedgerEntry) { sum += e.Delta })
	return sum, nil
}

func (l ledgerRepo) DailyTotals(_ context.Context, resourceID string, rng domain.DateRange) (map[string]domain.DayTotals, error) {
	out := map[string]domain.DayTotals{}
	l.each(resourceID, rng, func(e domain.LedgerEntry) {
		k := domain.DayKey(e.Date)
		out[k] = out[k].Add(e)
	})
	return out, nil
}

func (l ledgerRepo) ListEntries(_ context.Context, resourceID string, rng domain.DateRange) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	l.each(resourceID, rng, func(e domain.LedgerEntry) { out = append(out, e) })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (l ledgerRepo) EntriesByReference(_ context.Context, kind domain.EntryKind, ref uuid.UUID) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	l.s.read(func(st *state) {
		for _, e := range st.entries {
			if e.Kind == kind && e.Reference == ref {
				out = append(out, e)
			}
		}
	})
	return out, nil
}

type holdRepo struct{ s *Store }

func (h holdRepo) Create(ctx context.Context, hold domain.Hold) error {
	return h.s.write(ctx, func(st *state) error {
		if _, ok := st.holds[hold.ID]; ok {
			return domain.ErrConflict
		}
		st.holds[hold.ID] = hold
		return nil
	})
}

func (h holdRepo) Get(_ context.Context, id uuid.UUID) (*domain.Hold, error) {
	var (
		hold domain.Hold
		ok   bool
	)
	h.s.read(func(st *state) { hold, ok = st.holds[id] })
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &hold, nil
}

func (h holdRepo) ActiveQuantities(_ context.Context, resourceID string, rng domain.DateRange, exclude uuid.UUID) (map[string]int, error) {
	out := map[string]int{}
	h.s.read(func(st *state) {
		for _, hold := range st.holds {
			if hold.ID == exclude || hold.ResourceID != resourceID || hold.Status != domain.HoldActive {
				continue
			}
			for _, d := range hold.Range.Days() {
				if rng.Contains(d) {
					out[domain.DayKey(d)] += hold.Quantity
				}
			}
		}
	})
	return out, nil
}

func (h holdRepo) Transition(ctx context.Context, id uuid.UUID, from, to domain.HoldStatus, at time.Time) (bool, error) {
	var changed bool
	err := h.s.write(ctx, func(st *state) error {
		hold, ok := st.holds[id]
		if !ok {
			return domain.ErrNotFound
		}
		if hold.Status != from {
			return nil
		}
		hold.Status = to
		hold.UpdatedAt = at
		st.holds[id] = hold
		changed = true
		return nil
	})
	return changed, err
}

func (h holdRepo) ListDue(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var due []domain.Hold
	h.s.read(func(st *state) {
		for _, hold := range st.holds {
			if hold.Due(now) {
				due = append(due, hold)
			}
		}
	})

	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	ids := make([]uuid.UUID, 0, len(due))
	for _, d := range due {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

type bookingRepo struct{ s *Store }

func (b bookingRepo) Create(ctx context.Context, bk domain.Booking) error {
	return b.s.write(ctx, func(st *state) error {
		if _, ok := st.bookings[bk.ID]; ok {
			return domain.ErrConflict
		}
		if bk.HoldID != nil {
			if _, ok := st.byHold[*bk.HoldID]; ok {
				return domain.ErrConflict
			}
			st.byHold[*bk.HoldID] = bk.ID
		}
		st.bookings[bk.ID] = bk
		return nil
	})
}

func (b bookingRepo) Get(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	var (
		bk domain.Booking
		ok bool
	)
	b.s.read(func(st *state) { bk, ok = st.bookings[id] })
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &bk, nil
}

func (b bookingRepo) GetByHold(ctx context.Context, holdID uuid.UUID) (*domain.Booking, error) {
	var (
		id uuid.UUID
		ok bool
	)
	b.s.read(func(st *state) { id, ok = st.byHold[holdID] })
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b.Get(ctx, id)
}

func (b bookingRepo) Update(ctx context.Context, bk domain.Booking) error {
	return b.s.write(ctx, func(st *state) error {
		cur, ok := st.bookings[bk.ID]
		if !ok {
			return domain.ErrNotFound
		}
		cur.Status = bk.Status
		cur.PaymentStatus = bk.PaymentStatus
		cur.PaymentReference = bk.PaymentReference
		cur.CancelReason = bk.CancelReason
		cur.UpdatedAt = bk.UpdatedAt
		st.bookings[bk.ID] = cur
		return nil
	})
}

type adjustmentRepo struct{ s *Store }

func (a adjustmentRepo) Create(ctx context.Context, adj domain.Adjustment) error {
	return a.s.write(ctx, func(st *state) error {
		if _, ok := st.adjustments[adj.ID]; ok {
			return domain.ErrConflict
		}
		st.adjustments[adj.ID] = adj
		return nil
	})
}

func (a adjustmentRepo) Get(_ context.Context, id uuid.UUID) (*domain.Adjustment, error) {
	var (
		adj domain.Adjustment
		ok  bool
	)
	a.s.read(func(st *state) { adj, ok = st.adjustments[id] })
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &adj, nil
}

func (a adjustmentRepo) MarkReversed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return a.s.write(ctx, func(st *state) error {
		adj, ok := st.adjustments[id]
		if !ok {
			return domain.ErrNotFound
		}
		if adj.Reversed() {
			return domain.ErrConflict
		}
		adj.ReversedAt = &at
		st.adjustments[id] = adj
		return nil
	})
}

func (a adjustmentRepo) ListOverlapping(_ context.Context, resourceID string, rng domain.DateRange) ([]domain.Adjustment, error) {
	var out []domain.Adjustment
	a.s.read(func(st *state) {
		for _, adj := range st.adjustments {
			if adj.ResourceID == resourceID && adj.Range.Overlaps(rng) {
				out = append(out, adj)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
