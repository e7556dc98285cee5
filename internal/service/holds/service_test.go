package holds

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/staygo/internal/clock"
	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/notify"
	"github.com/kirinyoku/staygo/internal/repository"
	"github.com/kirinyoku/staygo/internal/repository/memory"
	"github.com/kirinyoku/staygo/internal/retry"
	"github.com/kirinyoku/staygo/internal/service/availability"
	"github.com/kirinyoku/staygo/internal/uow"
)

type recorder struct {
	mu      sync.Mutex
	reasons []notify.Reason
}

func (r *recorder) InventoryChanged(_ context.Context, _ string, _ domain.DateRange, reason notify.Reason) {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	r.mu.Unlock()
}

func (r *recorder) all() []notify.Reason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Reason(nil), r.reasons...)
}

type fixture struct {
	store *memory.Store
	clock *clock.Manual
	notes *recorder
	svc   *Service
	avail *availability.Service
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()

	store := memory.New(5 * time.Second)
	u := uow.NewUoW(store, retry.Policy{MaxAttempts: 1})
	clk := clock.NewManual(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC))
	notes := &recorder{}

	require.NoError(t, store.Resources().Create(context.Background(), domain.Resource{
		ID: "room", ProviderID: "p1", Capacity: capacity, Active: true,
	}))

	return &fixture{
		store: store,
		clock: clk,
		notes: notes,
		svc: New(store, u, clk, notes, zerolog.Nop(), Config{
			DefaultTTL: 15 * time.Minute,
			MinTTL:     time.Minute,
			MaxTTL:     30 * time.Minute,
		}),
		avail: availability.New(u, availability.Config{}),
	}
}

func rng(t *testing.T, from, to string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(from, to)
	require.NoError(t, err)
	return r
}

func TestCreateHoldsUntilCapacity(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-12")

	for i := 0; i < 2; i++ {
		h, err := f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: r, Quantity: 1, SessionID: "s"})
		require.NoError(t, err)
		assert.Equal(t, domain.HoldActive, h.Status)
		assert.Equal(t, f.clock.Now().Add(15*time.Minute), h.ExpiresAt)
	}

	_, err := f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: rng(t, "2024-07-12", "2024-07-13"), Quantity: 1})
	require.ErrorIs(t, err, domain.ErrCapacityUnavailable)

	var cue *domain.CapacityUnavailableError
	require.ErrorAs(t, err, &cue)
	require.Len(t, cue.Short, 1)
	assert.Equal(t, "2024-07-12", domain.DayKey(cue.Short[0]))

	_, err = f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: rng(t, "2024-07-13", "2024-07-14"), Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, []notify.Reason{
		notify.ReasonHoldCreated, notify.ReasonHoldCreated, notify.ReasonHoldCreated,
	}, f.notes.all())
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: rng(t, "2024-07-10", "2024-07-10"), Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.svc.Create(ctx, CreateInput{
		ResourceID: "room",
		Range:      domain.DateRange{From: time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC), To: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		Quantity:   1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = f.svc.Create(ctx, CreateInput{ResourceID: "missing", Range: rng(t, "2024-07-10", "2024-07-10"), Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, f.notes.all())
}

func TestCreateClampsTTL(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-10")
	now := f.clock.Now()

	h, err := f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: r, Quantity: 1, TTL: time.Second})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), h.ExpiresAt)

	h, err = f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: r, Quantity: 1, TTL: 2 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), h.ExpiresAt)
}

func TestConcurrentHoldsOnLastUnit(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-11")

	const workers = 16
	var (
		wg      sync.WaitGroup
		success int32
		short   int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: r, Quantity: 1})
			switch {
			case err == nil:
				atomic.AddInt32(&success, 1)
			case assert.ErrorIs(t, err, domain.ErrCapacityUnavailable):
				atomic.AddInt32(&short, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), success)
	assert.Equal(t, int32(workers-1), short)

	a, err := f.avail.Check(ctx, "room", r, 1)
	require.NoError(t, err)
	for _, d := range a.Days {
		assert.Equal(t, 0, d.Remaining)
	}
}

func TestReleaseRestoresCapacity(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-10")

	h, err := f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: r, Quantity: 1})
	require.NoError(t, err)

	got, err := f.svc.Release(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldReleased, got.Status)

	got, err = f.svc.Release(ctx, h.ID)
	require.NoError(t, err, "releasing twice is a no-op")
	assert.Equal(t, domain.HoldReleased, got.Status)

	_, err = f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: r, Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.Release(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []notify.Reason{
		notify.ReasonHoldCreated, notify.ReasonHoldReleased, notify.ReasonHoldCreated,
	}, f.notes.all())
}

func TestReleaseRejectsExpired(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	h, err := f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: rng(t, "2024-07-10", "2024-07-10"), Quantity: 1})
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)
	ok, err := f.svc.Expire(ctx, h.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Release(ctx, h.ID)
	require.ErrorIs(t, err, domain.ErrHoldNotActive)

	var hna *domain.HoldNotActiveError
	require.ErrorAs(t, err, &hna)
	assert.Equal(t, domain.HoldExpired, hna.Status)
}

func TestExpireOnlyDueHolds(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-10")

	h, err := f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: r, Quantity: 1})
	require.NoError(t, err)

	ok, err := f.svc.Expire(ctx, h.ID)
	require.NoError(t, err)
	assert.False(t, ok, "not due yet")

	f.clock.Advance(15*time.Minute + time.Second)

	a, err := f.avail.Check(ctx, "room", r, 1)
	require.NoError(t, err)
	assert.False(t, a.Available, "an overdue hold keeps its units until expired")

	ok, err = f.svc.Expire(ctx, h.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Expire(ctx, h.ID)
	require.NoError(t, err)
	assert.False(t, ok, "expiring twice is a no-op")

	a, err = f.avail.Check(ctx, "room", r, 1)
	require.NoError(t, err)
	assert.True(t, a.Available)
}

func TestSweepExpiresDueHolds(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	f.svc.cfg.SweepBatch = 2
	r := rng(t, "2024-07-10", "2024-07-10")

	for i := 0; i < 5; i++ {
		_, err := f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: r, Quantity: 1, TTL: 5 * time.Minute})
		require.NoError(t, err)
	}
	keep, err := f.svc.Create(ctx, CreateInput{ResourceID: "room", Range: r, Quantity: 1, TTL: 20 * time.Minute})
	require.NoError(t, err)

	n, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(10 * time.Minute)

	n, err = f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	h, err := f.svc.Get(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldActive, h.Status)

	a, err := f.avail.Check(ctx, "room", r, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, a.Days[0].Remaining)
}

var errStuck = errors.New("stuck hold")

// stuckStore fails every transition of one hold.
type stuckStore struct {
	*memory.Store
	stuck uuid.UUID
}

func (s *stuckStore) RunTx(ctx context.Context, keys []domain.LockKey, fn func(ctx context.Context, tx repository.Repos) error) error {
	return s.Store.RunTx(ctx, keys, func(ctx context.Context, tx repository.Repos) error {
		return fn(ctx, stuckRepos{Repos: tx, stuck: &s.stuck})
	})
}

type stuckRepos struct {
	repository.Repos
	stuck *uuid.UUID
}

func (r stuckRepos) Holds() repository.HoldRepo {
	return stuckHolds{HoldRepo: r.Repos.Holds(), stuck: *r.stuck}
}

type stuckHolds struct {
	repository.HoldRepo
	stuck uuid.UUID
}

func (h stuckHolds) Transition(ctx context.Context, id uuid.UUID, from, to domain.HoldStatus, at time.Time) (bool, error) {
	if id == h.stuck {
		return false, errStuck
	}
	return h.HoldRepo.Transition(ctx, id, from, to, at)
}

func TestSweepContinuesPastFailedHold(t *testing.T) {
	ctx := context.Background()
	store := &stuckStore{Store: memory.New(5 * time.Second)}
	clk := clock.NewManual(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC))
	svc := New(store, uow.NewUoW(store, retry.Policy{MaxAttempts: 1}), clk, nil, zerolog.Nop(), Config{
		DefaultTTL: 15 * time.Minute,
		MinTTL:     time.Minute,
		MaxTTL:     30 * time.Minute,
		SweepBatch: 2,
	})

	require.NoError(t, store.Resources().Create(ctx, domain.Resource{ID: "room", ProviderID: "p1", Capacity: 10, Active: true}))
	r := rng(t, "2024-07-10", "2024-07-10")

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		h, err := svc.Create(ctx, CreateInput{ResourceID: "room", Range: r, Quantity: 1, TTL: time.Duration(2+i) * time.Minute})
		require.NoError(t, err)
		ids = append(ids, h.ID)
	}
	store.stuck = ids[0]

	clk.Advance(10 * time.Minute)

	n, err := svc.Sweep(ctx)
	require.ErrorIs(t, err, errStuck)
	assert.Equal(t, 3, n, "a failure in a full batch does not end the pass")

	h, err := svc.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.HoldActive, h.Status)

	for _, id := range ids[1:] {
		h, err := svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.HoldExpired, h.Status)
	}
}
