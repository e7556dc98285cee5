package resources

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/staygo/internal/clock"
	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/repository"
	"github.com/kirinyoku/staygo/internal/repository/memory"
	"github.com/kirinyoku/staygo/internal/retry"
	"github.com/kirinyoku/staygo/internal/uow"
)

var (
	owner    = domain.Actor{ID: "op-1", Role: domain.RoleOperator, ProviderID: "p1"}
	stranger = domain.Actor{ID: "op-2", Role: domain.RoleOperator, ProviderID: "p2"}
)

func newService() (*Service, *memory.Store) {
	store := memory.New(time.Second)
	u := uow.NewUoW(store, retry.Policy{MaxAttempts: 1})
	return New(store, u, clock.NewManual(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)), nil), store
}

func TestCreate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateInput{ID: " deluxe ", Name: "Deluxe", Capacity: 4}, owner)
	require.NoError(t, err)
	assert.Equal(t, "deluxe", res.ID)
	assert.Equal(t, "p1", res.ProviderID, "defaults to the actor's provider")
	assert.True(t, res.Active)

	_, err = svc.Create(ctx, CreateInput{ID: "deluxe", Capacity: 1}, owner)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Create(ctx, CreateInput{ID: "x", ProviderID: "p1", Capacity: 1}, stranger)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Create(ctx, CreateInput{ID: "", Capacity: 1}, owner)
	assert.ErrorIs(t, err, ErrInvalidResource)

	_, err = svc.Create(ctx, CreateInput{ID: "neg", Capacity: -1}, owner)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestSetCapacityAndActive(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{ID: "room", Capacity: 4}, owner)
	require.NoError(t, err)

	day := time.Date(2024, 7, 10, 15, 30, 0, 0, time.UTC)
	require.NoError(t, svc.SetCapacity(ctx, "room", day, 1, owner))
	assert.ErrorIs(t, svc.SetCapacity(ctx, "room", day, 2, stranger), domain.ErrForbidden)
	assert.ErrorIs(t, svc.SetCapacity(ctx, "missing", day, 2, owner), domain.ErrNotFound)

	r := domain.NewDateRange(day, day.AddDate(0, 0, 1))
	overrides, err := store.Resources().CapacityOverrides(ctx, "room", r)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-07-10": 1}, overrides)

	require.NoError(t, svc.SetActive(ctx, "room", false, owner))
	res, err := svc.Get(ctx, "room")
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.Zero(t, res.CapacityOn(day, overrides))

	assert.ErrorIs(t, svc.SetActive(ctx, "room", true, stranger), domain.ErrForbidden)
}

func TestSetCapacityKeepsCommittedUnits(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{ID: "room", Capacity: 3}, owner)
	require.NoError(t, err)

	day := time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.Ledger().Append(ctx, domain.NewEntry(domain.KindBooking, "room", day, 2, uuid.New(), "guest", now))
	require.NoError(t, err)
	_, err = store.Ledger().Append(ctx, domain.NewEntry(domain.KindManualBlock, "room", day, 1, uuid.New(), "op-1", now))
	require.NoError(t, err)

	err = svc.SetCapacity(ctx, "room", day, 2, owner)
	require.ErrorIs(t, err, domain.ErrCapacityUnavailable)

	var short *domain.CapacityUnavailableError
	require.ErrorAs(t, err, &short)
	require.Len(t, short.Short, 1)
	assert.Equal(t, "2024-07-10", domain.DayKey(short.Short[0]))

	overrides, err := store.Resources().CapacityOverrides(ctx, "room", domain.NewDateRange(day, day))
	require.NoError(t, err)
	assert.Empty(t, overrides, "rejected override is not stored")

	require.NoError(t, svc.SetCapacity(ctx, "room", day, 3, owner))
	require.NoError(t, svc.SetCapacity(ctx, "room", day.AddDate(0, 0, 1), 0, owner), "empty day can close")
}

func TestCreateSurvivesConcurrentRollback(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	failed := make(chan error, 1)

	go func() {
		failed <- store.RunTx(ctx, nil, func(ctx context.Context, tx repository.Repos) error {
			close(entered)
			<-release
			return domain.ErrCapacityUnavailable
		})
	}()
	<-entered

	var (
		wg        sync.WaitGroup
		createErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, createErr = svc.Create(ctx, CreateInput{ID: "villa", Capacity: 1}, owner)
	}()

	// Let Create reach the store while the transaction is still open.
	time.Sleep(20 * time.Millisecond)
	close(release)
	require.ErrorIs(t, <-failed, domain.ErrCapacityUnavailable)
	wg.Wait()
	require.NoError(t, createErr)

	res, err := svc.Get(ctx, "villa")
	require.NoError(t, err)
	assert.Equal(t, "villa", res.ID)
}
