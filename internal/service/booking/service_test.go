package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/staygo/internal/clock"
	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/payment"
	"github.com/kirinyoku/staygo/internal/repository/memory"
	"github.com/kirinyoku/staygo/internal/retry"
	"github.com/kirinyoku/staygo/internal/service/holds"
	"github.com/kirinyoku/staygo/internal/uow"
)

var (
	customer = domain.Actor{ID: "guest-1", Role: domain.RoleCustomer}
	operator = domain.Actor{ID: "op-1", Role: domain.RoleOperator, ProviderID: "p1"}
	stranger = domain.Actor{ID: "op-2", Role: domain.RoleOperator, ProviderID: "p2"}
)

type fixture struct {
	store   *memory.Store
	clock   *clock.Manual
	gateway *payment.FakeGateway
	holds   *holds.Service
	svc     *Service
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()

	store := memory.New(5 * time.Second)
	u := uow.NewUoW(store, retry.Policy{MaxAttempts: 1})
	clk := clock.NewManual(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC))
	gw := payment.NewFakeGateway("http://pay.local/checkout", payment.StatusPending)

	ctx := context.Background()
	require.NoError(t, store.Resources().Create(ctx, domain.Resource{ID: "room", ProviderID: "p1", Capacity: capacity, Active: true}))
	require.NoError(t, store.Resources().Create(ctx, domain.Resource{ID: "suite", ProviderID: "p1", Capacity: 1, Active: true}))

	return &fixture{
		store:   store,
		clock:   clk,
		gateway: gw,
		holds:   holds.New(store, u, clk, nil, zerolog.Nop(), holds.Config{}),
		svc: New(store, u, clk, gw, nil, zerolog.Nop(), Config{
			PollInterval: time.Millisecond,
			PollAttempts: 3,
		}),
	}
}

func rng(t *testing.T, from, to string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(from, to)
	require.NoError(t, err)
	return r
}

func (f *fixture) hold(t *testing.T, r domain.DateRange, qty int) *domain.Hold {
	t.Helper()
	h, err := f.holds.Create(context.Background(), holds.CreateInput{
		ResourceID: "room", Range: r, Quantity: qty, UserID: customer.ID, AmountCents: 12000,
	})
	require.NoError(t, err)
	return h
}

func (f *fixture) booked(t *testing.T, r domain.DateRange) map[string]domain.DayTotals {
	t.Helper()
	totals, err := f.store.Ledger().DailyTotals(context.Background(), "room", r)
	require.NoError(t, err)
	return totals
}

func TestCommitConvertsHold(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-12")
	h := f.hold(t, r, 2)

	b, err := f.svc.Commit(ctx, h.ID, Details{Guest: domain.Guest{Name: "Ada"}, Actor: customer})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPendingPayment, b.Status)
	assert.Equal(t, domain.PaymentPending, b.PaymentStatus)
	assert.Equal(t, int64(12000), b.TotalCents)
	require.NotNil(t, b.HoldID)
	assert.Equal(t, h.ID, *b.HoldID)

	got, err := f.holds.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldConsumed, got.Status)

	totals := f.booked(t, r)
	require.Len(t, totals, 3)
	for _, d := range r.Days() {
		assert.Equal(t, 2, totals[domain.DayKey(d)].Booked)
	}

	again, err := f.svc.Commit(ctx, h.ID, Details{Actor: customer})
	require.NoError(t, err)
	assert.Equal(t, b.ID, again.ID, "commit is idempotent")
	assert.Len(t, f.booked(t, r), 3)
	assert.Equal(t, 2, f.booked(t, r)["2024-07-10"].Booked)
}

func TestCommitConcurrentlyYieldsOneBooking(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-11")
	h := f.hold(t, r, 1)

	const workers = 8
	ids := make([]uuid.UUID, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := f.svc.Commit(ctx, h.ID, Details{Actor: customer})
			if assert.NoError(t, err) {
				ids[i] = b.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, f.booked(t, r)["2024-07-11"].Booked)
}

func TestCommitWithConfirmedPayment(t *testing.T) {
	f := newFixture(t, 1)
	h := f.hold(t, rng(t, "2024-07-10", "2024-07-10"), 1)

	b, err := f.svc.Commit(context.Background(), h.ID, Details{PaymentConfirmed: true, PaymentReference: "pay-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, domain.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, "pay-1", b.PaymentReference)
}

func TestCommitRejectsInactiveHolds(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-10")

	released := f.hold(t, r, 1)
	_, err := f.holds.Release(ctx, released.ID)
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, released.ID, Details{})
	assert.ErrorIs(t, err, domain.ErrHoldNotActive)

	overdue := f.hold(t, r, 1)
	f.clock.Advance(16 * time.Minute)

	_, err = f.svc.Commit(ctx, overdue.ID, Details{})
	require.ErrorIs(t, err, domain.ErrHoldNotActive)

	var hna *domain.HoldNotActiveError
	require.ErrorAs(t, err, &hna)
	assert.Equal(t, domain.HoldExpired, hna.Status)

	assert.Empty(t, f.booked(t, r))

	_, err = f.svc.Commit(ctx, uuid.New(), Details{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommitRevalidatesAgainstBlocks(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-11")
	h := f.hold(t, r, 1)

	_, err := f.store.Ledger().Append(ctx, domain.NewEntry(
		domain.KindManualBlock, "room", r.To, 1, uuid.New(), operator.ID, f.clock.Now(),
	))
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, h.ID, Details{})
	require.ErrorIs(t, err, domain.ErrCapacityUnavailable)

	got, err := f.holds.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldActive, got.Status, "a failed commit leaves the hold usable")
	assert.Zero(t, f.booked(t, r)["2024-07-10"].Booked)
}

func TestCancelReducesBookedExactly(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-12")

	keep, err := f.svc.Commit(ctx, f.hold(t, r, 1).ID, Details{Actor: customer})
	require.NoError(t, err)
	drop, err := f.svc.Commit(ctx, f.hold(t, r, 2).ID, Details{Actor: customer, PaymentConfirmed: true})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, drop.ID, "plans changed", stranger)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Cancel(ctx, drop.ID, "plans changed", domain.Actor{ID: "guest-2", Role: domain.RoleCustomer})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	b, err := f.svc.Cancel(ctx, drop.ID, "plans changed", customer)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	assert.Equal(t, domain.PaymentRefunded, b.PaymentStatus)
	assert.Equal(t, "plans changed", b.CancelReason)

	totals := f.booked(t, r)
	for _, d := range r.Days() {
		assert.Equal(t, 1, totals[domain.DayKey(d)].Booked)
	}

	entries, err := f.store.Ledger().EntriesByReference(ctx, domain.KindCancellation, drop.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		require.NotNil(t, e.Reverses)
		assert.Equal(t, 2, e.Delta)
	}

	_, err = f.svc.Cancel(ctx, drop.ID, "again", customer)
	assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)

	_, err = f.svc.Cancel(ctx, keep.ID, "", operator)
	require.NoError(t, err)
	assert.Empty(t, filterBooked(f.booked(t, r)))
}

func filterBooked(totals map[string]domain.DayTotals) map[string]int {
	out := map[string]int{}
	for k, v := range totals {
		if v.Booked != 0 {
			out[k] = v.Booked
		}
	}
	return out
}

func TestCreateDirect(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-11")

	_, err := f.svc.CreateDirect(ctx, []domain.BookingLine{{ResourceID: "room", Range: r, Quantity: 1}}, Details{Actor: stranger})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.CreateDirect(ctx, []domain.BookingLine{
		{ResourceID: "room", Range: r, Quantity: 1},
		{ResourceID: "room", Range: rng(t, "2024-07-11", "2024-07-11"), Quantity: 2},
	}, Details{Actor: operator})
	require.ErrorIs(t, err, domain.ErrCapacityUnavailable, "overlapping lines count together")
	assert.Empty(t, f.booked(t, r), "a failed direct booking writes nothing")

	b, err := f.svc.CreateDirect(ctx, []domain.BookingLine{
		{ResourceID: "room", Range: r, Quantity: 2},
		{ResourceID: "suite", Range: r, Quantity: 1},
	}, Details{Actor: operator, TotalCents: 50000})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Nil(t, b.HoldID)
	assert.Equal(t, 2, f.booked(t, r)["2024-07-10"].Booked)

	_, err = f.svc.CreateDirect(ctx, nil, Details{Actor: operator})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.holds.Create(ctx, holds.CreateInput{ResourceID: "room", Range: r, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrCapacityUnavailable)
}

func TestNoOversellUnderContention(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-13")

	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			day := r.Days()[i%4]
			h, err := f.holds.Create(ctx, holds.CreateInput{
				ResourceID: "room", Range: domain.NewDateRange(day, r.To), Quantity: 1, UserID: customer.ID,
			})
			if err != nil {
				return
			}

			b, err := f.svc.Commit(ctx, h.ID, Details{Actor: customer})
			if err == nil && i%3 == 0 {
				_, _ = f.svc.Cancel(ctx, b.ID, "", customer)
			}
		}(i)
	}
	wg.Wait()

	for day, t2 := range f.booked(t, r) {
		assert.GreaterOrEqual(t, t2.Booked, 0, day)
		assert.LessOrEqual(t, t2.Booked, 3, day)
	}
}

func TestPaymentTransitions(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-10")

	b, err := f.svc.Commit(ctx, f.hold(t, r, 1).ID, Details{Actor: customer})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	b, err = f.svc.ConfirmPayment(ctx, b.ID, "pay-9")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, domain.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, "pay-9", b.PaymentReference)

	b, err = f.svc.ConfirmPayment(ctx, b.ID, "")
	require.NoError(t, err, "confirming twice is a no-op")
	assert.Equal(t, "pay-9", b.PaymentReference)

	_, err = f.svc.FailPayment(ctx, b.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	b, err = f.svc.Complete(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, b.Status)

	_, err = f.svc.Cancel(ctx, b.ID, "", customer)
	assert.ErrorIs(t, err, domain.ErrBookingNotCancellable)
}

func TestFailPaymentReleasesInventory(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-11")

	b, err := f.svc.Commit(ctx, f.hold(t, r, 1).ID, Details{Actor: customer})
	require.NoError(t, err)

	b, err = f.svc.FailPayment(ctx, b.ID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	assert.Equal(t, domain.PaymentFailed, b.PaymentStatus)
	assert.Equal(t, "card declined", b.CancelReason)
	assert.Empty(t, filterBooked(f.booked(t, r)))

	_, err = f.svc.FailPayment(ctx, b.ID, "")
	require.NoError(t, err, "failing twice is a no-op")
	assert.Empty(t, filterBooked(f.booked(t, r)))

	_, err = f.svc.ConfirmPayment(ctx, b.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	f.hold(t, r, 1)
}

func TestReconcileAndAwait(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	r := rng(t, "2024-07-10", "2024-07-10")

	b, err := f.svc.Commit(ctx, f.hold(t, r, 1).ID, Details{Actor: customer})
	require.NoError(t, err)

	_, st, err := f.svc.Reconcile(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, st, "an uninitiated payment is pending")

	redirect, err := f.svc.InitiatePayment(ctx, b.ID)
	require.NoError(t, err)
	assert.Contains(t, redirect, "ref="+b.ID.String())

	got, err := f.svc.AwaitPayment(ctx, b.ID)
	require.ErrorIs(t, err, ErrStillPending)
	assert.Equal(t, domain.BookingPendingPayment, got.Status)

	f.gateway.Settle(b.ID.String(), payment.StatusSuccess)
	got, err = f.svc.AwaitPayment(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, got.Status)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)

	failing, err := f.svc.Commit(ctx, f.hold(t, r, 1).ID, Details{Actor: customer})
	require.NoError(t, err)
	_, err = f.svc.InitiatePayment(ctx, failing.ID)
	require.NoError(t, err)
	f.gateway.Settle(failing.ID.String(), payment.StatusFailure)

	got, st, err = f.svc.Reconcile(ctx, failing.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailure, st)
	assert.Equal(t, domain.BookingCancelled, got.Status)
	assert.Equal(t, 1, f.booked(t, r)["2024-07-10"].Booked)

	_, err = f.svc.InitiatePayment(ctx, failing.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
