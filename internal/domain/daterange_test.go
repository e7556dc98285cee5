package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-07-10", "2024-07-12")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "2024-07-10..2024-07-12", r.String())

	days := r.Days()
	require.Len(t, days, 3)
	assert.Equal(t, "2024-07-11", DayKey(days[1]))

	_, err = ParseDateRange("2024-07-12", "2024-07-10")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ParseDateRange("2024-07-10", "tomorrow")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestDateRangeSingleDayAndLimits(t *testing.T) {
	r := NewDateRange(day(t, "2024-02-28"), day(t, "2024-03-01"))
	assert.Equal(t, 3, r.Len(), "leap day is covered")
	assert.NoError(t, r.Validate(3))
	assert.ErrorIs(t, r.Validate(2), ErrInvalidRange)

	single := NewDateRange(day(t, "2024-07-10"), day(t, "2024-07-10"))
	assert.Equal(t, 1, single.Len())
	assert.True(t, single.Contains(day(t, "2024-07-10")))
	assert.False(t, single.Contains(day(t, "2024-07-11")))

	assert.ErrorIs(t, DateRange{}.Validate(0), ErrInvalidRange)
}

func TestDateRangeOverlaps(t *testing.T) {
	a := NewDateRange(day(t, "2024-08-01"), day(t, "2024-08-03"))
	b := NewDateRange(day(t, "2024-08-03"), day(t, "2024-08-05"))
	c := NewDateRange(day(t, "2024-08-04"), day(t, "2024-08-05"))

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c))
}

func TestDayNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	local := time.Date(2024, 7, 10, 23, 30, 0, 0, loc)
	assert.Equal(t, "2024-07-10", DayKey(Day(local)))
	assert.Equal(t, time.UTC, Day(local).Location())
}

func TestSortKeysDeduplicates(t *testing.T) {
	d1, d2 := day(t, "2024-07-10"), day(t, "2024-07-11")
	keys := []LockKey{
		{ResourceID: "b", Date: d1},
		{ResourceID: "a", Date: d2},
		{ResourceID: "a", Date: d1},
		{ResourceID: "a", Date: d2},
	}

	got := SortKeys(keys)
	require.Len(t, got, 3)
	assert.Equal(t, "a|2024-07-10", got[0].String())
	assert.Equal(t, "a|2024-07-11", got[1].String())
	assert.Equal(t, "b|2024-07-10", got[2].String())
}

func TestEntrySignsAndReversal(t *testing.T) {
	ref := uuid.New()
	now := time.Now()

	e := NewEntry(KindBooking, "room", day(t, "2024-07-10"), 2, ref, "u1", now)
	assert.Equal(t, -2, e.Delta)

	e.ID = 7
	rev, ok := e.Reverse("u2", now)
	require.True(t, ok)
	assert.Equal(t, KindCancellation, rev.Kind)
	assert.Equal(t, 2, rev.Delta)
	require.NotNil(t, rev.Reverses)
	assert.Equal(t, int64(7), *rev.Reverses)

	_, ok = rev.Reverse("u3", now)
	assert.False(t, ok)

	id, ok := rev.BookingID()
	assert.True(t, ok)
	assert.Equal(t, ref, id)
	_, ok = rev.AdjustmentID()
	assert.False(t, ok)

	block := NewEntry(KindManualBlock, "room", day(t, "2024-07-10"), 1, ref, "op", now)
	totals := DayTotals{}.Add(e).Add(block)
	assert.Equal(t, DayTotals{Booked: 2, Blocked: 1}, totals)
	assert.Equal(t, -3, totals.Net())
	assert.Equal(t, DayTotals{Booked: 0, Blocked: 1}, totals.Add(rev))
}

func TestCapacityUnavailableErrorMatchesSentinel(t *testing.T) {
	err := error(&CapacityUnavailableError{
		ResourceID: "room",
		Requested:  1,
		Short:      []time.Time{day(t, "2024-07-11")},
	})

	assert.True(t, errors.Is(err, ErrCapacityUnavailable))
	assert.Contains(t, err.Error(), "2024-07-11")

	var detail *CapacityUnavailableError
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, "room", detail.ResourceID)
}

func TestActorCanManage(t *testing.T) {
	assert.True(t, Actor{Role: RoleAdmin}.CanManage("p1"))
	assert.True(t, Actor{Role: RoleOperator, ProviderID: "p1"}.CanManage("p1"))
	assert.False(t, Actor{Role: RoleOperator, ProviderID: "p2"}.CanManage("p1"))
	assert.False(t, Actor{Role: RoleOperator}.CanManage(""))
	assert.False(t, Actor{Role: RoleCustomer, ProviderID: "p1"}.CanManage("p1"))
}

func TestActorOwns(t *testing.T) {
	assert.True(t, Actor{ID: "guest-1"}.Owns("guest-1"))
	assert.True(t, Actor{SessionID: "sess-1"}.Owns("sess-1"))
	assert.False(t, Actor{ID: "guest-1", SessionID: "sess-1"}.Owns("sess-1"), "signed-in callers are matched by id")
	assert.False(t, Actor{}.Owns(""))
	assert.False(t, Actor{SessionID: "sess-1"}.Owns("sess-2"))
}
