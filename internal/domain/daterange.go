package domain

import (
	"fmt"
	"sort"
	"time"
)

const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrInvalidRange, s)
	}
	return t, nil
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: Day(from), To: Day(to)}
}

func ParseDateRange(from, to string) (DateRange, error) {
	f, err := ParseDay(from)
	if err != nil {
		return DateRange{}, err
	}

	t, err := ParseDay(to)
	if err != nil {
		return DateRange{}, err
	}

	r := DateRange{From: f, To: t}
	if err := r.Validate(0); err != nil {
		return DateRange{}, err
	}

	return r, nil
}

// Validate rejects empty and inverted ranges and, when maxDays > 0, ranges
// longer than maxDays.
func (r DateRange) Validate(maxDays int) error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("%w: missing bound", ErrInvalidRange)
	}

	if r.To.Before(r.From) {
		return fmt.Errorf("%w: %s is after %s", ErrInvalidRange, DayKey(r.From), DayKey(r.To))
	}

	if maxDays > 0 && r.Len() > maxDays {
		return fmt.Errorf("%w: %d days exceeds the limit of %d", ErrInvalidRange, r.Len(), maxDays)
	}

	return nil
}

// Len is the number of days covered, 0 for an inverted range.
func (r DateRange) Len() int {
	if r.To.Before(r.From) {
		return 0
	}
	return int(Day(r.To).Sub(Day(r.From)).Hours()/24) + 1
}

// Days lists every covered day in order.
func (r DateRange) Days() []time.Time {
	n := r.Len()
	out := make([]time.Time, 0, n)
	start := Day(r.From)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}

func (r DateRange) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(r.From)) && !d.After(Day(r.To))
}

func (r DateRange) Overlaps(o DateRange) bool {
	return !Day(r.To).Before(Day(o.From)) && !Day(o.To).Before(Day(r.From))
}

func (r DateRange) String() string {
	return DayKey(r.From) + ".." + DayKey(r.To)
}

// LockKey identifies one (resource, day) pair for write serialization.
type LockKey struct {
	ResourceID string
	Date       time.Time
}

func (k LockKey) String() string {
	return k.ResourceID + "|" + DayKey(k.Date)
}

func LockKeys(resourceID string, r DateRange) []LockKey {
	days := r.Days()
	out := make([]LockKey, 0, len(days))
	for _, d := range days {
		out = append(out, LockKey{ResourceID: resourceID, Date: d})
	}
	return out
}

// SortKeys orders keys by resource then day and drops duplicates. Locks are
// always acquired in this order.
func SortKeys(keys []LockKey) []LockKey {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	out := keys[:0]
	for _, k := range keys {
		if len(out) > 0 && k.String() == out[len(out)-1].String() {
			continue
		}
		out = append(out, k)
	}
	return out
}
