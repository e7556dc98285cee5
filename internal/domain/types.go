package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

// Actor is the verified caller as handed over by the upstream authenticator.
// SessionID identifies an anonymous checkout that has no ID.
type Actor struct {
	ID         string
	Role       Role
	ProviderID string
	SessionID  string
}

func SystemActor() Actor {
	return Actor{ID: "system", Role: RoleSystem}
}

// Owns reports whether createdBy names this actor or its checkout session.
func (a Actor) Owns(createdBy string) bool {
	if createdBy == "" {
		return false
	}
	return a.ID == createdBy || (a.ID == "" && a.SessionID == createdBy)
}

// CanManage reports whether the actor may adjust inventory owned by providerID.
func (a Actor) CanManage(providerID string) bool {
	switch a.Role {
	case RoleAdmin, RoleSystem:
		return true
	case RoleOperator:
		return a.ProviderID != "" && a.ProviderID == providerID
	default:
		return false
	}
}

type Resource struct {
	ID         string
	ProviderID string
	Name       string
	Capacity   int
	Active     bool
	CreatedAt  time.Time
}

// CapacityOn returns the sellable capacity for day, honoring per-date overrides
// keyed by DayKey. Inactive resources have no capacity.
func (r Resource) CapacityOn(day time.Time, overrides map[string]int) int {
	if !r.Active {
		return 0
	}

	if c, ok := overrides[DayKey(day)]; ok {
		return c
	}

	return r.Capacity
}

type EntryKind string

const (
	KindBooking       EntryKind = "booking"
	KindCancellation  EntryKind = "cancellation"
	KindManualBlock   EntryKind = "manual-block"
	KindManualUnblock EntryKind = "manual-unblock"
)

// Sign is the fixed sign of deltas written with this kind.
func (k EntryKind) Sign() int {
	switch k {
	case KindBooking, KindManualBlock:
		return -1
	case KindCancellation, KindManualUnblock:
		return 1
	default:
		return 0
	}
}

// Reversal is the kind that undoes k, or "" when k is itself a reversal.
func (k EntryKind) Reversal() EntryKind {
	switch k {
	case KindBooking:
		return KindCancellation
	case KindManualBlock:
		return KindManualUnblock
	default:
		return ""
	}
}

// IsBooking reports whether the kind counts towards booked occupancy
// rather than blocked occupancy.
func (k EntryKind) IsBooking() bool {
	return k == KindBooking || k == KindCancellation
}

func (k EntryKind) Valid() bool {
	return k.Sign() != 0
}

// LedgerEntry is an immutable signed change to a resource's committed
// occupancy on one day. Reference is a booking id for booking kinds and an
// adjustment id for manual kinds.
type LedgerEntry struct {
	ID         int64
	ResourceID string
	Date       time.Time
	Delta      int
	Kind       EntryKind
	Reference  uuid.UUID
	Reverses   *int64
	ActorID    string
	CreatedAt  time.Time
}

// NewEntry builds an entry whose delta carries the kind's sign.
func NewEntry(kind EntryKind, resourceID string, day time.Time, quantity int, ref uuid.UUID, actorID string, at time.Time) LedgerEntry {
	return LedgerEntry{
		ResourceID: resourceID,
		Date:       Day(day),
		Delta:      kind.Sign() * quantity,
		Kind:       kind,
		Reference:  ref,
		ActorID:    actorID,
		CreatedAt:  at,
	}
}

// Reverse builds the compensating entry for e. It returns false for entries
// that are already reversals.
func (e LedgerEntry) Reverse(actorID string, at time.Time) (LedgerEntry, bool) {
	kind := e.Kind.Reversal()
	if kind == "" {
		return LedgerEntry{}, false
	}

	id := e.ID

	return LedgerEntry{
		ResourceID: e.ResourceID,
		Date:       e.Date,
		Delta:      -e.Delta,
		Kind:       kind,
		Reference:  e.Reference,
		Reverses:   &id,
		ActorID:    actorID,
		CreatedAt:  at,
	}, true
}

// BookingID returns the referenced booking for booking and cancellation entries.
func (e LedgerEntry) BookingID() (uuid.UUID, bool) {
	if !e.Kind.IsBooking() {
		return uuid.Nil, false
	}
	return e.Reference, true
}

// AdjustmentID returns the referenced adjustment for manual entries.
func (e LedgerEntry) AdjustmentID() (uuid.UUID, bool) {
	if e.Kind.IsBooking() || !e.Kind.Valid() {
		return uuid.Nil, false
	}
	return e.Reference, true
}

// DayTotals is committed occupancy on one day, both values non-negative in a
// consistent ledger.
type DayTotals struct {
	Booked  int
	Blocked int
}

func (t DayTotals) Net() int {
	return -(t.Booked + t.Blocked)
}

// Add folds an entry into the totals.
func (t DayTotals) Add(e LedgerEntry) DayTotals {
	if e.Kind.IsBooking() {
		t.Booked -= e.Delta
	} else {
		t.Blocked -= e.Delta
	}
	return t
}

type HoldStatus string

const (
	HoldActive   HoldStatus = "active"
	HoldExpired  HoldStatus = "expired"
	HoldReleased HoldStatus = "released"
	HoldConsumed HoldStatus = "consumed"
)

func (s HoldStatus) Terminal() bool {
	return s != HoldActive
}

type Hold struct {
	ID          uuid.UUID
	SessionID   string
	UserID      string
	ResourceID  string
	Range       DateRange
	Quantity    int
	AmountCents int64
	Status      HoldStatus
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UpdatedAt   time.Time
}

// Live reports whether the hold can still be committed at now.
func (h Hold) Live(now time.Time) bool {
	return h.Status == HoldActive && !now.After(h.ExpiresAt)
}

// Due reports whether the sweep should expire the hold at now.
func (h Hold) Due(now time.Time) bool {
	return h.Status == HoldActive && now.After(h.ExpiresAt)
}

type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "pending_payment"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingCancelled      BookingStatus = "cancelled"
	BookingCompleted      BookingStatus = "completed"
)

func (s BookingStatus) Cancellable() bool {
	return s == BookingPendingPayment || s == BookingConfirmed
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type BookingLine struct {
	ResourceID string
	Range      DateRange
	Quantity   int
}

type Guest struct {
	Name  string
	Email string
	Phone string
}

type Booking struct {
	ID               uuid.UUID
	HoldID           *uuid.UUID
	Lines            []BookingLine
	Status           BookingStatus
	PaymentStatus    PaymentStatus
	PaymentReference string
	Guest            Guest
	TotalCents       int64
	CancelReason     string
	CreatedBy        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LockKeys returns the sorted, de-duplicated keys covering every line.
func (b Booking) LockKeys() []LockKey {
	var keys []LockKey
	for _, l := range b.Lines {
		keys = append(keys, LockKeys(l.ResourceID, l.Range)...)
	}
	return SortKeys(keys)
}

// Adjustment is a manual block recorded as a first-class entity; its ledger
// entries reference it by ID.
type Adjustment struct {
	ID         uuid.UUID
	ResourceID string
	Range      DateRange
	Quantity   int
	Reason     string
	ActorID    string
	CreatedAt  time.Time
	ReversedAt *time.Time
}

func (a Adjustment) Reversed() bool {
	return a.ReversedAt != nil
}

type DayAvailability struct {
	Date      time.Time
	Capacity  int
	Booked    int
	Blocked   int
	Held      int
	Remaining int
}

type Availability struct {
	ResourceID string
	Range      DateRange
	Quantity   int
	Available  bool
	Days       []DayAvailability
}

// Short returns the days whose remaining units are below the requested quantity.
func (a Availability) Short() []time.Time {
	var out []time.Time
	for _, d := range a.Days {
		if d.Remaining < a.Quantity {
			out = append(out, d.Date)
		}
	}
	return out
}

// CalendarDay is the operator view of one day: committed occupancy only.
type CalendarDay struct {
	Date      time.Time `json:"date"`
	Capacity  int       `json:"capacity"`
	Booked    int       `json:"booked"`
	Blocked   int       `json:"blocked"`
	Available int       `json:"available"`
}
