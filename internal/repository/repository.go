// Package repository declares the storage contracts shared by the Postgres
// and in-memory stores. Implementations return the domain sentinel errors
// (domain.ErrNotFound, domain.ErrConflict, domain.ErrLockTimeout).
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/staygo/internal/domain"
)

type ResourceRepo interface {
	Create(ctx context.Context, r domain.Resource) error
	Get(ctx context.Context, id string) (*domain.Resource, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetCapacityOverride(ctx context.Context, id string, day time.Time, capacity int) error
	// CapacityOverrides returns overrides within r keyed by domain.DayKey.
	CapacityOverrides(ctx context.Context, id string, r domain.DateRange) (map[string]int, error)
}

// LedgerRepo is append-only: there is no update or delete.
type LedgerRepo interface {
	// Append fails with domain.ErrConflict when an entry with the same kind,
	// reference, resource and day already exists.
	Append(ctx context.Context, e domain.LedgerEntry) (int64, error)
	SumDeltas(ctx context.Context, resourceID string, r domain.DateRange) (int, error)
	// DailyTotals returns totals for days with at least one entry.
	DailyTotals(ctx context.Context, resourceID string, r domain.DateRange) (map[string]domain.DayTotals, error)
	ListEntries(ctx context.Context, resourceID string, r domain.DateRange) ([]domain.LedgerEntry, error)
	EntriesByReference(ctx context.Context, kind domain.EntryKind, ref uuid.UUID) ([]domain.LedgerEntry, error)
}

type HoldRepo interface {
	Create(ctx context.Context, h domain.Hold) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Hold, error)
	// ActiveQuantities sums active holds per day within r, skipping exclude.
	ActiveQuantities(ctx context.Context, resourceID string, r domain.DateRange, exclude uuid.UUID) (map[string]int, error)
	// Transition moves a hold from one status to another and reports whether
	// the row was in the expected status.
	Transition(ctx context.Context, id uuid.UUID, from, to domain.HoldStatus, at time.Time) (bool, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type BookingRepo interface {
	// Create fails with domain.ErrConflict when the hold was already converted.
	Create(ctx context.Context, b domain.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetByHold(ctx context.Context, holdID uuid.UUID) (*domain.Booking, error)
	// Update persists status, payment fields and cancel reason.
	Update(ctx context.Context, b domain.Booking) error
}

type AdjustmentRepo interface {
	Create(ctx context.Context, a domain.Adjustment) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Adjustment, error)
	// MarkReversed fails with domain.ErrConflict if already reversed.
	MarkReversed(ctx context.Context, id uuid.UUID, at time.Time) error
	ListOverlapping(ctx context.Context, resourceID string, r domain.DateRange) ([]domain.Adjustment, error)
}

type Repos interface {
	Resources() ResourceRepo
	Ledger() LedgerRepo
	Holds() HoldRepo
	Bookings() BookingRepo
	Adjustments() AdjustmentRepo
}

// Store is a Repos that can run a transaction holding per-(resource, day)
// locks. Reads through the Store itself are not locked.
type Store interface {
	Repos
	// RunTx runs fn in one transaction after acquiring locks for keys in
	// sorted order. Lock waits are bounded and fail with domain.ErrLockTimeout.
	RunTx(ctx context.Context, keys []domain.LockKey, fn func(ctx context.Context, tx Repos) error) error
	// IsRetryable reports transient failures (serialization, deadlock) that
	// are safe to retry with a fresh transaction.
	IsRetryable(err error) bool
}
