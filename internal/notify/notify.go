// Package notify carries the after-commit contract for inventory changes.
package notify

import (
	"context"

	"github.com/kirinyoku/staygo/internal/domain"
)

// Reason names the write that changed committed or held inventory.
type Reason string

const (
	ReasonHoldCreated   Reason = "hold_created"
	ReasonHoldReleased  Reason = "hold_released"
	ReasonHoldExpired   Reason = "hold_expired"
	ReasonBooked        Reason = "booked"
	ReasonCancelled     Reason = "cancelled"
	ReasonBlocked       Reason = "blocked"
	ReasonUnblocked     Reason = "unblocked"
	ReasonCapacitySet   Reason = "capacity_set"
	ReasonActiveChanged Reason = "active_changed"
)

// Notifier is called after a transaction that touched a resource's inventory
// has committed. Implementations must not fail the caller.
type Notifier interface {
	InventoryChanged(ctx context.Context, resourceID string, r domain.DateRange, reason Reason)
}

type Nop struct{}

func (Nop) InventoryChanged(context.Context, string, domain.DateRange, Reason) {}

// OrNop returns n, or Nop when n is nil.
func OrNop(n Notifier) Notifier {
	if n == nil {
		return Nop{}
	}
	return n
}
