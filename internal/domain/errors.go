package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRange          = errors.New("invalid date range")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrCapacityUnavailable   = errors.New("capacity unavailable")
	ErrHoldNotActive         = errors.New("hold is not active")
	ErrBookingNotCancellable = errors.New("booking is not cancellable")
	ErrNotABlock             = errors.New("not an active manual block")
	ErrConflict              = errors.New("conflict")
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrLockTimeout           = errors.New("lock timeout")
	ErrInvalidTransition     = errors.New("invalid status transition")
)

// CapacityUnavailableError names the days that could not satisfy a request.
type CapacityUnavailableError struct {
	ResourceID string
	Requested  int
	Short      []time.Time
}

func (e *CapacityUnavailableError) Error() string {
	days := make([]string, 0, len(e.Short))
	for _, d := range e.Short {
		days = append(days, DayKey(d))
	}

	return fmt.Sprintf("capacity unavailable for %s: %d unit(s) short on %s",
		e.ResourceID, e.Requested, strings.Join(days, ", "))
}

func (e *CapacityUnavailableError) Is(target error) bool {
	return target == ErrCapacityUnavailable
}

type HoldNotActiveError struct {
	HoldID uuid.UUID
	Status HoldStatus
}

func (e *HoldNotActiveError) Error() string {
	return fmt.Sprintf("hold %s is not active: %s", e.HoldID, e.Status)
}

func (e *HoldNotActiveError) Is(target error) bool {
	return target == ErrHoldNotActive
}

// IsRetriable reports errors a client may retry unchanged.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
