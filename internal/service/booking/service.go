package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kirinyoku/staygo/internal/clock"
	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/metrics"
	"github.com/kirinyoku/staygo/internal/notify"
	"github.com/kirinyoku/staygo/internal/payment"
	"github.com/kirinyoku/staygo/internal/repository"
	"github.com/kirinyoku/staygo/internal/service/availability"
	"github.com/kirinyoku/staygo/internal/uow"
)

type Config struct {
	PollInterval time.Duration
	PollAttempts int
	MaxRangeDays int
}

type Service struct {
	store    repository.Store
	uow      *uow.UoW
	clock    clock.Clock
	gateway  payment.Gateway
	notifier notify.Notifier
	log      zerolog.Logger
	cfg      Config
}

func New(
	store repository.Store,
	u *uow.UoW,
	clk clock.Clock,
	gateway payment.Gateway,
	notifier notify.Notifier,
	log zerolog.Logger,
	cfg Config,
) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 5
	}

	return &Service{
		store:    store,
		uow:      u,
		clock:    clk,
		gateway:  gateway,
		notifier: notify.OrNop(notifier),
		log:      log.With().Str("component", "booking").Logger(),
		cfg:      cfg,
	}
}

// Details carries what the checkout collected besides the hold itself.
type Details struct {
	Guest            domain.Guest
	PaymentConfirmed bool
	PaymentReference string
	// TotalCents is used by direct bookings; committed holds carry their own amount.
	TotalCents int64
	Actor      domain.Actor
}

// Commit converts an active hold into a booking in one transaction:
// re-validate availability without the hold's own units, append one booking
// entry per day, create the booking and consume the hold. Committing a hold
// that was already consumed returns the booking made from it.
//
// Parameters:
//   - ctx: request-scoped context.
//   - holdID: the hold to convert.
//   - d: guest details and whether payment was confirmed upstream.
//
// Returns:
//   - *domain.Booking: the new or previously committed booking.
//   - error: domain.ErrHoldNotActive if the hold expired or was released.
//   - error: domain.ErrCapacityUnavailable if a manual block squeezed the hold.
func (s *Service) Commit(ctx context.Context, holdID uuid.UUID, d Details) (*domain.Booking, error) {
	const op = "service.booking.Commit"

	h, err := s.store.Holds().Get(ctx, holdID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if h.Status == domain.HoldConsumed {
		b, err := s.store.Bookings().GetByHold(ctx, holdID)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return b, nil
	}

	var out *domain.Booking

	err = s.uow.Do(ctx, domain.LockKeys(h.ResourceID, h.Range), func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		cur, err := tx.Holds().Get(ctx, holdID)
		if err != nil {
			return err
		}

		if cur.Status == domain.HoldConsumed {
			out, err = tx.Bookings().GetByHold(ctx, holdID)
			return err
		}

		now := s.clock.Now()
		if !cur.Live(now) {
			status := cur.Status
			if cur.Due(now) {
				status = domain.HoldExpired
			}
			return &domain.HoldNotActiveError{HoldID: holdID, Status: status}
		}

		a, err := availability.Compute(ctx, tx, cur.ResourceID, cur.Range, cur.Quantity, cur.ID)
		if err != nil {
			return err
		}

		if !a.Available {
			return availability.Shortfall(*a)
		}

		b := domain.Booking{
			ID:     uuid.New(),
			HoldID: &cur.ID,
			Lines: []domain.BookingLine{
				{ResourceID: cur.ResourceID, Range: cur.Range, Quantity: cur.Quantity},
			},
			Status:           domain.BookingPendingPayment,
			PaymentStatus:    domain.PaymentPending,
			PaymentReference: d.PaymentReference,
			Guest:            d.Guest,
			TotalCents:       cur.AmountCents,
			CreatedBy:        createdBy(d.Actor, cur),
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if d.PaymentConfirmed {
			b.Status = domain.BookingConfirmed
			b.PaymentStatus = domain.PaymentPaid
		}

		if err := appendBookingEntries(ctx, tx, b, b.CreatedBy, now); err != nil {
			return err
		}

		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}

		if _, err := tx.Holds().Transition(ctx, cur.ID, domain.HoldActive, domain.HoldConsumed, now); err != nil {
			return err
		}

		out = &b

		after(func(ctx context.Context) {
			metrics.IncBooking(metrics.BookingCommitted)
			metrics.IncHold(metrics.HoldConsumed)
			s.notifier.InventoryChanged(ctx, cur.ResourceID, cur.Range, notify.ReasonBooked)
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			if b, gerr := s.store.Bookings().GetByHold(ctx, holdID); gerr == nil {
				return b, nil
			}
		}

		if errors.Is(err, domain.ErrLockTimeout) {
			metrics.IncLockTimeout()
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// CreateDirect books inventory for an operator without a hold. Every line is
// checked under the locks of all lines; the booking is confirmed at once.
func (s *Service) CreateDirect(ctx context.Context, lines []domain.BookingLine, d Details) (*domain.Booking, error) {
	const op = "service.booking.CreateDirect"

	if len(lines) == 0 {
		return nil, fmt.Errorf("%s:%w: no booking lines", op, domain.ErrInvalidQuantity)
	}

	for i := range lines {
		lines[i].Range = domain.NewDateRange(lines[i].Range.From, lines[i].Range.To)
		if err := availability.Validate(lines[i].Range, lines[i].Quantity, s.cfg.MaxRangeDays); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	now := s.clock.Now()

	b := domain.Booking{
		ID:               uuid.New(),
		Lines:            lines,
		Status:           domain.BookingConfirmed,
		PaymentStatus:    domain.PaymentPending,
		PaymentReference: d.PaymentReference,
		Guest:            d.Guest,
		TotalCents:       d.TotalCents,
		CreatedBy:        d.Actor.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if d.PaymentConfirmed {
		b.PaymentStatus = domain.PaymentPaid
	}

	err := s.uow.Do(ctx, b.LockKeys(), func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		for _, l := range b.Lines {
			res, err := tx.Resources().Get(ctx, l.ResourceID)
			if err != nil {
				return err
			}

			if !d.Actor.CanManage(res.ProviderID) {
				return domain.ErrForbidden
			}

			// Entries of earlier lines are visible here, so overlapping lines
			// on one resource are checked against their combined quantity.
			a, err := availability.Compute(ctx, tx, l.ResourceID, l.Range, l.Quantity, uuid.Nil)
			if err != nil {
				return err
			}

			if !a.Available {
				return availability.Shortfall(*a)
			}

			if err := appendLineEntries(ctx, tx, b.ID, l, b.CreatedBy, now); err != nil {
				return err
			}
		}

		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			metrics.IncBooking(metrics.BookingDirect)
			for _, l := range b.Lines {
				s.notifier.InventoryChanged(ctx, l.ResourceID, l.Range, notify.ReasonBooked)
			}
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			metrics.IncLockTimeout()
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &b, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Get"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}

// Cancel writes one compensating entry per booking entry and marks the
// booking cancelled. A paid booking moves to refunded.
//
// Returns:
//   - error: domain.ErrBookingNotCancellable if cancelled or completed.
//   - error: domain.ErrForbidden if the actor neither owns nor manages the booking.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, actor domain.Actor) (*domain.Booking, error) {
	const op = "service.booking.Cancel"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.Booking

	err = s.uow.Do(ctx, b.LockKeys(), func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		cur, err := tx.Bookings().Get(ctx, id)
		if err != nil {
			return err
		}

		if err := authorize(ctx, tx, *cur, actor); err != nil {
			return err
		}

		if !cur.Status.Cancellable() {
			return fmt.Errorf("%w: booking is %s", domain.ErrBookingNotCancellable, cur.Status)
		}

		paymentStatus := cur.PaymentStatus
		if paymentStatus == domain.PaymentPaid {
			paymentStatus = domain.PaymentRefunded
		}

		if err := s.cancelTx(ctx, tx, cur, reason, paymentStatus, actor.ID); err != nil {
			return err
		}

		out = cur

		after(func(ctx context.Context) {
			metrics.IncBooking(metrics.BookingCancelled)
			s.notifyLines(ctx, *cur, notify.ReasonCancelled)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// cancelTx reverses the booking's entries and persists the cancelled state.
// It must run inside a transaction holding the booking's lock keys.
func (s *Service) cancelTx(
	ctx context.Context,
	tx repository.Repos,
	b *domain.Booking,
	reason string,
	paymentStatus domain.PaymentStatus,
	actorID string,
) error {
	now := s.clock.Now()

	entries, err := tx.Ledger().EntriesByReference(ctx, domain.KindBooking, b.ID)
	if err != nil {
		return err
	}

	for _, e := range entries {
		rev, ok := e.Reverse(actorID, now)
		if !ok {
			continue
		}

		if _, err := tx.Ledger().Append(ctx, rev); err != nil {
			return err
		}
	}

	b.Status = domain.BookingCancelled
	b.PaymentStatus = paymentStatus
	b.CancelReason = reason
	b.UpdatedAt = now

	return tx.Bookings().Update(ctx, *b)
}

func (s *Service) notifyLines(ctx context.Context, b domain.Booking, reason notify.Reason) {
	for _, l := range b.Lines {
		s.notifier.InventoryChanged(ctx, l.ResourceID, l.Range, reason)
	}
}

// authorize lets customers act on bookings they created and operators on
// bookings of resources they manage.
func authorize(ctx context.Context, tx repository.Repos, b domain.Booking, actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSystem:
		return nil
	case domain.RoleCustomer:
		if actor.Owns(b.CreatedBy) {
			return nil
		}
		return domain.ErrForbidden
	}

	for _, l := range b.Lines {
		res, err := tx.Resources().Get(ctx, l.ResourceID)
		if err != nil {
			return err
		}

		if !actor.CanManage(res.ProviderID) {
			return domain.ErrForbidden
		}
	}

	return nil
}

func appendBookingEntries(ctx context.Context, tx repository.Repos, b domain.Booking, actorID string, at time.Time) error {
	for _, l := range b.Lines {
		if err := appendLineEntries(ctx, tx, b.ID, l, actorID, at); err != nil {
			return err
		}
	}
	return nil
}

func appendLineEntries(ctx context.Context, tx repository.Repos, bookingID uuid.UUID, l domain.BookingLine, actorID string, at time.Time) error {
	for _, day := range l.Range.Days() {
		e := domain.NewEntry(domain.KindBooking, l.ResourceID, day, l.Quantity, bookingID, actorID, at)
		if _, err := tx.Ledger().Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func createdBy(actor domain.Actor, h *domain.Hold) string {
	switch {
	case actor.ID != "":
		return actor.ID
	case h.UserID != "":
		return h.UserID
	default:
		return h.SessionID
	}
}
