package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/metrics"
	"github.com/kirinyoku/staygo/internal/notify"
	"github.com/kirinyoku/staygo/internal/payment"
	"github.com/kirinyoku/staygo/internal/repository"
	"github.com/kirinyoku/staygo/internal/retry"
	"github.com/kirinyoku/staygo/internal/uow"
)

// ErrStillPending is returned by AwaitPayment when the poll budget ran out
// before the gateway settled. The booking is left untouched.
var ErrStillPending = errors.New("payment still pending")

const defaultFailReason = "payment failed"

// InitiatePayment registers the booking with the gateway and stores the
// reference the gateway will report on. It returns the checkout redirect URL.
func (s *Service) InitiatePayment(ctx context.Context, id uuid.UUID) (string, error) {
	const op = "service.booking.InitiatePayment"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if b.Status != domain.BookingPendingPayment {
		return "", fmt.Errorf("%s:%w: booking is %s", op, domain.ErrInvalidTransition, b.Status)
	}

	ref := paymentReference(*b)

	redirect, err := s.gateway.Initiate(ctx, b.TotalCents, ref)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if b.PaymentReference == ref {
		return redirect, nil
	}

	err = s.uow.Do(ctx, b.LockKeys(), func(ctx context.Context, tx repository.Repos, _ func(uow.AfterCommit)) error {
		cur, err := tx.Bookings().Get(ctx, id)
		if err != nil {
			return err
		}

		cur.PaymentReference = ref
		cur.UpdatedAt = s.clock.Now()

		return tx.Bookings().Update(ctx, *cur)
	})
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	return redirect, nil
}

// ConfirmPayment marks a pending booking confirmed and paid. Confirming a
// booking that is already paid is a no-op. It holds the booking's day locks
// so it serializes with Cancel and FailPayment.
//
// Returns:
//   - error: domain.ErrInvalidTransition for cancelled bookings.
func (s *Service) ConfirmPayment(ctx context.Context, id uuid.UUID, reference string) (*domain.Booking, error) {
	const op = "service.booking.ConfirmPayment"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.Booking

	err = s.uow.Do(ctx, b.LockKeys(), func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		cur, err := tx.Bookings().Get(ctx, id)
		if err != nil {
			return err
		}

		out = cur

		switch cur.Status {
		case domain.BookingCancelled:
			return fmt.Errorf("%w: booking is %s", domain.ErrInvalidTransition, cur.Status)
		case domain.BookingCompleted:
			return nil
		case domain.BookingConfirmed:
			if cur.PaymentStatus == domain.PaymentPaid {
				return nil
			}
		}

		cur.Status = domain.BookingConfirmed
		cur.PaymentStatus = domain.PaymentPaid
		if reference != "" {
			cur.PaymentReference = reference
		}
		cur.UpdatedAt = s.clock.Now()

		if err := tx.Bookings().Update(ctx, *cur); err != nil {
			return err
		}

		after(func(context.Context) {
			metrics.IncBooking(metrics.BookingConfirmed)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// FailPayment cancels a pending booking with payment failed, giving its units
// back. Failing an already cancelled booking only records the payment outcome.
//
// Returns:
//   - error: domain.ErrInvalidTransition if the booking was already paid.
func (s *Service) FailPayment(ctx context.Context, id uuid.UUID, reason string) (*domain.Booking, error) {
	const op = "service.booking.FailPayment"

	if reason == "" {
		reason = defaultFailReason
	}

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.Booking

	err = s.uow.Do(ctx, b.LockKeys(), func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		cur, err := tx.Bookings().Get(ctx, id)
		if err != nil {
			return err
		}

		out = cur

		if cur.PaymentStatus == domain.PaymentPaid || cur.PaymentStatus == domain.PaymentRefunded {
			return fmt.Errorf("%w: payment is %s", domain.ErrInvalidTransition, cur.PaymentStatus)
		}

		switch cur.Status {
		case domain.BookingCancelled:
			if cur.PaymentStatus == domain.PaymentFailed {
				return nil
			}
			cur.PaymentStatus = domain.PaymentFailed
			cur.UpdatedAt = s.clock.Now()
			return tx.Bookings().Update(ctx, *cur)
		case domain.BookingPendingPayment:
		default:
			return fmt.Errorf("%w: booking is %s", domain.ErrInvalidTransition, cur.Status)
		}

		if err := s.cancelTx(ctx, tx, cur, reason, domain.PaymentFailed, domain.SystemActor().ID); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			metrics.IncBooking(metrics.BookingFailed)
			s.notifyLines(ctx, *cur, notify.ReasonCancelled)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Complete marks a confirmed booking as stayed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.Complete"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out *domain.Booking

	err = s.uow.Do(ctx, b.LockKeys(), func(ctx context.Context, tx repository.Repos, after func(uow.AfterCommit)) error {
		cur, err := tx.Bookings().Get(ctx, id)
		if err != nil {
			return err
		}

		out = cur

		switch cur.Status {
		case domain.BookingCompleted:
			return nil
		case domain.BookingConfirmed:
		default:
			return fmt.Errorf("%w: booking is %s", domain.ErrInvalidTransition, cur.Status)
		}

		cur.Status = domain.BookingCompleted
		cur.UpdatedAt = s.clock.Now()

		if err := tx.Bookings().Update(ctx, *cur); err != nil {
			return err
		}

		after(func(context.Context) {
			metrics.IncBooking(metrics.BookingCompleted)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Reconcile asks the gateway once for the payment status and applies a
// settled outcome. A pending payment leaves the booking unchanged.
func (s *Service) Reconcile(ctx context.Context, id uuid.UUID) (*domain.Booking, payment.Status, error) {
	const op = "service.booking.Reconcile"

	b, err := s.store.Bookings().Get(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("%s:%w", op, err)
	}

	if b.Status != domain.BookingPendingPayment {
		return b, settledStatus(*b), nil
	}

	ref := paymentReference(*b)

	st, err := s.gateway.Status(ctx, ref)
	if err != nil {
		if errors.Is(err, payment.ErrUnknownReference) {
			return b, payment.StatusPending, nil
		}
		return nil, "", fmt.Errorf("%s:%w", op, err)
	}

	switch st {
	case payment.StatusSuccess:
		b, err = s.ConfirmPayment(ctx, id, ref)
	case payment.StatusFailure:
		b, err = s.FailPayment(ctx, id, defaultFailReason)
	default:
		return b, payment.StatusPending, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%s:%w", op, err)
	}

	s.log.Info().
		Str("booking_id", id.String()).
		Str("payment_status", string(st)).
		Msg("payment reconciled")

	return b, st, nil
}

// AwaitPayment polls Reconcile within the configured budget. It returns
// ErrStillPending with the unchanged booking when the budget runs out; it
// never cancels on its own.
func (s *Service) AwaitPayment(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.AwaitPayment"

	var last *domain.Booking

	err := retry.Do(ctx, retry.Fixed(s.cfg.PollInterval, s.cfg.PollAttempts), func(ctx context.Context, _ int) (bool, error) {
		b, st, err := s.Reconcile(ctx, id)
		if err != nil {
			return true, err
		}

		last = b

		return st != payment.StatusPending || b.Status != domain.BookingPendingPayment, nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return last, fmt.Errorf("%s:%w", op, ErrStillPending)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return last, nil
}

func paymentReference(b domain.Booking) string {
	if b.PaymentReference != "" {
		return b.PaymentReference
	}
	return b.ID.String()
}

func settledStatus(b domain.Booking) payment.Status {
	switch b.PaymentStatus {
	case domain.PaymentPaid, domain.PaymentRefunded:
		return payment.StatusSuccess
	case domain.PaymentFailed:
		return payment.StatusFailure
	default:
		return payment.StatusPending
	}
}
