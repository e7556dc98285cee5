package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrExhausted is returned by Do when every attempt finished without success.
var ErrExhausted = errors.New("retry budget exhausted")

// Policy defines exponential backoff parameters.
type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// Fixed polls at a constant interval.
func Fixed(interval time.Duration, attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialDelay: interval, MaxDelay: interval, BackoffFactor: 1}
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.BackoffFactor <= 0 {
		p.BackoffFactor = 2
	}

	delay := float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Do calls fn until it reports done, returns an error, the attempts run out
// or ctx is cancelled. It sleeps NextDelay(attempt) between attempts, never
// after the last one.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (bool, error)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		done, err := fn(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == attempts {
			break
		}

		t := time.NewTimer(p.NextDelay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	return ErrExhausted
}
