// Package payment defines the gateway collaborator the booking coordinator
// consumes. Real gateway integrations live outside this service.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

var ErrUnknownReference = errors.New("unknown payment reference")

// Gateway starts payments and answers idempotent status reads.
type Gateway interface {
	// Initiate registers a payment for reference and returns the URL the
	// customer is redirected to.
	Initiate(ctx context.Context, amountCents int64, reference string) (string, error)
	Status(ctx context.Context, reference string) (Status, error)
}

// FakeGateway settles every payment with a fixed outcome unless a status was
// set explicitly. It stands in for the real gateway in development and tests.
type FakeGateway struct {
	mu          sync.Mutex
	checkoutURL string
	outcome     Status
	payments    map[string]Status
}

func NewFakeGateway(checkoutURL string, outcome Status) *FakeGateway {
	if outcome == "" {
		outcome = StatusPending
	}

	return &FakeGateway{
		checkoutURL: checkoutURL,
		outcome:     outcome,
		payments:    make(map[string]Status),
	}
}

func (g *FakeGateway) Initiate(_ context.Context, amountCents int64, reference string) (string, error) {
	if reference == "" {
		return "", fmt.Errorf("payment.FakeGateway.Initiate: empty reference")
	}

	g.mu.Lock()
	if _, ok := g.payments[reference]; !ok {
		g.payments[reference] = g.outcome
	}
	g.mu.Unlock()

	q := url.Values{}
	q.Set("ref", reference)
	q.Set("amount", fmt.Sprint(amountCents))

	return g.checkoutURL + "?" + q.Encode(), nil
}

func (g *FakeGateway) Status(_ context.Context, reference string) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.payments[reference]
	if !ok {
		return "", ErrUnknownReference
	}

	return st, nil
}

// Settle overrides the outcome of one payment.
func (g *FakeGateway) Settle(reference string, st Status) {
	g.mu.Lock()
	g.payments[reference] = st
	g.mu.Unlock()
}
