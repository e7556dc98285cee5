package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeGateway(t *testing.T) {
	ctx := context.Background()
	g := NewFakeGateway("https://pay.test/checkout", StatusPending)

	_, err := g.Status(ctx, "bk-1")
	assert.ErrorIs(t, err, ErrUnknownReference)

	redirect, err := g.Initiate(ctx, 12000, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/checkout?amount=12000&ref=bk-1", redirect)

	st, err := g.Status(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, st)

	g.Settle("bk-1", StatusSuccess)
	_, err = g.Initiate(ctx, 12000, "bk-1")
	require.NoError(t, err)

	st, err = g.Status(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, st, "re-initiating keeps the settled outcome")

	_, err = g.Initiate(ctx, 1, "")
	assert.Error(t, err)
}
