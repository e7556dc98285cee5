package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDelay(t *testing.T) {
	p := Policy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}

	assert.Equal(t, 100*time.Millisecond, p.NextDelay(0))
	assert.Equal(t, 100*time.Millisecond, p.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, p.NextDelay(2))
	assert.Equal(t, 300*time.Millisecond, p.NextDelay(3))

	assert.Equal(t, time.Second, Policy{}.NextDelay(1))
	assert.Equal(t, 5*time.Second, Fixed(5*time.Second, 5).NextDelay(4))
}

func TestDoStopsWhenDone(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Fixed(time.Millisecond, 5), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return attempt == 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhausts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Fixed(time.Millisecond, 4), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, nil
	})

	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 4, calls)
}

func TestDoReturnsFnError(t *testing.T) {
	boom := errors.New("boom")
	err := Do(context.Background(), Fixed(time.Millisecond, 4), func(ctx context.Context, attempt int) (bool, error) {
		return false, boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Do(ctx, Fixed(time.Hour, 3), func(ctx context.Context, attempt int) (bool, error) {
		cancel()
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
