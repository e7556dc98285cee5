package uow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/repository"
	"github.com/kirinyoku/staygo/internal/repository/memory"
	"github.com/kirinyoku/staygo/internal/retry"
)

var errTransient = errors.New("serialization failure")

// flakyStore fails the first n transactions with a retryable error.
type flakyStore struct {
	*memory.Store
	failures int
	calls    int
}

func (f *flakyStore) RunTx(ctx context.Context, keys []domain.LockKey, fn func(ctx context.Context, tx repository.Repos) error) error {
	f.calls++
	return f.Store.RunTx(ctx, keys, func(ctx context.Context, tx repository.Repos) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if f.calls <= f.failures {
			return errTransient
		}
		return nil
	})
}

func (f *flakyStore) IsRetryable(err error) bool { return errors.Is(err, errTransient) }

func TestDoRunsHooksAfterCommitOnly(t *testing.T) {
	u := NewUoW(memory.New(time.Second), retry.Policy{MaxAttempts: 1})

	ran := 0
	err := u.Do(context.Background(), nil, func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { ran++ })
		return errors.New("rollback")
	})
	require.Error(t, err)
	assert.Zero(t, ran)

	err = u.Do(context.Background(), nil, func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { ran++ })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
}

func TestDoRetriesTransientFailures(t *testing.T) {
	store := &flakyStore{Store: memory.New(time.Second), failures: 2}
	u := NewUoW(store, retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond})

	hooks := 0
	err := u.Do(context.Background(), nil, func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return tx.Resources().Create(ctx, domain.Resource{ID: "room", Capacity: 1, Active: true})
	})

	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, 1, hooks, "hooks from rolled back attempts are dropped")

	_, err = store.Resources().Get(context.Background(), "room")
	assert.NoError(t, err)
}

func TestDoGivesUpAfterBudget(t *testing.T) {
	store := &flakyStore{Store: memory.New(time.Second), failures: 10}
	u := NewUoW(store, retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond})

	err := u.Do(context.Background(), nil, func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		return nil
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 2, store.calls)
}
