package uow

import (
	"context"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/repository"
	"github.com/kirinyoku/staygo/internal/retry"
)

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work.
type UoW struct {
	store  repository.Store
	policy retry.Policy
}

// NewUoW retries transient storage failures according to policy; a policy
// with MaxAttempts <= 1 runs each unit exactly once.
func NewUoW(store repository.Store, policy retry.Policy) *UoW {
	return &UoW{store: store, policy: policy}
}

// Do runs fn inside a transaction holding locks for keys. After a successful
// commit, it executes all after-commit hooks. Hooks registered by a failed
// attempt are discarded.
func (u *UoW) Do(
	ctx context.Context,
	keys []domain.LockKey,
	fn func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := retry.Do(ctx, u.policy, func(ctx context.Context, attempt int) (bool, error) {
		hooks = hooks[:0]

		err := u.store.RunTx(ctx, keys, func(ctx context.Context, tx repository.Repos) error {
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err != nil && u.store.IsRetryable(err) && attempt < u.policy.MaxAttempts {
			return false, nil
		}

		return true, err
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
