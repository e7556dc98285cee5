package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/staygo/internal/domain"
	"github.com/kirinyoku/staygo/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Store struct {
	pool        *pgxpool.Pool
	db          DB
	lockTimeout time.Duration
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool, lockTimeout time.Duration) *Store {
	return &Store{
		pool:        pool,
		lockTimeout: lockTimeout,
	}
}

// with returns a view of the store bound to a transaction.
func (s *Store) with(db DB) *Store {
	cp := *s
	cp.db = db
	return &cp
}

// RunTx begins a Read Committed transaction, bounds lock waits with
// lock_timeout and takes a transaction-scoped advisory lock per key in sorted
// order. Statements issued by fn after the locks see every row committed by
// the previous holder.
func (s *Store) RunTx(
	ctx context.Context,
	keys []domain.LockKey,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	const op = "postgres.Store.RunTx"

	if s.db != nil {
		return fn(ctx, s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	if s.lockTimeout > 0 {
		ms := fmt.Sprintf("%dms", s.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
	}

	for _, k := range domain.SortKeys(append([]domain.LockKey(nil), keys...)) {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, k.String()); err != nil {
			return fmt.Errorf("%s: lock %s:%w", op, k, translateDBErr(err))
		}
	}

	if err := fn(ctx, s.with(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit:%w", op, translateDBErr(err))
	}

	return nil
}

func (s *Store) IsRetryable(err error) bool { return IsRetryable(err) }

func (s *Store) Resources() repository.ResourceRepo {
	return &ResourceRepo{pool: s.pool, db: s.db}
}

func (s *Store) Ledger() repository.LedgerRepo {
	return &LedgerRepo{pool: s.pool, db: s.db}
}

func (s *Store) Holds() repository.HoldRepo {
	return &HoldRepo{pool: s.pool, db: s.db}
}

func (s *Store) Bookings() repository.BookingRepo {
	return &BookingRepo{pool: s.pool, db: s.db}
}

func (s *Store) Adjustments() repository.AdjustmentRepo {
	return &AdjustmentRepo{pool: s.pool, db: s.db}
}
