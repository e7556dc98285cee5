package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/staygo/internal/domain"
)

type AdjustmentRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *AdjustmentRepo) With(db DB) *AdjustmentRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *AdjustmentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *AdjustmentRepo) Create(ctx context.Context, a domain.Adjustment) error {
	const op = "postgres.AdjustmentRepo.Create"

	_, err := r.handle().Exec(ctx, `
		INSERT INTO adjustments (id, resource_id, start_day, end_day, quantity, reason, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ResourceID, a.Range.From, a.Range.To, a.Quantity, a.Reason, a.ActorID, a.CreatedAt,
	)

	return wrapDBErr(op, err)
}

const adjustmentColumns = `id, resource_id, start_day, end_day, quantity, reason, actor_id, created_at, reversed_at`

func (r *AdjustmentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Adjustment, error) {
	const op = "postgres.AdjustmentRepo.Get"

	var (
		a        domain.Adjustment
		from, to time.Time
	)
	err := r.handle().QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM adjustments WHERE id = $1`, id).
		Scan(&a.ID, &a.ResourceID, &from, &to, &a.Quantity, &a.Reason, &a.ActorID, &a.CreatedAt, &a.ReversedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	a.Range = rangeOf(from, to)

	return &a, nil
}

// MarkReversed stamps reversed_at once.
//
// Returns:
//   - error: domain.ErrConflict if the adjustment was already reversed.
//   - error: domain.ErrNotFound if it does not exist.
func (r *AdjustmentRepo) MarkReversed(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "postgres.AdjustmentRepo.MarkReversed"

	tag, err := r.handle().Exec(ctx, `
		UPDATE adjustments SET reversed_at = $2
		WHERE id = $1 AND reversed_at IS NULL`, id, at,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	return wrapDBErr(op, domain.ErrConflict)
}

func (r *AdjustmentRepo) ListOverlapping(ctx context.Context, resourceID string, rng domain.DateRange) ([]domain.Adjustment, error) {
	const op = "postgres.AdjustmentRepo.ListOverlapping"

	rows, err := r.handle().Query(ctx, `
		SELECT `+adjustmentColumns+`
		FROM adjustments
		WHERE resource_id = $1 AND start_day <= $3 AND end_day >= $2
		ORDER BY created_at`,
		resourceID, rng.From, rng.To,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.Adjustment
	for rows.Next() {
		var (
			a        domain.Adjustment
			from, to time.Time
		)
		if err := rows.Scan(&a.ID, &a.ResourceID, &from, &to, &a.Quantity, &a.Reason, &a.ActorID, &a.CreatedAt, &a.ReversedAt); err != nil {
			return nil, wrapDBErr(op, err)
		}
		a.Range = rangeOf(from, to)
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
