package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/staygo/internal/domain"
)

type HoldRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *HoldRepo) With(db DB) *HoldRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *HoldRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *HoldRepo) Create(ctx context.Context, h domain.Hold) error {
	const op = "postgres.HoldRepo.Create"

	_, err := r.handle().Exec(ctx, `
		INSERT INTO holds (id, session_id, user_id, resource_id, start_day, end_day, quantity,
		                   amount_cents, status, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		h.ID, h.SessionID, h.UserID, h.ResourceID, h.Range.From, h.Range.To, h.Quantity,
		h.AmountCents, string(h.Status), h.CreatedAt, h.ExpiresAt, h.UpdatedAt,
	)

	return wrapDBErr(op, err)
}

func (r *HoldRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	const op = "postgres.HoldRepo.Get"

	var (
		h        domain.Hold
		from, to time.Time
		status   string
	)
	err := r.handle().QueryRow(ctx, `
		SELECT id, session_id, user_id, resource_id, start_day, end_day, quantity,
		       amount_cents, status, created_at, expires_at, updated_at
		FROM holds
		WHERE id = $1`, id,
	).Scan(&h.ID, &h.SessionID, &h.UserID, &h.ResourceID, &from, &to, &h.Quantity,
		&h.AmountCents, &status, &h.CreatedAt, &h.ExpiresAt, &h.UpdatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	h.Range = rangeOf(from, to)
	h.Status = domain.HoldStatus(status)

	return &h, nil
}

// ActiveQuantities expands every overlapping active hold into days and sums
// the quantities per day inside rng.
func (r *HoldRepo) ActiveQuantities(ctx context.Context, resourceID string, rng domain.DateRange, exclude uuid.UUID) (map[string]int, error) {
	const op = "postgres.HoldRepo.ActiveQuantities"

	rows, err := r.handle().Query(ctx, `
		SELECT d::date, SUM(h.quantity)
		FROM holds h
		CROSS JOIN LATERAL generate_series(
			GREATEST(h.start_day, $2::date)::timestamp,
			LEAST(h.end_day, $3::date)::timestamp,
			interval '1 day') AS d
		WHERE h.resource_id = $1
		  AND h.status = 'active'
		  AND h.start_day <= $3
		  AND h.end_day >= $2
		  AND h.id <> $4
		GROUP BY d::date`,
		resourceID, rng.From, rng.To, exclude,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			day time.Time
			qty int64
		)
		if err := rows.Scan(&day, &qty); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out[domain.DayKey(day)] = int(qty)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Transition is a compare-and-set on status.
//
// Returns:
//   - bool: false if the hold exists but was not in status from.
//   - error: domain.ErrNotFound if the hold does not exist.
func (r *HoldRepo) Transition(ctx context.Context, id uuid.UUID, from, to domain.HoldStatus, at time.Time) (bool, error) {
	const op = "postgres.HoldRepo.Transition"

	tag, err := r.handle().Exec(ctx, `
		UPDATE holds SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), at,
	)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.handle().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM holds WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, wrapDBErr(op, err)
	}
	if !exists {
		return false, wrapDBErr(op, domain.ErrNotFound)
	}

	return false, nil
}

func (r *HoldRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	const op = "postgres.HoldRepo.ListDue"

	rows, err := r.handle().Query(ctx, `
		SELECT id
		FROM holds
		WHERE status = 'active' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapDBErr(op, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ids, nil
}
