package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/staygo/internal/domain"
)

type ResourceRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ResourceRepo) With(db DB) *ResourceRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ResourceRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a resource.
//
// Returns:
//   - error: domain.ErrConflict if a resource with the same ID exists.
func (r *ResourceRepo) Create(ctx context.Context, res domain.Resource) error {
	const op = "postgres.ResourceRepo.Create"

	_, err := r.handle().Exec(ctx, `
		INSERT INTO resources (id, provider_id, name, capacity, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		res.ID, res.ProviderID, res.Name, res.Capacity, res.Active, res.CreatedAt,
	)

	return wrapDBErr(op, err)
}

func (r *ResourceRepo) Get(ctx context.Context, id string) (*domain.Resource, error) {
	const op = "postgres.ResourceRepo.Get"

	var res domain.Resource
	err := r.handle().QueryRow(ctx, `
		SELECT id, provider_id, name, capacity, active, created_at
		FROM resources
		WHERE id = $1`, id,
	).Scan(&res.ID, &res.ProviderID, &res.Name, &res.Capacity, &res.Active, &res.CreatedAt)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &res, nil
}

func (r *ResourceRepo) SetActive(ctx context.Context, id string, active bool) error {
	const op = "postgres.ResourceRepo.SetActive"

	tag, err := r.handle().Exec(ctx, `UPDATE resources SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, domain.ErrNotFound)
	}

	return nil
}

// SetCapacityOverride upserts the capacity for a single day.
//
// Returns:
//   - error: domain.ErrNotFound if the resource does not exist.
func (r *ResourceRepo) SetCapacityOverride(ctx context.Context, id string, day time.Time, capacity int) error {
	const op = "postgres.ResourceRepo.SetCapacityOverride"

	_, err := r.handle().Exec(ctx, `
		INSERT INTO capacity_overrides (resource_id, day, capacity)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource_id, day) DO UPDATE SET capacity = EXCLUDED.capacity`,
		id, domain.Day(day), capacity,
	)

	return wrapDBErr(op, err)
}

func (r *ResourceRepo) CapacityOverrides(ctx context.Context, id string, rng domain.DateRange) (map[string]int, error) {
	const op = "postgres.ResourceRepo.CapacityOverrides"

	var exists bool
	if err := r.handle().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM resources WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, wrapDBErr(op, err)
	}
	if !exists {
		return nil, wrapDBErr(op, domain.ErrNotFound)
	}

	rows, err := r.handle().Query(ctx, `
		SELECT day, capacity
		FROM capacity_overrides
		WHERE resource_id = $1 AND day BETWEEN $2 AND $3`,
		id, rng.From, rng.To,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			day      time.Time
			capacity int
		)
		if err := rows.Scan(&day, &capacity); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out[domain.DayKey(day)] = capacity
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
