package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/staygo/internal/domain"
)

// LedgerRepo only inserts and reads; the ledger_entries table rejects
// UPDATE and DELETE with a trigger.
type LedgerRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *LedgerRepo) With(db DB) *LedgerRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *LedgerRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const entryColumns = `id, resource_id, day, delta, kind, reference, reverses, actor_id, created_at`

// Append inserts an entry and returns its ID.
//
// Returns:
//   - error: domain.ErrConflict on a duplicate (kind, reference, resource, day).
//   - error: domain.ErrNotFound if the resource or reversed entry is missing.
func (r *LedgerRepo) Append(ctx context.Context, e domain.LedgerEntry) (int64, error) {
	const op = "postgres.LedgerRepo.Append"

	var id int64
	err := r.handle().QueryRow(ctx, `
		INSERT INTO ledger_entries (resource_id, day, delta, kind, reference, reverses, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		e.ResourceID, domain.Day(e.Date), e.Delta, string(e.Kind), e.Reference, e.Reverses, e.ActorID, e.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

func (r *LedgerRepo) SumDeltas(ctx context.Context, resourceID string, rng domain.DateRange) (int, error) {
	const op = "postgres.LedgerRepo.SumDeltas"

	var sum int64
	err := r.handle().QueryRow(ctx, `
		SELECT COALESCE(SUM(delta), 0)
		FROM ledger_entries
		WHERE resource_id = $1 AND day BETWEEN $2 AND $3`,
		resourceID, rng.From, rng.To,
	).Scan(&sum)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return int(sum), nil
}

func (r *LedgerRepo) DailyTotals(ctx context.Context, resourceID string, rng domain.DateRange) (map[string]domain.DayTotals, error) {
	const op = "postgres.LedgerRepo.DailyTotals"

	rows, err := r.handle().Query(ctx, `
		SELECT day,
		       COALESCE(-SUM(delta) FILTER (WHERE kind IN ('booking', 'cancellation')), 0),
		       COALESCE(-SUM(delta) FILTER (WHERE kind IN ('manual-block', 'manual-unblock')), 0)
		FROM ledger_entries
		WHERE resource_id = $1 AND day BETWEEN $2 AND $3
		GROUP BY day`,
		resourceID, rng.From, rng.To,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	out := make(map[string]domain.DayTotals)
	for rows.Next() {
		var (
			day             time.Time
			booked, blocked int64
		)
		if err := rows.Scan(&day, &booked, &blocked); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out[domain.DayKey(day)] = domain.DayTotals{Booked: int(booked), Blocked: int(blocked)}
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *LedgerRepo) ListEntries(ctx context.Context, resourceID string, rng domain.DateRange) ([]domain.LedgerEntry, error) {
	const op = "postgres.LedgerRepo.ListEntries"

	rows, err := r.handle().Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE resource_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day, id`,
		resourceID, rng.From, rng.To,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := scanEntries(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *LedgerRepo) EntriesByReference(ctx context.Context, kind domain.EntryKind, ref uuid.UUID) ([]domain.LedgerEntry, error) {
	const op = "postgres.LedgerRepo.EntriesByReference"

	rows, err := r.handle().Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE kind = $1 AND reference = $2
		ORDER BY id`,
		string(kind), ref,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := scanEntries(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e    domain.LedgerEntry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.ResourceID, &e.Date, &e.Delta, &kind, &e.Reference, &e.Reverses, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = domain.EntryKind(kind)
		e.Date = domain.Day(e.Date)
		out = append(out, e)
	}

	return out, rows.Err()
}
