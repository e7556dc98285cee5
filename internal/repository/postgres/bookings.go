package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/staygo/internal/domain"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts the booking and its lines in one batch. It must run inside
// a transaction so a failed line insert leaves no partial booking.
//
// Returns:
//   - error: domain.ErrConflict if the hold already produced a booking.
func (r *BookingRepo) Create(ctx context.Context, b domain.Booking) error {
	const op = "postgres.BookingRepo.Create"

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO bookings (id, hold_id, status, payment_status, payment_reference,
		                      guest_name, guest_email, guest_phone, total_cents,
		                      cancel_reason, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.HoldID, string(b.Status), string(b.PaymentStatus), b.PaymentReference,
		b.Guest.Name, b.Guest.Email, b.Guest.Phone, b.TotalCents,
		b.CancelReason, b.CreatedBy, b.CreatedAt, b.UpdatedAt,
	)

	for i, l := range b.Lines {
		batch.Queue(`
			INSERT INTO booking_lines (booking_id, line_no, resource_id, start_day, end_day, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			b.ID, i, l.ResourceID, l.Range.From, l.Range.To, l.Quantity,
		)
	}

	br := r.handle().SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return wrapDBErr(op, err)
		}
	}

	return nil
}

const bookingColumns = `id, hold_id, status, payment_status, payment_reference,
	guest_name, guest_email, guest_phone, total_cents, cancel_reason, created_by, created_at, updated_at`

// Get locks the row FOR UPDATE when called inside a transaction.
func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.Get"

	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if r.db != nil {
		sql += ` FOR UPDATE`
	}

	b, err := r.scanOne(ctx, sql, id)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

func (r *BookingRepo) GetByHold(ctx context.Context, holdID uuid.UUID) (*domain.Booking, error) {
	const op = "postgres.BookingRepo.GetByHold"

	b, err := r.scanOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE hold_id = $1`, holdID)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

func (r *BookingRepo) Update(ctx context.Context, b domain.Booking) error {
	const op = "postgres.BookingRepo.Update"

	tag, err := r.handle().Exec(ctx, `
		UPDATE bookings
		SET status = $2, payment_status = $3, payment_reference = $4,
		    cancel_reason = $5, updated_at = $6
		WHERE id = $1`,
		b.ID, string(b.Status), string(b.PaymentStatus), b.PaymentReference, b.CancelReason, b.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, domain.ErrNotFound)
	}

	return nil
}

func (r *BookingRepo) scanOne(ctx context.Context, sql string, arg any) (*domain.Booking, error) {
	var (
		b             domain.Booking
		status, payst string
	)
	err := r.handle().QueryRow(ctx, sql, arg).Scan(
		&b.ID, &b.HoldID, &status, &payst, &b.PaymentReference,
		&b.Guest.Name, &b.Guest.Email, &b.Guest.Phone, &b.TotalCents,
		&b.CancelReason, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = domain.PaymentStatus(payst)

	rows, err := r.handle().Query(ctx, `
		SELECT resource_id, start_day, end_day, quantity
		FROM booking_lines
		WHERE booking_id = $1
		ORDER BY line_no`, b.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l        domain.BookingLine
			from, to time.Time
		)
		if err := rows.Scan(&l.ResourceID, &from, &to, &l.Quantity); err != nil {
			return nil, err
		}
		l.Range = rangeOf(from, to)
		b.Lines = append(b.Lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &b, nil
}
