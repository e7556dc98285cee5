package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirinyoku/staygo/internal/domain"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return true
		}
	}

	return false
}

// translateDBErr maps driver errors onto domain sentinels. Retryable errors
// are returned untouched so IsRetryable still sees the PgError.
func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case codeUniqueViolation:
			return domain.ErrConflict
		case codeForeignKeyViolation:
			return domain.ErrNotFound
		case codeLockNotAvailable:
			return domain.ErrLockTimeout
		}
	}

	return err
}
