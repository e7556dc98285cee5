package postgres

import (
	"fmt"
	"time"

	"github.com/kirinyoku/staygo/internal/domain"
)

// wrapDBErr maps common DB errors to domain errors and wraps them with
// the provided operation name.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s:%w", op, translateDBErr(err))
}

func rangeOf(from, to time.Time) domain.DateRange {
	return domain.NewDateRange(from, to)
}
