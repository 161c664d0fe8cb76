package data

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Shared sentinel errors for data-layer repositories.
var (
	ErrQueueItemIDRequired = errors.New("queue item id is required")
	ErrRetryItemIDRequired = errors.New("retry item id is required")
	ErrLeaseKeyRequired    = errors.New("lease key is required")
	ErrHolderIDRequired    = errors.New("holder id is required")
	ErrTenantIDRequired    = errors.New("tenant id is required")
)

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// rowsAffected returns the affected row count of res, wrapping failures with op.
func rowsAffected(res sql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return n, nil
}
