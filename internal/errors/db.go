package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Parsers for PgError.Detail.
var (
	// "Key (field)=(value) already exists."
	reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)
	// "... is not present in table "x"."
	reNotPresent = regexp.MustCompile(`is not present in table "?([^"]+)"?`)
)

// tableNames maps tables to the names used in client messages.
var tableNames = map[string]string{
	"queue_items":           "Queue item",
	"retry_items":           "Retry item",
	"leases":                "Lease",
	"automation_triggers":   "Automation trigger",
	"webhook_metrics":       "Webhook metric",
	"contacts":              "Contact",
	"conversations":         "Conversation",
	"conversation_messages": "Message",
	"payments":              "Payment",
	"installations":         "Installation",
}

// MapDBError maps storage errors to AppError:
//   - no rows -> NotFound
//   - unique violation -> Conflict
//   - foreign key violation -> ForeignKey
//   - check and not-null violations -> Validation
//   - connection failures -> Unavailable
//   - context deadline/cancel -> Timeout/Canceled
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "Request timed out. Please try again.")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "Request was canceled.")
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "Resource not found")
	case errors.Is(err, sql.ErrConnDone):
		return Wrap(err, ErrCodeUnavailable, "Database unavailable")
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return Wrap(err, ErrCodeUnavailable, "Database unavailable")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "This value already exists.",
			Field:   uniqueField(pgErr),
			Cause:   pgErr,
		}
	case pgerrcode.ForeignKeyViolation:
		table := pgErr.TableName
		if m := reNotPresent.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			table = m[1]
		}
		return &AppError{
			Code:    ErrCodeForeignKey,
			Message: "The referenced " + tableDisplayName(table) + " does not exist.",
			Cause:   pgErr,
		}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		msg := "Invalid data. Please check your input."
		if pgErr.ColumnName != "" {
			msg = "This field has an invalid value."
		}
		return &AppError{Code: ErrCodeValidation, Message: msg, Field: pgErr.ColumnName, Cause: pgErr}
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return Wrap(pgErr, ErrCodeUnavailable, "Database is busy. Please retry.")
	default:
		return Wrap(pgErr, ErrCodeInternal, "A database error occurred. Please try again.")
	}
}

// uniqueField prefers column metadata, then the Detail text, then the
// "<table>_<field>_key" constraint naming convention.
func uniqueField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	prefix := pgErr.TableName + "_"
	name := pgErr.ConstraintName
	if pgErr.TableName == "" || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, "_key") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, prefix), "_key")
}

func tableDisplayName(table string) string {
	table = strings.ToLower(strings.TrimSpace(table))
	if name, ok := tableNames[table]; ok {
		return name
	}
	if table == "" {
		return "item"
	}
	return strings.ReplaceAll(table, "_", " ")
}
