package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, ErrCodeInternal, "failed")
	assert.Equal(t, "failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "plain", New(ErrCodeConflict, "plain").Error())
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "x"))
}

func TestGetCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", ValidationField("queue", "unknown queue"))
	assert.Equal(t, ErrCodeValidation, GetCode(err))
	assert.Equal(t, "queue", GetField(err))
	assert.True(t, Is(err, ErrCodeValidation))
	assert.False(t, Is(errors.New("x"), ""))
	assert.Empty(t, GetCode(errors.New("x")))
}

func TestHTTPStatus(t *testing.T) {
	tests := map[ErrorCode]int{
		ErrCodeNotFound:     http.StatusNotFound,
		ErrCodeConflict:     http.StatusConflict,
		ErrCodeValidation:   http.StatusBadRequest,
		ErrCodeForeignKey:   http.StatusBadRequest,
		ErrCodeUnauthorized: http.StatusUnauthorized,
		ErrCodeUnavailable:  http.StatusServiceUnavailable,
		ErrCodeTimeout:      http.StatusGatewayTimeout,
		ErrCodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, HTTPStatus(New(code, "x")), code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("raw")))
	assert.Equal(t, "internal error", PublicMessage(errors.New("secret detail")))
}

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  ErrorCode
		wantField string
	}{
		{name: "deadline", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", err: fmt.Errorf("q: %w", context.Canceled), wantCode: ErrCodeCanceled},
		{name: "no rows", err: sql.ErrNoRows, wantCode: ErrCodeNotFound},
		{
			name: "unique from detail",
			err: &pgconn.PgError{Code: pgerrcode.UniqueViolation,
				Detail: "Key (dedup_key)=(abc) already exists."},
			wantCode: ErrCodeConflict, wantField: "dedup_key",
		},
		{
			name: "unique from constraint",
			err: &pgconn.PgError{Code: pgerrcode.UniqueViolation,
				TableName: "installations", ConstraintName: "installations_tenant_id_key"},
			wantCode: ErrCodeConflict, wantField: "tenant_id",
		},
		{
			name: "foreign key",
			err: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation,
				Detail: `Key (contact_id)=(x) is not present in table "contacts".`},
			wantCode: ErrCodeForeignKey,
		},
		{
			name:     "check",
			err:      &pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "status"},
			wantCode: ErrCodeValidation, wantField: "status",
		},
		{name: "serialization", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, wantCode: ErrCodeUnavailable},
		{name: "other pg", err: &pgconn.PgError{Code: pgerrcode.DivisionByZero}, wantCode: ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.wantCode, GetCode(got))
			assert.Equal(t, tt.wantField, GetField(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}

	plain := errors.New("not a db error")
	assert.Same(t, plain, MapDBError(plain))
	assert.NoError(t, MapDBError(nil))

	fk := MapDBError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation,
		Detail: `Key (contact_id)=(x) is not present in table "contacts".`})
	assert.Equal(t, "The referenced Contact does not exist.", PublicMessage(fk))
}
