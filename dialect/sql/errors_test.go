package sql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type stateErr string

func (e stateErr) Error() string    { return "state " + string(e) }
func (e stateErr) SQLState() string { return string(e) }

func TestSQLState(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"pgx", &pgconn.PgError{Code: "40001"}, "40001"},
		{"pgx_wrapped", fmt.Errorf("query: %w", &pgconn.PgError{Code: "23505"}), "23505"},
		{"pq", &pq.Error{Code: "42501"}, "42501"},
		{"mysql", &mysql.MySQLError{Number: 1062, SQLState: [5]byte{'2', '3', '0', '0', '0'}}, "23000"},
		{"mysql_no_state", &mysql.MySQLError{Number: 1062}, ""},
		{"interface", stateErr("0A000"), "0A000"},
		{"plain", errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SQLState(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	assert.True(t, IsRetryable(&pgconn.PgError{Code: StateSerializationFailure}))
	assert.True(t, IsRetryable(fmt.Errorf("tx: %w", &pq.Error{Code: StateDeadlockDetected})))
	assert.True(t, IsRetryable(&mysql.MySQLError{Number: 1213}))
	assert.True(t, IsRetryable(errors.New("ERROR: restart transaction: TransactionRetryWithProtoRefreshError")))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: StateUniqueViolation}))
	assert.False(t, IsRetryable(nil))
}

func TestConstraintErrors(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueConstraintError(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsUniqueConstraintError(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, IsUniqueConstraintError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueConstraintError(nil))

	assert.True(t, IsForeignKeyConstraintError(&pq.Error{Code: "23503"}))
	assert.True(t, IsForeignKeyConstraintError(&mysql.MySQLError{Number: 1452}))
	assert.True(t, IsForeignKeyConstraintError(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, IsForeignKeyConstraintError(errors.New("other")))

	assert.True(t, IsCheckConstraintError(&pgconn.PgError{Code: "23514"}))
	assert.True(t, IsCheckConstraintError(&mysql.MySQLError{Number: 3819}))
	assert.False(t, IsCheckConstraintError(nil))

	assert.True(t, IsPermissionError(&pgconn.PgError{Code: "42501"}))
	assert.True(t, IsPermissionError(errors.New("pq: permission denied for table pg_class")))
	assert.False(t, IsPermissionError(errors.New("syntax error")))
}
