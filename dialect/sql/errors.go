package sql

import (
	"errors"
	"slices"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// sqlStateError is implemented by errors that provide SQLSTATE codes.
type sqlStateError interface {
	SQLState() string
}

// SQLSTATE codes recognized by the classifier.
const (
	StateSerializationFailure = "40001"
	StateDeadlockDetected     = "40P01"
	StateUniqueViolation      = "23505"
	StateForeignKeyViolation  = "23503"
	StateCheckViolation       = "23514"
	StateInsufficientPrivs    = "42501"
	StateUndefinedTable       = "42P01"
	StateUndefinedFunction    = "42883"
	StateFeatureNotSupported  = "0A000"
)

// mysqlLockDeadlock is the MySQL error number of ER_LOCK_DEADLOCK.
const mysqlLockDeadlock = 1213

// SQLState extracts the SQLSTATE code from a driver error, or "" when the
// error carries none.
func SQLState(err error) string {
	if err == nil {
		return ""
	}
	var (
		pgErr *pgconn.PgError
		pqErr *pq.Error
		myErr *mysql.MySQLError
	)
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	if errors.As(err, &myErr) {
		if myErr.SQLState != [5]byte{} {
			return string(myErr.SQLState[:])
		}
		return ""
	}
	var e sqlStateError
	if errors.As(err, &e) {
		return e.SQLState()
	}
	return ""
}

// mysqlNumber returns the MySQL error number of err, or 0.
func mysqlNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

// IsRetryable reports whether err is a transaction conflict the caller may
// retry, such as a CockroachDB serialization failure (40001). dbkit never
// retries on its own.
func IsRetryable(err error) bool {
	switch SQLState(err) {
	case StateSerializationFailure, StateDeadlockDetected:
		return true
	}
	if mysqlNumber(err) == mysqlLockDeadlock {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "restart transaction")
}

// violation describes how each driver reports one kind of constraint
// violation. SQLite drivers report no codes, so messages are matched too.
type violation struct {
	state    string
	numbers  []uint16
	messages []string
}

var (
	uniqueViolation = violation{
		state:    StateUniqueViolation,
		numbers:  []uint16{1062},
		messages: []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"},
	}
	foreignKeyViolation = violation{
		state:    StateForeignKeyViolation,
		numbers:  []uint16{1451, 1452},
		messages: []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	}
	checkViolation = violation{
		state:    StateCheckViolation,
		numbers:  []uint16{3819},
		messages: []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	}
	privilegeViolation = violation{
		state:    StateInsufficientPrivs,
		numbers:  []uint16{1142},
		messages: []string{"permission denied", "Error 1142"},
	}
)

func (v violation) match(err error) bool {
	if err == nil {
		return false
	}
	if n := mysqlNumber(err); SQLState(err) == v.state || n != 0 && slices.Contains(v.numbers, n) {
		return true
	}
	msg := err.Error()
	return slices.ContainsFunc(v.messages, func(m string) bool { return strings.Contains(msg, m) })
}

// IsUniqueConstraintError reports whether err is a unique violation.
func IsUniqueConstraintError(err error) bool { return uniqueViolation.match(err) }

// IsForeignKeyConstraintError reports whether err is a foreign key violation.
func IsForeignKeyConstraintError(err error) bool { return foreignKeyViolation.match(err) }

// IsCheckConstraintError reports whether err is a check constraint violation.
func IsCheckConstraintError(err error) bool { return checkViolation.match(err) }

// IsPermissionError reports whether the server refused a statement for
// lack of privileges.
func IsPermissionError(err error) bool { return privilegeViolation.match(err) }
