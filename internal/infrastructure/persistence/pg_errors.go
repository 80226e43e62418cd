package persistence

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes the ledger reacts to
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
)

// IsSerializationFailure reports whether err is a serialization failure or a
// deadlock, both of which are safe to retry from the start of the transaction
func IsSerializationFailure(err error) bool {
	code := sqlState(err)
	return code == sqlStateSerializationFailure || code == sqlStateDeadlockDetected
}

// IsUniqueViolation reports whether err is a unique constraint violation
func IsUniqueViolation(err error) bool {
	return sqlState(err) == sqlStateUniqueViolation || errors.Is(err, gorm.ErrDuplicatedKey)
}

// isSQLiteUniqueViolation matches the sqlite driver's constraint message,
// which carries no SQLSTATE
func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
