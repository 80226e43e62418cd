package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestSQLStateClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}

	assert.True(t, IsSerializationFailure(wrap("40001")))
	assert.True(t, IsSerializationFailure(wrap("40P01")))
	assert.False(t, IsSerializationFailure(wrap("23505")))
	assert.False(t, IsSerializationFailure(errors.New("40001")))
	assert.False(t, IsSerializationFailure(nil))

	assert.True(t, IsUniqueViolation(wrap("23505")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, IsUniqueViolation(wrap("40001")))

	assert.True(t, isSQLiteUniqueViolation(errors.New("UNIQUE constraint failed: notifications.event_id")))
	assert.False(t, isSQLiteUniqueViolation(nil))
}
