package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("failed to delete invoice: %w", NewPreconditionError("settled"))

	assert.True(t, IsPrecondition(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))

	assert.True(t, IsValidation(NewValidationError("bad")))
	assert.True(t, IsNotFound(NewNotFoundError("Invoice not found")))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NewNotFoundError("There is no such balance record"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, "lookup: There is no such balance record", err.Error())
}

func TestPage_Normalize(t *testing.T) {
	assert.Equal(t, Page{Limit: DefaultPageLimit}, Page{}.Normalize())
	assert.Equal(t, Page{Limit: MaxPageLimit, Offset: 5}, Page{Limit: 1000, Offset: 5}.Normalize())
	assert.Equal(t, Page{Limit: 10}, Page{Limit: 10, Offset: -3}.Normalize())
}
