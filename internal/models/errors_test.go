package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTransient(NewNetworkError(errors.New("timeout"))))
	assert.True(t, IsAuthExpired(NewAuthExpiredError()))
	assert.True(t, IsConflict(NewConflictError("dup")))
	assert.True(t, IsValidation(NewValidationError("bad input")))

	assert.False(t, IsTransient(NewConflictError("dup")))
	assert.False(t, IsConflict(nil))
	assert.False(t, IsValidation(errors.New("plain")))
}

func TestAppErrorPredicatesSeeThroughWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("refreshing feed: %w", NewNetworkError(errors.New("reset")))
	assert.True(t, IsTransient(wrapped))
}

func TestAppErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewServerError(503, errors.New("upstream unavailable"))
	assert.Equal(t, 503, err.Status)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "upstream unavailable")
	assert.Equal(t, "upstream unavailable", errors.Unwrap(err).Error())

	assert.Equal(t, "dup", NewConflictError("dup").Error())
}
