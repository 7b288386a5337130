package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrDuplicateEmail, "email student@dtu.ac.in already exists")

	assert.True(t, errors.Is(err, ErrDuplicateEmail))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, "email already exists", ErrDuplicateEmail.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("disk full"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, "disk full", appErr.Unwrap().Error())
}

func TestFromErrorKeepsTyped(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", Clone(ErrInvalidCredentials, ""))

	appErr := FromError(wrapped)

	assert.Equal(t, ErrInvalidCredentials.Code, appErr.Code)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrSessionExpired, map[string]interface{}{"redirect": "/login"})

	assert.Equal(t, "/login", err.Details["redirect"])
	assert.Nil(t, ErrSessionExpired.Details)
}
