package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrNotFound, "report not found")
	assert.True(t, stdErrors.Is(err, ErrNotFound))
	assert.False(t, stdErrors.Is(err, ErrForbidden))
	assert.Equal(t, "report not found", err.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("query: %w", sql.ErrConnDone))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.True(t, stdErrors.Is(appErr, sql.ErrConnDone))

	wrapped := fmt.Errorf("outer: %w", ErrForbidden)
	assert.Equal(t, ErrForbidden, FromError(wrapped))
	assert.Nil(t, FromError(nil))
}

func TestWithFields(t *testing.T) {
	err := WithFields("invalid report", map[string]string{"description": "This field is required."})
	assert.Equal(t, ErrValidation.Code, err.Code)
	assert.Equal(t, "This field is required.", err.Fields["description"])
	assert.Nil(t, ErrValidation.Fields)
}
