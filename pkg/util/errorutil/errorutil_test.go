package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	nf := NewNotFound("ticket", nil)
	wrapped := fmt.Errorf("lookup: %w", nf)
	de := ToDomainError(wrapped)
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	assert.Equal(t, "ticket not found", de.Message)

	cause := errors.New("disk full")
	de = ToDomainError(cause)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.ErrorIs(t, de, cause)
}

func TestUnprocessable(t *testing.T) {
	cause := errors.New("too short")
	de := NewUnprocessable(CodeInsufficientData, "not enough data", map[string]any{"bins": 3}).Wrap(cause)
	assert.Equal(t, http.StatusUnprocessableEntity, de.HTTPStatus)
	assert.Equal(t, "not enough data: too short", de.Error())
	assert.ErrorIs(t, de, cause)
}
