package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("lookup: %w", errors.NotFound.Explain("user %s not found", "u1"))

	assert.True(t, errors.Is(err, errors.NotFound))
	assert.False(t, errors.Is(err, errors.Invalid))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
	assert.Equal(t, http.StatusNotFound, errors.FromError(err, "/api/users/u1").Status)
}

func TestWithFieldDoesNotMutateSentinel(t *testing.T) {
	err := errors.Invalid.WithField("content", "required", "content is required")

	assert.Len(t, err.Fields, 1)
	assert.Empty(t, errors.Invalid.Fields)
	assert.Contains(t, err.Error(), "content is required")
}

func TestFromErrorCarriesFieldErrors(t *testing.T) {
	err := errors.Invalid.Explain("invalid chat message").WithField("userId", "required", "userId is required")

	p := errors.FromError(err, "/api/chat")

	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, errors.TypeValidationError, p.Type)
	assert.Len(t, p.Errors, 1)
	assert.Equal(t, "userId", p.Errors[0].Field)
}

func TestFromErrorUnknownIsInternal(t *testing.T) {
	p := errors.FromError(fmt.Errorf("boom"), "/x")
	assert.Equal(t, http.StatusInternalServerError, p.Status)
}
