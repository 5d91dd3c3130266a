package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCodeAndCause(t *testing.T) {
	base := &AppError{Code: CodeGatewayUnavailable, Message: PaymentRetryMessage, HTTPCode: http.StatusBadGateway, Retryable: true}
	cause := errors.New("dial tcp: timeout")

	err := fmt.Errorf("poll order: %w", Wrap(base, cause))

	assert.True(t, errors.Is(err, base))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsRetryable(err))
	assert.Nil(t, base.Err, "wrapping must not mutate the sentinel")

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPCode)
}

func TestInternalIsNotRetryable(t *testing.T) {
	err := Internal(errors.New("boom"))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, CodeInternalError, err.Code)
	assert.Contains(t, err.Error(), "boom")
}
