package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicatesFollowWrappedChain(t *testing.T) {
	base := NewRateLimitExceededError(3, stderrors.New("429 Too Many Requests"))
	wrapped := fmt.Errorf("qualify lead: %w", base)

	assert.True(t, IsRateLimit(wrapped))
	assert.False(t, IsTransient(wrapped))
	assert.True(t, IsClassified(wrapped))
	assert.Equal(t, ErrCodeRateLimited, CodeOf(wrapped))
	assert.Equal(t, "Rate limit exceeded after 3 attempts", base.Message)
}

func TestServiceFailureIncludesTimeout(t *testing.T) {
	assert.True(t, IsServiceFailure(NewServiceFailureError(stderrors.New("boom"))))
	assert.True(t, IsServiceFailure(NewLLMTimeoutError(0, nil)))
	assert.False(t, IsServiceFailure(NewValidationError("bad", nil)))
}

func TestCodeOfUnknownError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(stderrors.New("plain")))
	assert.False(t, IsClassified(stderrors.New("plain")))
	assert.Equal(t, ErrCodeInternal, CodeOf(nil))
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewServiceFailureError(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), string(ErrCodeServiceFailure))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeRateLimited, http.StatusServiceUnavailable},
		{ErrCodeTransientService, http.StatusServiceUnavailable},
		{ErrCodeServiceFailure, http.StatusServiceUnavailable},
		{ErrCodeValidation, http.StatusBadGateway},
		{ErrCodeConfiguration, http.StatusInternalServerError},
		{ErrCodeLLMTimeout, http.StatusGatewayTimeout},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeResourceNotFound, http.StatusNotFound},
		{ErrCodeQueryFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestWithMetadataDoesNotMutateReceiver(t *testing.T) {
	orig := NewInvalidInputError("name is required")
	tagged := orig.WithMetadata("lead", "Jane")

	assert.Nil(t, orig.Metadata)
	assert.Equal(t, "Jane", tagged.Metadata["lead"])
	assert.Equal(t, orig.Code, tagged.Code)
}

func TestConvertToBPMNError(t *testing.T) {
	retryable := ConvertToBPMNError(NewTransientServiceError(3, stderrors.New("503")))
	assert.True(t, retryable.Retryable)
	assert.Equal(t, 3, retryable.Retries)

	terminal := ConvertToBPMNError(NewValidationError("variants", nil).WithMetadata("field", "variants"))
	assert.False(t, terminal.Retryable)
	assert.Zero(t, terminal.Retries)

	vars := terminal.ToErrorVariables()
	assert.Equal(t, "VALIDATION_FAILURE", vars["errorCode"])
	assert.Equal(t, "variants", vars["field"])
}

func TestNormalize(t *testing.T) {
	std := NewResourceNotFoundError("lead", 42)
	require.Same(t, std, Normalize(fmt.Errorf("wrap: %w", std)))

	plain := Normalize(stderrors.New("kaboom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "kaboom", plain.Details)
}
