package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendErrorWrappersSatisfyError(t *testing.T) {
	cause := errors.New("boom")
	wrappers := []error{
		&AuthenticationError{BackendError{Message: "auth", Provider: "openai", Cause: cause}},
		&RateLimitError{BackendError{Message: "throttled", Transient: true}},
		&ServerError{BackendError{Message: "5xx", Transient: true}},
		&ContextLengthError{BackendError{Message: "too long"}},
		&ScriptExhaustedError{BackendError{Message: "out of outputs"}},
	}
	for _, err := range wrappers {
		assert.NotEmpty(t, err.Error())
	}

	var auth *AuthenticationError
	require.ErrorAs(t, wrappers[0], &auth)
	assert.Equal(t, "[openai] auth: boom", auth.Error())
	assert.ErrorIs(t, wrappers[0], cause)
}

func TestBackendErrorRetryablePromotion(t *testing.T) {
	var r interface{ Retryable() bool }

	require.ErrorAs(t, error(&RateLimitError{BackendError{Transient: true}}), &r)
	assert.True(t, r.Retryable())

	require.ErrorAs(t, error(&AuthenticationError{BackendError{}}), &r)
	assert.False(t, r.Retryable())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		want      any
		transient bool
	}{
		{"unauthorized", "401 unauthorized", new(*AuthenticationError), false},
		{"rate limited", "429 rate limit exceeded", new(*RateLimitError), true},
		{"context window", "prompt exceeds context length", new(*ContextLengthError), false},
		{"server failure", "502 bad gateway", new(*ServerError), true},
		{"unknown", "something odd happened", new(*BackendError), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("openai", errors.New(tt.message))
			require.ErrorAs(t, err, tt.want)
			var r interface{ Retryable() bool }
			require.ErrorAs(t, err, &r)
			assert.Equal(t, tt.transient, r.Retryable())
		})
	}
}
