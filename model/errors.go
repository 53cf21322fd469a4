package model

import "fmt"

// BackendError is the base error type for model backend failures.
type BackendError struct {
	Message   string
	Cause     error
	Provider  string
	Transient bool
}

func (e *BackendError) Error() string {
	msg := e.Message
	if e.Provider != "" {
		msg = fmt.Sprintf("[%s] %s", e.Provider, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is safe to retry.
func (e *BackendError) Retryable() bool {
	return e.Transient
}

// AuthenticationError indicates the backend rejected the credentials.
type AuthenticationError struct{ BackendError }

// RateLimitError indicates the backend throttled the request.
type RateLimitError struct{ BackendError }

// ServerError indicates a backend-side failure.
type ServerError struct{ BackendError }

// ContextLengthError indicates the history exceeded the model's context
// window.
type ContextLengthError struct{ BackendError }

// ScriptExhaustedError indicates a deterministic model ran out of scripted
// outputs.
type ScriptExhaustedError struct{ BackendError }

// ConfigError indicates an unusable model configuration, such as an unknown
// kind.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
