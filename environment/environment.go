// Package environment abstracts where agent commands run: a local shell, a
// container, or another isolated process boundary. Backends execute one
// command at a time and return captured output plus exit status; a non-zero
// exit code is a normal result, while a backend that cannot run commands at
// all surfaces an Error.
package environment

import (
	"context"
	"fmt"
	"time"
)

// TimeoutExitCode is the distinguished exit code reported when a command is
// killed for exceeding its timeout.
const TimeoutExitCode = -1

// ExecutionResult is the outcome of one command dispatch. Output holds
// combined stdout and stderr; on timeout it contains whatever the command
// produced before being killed.
type ExecutionResult struct {
	Output     string        `json:"output"`
	ExitCode   int           `json:"exit_code"`
	TimedOut   bool          `json:"timed_out,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"duration_ms,omitempty"`
}

// Environment executes command strings inside a working context. Execute
// blocks for at most the backend's configured timeout. Close releases any
// execution context the backend holds; it is safe to call more than once.
type Environment interface {
	Execute(ctx context.Context, command string) (ExecutionResult, error)
	Close() error
}

// Error indicates the execution backend itself is unusable (unreachable
// daemon, missing image, dead container) as opposed to a command that
// merely exited non-zero.
type Error struct {
	Message   string
	Cause     error
	Transient bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the backend failure is safe to retry.
func (e *Error) Retryable() bool {
	return e.Transient
}

// ConfigError indicates an unusable environment configuration, such as an
// unknown kind.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
