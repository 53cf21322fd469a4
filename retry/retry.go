// Package retry provides bounded retry with exponential backoff and jitter
// for transient model and environment failures.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Retryable is implemented by errors that know whether a retry is safe.
type Retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err is safe to retry. Errors that do not
// implement Retryable are treated as permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// Policy configures retry behavior with exponential backoff.
type Policy struct {
	MaxRetries int     // retry attempts after the initial call
	BaseDelay  float64 // initial delay in seconds
	MaxDelay   float64 // maximum delay between retries
	Multiplier float64 // exponential backoff factor
	Jitter     bool    // add random jitter to prevent thundering herd
	OnRetry    func(err error, attempt int, delay time.Duration)
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 2,
		BaseDelay:  1.0,
		MaxDelay:   60.0,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Delay calculates the delay for attempt n (0-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	delay := math.Min(p.BaseDelay*math.Pow(p.Multiplier, float64(attempt)), p.MaxDelay)
	if p.Jitter {
		// +/- 50% jitter
		delay = delay * (0.5 + rand.Float64())
	}
	return time.Duration(delay * float64(time.Second))
}

// Do executes fn, retrying retryable errors up to the configured number of
// attempts. The last error is returned when retries are exhausted.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		if !IsRetryable(err) {
			return zero, err
		}

		delay := policy.Delay(attempt)
		if policy.OnRetry != nil {
			policy.OnRetry(err, attempt+1, delay)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
	}

	return zero, err
}
