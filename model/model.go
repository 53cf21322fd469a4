// Package model defines the model invocation contract for the agent loop:
// a Model turns an ordered message history into one assistant response while
// accumulating monetary cost and call counts, both per instance and in a
// process-wide accumulator shared across concurrent runs.
package model

import (
	"context"
	"sync"
)

// Response is the result of a single model call.
type Response struct {
	Content   string  `json:"content"`
	ModelName string  `json:"model_name,omitempty"`
	Cost      float64 `json:"cost,omitempty"`
}

// Model produces one assistant response from a message history. Query
// records the call's cost against the model-local counters and the
// process-wide accumulator atomically with respect to concurrent callers.
type Model interface {
	Query(ctx context.Context, messages []Message) (Response, error)
	Name() string
	Cost() float64
	CallCount() int
}

// Stats accumulates cost and call count as a consistent pair. It is safe
// for concurrent use; cost and calls are always updated together under one
// lock so readers never observe a torn pair.
type Stats struct {
	mu    sync.Mutex
	cost  float64
	calls int
}

// NewStats returns an empty accumulator.
func NewStats() *Stats {
	return &Stats{}
}

// Add records one call with the given incremental cost.
func (s *Stats) Add(cost float64) {
	s.mu.Lock()
	s.cost += cost
	s.calls++
	s.mu.Unlock()
}

// Cost returns the cumulative cost.
func (s *Stats) Cost() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cost
}

// CallCount returns the number of recorded calls.
func (s *Stats) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Snapshot returns cost and call count read under a single lock.
func (s *Stats) Snapshot() (float64, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cost, s.calls
}

// Reset zeroes the accumulator. Intended for tests sharing the global
// accumulator.
func (s *Stats) Reset() {
	s.mu.Lock()
	s.cost = 0
	s.calls = 0
	s.mu.Unlock()
}

// globalStats is the process-wide accumulator used by default. It is an
// explicitly constructed object rather than bare package globals so callers
// can inject their own accumulator instead.
var globalStats = NewStats()

// GlobalStats returns the process-wide accumulator.
func GlobalStats() *Stats {
	return globalStats
}

// usage provides the model-local counters plus global recording shared by
// concrete model implementations.
type usage struct {
	mu     sync.Mutex
	cost   float64
	calls  int
	global *Stats
}

// record books one call against both the local counters and the global
// accumulator. Neither lock is held across the other.
func (u *usage) record(cost float64) {
	if u.global == nil {
		u.global = GlobalStats()
	}
	u.global.Add(cost)
	u.mu.Lock()
	u.cost += cost
	u.calls++
	u.mu.Unlock()
}

func (u *usage) Cost() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cost
}

func (u *usage) CallCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}
