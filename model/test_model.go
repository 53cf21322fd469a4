package model

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DeterministicConfig configures a scripted stand-in model.
type DeterministicConfig struct {
	Outputs     []string `yaml:"outputs" json:"outputs"`
	ModelName   string   `yaml:"model_name" json:"model_name"`
	CostPerCall float64  `yaml:"cost_per_call" json:"cost_per_call"`
}

// DeterministicModel replays pre-scripted responses in order and reports a
// fixed cost per call, so tests and replays can assert exact step counts
// and cumulative cost. Once the script is consumed it fails with
// ScriptExhaustedError.
//
// Two control outputs are recognized and consumed without counting a call:
// "/sleep<seconds>" pauses, "/warning<message>" logs a warning. They
// simulate backend latency and noise in tests.
type DeterministicModel struct {
	usage
	config DeterministicConfig
	logger *slog.Logger

	scriptMu sync.Mutex
	next     int
}

// NewDeterministicModel creates a scripted model from outputs with a cost
// of 1.0 per call.
func NewDeterministicModel(outputs []string) *DeterministicModel {
	return NewDeterministicModelFromConfig(DeterministicConfig{Outputs: outputs})
}

// NewDeterministicModelFromConfig creates a scripted model with explicit
// configuration.
func NewDeterministicModelFromConfig(cfg DeterministicConfig) *DeterministicModel {
	if cfg.ModelName == "" {
		cfg.ModelName = "deterministic"
	}
	if cfg.CostPerCall == 0 {
		cfg.CostPerCall = 1.0
	}
	return &DeterministicModel{config: cfg, logger: slog.Default()}
}

// Name returns the configured model name.
func (m *DeterministicModel) Name() string {
	return m.config.ModelName
}

// Query returns the next scripted output.
func (m *DeterministicModel) Query(_ context.Context, _ []Message) (Response, error) {
	for {
		m.scriptMu.Lock()
		if m.next >= len(m.config.Outputs) {
			m.scriptMu.Unlock()
			return Response{}, &ScriptExhaustedError{BackendError: BackendError{
				Message:  "scripted outputs exhausted",
				Provider: m.config.ModelName,
			}}
		}
		out := m.config.Outputs[m.next]
		m.next++
		m.scriptMu.Unlock()

		if rest, ok := strings.CutPrefix(out, "/sleep"); ok {
			if secs, err := strconv.ParseFloat(rest, 64); err == nil {
				time.Sleep(time.Duration(secs * float64(time.Second)))
				continue
			}
		}
		if rest, ok := strings.CutPrefix(out, "/warning"); ok {
			m.logger.Warn(rest)
			continue
		}

		m.record(m.config.CostPerCall)
		return Response{Content: out, ModelName: m.config.ModelName, Cost: m.config.CostPerCall}, nil
	}
}
