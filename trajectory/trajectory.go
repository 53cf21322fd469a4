// Package trajectory persists the full message history and outcome of one
// agent run as a round-trippable JSON record. Assistant turns of a saved
// trajectory can be replayed through a deterministic model to reproduce the
// run.
package trajectory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/zhuxie0719/codeagent/agent"
	"github.com/zhuxie0719/codeagent/model"
)

// FormatVersion tags the on-disk schema.
const FormatVersion = "codeagent-1"

// ModelStats records the cumulative accounting of the run's model.
type ModelStats struct {
	Cost   float64 `json:"model_cost"`
	NCalls int     `json:"n_model_calls"`
}

// Components names the concrete types that produced the run.
type Components struct {
	AgentType       string `json:"agent_type"`
	ModelType       string `json:"model_type"`
	EnvironmentType string `json:"environment_type"`
}

// Info is the run metadata block.
type Info struct {
	RunID      string     `json:"run_id"`
	Task       string     `json:"task"`
	ExitStatus string     `json:"exit_status"`
	Submission string     `json:"submission"`
	Config     Components `json:"config"`
	ModelStats ModelStats `json:"model_stats"`
	SavedAt    time.Time  `json:"saved_at"`
}

// Trajectory is one persisted run.
type Trajectory struct {
	Format   string          `json:"trajectory_format"`
	Info     Info            `json:"info"`
	Messages []model.Message `json:"messages"`
}

// New captures a finished run from its agent and outcome.
func New(a *agent.Agent, outcome agent.RunOutcome) *Trajectory {
	m := a.Model()
	cost, calls := m.Cost(), m.CallCount()
	return &Trajectory{
		Format: FormatVersion,
		Info: Info{
			RunID:      uuid.NewString(),
			Task:       a.Task(),
			ExitStatus: string(outcome.Status),
			Submission: outcome.Result,
			Config: Components{
				AgentType:       fmt.Sprintf("%T", a),
				ModelType:       fmt.Sprintf("%T", m),
				EnvironmentType: fmt.Sprintf("%T", a.Environment()),
			},
			ModelStats: ModelStats{Cost: cost, NCalls: calls},
			SavedAt:    time.Now().UTC(),
		},
		Messages: append([]model.Message(nil), a.Messages()...),
	}
}

// Save writes the trajectory as indented JSON, creating parent directories
// as needed.
func (t *Trajectory) Save(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode trajectory: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create trajectory directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write trajectory: %w", err)
	}
	return nil
}

// Load reads a trajectory written by Save.
func Load(path string) (*Trajectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trajectory: %w", err)
	}
	var t Trajectory
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode trajectory: %w", err)
	}
	return &t, nil
}

// AssistantOutputs returns the assistant turns in order, suitable as the
// scripted outputs of a deterministic model for replay.
func (t *Trajectory) AssistantOutputs() []string {
	var outputs []string
	for _, msg := range t.Messages {
		if msg.Role == model.RoleAssistant {
			outputs = append(outputs, msg.TextContent())
		}
	}
	return outputs
}
