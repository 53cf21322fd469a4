// Package config loads YAML run configuration and assembles the agent,
// model, and environment it describes.
package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zhuxie0719/codeagent/agent"
	"github.com/zhuxie0719/codeagent/environment"
	"github.com/zhuxie0719/codeagent/model"
)

// RunConfig is the full declarative description of one run.
type RunConfig struct {
	Agent       agent.Config            `yaml:"agent"`
	Interactive agent.InteractiveConfig `yaml:"interactive"`
	Model       model.Spec              `yaml:"model"`
	Environment environment.Spec        `yaml:"environment"`
}

// Default returns the configuration used when no file is given: default
// agent settings, a gollm model resolved from its name, and a local
// environment.
func Default() RunConfig {
	return RunConfig{
		Agent:       agent.DefaultConfig(),
		Model:       model.Spec{Kind: "gollm"},
		Environment: environment.Spec{Kind: "local"},
	}
}

// Load reads a YAML file over the defaults, so omitted fields keep their
// default values.
func Load(path string) (RunConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Components holds the assembled parts of a run. Close releases the
// environment.
type Components struct {
	Model       model.Model
	Environment environment.Environment
}

// Close tears down the execution backend.
func (c *Components) Close() error {
	if c.Environment == nil {
		return nil
	}
	return c.Environment.Close()
}

// Build constructs the model and environment from the config, failing fast
// on unknown kinds.
func (cfg RunConfig) Build(ctx context.Context) (*Components, error) {
	m, err := model.New(cfg.Model)
	if err != nil {
		return nil, err
	}
	env, err := environment.New(ctx, cfg.Environment)
	if err != nil {
		return nil, err
	}
	return &Components{Model: m, Environment: env}, nil
}
