package environment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Spec is the serializable union of all environment configurations. Kind
// selects the backend; the remaining fields apply to whichever backends
// understand them. Timeouts are expressed in seconds.
type Spec struct {
	Kind             string            `yaml:"kind"`
	Cwd              string            `yaml:"cwd,omitempty"`
	Env              map[string]string `yaml:"env,omitempty"`
	Timeout          int               `yaml:"timeout,omitempty"`
	Image            string            `yaml:"image,omitempty"`
	ForwardEnv       []string          `yaml:"forward_env,omitempty"`
	Executable       string            `yaml:"executable,omitempty"`
	RunArgs          []string          `yaml:"run_args,omitempty"`
	ContainerTimeout int               `yaml:"container_timeout,omitempty"`
}

var kinds = map[string]func(context.Context, Spec) (Environment, error){
	"local":  buildLocal,
	"docker": buildDocker,
}

// New constructs the environment described by spec, failing fast on an
// unknown kind.
func New(ctx context.Context, spec Spec) (Environment, error) {
	build, ok := kinds[spec.Kind]
	if !ok {
		known := make([]string, 0, len(kinds))
		for k := range kinds {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, &ConfigError{Message: fmt.Sprintf("unknown environment kind %q (known kinds: %s)", spec.Kind, strings.Join(known, ", "))}
	}
	return build(ctx, spec)
}

func buildLocal(_ context.Context, spec Spec) (Environment, error) {
	return NewLocalEnvironment(LocalConfig{
		Cwd:     spec.Cwd,
		Env:     spec.Env,
		Timeout: time.Duration(spec.Timeout) * time.Second,
	}), nil
}

func buildDocker(ctx context.Context, spec Spec) (Environment, error) {
	return NewDockerEnvironment(ctx, DockerConfig{
		Image:            spec.Image,
		Cwd:              spec.Cwd,
		Env:              spec.Env,
		ForwardEnv:       spec.ForwardEnv,
		Timeout:          time.Duration(spec.Timeout) * time.Second,
		Executable:       spec.Executable,
		RunArgs:          spec.RunArgs,
		ContainerTimeout: time.Duration(spec.ContainerTimeout) * time.Second,
	})
}
