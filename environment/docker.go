package environment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	shellwords "github.com/mattn/go-shellwords"

	"github.com/zhuxie0719/codeagent/retry"
)

// DockerConfig controls a DockerEnvironment. Executable may carry arguments
// ("sudo docker", "podman --remote") and is split shell-style. ForwardEnv
// names host variables copied into every exec; Env sets explicit values and
// wins on conflict. ContainerTimeout bounds how long the idle container is
// kept alive.
type DockerConfig struct {
	Image            string            `yaml:"image"`
	Cwd              string            `yaml:"cwd"`
	Env              map[string]string `yaml:"env"`
	ForwardEnv       []string          `yaml:"forward_env"`
	Timeout          time.Duration     `yaml:"timeout"`
	Executable       string            `yaml:"executable"`
	RunArgs          []string          `yaml:"run_args"`
	ContainerTimeout time.Duration     `yaml:"container_timeout"`
}

// DockerEnvironment runs commands inside a long-lived container started at
// construction time and removed on Close.
type DockerEnvironment struct {
	config      DockerConfig
	executable  []string
	containerID string
	retryPolicy retry.Policy
	logger      *slog.Logger
}

// NewDockerEnvironment starts a detached container from config.Image and
// returns an environment that execs commands inside it. Transient startup
// failures are retried.
func NewDockerEnvironment(ctx context.Context, config DockerConfig) (*DockerEnvironment, error) {
	if config.Image == "" {
		return nil, &ConfigError{Message: "docker environment requires an image"}
	}
	if config.Cwd == "" {
		config.Cwd = "/"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Executable == "" {
		config.Executable = "docker"
	}
	if config.ContainerTimeout <= 0 {
		config.ContainerTimeout = 2 * time.Hour
	}

	executable, err := shellwords.Parse(config.Executable)
	if err != nil || len(executable) == 0 {
		return nil, &ConfigError{Message: fmt.Sprintf("invalid docker executable %q", config.Executable)}
	}

	env := &DockerEnvironment{
		config:      config,
		executable:  executable,
		retryPolicy: retry.DefaultPolicy(),
		logger:      slog.Default().With("component", "docker_env", "image", config.Image),
	}
	if err := env.start(ctx); err != nil {
		return nil, err
	}
	return env, nil
}

func (e *DockerEnvironment) start(ctx context.Context) error {
	name := "codeagent-" + uuid.NewString()
	args := []string{"run", "-d", "--rm", "--name", name, "-w", e.config.Cwd}
	args = append(args, e.config.RunArgs...)
	keepalive := fmt.Sprintf("%d", int(e.config.ContainerTimeout.Seconds()))
	args = append(args, e.config.Image, "sleep", keepalive)

	id, err := retry.Do(ctx, e.retryPolicy, func(ctx context.Context) (string, error) {
		out, err := e.run(ctx, 60*time.Second, args...)
		if err != nil {
			return "", &Error{Message: "failed to start container", Cause: err, Transient: true}
		}
		return strings.TrimSpace(out), nil
	})
	if err != nil {
		return err
	}
	e.containerID = id
	e.logger.Info("container started", "container_id", shortID(id))
	return nil
}

// Execute runs command through bash inside the container working directory.
// Transient backend failures (daemon unreachable, exec spawn errors) are
// retried with backoff before surfacing; a non-zero exit of the command
// itself is a normal result and never retried.
func (e *DockerEnvironment) Execute(ctx context.Context, command string) (ExecutionResult, error) {
	if e.containerID == "" {
		return ExecutionResult{}, &Error{Message: "container is not running"}
	}

	args := []string{"exec", "-w", e.config.Cwd}
	for _, kv := range e.execEnv() {
		args = append(args, "-e", kv)
	}
	args = append(args, e.containerID, "bash", "-c", command)

	return retry.Do(ctx, e.retryPolicy, func(ctx context.Context) (ExecutionResult, error) {
		return e.execOnce(ctx, command, args)
	})
}

func (e *DockerEnvironment) execOnce(ctx context.Context, command string, args []string) (ExecutionResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.executable[0], append(e.executable[1:], args...)...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result := ExecutionResult{
		Output:     output.String(),
		Duration:   elapsed,
		DurationMs: elapsed.Milliseconds(),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = TimeoutExitCode
		e.logger.Warn("command timed out", "timeout", e.config.Timeout, "command", command)
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, &Error{Message: "failed to exec in container", Cause: err, Transient: true}
	}

	result.ExitCode = 0
	return result, nil
}

// Close removes the container. Safe to call more than once.
func (e *DockerEnvironment) Close() error {
	if e.containerID == "" {
		return nil
	}
	id := e.containerID
	e.containerID = ""

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if _, err := e.run(ctx, 60*time.Second, "rm", "-f", id); err != nil {
		e.logger.Warn("failed to remove container", "container_id", shortID(id), "error", err)
		return &Error{Message: "failed to remove container", Cause: err}
	}
	e.logger.Info("container removed", "container_id", shortID(id))
	return nil
}

// execEnv builds the -e pairs for one exec: forwarded host variables first,
// explicit values last so they win. Sorted for stable command lines.
func (e *DockerEnvironment) execEnv() []string {
	merged := make(map[string]string, len(e.config.ForwardEnv)+len(e.config.Env))
	for _, name := range e.config.ForwardEnv {
		if v, ok := os.LookupEnv(name); ok {
			merged[name] = v
		}
	}
	for k, v := range e.config.Env {
		merged[k] = v
	}
	pairs := make([]string, 0, len(merged))
	for k, v := range merged {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return pairs
}

func (e *DockerEnvironment) run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, e.executable[0], append(e.executable[1:], args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s %s: %w: %s", e.executable[0], strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
