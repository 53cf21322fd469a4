package environment

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// DefaultTimeout bounds command execution when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// LocalConfig controls a LocalEnvironment. Env entries are appended to the
// parent process environment. A zero Timeout means DefaultTimeout.
type LocalConfig struct {
	Cwd     string            `yaml:"cwd"`
	Env     map[string]string `yaml:"env"`
	Timeout time.Duration     `yaml:"timeout"`
}

// LocalEnvironment runs commands through bash on the host machine.
type LocalEnvironment struct {
	config LocalConfig
	logger *slog.Logger
}

// NewLocalEnvironment returns an environment executing on the host. The
// working directory defaults to the current directory of the process.
func NewLocalEnvironment(config LocalConfig) *LocalEnvironment {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &LocalEnvironment{
		config: config,
		logger: slog.Default().With("component", "local_env"),
	}
}

// Execute runs command via bash -c with combined stdout and stderr capture.
// The command runs in its own process group so a timeout kills the whole
// tree, not just the shell.
func (e *LocalEnvironment) Execute(ctx context.Context, command string) (ExecutionResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", command)
	cmd.Dir = e.config.Cwd
	cmd.Env = mergeEnv(os.Environ(), e.config.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

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
		return result, &Error{Message: "failed to run command", Cause: err}
	}

	result.ExitCode = 0
	return result, nil
}

// Close is a no-op for the local backend.
func (e *LocalEnvironment) Close() error {
	return nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	merged := make([]string, len(base), len(base)+len(extra))
	copy(merged, base)
	for k, v := range extra {
		merged = append(merged, k+"="+v)
	}
	return merged
}
