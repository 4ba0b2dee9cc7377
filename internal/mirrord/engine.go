// Package mirrord runs commands under the mirrord traffic-mirroring tool.
//
// The engine persists the merged config to an ephemeral file, invokes
// `mirrord exec --config-file <path> -- <invocation...>` with a hard
// deadline, and classifies the outcome. Each request gets its own config
// file and child process, so concurrent runs never interfere.
package mirrord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Outcome is the result of a completed mirrored execution.
type Outcome struct {
	Stdout []byte // the payload on success
	Stderr []byte // diagnostics only
}

// ExecErrorKind distinguishes execution failures.
type ExecErrorKind int

const (
	// ToolNotFound means the mirrord binary is not installed or not on PATH.
	ToolNotFound ExecErrorKind = iota
	// SpawnFailed means the process could not be started for another reason.
	SpawnFailed
	// NonZeroExit means the process ran but exited with failure.
	NonZeroExit
	// Timeout means the deadline elapsed before the process completed.
	Timeout
)

// ExecError reports a failed mirrored execution.
type ExecError struct {
	Kind     ExecErrorKind
	ExitCode int // -1 when killed by a signal
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	switch e.Kind {
	case ToolNotFound:
		return "mirrord binary not found in PATH"
	case SpawnFailed:
		return fmt.Sprintf("starting mirrord: %v", e.Err)
	case Timeout:
		return "mirrord execution timed out"
	default:
		code := "unknown"
		if e.ExitCode >= 0 {
			code = fmt.Sprintf("%d", e.ExitCode)
		}
		return fmt.Sprintf("mirrord execution failed (exit code %s): %s", code, e.Stderr)
	}
}

func (e *ExecError) Unwrap() error { return e.Err }

// Engine executes invocations under the mirroring tool.
type Engine struct {
	Binary  string        // mirrord binary, e.g. "mirrord"
	Timeout time.Duration // hard deadline for one execution
}

// NewEngine creates an Engine with the given binary and execution deadline.
func NewEngine(binary string, timeout time.Duration) *Engine {
	return &Engine{Binary: binary, Timeout: timeout}
}

// Run executes argv under mirrord with the merged config. The config file
// lives exactly as long as the child process; it is removed on every path.
// On timeout the whole process group is killed rather than abandoned, so
// no orphaned children survive the deadline.
func (e *Engine) Run(ctx context.Context, argv []string, config []byte) (*Outcome, error) {
	if len(argv) == 0 {
		return nil, &ExecError{Kind: SpawnFailed, ExitCode: -1, Err: errors.New("empty invocation")}
	}

	cfgFile, err := os.CreateTemp("", "mirrord-config-*.json")
	if err != nil {
		return nil, fmt.Errorf("creating config file: %w", err)
	}
	defer os.Remove(cfgFile.Name())

	if _, err := cfgFile.Write(config); err != nil {
		cfgFile.Close()
		return nil, fmt.Errorf("writing config file: %w", err)
	}
	if err := cfgFile.Close(); err != nil {
		return nil, fmt.Errorf("writing config file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	args := append([]string{"exec", "--config-file", cfgFile.Name(), "--"}, argv...)
	cmd := exec.CommandContext(ctx, e.Binary, args...)

	// Run the child in its own process group and kill the whole group on
	// cancellation, so processes spawned by mirrord itself don't leak.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, &ExecError{Kind: Timeout, ExitCode: -1, Stderr: stderr.String(), Err: ctx.Err()}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(runErr, &exitErr):
			return nil, &ExecError{
				Kind:     NonZeroExit,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
				Err:      runErr,
			}
		case errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist):
			return nil, &ExecError{Kind: ToolNotFound, ExitCode: -1, Err: runErr}
		default:
			return nil, &ExecError{Kind: SpawnFailed, ExitCode: -1, Err: runErr}
		}
	}

	return &Outcome{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}
