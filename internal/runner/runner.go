// Package runner materializes and invokes user code per language.
//
// Each supported language is a Runnable: Setup writes sources and runs
// whatever build/install step the toolchain needs inside the workspace,
// and Command produces the invocation handed to the mirroring tool. Adding
// a language means adding a variant, not subclassing anything.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/michaelbrown/podmirror/internal/workspace"
)

// Runnable is the per-language strategy for one execution request.
type Runnable interface {
	// Setup writes source and manifest files into the workspace and runs
	// the language's build/install step. Toolchain stderr is preserved
	// verbatim in the returned SetupError.
	Setup(ctx context.Context, ws *workspace.Workspace) error

	// Command returns the executable and arguments to run under the
	// mirroring tool, given the state Setup left behind. It does not
	// verify that Setup succeeded; a missing executable surfaces later
	// as an execution error, not a panic.
	Command(ws *workspace.Workspace) ([]string, error)
}

// SetupError reports a failed setup step, carrying the toolchain's stderr
// so compile and install failures can be diagnosed without re-running.
type SetupError struct {
	Step   string
	Stderr string
	Err    error
}

func (e *SetupError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %s", e.Step, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// Toolchain holds the external toolchain binaries and per-step timeouts
// shared by the language variants.
type Toolchain struct {
	Cargo  string
	Node   string
	NPM    string
	Python string

	// CompileMode selects fast/unoptimized ("debug") or optimized
	// ("release") builds for compiled languages.
	CompileMode string

	BuildTimeout   time.Duration
	InstallTimeout time.Duration
}

// New returns the Runnable for a language name. Raw command lines are
// handled by NewCommand instead.
func New(language, code string, tc Toolchain) (Runnable, error) {
	switch strings.ToLower(language) {
	case "rust":
		return &Rust{Code: code, Mode: tc.CompileMode, Cargo: tc.Cargo, BuildTimeout: tc.BuildTimeout}, nil
	case "node", "javascript":
		return &Node{Code: code, Node: tc.Node, NPM: tc.NPM, InstallTimeout: tc.InstallTimeout}, nil
	case "python":
		return &Python{Code: code, Python: tc.Python, InstallTimeout: tc.InstallTimeout}, nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
}

// Languages returns the supported language names.
func Languages() []string {
	return []string{"node", "python", "rust"}
}

// runTool executes one toolchain step in dir under its own deadline,
// independent of the overall execution timeout. The child is killed when
// the deadline elapses.
func runTool(ctx context.Context, timeout time.Duration, dir, step, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	// Kill the whole process group on timeout so build helpers spawned by
	// the toolchain don't outlive the step.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return &SetupError{Step: step, Stderr: stderr.String(), Err: fmt.Errorf("timed out after %v", timeout)}
	}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			return &SetupError{Step: step, Stderr: stderr.String(), Err: err}
		case errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist):
			return &SetupError{Step: step, Err: fmt.Errorf("%s not found in PATH", name)}
		default:
			return &SetupError{Step: step, Err: err}
		}
	}
	return nil
}

// writeFile writes a workspace file, wrapping failure as a SetupError.
func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &SetupError{Step: "write sources", Err: err}
	}
	return nil
}
