// Package executor defines the execution boundary of the mailbox server: a
// narrow interface that turns a script into captured output and a completion
// code. The shell implementation is the only place a real interpreter is
// invoked; everything else in the protocol treats execution as opaque.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Executor runs a script and captures its output and completion code. A
// non-nil error means no usable completion code was produced; output may
// still carry whatever was captured before the failure.
type Executor interface {
	Run(ctx context.Context, script string) (output string, code int, err error)
}

// ShellExecutor runs scripts through a shell interpreter.
type ShellExecutor struct {
	// Shell is the interpreter invoked as `shell -c script`.
	Shell string
	// Timeout bounds a single command; zero means no bound.
	Timeout time.Duration
}

// NewShellExecutor returns a ShellExecutor using the given interpreter and
// per-command timeout.
func NewShellExecutor(shell string, timeout time.Duration) *ShellExecutor {
	if shell == "" {
		shell = "sh"
	}
	return &ShellExecutor{Shell: shell, Timeout: timeout}
}

// Run executes the script, capturing combined stdout and stderr. A nonzero
// exit status is a normal completion with that code, not an error.
func (e *ShellExecutor) Run(ctx context.Context, script string) (string, int, error) {
	execCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, e.Shell, "-c", script)
	out, err := cmd.CombinedOutput()

	// A context-killed process reports exit code -1, which must not be
	// published as a normal completion.
	if ctxErr := execCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return string(out), 0, fmt.Errorf("command timed out after %s", e.Timeout)
		}
		return string(out), 0, fmt.Errorf("command canceled: %w", ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitCode(), nil
		}
		return string(out), 0, fmt.Errorf("failed to run command: %w", err)
	}

	return string(out), 0, nil
}
