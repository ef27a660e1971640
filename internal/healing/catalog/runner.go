package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrCommandNotFound is returned when the executable is not installed.
	ErrCommandNotFound = errors.New("command not found")
	// ErrCommandFailed is wrapped by CommandError for non-zero exits and timeouts.
	ErrCommandFailed = errors.New("command failed")
)

// CommandResult captures the output of a finished command.
type CommandResult struct {
	Stdout string
	Stderr string
}

// CommandError describes a command that ran but did not succeed.
type CommandError struct {
	Name     string
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (e *CommandError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s: timed out", e.Name)
	}
	msg := fmt.Sprintf("%s: exit status %d", e.Name, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return ErrCommandFailed }

// CommandRunner invokes external commands.
type CommandRunner interface {
	// Run executes name with args. It returns ErrCommandNotFound when the binary
	// is missing and a *CommandError when it fails. If ctx itself is done, the
	// context error is returned.
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// ExecRunner runs commands on the local host.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner with a per-command timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ExecRunner{Timeout: timeout}
}

// Run implements CommandRunner.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	if _, err := exec.LookPath(name); err != nil {
		return CommandResult{}, fmt.Errorf("%s: %w", name, ErrCommandNotFound)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(cmdCtx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if errors.Is(err, exec.ErrNotFound) {
		return res, fmt.Errorf("%s: %w", name, ErrCommandNotFound)
	}

	cmdErr := &CommandError{Name: name, ExitCode: -1, Stderr: res.Stderr}
	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		cmdErr.TimedOut = true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return res, cmdErr
}
