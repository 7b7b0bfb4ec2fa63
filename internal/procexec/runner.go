package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrToolUnavailable reports that the requested binary could not be started.
var ErrToolUnavailable = errors.New("tool unavailable")

// ErrToolFailed reports that a tool ran but exited unsuccessfully.
var ErrToolFailed = errors.New("tool failed")

// Command describes a single external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// String renders the command line for logs.
func (c Command) String() string {
	parts := append([]string{c.Name}, c.Args...)
	return strings.Join(parts, " ")
}

// Result captures the outcome of a finished invocation.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// ToolError describes a non-zero exit. It matches ErrToolFailed via errors.Is.
type ToolError struct {
	Command Command
	Result  Result
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command.Name, e.Result.ExitCode)
	if tail := lastLine(e.Result.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailed
}

// Runner executes external tools. Implementations must honour ctx cancellation.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands as child processes in their own process group.
type ExecRunner struct {
	// Timeout bounds each invocation. Zero disables the bound.
	Timeout time.Duration
	// WaitDelay bounds how long Run waits for output pipes after the process is killed.
	WaitDelay time.Duration
}

// NewExecRunner returns a runner with the given per-invocation timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout, WaitDelay: 2 * time.Second}
}

// Run starts the command, captures both output streams, and waits for exit.
// A non-zero exit returns the captured Result together with a *ToolError.
func (r *ExecRunner) Run(ctx context.Context, command Command) (Result, error) {
	if strings.TrimSpace(command.Name) == "" {
		return Result{}, fmt.Errorf("%w: empty command", ErrToolUnavailable)
	}
	if r != nil && r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command.Name, command.Args...) //nolint:gosec
	cmd.Dir = command.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcessGroup(cmd)
	if r != nil {
		cmd.WaitDelay = r.WaitDelay
	}

	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s: %w", command.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, &ToolError{Command: command, Result: result}
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, exec.ErrDot) || cmd.ProcessState == nil {
		return result, fmt.Errorf("%w: %s: %w", ErrToolUnavailable, command.Name, err)
	}
	return result, fmt.Errorf("%s: %w", command.Name, err)
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
