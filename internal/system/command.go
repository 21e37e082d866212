package system

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/log"
)

// CommandResult represents the result of a command execution
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Success  bool
	TimedOut bool
	NotFound bool
}

// TimeoutShort bounds quick metadata commands such as uname.
const TimeoutShort = 5 * time.Second

// Runner executes external commands. Collectors depend on it so tests can
// substitute canned tool output.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, cmdParts ...string) (*CommandResult, error)
	Exists(cmd string) bool
}

// ExecRunner runs commands on the local system.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, timeout time.Duration, cmdParts ...string) (*CommandResult, error) {
	return RunCommand(ctx, timeout, cmdParts...)
}

func (ExecRunner) Exists(cmd string) bool {
	return CommandExists(cmd)
}

// RunCommand executes a command with timeout. A non-zero exit is reported
// through the result; the error is set only when the command could not be
// started or did not finish in time.
func RunCommand(ctx context.Context, timeout time.Duration, cmdParts ...string) (*CommandResult, error) {
	if len(cmdParts) == 0 {
		return nil, errors.New("no command specified")
	}

	if !CommandExists(cmdParts[0]) {
		log.Command(cmdParts[0], -1, false, 0)
		return &CommandResult{ExitCode: -1, NotFound: true},
			errors.Wrap(errors.ErrCommandNotFound, "%s", cmdParts[0])
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Success:  err == nil,
		TimedOut: ctx.Err() == context.DeadlineExceeded,
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
	} else if err != nil {
		result.ExitCode = -1
	}

	log.Command(cmdParts[0], result.ExitCode, result.TimedOut, time.Since(start))

	if result.TimedOut {
		return result, errors.Wrap(errors.ErrTimeoutExceeded, "%s after %v", cmdParts[0], timeout)
	}
	if ctx.Err() != nil {
		return result, errors.Wrap(ctx.Err(), "%s", cmdParts[0])
	}

	return result, nil
}

// CommandExists checks if a command is available
func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
