package collectors

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/system"
)

type fakeTool struct {
	result *system.CommandResult
	err    error
}

// fakeRunner serves canned output per command name. Commands without an
// entry behave as if they were not installed.
type fakeRunner struct {
	mu    sync.Mutex
	tools map[string]fakeTool
	calls []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{tools: make(map[string]fakeTool)}
}

func (f *fakeRunner) set(cmd string, exitCode int, stdout string) *fakeRunner {
	f.tools[cmd] = fakeTool{result: &system.CommandResult{
		Stdout:   stdout,
		ExitCode: exitCode,
		Success:  exitCode == 0,
	}}
	return f
}

// stderr attaches error output to a command set with set.
func (f *fakeRunner) stderr(cmd, msg string) *fakeRunner {
	f.tools[cmd].result.Stderr = msg
	return f
}

func (f *fakeRunner) fail(cmd string, err error) *fakeRunner {
	f.tools[cmd] = fakeTool{result: &system.CommandResult{ExitCode: -1, TimedOut: errors.Is(err, errors.ErrTimeoutExceeded)}, err: err}
	return f
}

func (f *fakeRunner) Run(ctx context.Context, timeout time.Duration, cmdParts ...string) (*system.CommandResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, strings.Join(cmdParts, " "))
	f.mu.Unlock()

	tool, ok := f.tools[cmdParts[0]]
	if !ok {
		return &system.CommandResult{ExitCode: -1, NotFound: true},
			errors.Wrap(errors.ErrCommandNotFound, "%s", cmdParts[0])
	}
	return tool.result, tool.err
}

func (f *fakeRunner) Exists(cmd string) bool {
	_, ok := f.tools[cmd]
	return ok
}

func (f *fakeRunner) called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// staticPrivileges is a PrivilegeProvider with fixed answers
type staticPrivileges struct {
	name      string
	groups    []string
	groupsErr error
	grants    []string
	grantsErr error
}

func (s *staticPrivileges) UserName(uid int) (string, error) {
	if s.name == "" {
		return "", errors.ErrUnavailable
	}
	return s.name, nil
}

func (s *staticPrivileges) Groups(ctx context.Context) ([]string, error) {
	return s.groups, s.groupsErr
}

func (s *staticPrivileges) SudoGrants(ctx context.Context) ([]string, error) {
	return s.grants, s.grantsErr
}
