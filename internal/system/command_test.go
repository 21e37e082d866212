package system

import (
	"context"
	"testing"
	"time"

	"github.com/girste/containaudit/internal/errors"
)

func TestRunCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("successful command", func(t *testing.T) {
		result, err := RunCommand(ctx, TimeoutShort, "echo", "hello")
		if err != nil {
			t.Fatalf("RunCommand() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, want true")
		}
		if result.ExitCode != 0 {
			t.Errorf("ExitCode = %d, want 0", result.ExitCode)
		}
		if result.Stdout != "hello\n" {
			t.Errorf("Stdout = %q, want %q", result.Stdout, "hello\n")
		}
	})

	t.Run("no command specified", func(t *testing.T) {
		result, err := RunCommand(ctx, TimeoutShort)
		if err == nil {
			t.Error("RunCommand() with no args should return error")
		}
		if result != nil {
			t.Errorf("RunCommand() returned result = %v, want nil", result)
		}
	})

	t.Run("non-zero exit", func(t *testing.T) {
		result, err := RunCommand(ctx, TimeoutShort, "false")
		if err != nil {
			t.Fatalf("RunCommand() error = %v, want nil for non-zero exit", err)
		}
		if result.Success {
			t.Error("Success = true, want false")
		}
		if result.ExitCode != 1 {
			t.Errorf("ExitCode = %d, want 1", result.ExitCode)
		}
	})

	t.Run("command timeout", func(t *testing.T) {
		result, err := RunCommand(ctx, 100*time.Millisecond, "sleep", "10")
		if !errors.Is(err, errors.ErrTimeoutExceeded) {
			t.Errorf("RunCommand() error = %v, want ErrTimeoutExceeded", err)
		}
		if result == nil {
			t.Fatal("RunCommand() should return result even on timeout")
		}
		if !result.TimedOut {
			t.Error("TimedOut = false, want true")
		}
	})

	t.Run("command not found", func(t *testing.T) {
		result, err := RunCommand(ctx, TimeoutShort, "nonexistent-command-xyz123")
		if !errors.Is(err, errors.ErrCommandNotFound) {
			t.Errorf("RunCommand() error = %v, want ErrCommandNotFound", err)
		}
		if result == nil || !result.NotFound {
			t.Error("NotFound = false, want true")
		}
	})
}

func TestCommandExists(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    bool
	}{
		{"echo exists", "echo", true},
		{"nonexistent", "nonexistent-cmd-xyz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommandExists(tt.command); got != tt.want {
				t.Errorf("CommandExists(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}
}

func TestExecRunner(t *testing.T) {
	var r Runner = ExecRunner{}

	if !r.Exists("echo") {
		t.Error("Exists(echo) = false, want true")
	}

	result, err := r.Run(context.Background(), TimeoutShort, "echo", "runner")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Stdout != "runner\n" {
		t.Errorf("Stdout = %q, want %q", result.Stdout, "runner\n")
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := RunCommand(ctx, TimeoutShort, "sleep", "1")
	if err == nil {
		t.Error("RunCommand() with cancelled context should return error")
	}
	if result != nil && result.Success {
		t.Error("RunCommand() with cancelled context should not succeed")
	}
}
