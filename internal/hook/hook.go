package hook

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
)

// Runner executes lifecycle hook commands. Hook failures are the
// caller's to log; they never abort a run.
type Runner interface {
	Run(ctx context.Context, command string) error
}

// ShellRunner runs hook commands through the shell, capturing combined
// output for the log.
type ShellRunner struct {
	logger *slog.Logger
}

// NewShellRunner creates a shell-backed hook runner.
func NewShellRunner(logger *slog.Logger) *ShellRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShellRunner{logger: logger}
}

// Run executes the command with `sh -c`. Empty commands are a no-op.
func (r *ShellRunner) Run(ctx context.Context, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.logger.Debug("hook output", "command", command, "output", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return err
	}
	return nil
}

// NopRunner ignores every hook. Used when hooks are not configured and
// in tests.
type NopRunner struct{}

func (NopRunner) Run(ctx context.Context, command string) error { return nil }
