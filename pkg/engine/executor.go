package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// waitDelay bounds how long Wait blocks on inherited output pipes after the
// process group has been killed.
const waitDelay = 5 * time.Second

// RawOutput is the combined stdout and stderr of a finished process.
type RawOutput struct {
	Text     string
	ExitCode int
	Duration time.Duration
}

// Executor runs a command and captures its output.
type Executor interface {
	// Run executes command with exactly env as its environment. A timeout of 0
	// disables the wall-clock limit. A nonzero exit is reported through
	// RawOutput.ExitCode unless the process produced no output at all.
	Run(ctx context.Context, command []string, env map[string]string, timeout time.Duration) (*RawOutput, error)
}

// ProcessExecutor runs commands as child processes without a shell.
type ProcessExecutor struct {
	logger zerolog.Logger
}

// NewProcessExecutor creates a process executor.
func NewProcessExecutor(logger zerolog.Logger) *ProcessExecutor {
	return &ProcessExecutor{
		logger: logger.With().Str("component", "process-executor").Logger(),
	}
}

// Run implements Executor.
func (p *ProcessExecutor) Run(ctx context.Context, command []string, env map[string]string, timeout time.Duration) (*RawOutput, error) {
	if len(command) == 0 {
		return nil, newProcessFailedError("empty command", "", nil)
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, command[0], command[1:]...)
	cmd.Env = EnvironList(env)
	configureProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var killed atomic.Bool
	kill := cmd.Cancel
	cmd.Cancel = func() error {
		killed.Store(true)
		return kill()
	}

	// One shared writer keeps stdout and stderr interleaved in arrival order;
	// os/exec serializes writes when both streams point at the same value.
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	p.logger.Debug().
		Str("command", command[0]).
		Int("args", len(command)-1).
		Dur("timeout", timeout).
		Msg("Starting process")

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)
	text := out.String()

	// The deadline check comes first: a killed process also reports an ExitError.
	if timeout > 0 && killedByDeadline(killed.Load(), err, runCtx, ctx) {
		p.logger.Warn().Dur("timeout", timeout).Dur("duration", duration).Msg("Process killed after timeout")
		return nil, newTimeoutError(timeout, text)
	}
	if ctx.Err() != nil {
		return nil, newProcessFailedError("execution cancelled", text, ctx.Err())
	}

	result := &RawOutput{Text: text, Duration: duration}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, newProcessFailedError(fmt.Sprintf("failed to start %s", command[0]), text, err)
		}
		result.ExitCode = exitErr.ExitCode()
		if len(bytes.TrimSpace([]byte(text))) == 0 {
			return nil, newProcessFailedError(
				fmt.Sprintf("%s exited with status %d and no output", command[0], result.ExitCode), "", err)
		}
	}

	p.logger.Debug().
		Int("exit_code", result.ExitCode).
		Int("output_bytes", len(text)).
		Dur("duration", duration).
		Msg("Process finished")

	return result, nil
}

// killedByDeadline reports whether the run's own deadline ended the process.
// A process that exits cleanly as the deadline passes was not killed.
func killedByDeadline(killed bool, runErr error, runCtx, parent context.Context) bool {
	return killed && runErr != nil &&
		errors.Is(runCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil
}
