// Package checkrun executes continuation check commands with a deadline.
package checkrun

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nudgehq/nudge/internal/telemetry"
)

// DefaultTimeout is how long a check command may run before it counts as failed.
const DefaultTimeout = 60 * time.Second

// maxOutput caps how much command output is kept for the event log.
const maxOutput = 4096

// outputGrace is how long Wait keeps reading output after the shell exits.
// Background children that inherited the output pipe are cut off after it.
const outputGrace = 2 * time.Second

// Result is the outcome of one check command.
type Result struct {
	ExitCode int
	Passed   bool
	TimedOut bool
	Duration time.Duration
	Output   string
	Err      error // set when the command could not be started or was killed
}

// Runner runs commands through a shell.
type Runner struct {
	Shell   string
	Timeout time.Duration
}

// NewRunner creates a Runner using /bin/sh and the given timeout. A
// non-positive timeout selects DefaultTimeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{Shell: "/bin/sh", Timeout: timeout}
}

// Run executes command in dir and waits for it or the timeout. A command
// that cannot be started, exits non-zero, or times out is reported as not
// passed; Run itself never fails.
func (r *Runner) Run(ctx context.Context, command, dir string) (res Result) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := telemetry.Tracer("github.com/nudgehq/nudge/checkrun").Start(ctx, "check.exec",
		trace.WithAttributes(
			attribute.String("check.command", command),
			attribute.String("check.dir", dir),
		),
	)
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		span.SetAttributes(
			attribute.Int("check.exit_code", res.ExitCode),
			attribute.Bool("check.timed_out", res.TimedOut),
		)
		if !res.Passed {
			span.SetStatus(codes.Error, "check failed")
		}
		if res.Err != nil {
			span.RecordError(res.Err)
		}
		span.End()
	}()

	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	// #nosec G204 -- the operator supplied this command as the check
	cmd := exec.Command(shell, "-c", command)
	cmd.Dir = dir
	var out tailBuffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = outputGrace
	configureProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1, Err: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		return Result{ExitCode: -1, TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded), Output: out.String(), Err: ctx.Err()}
	case err := <-done:
		return exited(cmd, err, out.String())
	}
}

// exited classifies a Wait that returned without the timeout firing. The
// shell's own exit status decides, even when Wait gave up on a pipe still
// held by a background child (exec.ErrWaitDelay).
func exited(cmd *exec.Cmd, err error, output string) Result {
	state := cmd.ProcessState
	if state == nil {
		return Result{ExitCode: -1, Output: output, Err: err}
	}
	if err != nil {
		// Stray children may still hold the pipe
		killProcessGroup(cmd)
	}
	if state.Success() {
		return Result{ExitCode: 0, Passed: true, Output: output}
	}
	res := Result{ExitCode: state.ExitCode(), Output: output}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		res.Err = err
	}
	return res
}

// tailBuffer keeps the last maxOutput bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - maxOutput; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
