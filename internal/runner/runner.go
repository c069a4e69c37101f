// Package runner executes the external capture and analysis programs.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Result is the outcome of one external program run.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	// TimedOut is set when the context deadline expired before the program exited.
	TimedOut bool
}

// Runner runs a program to completion.
// A non-zero exit status is reported through Result.ExitCode, not err;
// err is set when the program could not be started or the context ended first.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// commandContext is patched in tests.
var commandContext = exec.CommandContext

// killDelay is how long a program gets after the group SIGTERM before it is killed.
var killDelay = 2 * time.Second

// Exec runs programs as child processes in their own process group so that
// cancellation also reaches grandchildren (sudo -> tshark).
type Exec struct{}

// Run implements Runner.
func (Exec) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := commandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return terminateGroup(cmd) }
	cmd.WaitDelay = killDelay

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		res.TimedOut = errors.Is(ctxErr, context.DeadlineExceeded)
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		res.ExitCode = -1
		return res, err
	}
	return res, nil
}
