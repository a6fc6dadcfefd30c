package b2

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultWaitDelay bounds how long Run waits for output pipes after the
// process is killed on cancellation.
const DefaultWaitDelay = 2 * time.Second

// Result holds the captured output of one CLI invocation.
type Result struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// Runner executes the b2 command line tool.
type Runner interface {
	// Run executes the tool with args. A non-zero exit is reported as an
	// *ExitError; the Result is returned in both cases.
	Run(ctx context.Context, args ...string) (*Result, error)

	// LookPath resolves the tool binary.
	LookPath() (string, error)
}

// ExecRunner runs a binary found on PATH.
type ExecRunner struct {
	Binary string

	// WaitDelay overrides DefaultWaitDelay when positive.
	WaitDelay time.Duration
}

// Run executes the binary and captures stdout and stderr separately.
//
// When ctx ends first the process is killed and the returned error wraps
// ctx.Err(), not the kill signal's exit status.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.WaitDelay = DefaultWaitDelay
	if r.WaitDelay > 0 {
		cmd.WaitDelay = r.WaitDelay
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Stdout: stdout.Bytes(),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		res.ExitCode = -1
		return res, fmt.Errorf("b2 %s: %w", strings.Join(args, " "), ctx.Err())
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Args: args, Code: res.ExitCode, Stderr: res.Stderr}
	default:
		res.ExitCode = -1
		return res, err
	}
}

// LookPath resolves r.Binary on PATH.
func (r *ExecRunner) LookPath() (string, error) {
	return exec.LookPath(r.Binary)
}

// ExitError reports a non-zero exit from the CLI.
type ExitError struct {
	Args   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := "b2 " + strings.Join(e.Args, " ") + ": exit status " + strconv.Itoa(e.Code)
	if e.Stderr != "" {
		msg += ": " + lastLine(e.Stderr)
	}
	return msg
}

// lastLine keeps the final line of CLI stderr, which carries the error
// message after any traceback or progress output.
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
