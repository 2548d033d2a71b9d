package tool

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Defaults for subprocess bounds.
const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxBytes = 1 << 20
)

// errOutputTruncated aborts a subprocess whose output exceeds the cap.
var errOutputTruncated = errors.New("tool output exceeded maximum captured size")

// Runner executes tool subprocesses with a timeout and a cap on captured
// output. Exceeding either bound fails the run.
type Runner struct {
	timeout  time.Duration
	maxBytes int
}

// NewRunner creates a Runner. Non-positive bounds fall back to defaults.
func NewRunner(timeout time.Duration, maxBytes int) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Runner{timeout: timeout, maxBytes: maxBytes}
}

// limitedBuffer collects writes up to a byte cap. The first write past the
// cap records the truncation and aborts the subprocess, so an over-chatty
// tool is killed immediately instead of blocking on a dead pipe until the
// timeout.
type limitedBuffer struct {
	buf       strings.Builder
	max       int
	truncated bool
	abort     context.CancelFunc
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.buf.Len()+len(p) > b.max {
		if remaining := b.max - b.buf.Len(); remaining > 0 {
			b.buf.Write(p[:remaining])
		}
		b.truncated = true
		if b.abort != nil {
			b.abort()
		}
		return 0, errOutputTruncated
	}
	return b.buf.Write(p)
}

// Command runs a subprocess and captures its output. A non-zero exit is not
// an error: it is reported through Result.ExitCode so tools can surface
// diagnostic exit statuses as step output. Timeouts, oversized output, and
// failures to start are errors.
func (rn *Runner) Command(ctx context.Context, name string, args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, rn.timeout)
	defer cancel()

	stdout := &limitedBuffer{max: rn.maxBytes, abort: cancel}
	stderr := &limitedBuffer{max: rn.maxBytes, abort: cancel}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.buf.String(), Stderr: stderr.buf.String()}

	// A truncating write kills the child, which then reports an exit
	// status or a broken pipe; the truncation is the real cause and must
	// win over whatever the kill produced.
	if stdout.truncated || stderr.truncated {
		return res, fmt.Errorf("%s: %w", name, errOutputTruncated)
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, fmt.Errorf("%s timed out after %s", name, rn.timeout)
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		return res, fmt.Errorf("exec %s: %w", name, err)
	}
}
