package tool

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestCommandCapturesStdout(t *testing.T) {
	rn := NewRunner(0, 0)
	res, err := rn.Command(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" || res.ExitCode != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestCommandNonZeroExitIsNotAnError(t *testing.T) {
	rn := NewRunner(0, 0)
	res, err := rn.Command(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	if err != nil {
		t.Fatalf("non-zero exit surfaced as error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "oops") {
		t.Errorf("stderr = %q", res.Stderr)
	}
}

func TestCommandTimeout(t *testing.T) {
	rn := NewRunner(50*time.Millisecond, 0)
	_, err := rn.Command(context.Background(), "sleep", "5")
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestCommandOutputCap(t *testing.T) {
	rn := NewRunner(0, 64)
	res, err := rn.Command(context.Background(), "sh", "-c", "yes x | head -c 4096")
	if err == nil || !strings.Contains(err.Error(), "maximum captured size") {
		t.Fatalf("err = %v, want truncation error", err)
	}
	if len(res.Stdout) > 64 {
		t.Errorf("captured %d bytes past the cap", len(res.Stdout))
	}
}

func TestCommandOutputCapKillsRunawayChild(t *testing.T) {
	// A child that never stops writing is killed on the first over-cap
	// write and reports the truncation, not the timeout.
	rn := NewRunner(5*time.Second, 64)
	start := time.Now()
	_, err := rn.Command(context.Background(), "yes", "x")
	if err == nil || !strings.Contains(err.Error(), "maximum captured size") {
		t.Fatalf("err = %v, want truncation error", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("runaway child lingered for %s", elapsed)
	}
}

func TestCommandMissingBinary(t *testing.T) {
	rn := NewRunner(0, 0)
	if _, err := rn.Command(context.Background(), "no-such-binary-fangio"); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestLimitedBufferKeepsPrefix(t *testing.T) {
	b := &limitedBuffer{max: 4}
	if _, err := b.Write([]byte("abcdef")); err == nil {
		t.Fatal("expected write error past cap")
	}
	if got := b.buf.String(); got != "abcd" {
		t.Errorf("buffer = %q, want abcd", got)
	}
	if !b.truncated {
		t.Error("truncated flag not set")
	}
}
