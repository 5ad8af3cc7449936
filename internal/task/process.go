package task

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// DefaultKillGrace is how long a timed-out process gets between SIGTERM
// and SIGKILL.
const DefaultKillGrace = 5 * time.Second

// Invocation describes one subprocess run.
type Invocation struct {
	Path    string
	Args    []string
	Dir     string        // working directory; empty inherits the caller's
	Timeout time.Duration // zero waits without a deadline
}

// CommandLine returns the invocation as a single display string.
func (inv *Invocation) CommandLine() string {
	return strings.Join(append([]string{inv.Path}, inv.Args...), " ")
}

// Outcome is what a finished (or timed-out) subprocess left behind.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Elapsed  time.Duration
	TimedOut bool
}

// Exec runs invocations with os/exec.
type Exec struct {
	KillGrace time.Duration
}

// NewExec creates an Exec with the default kill grace period.
func NewExec() *Exec {
	return &Exec{KillGrace: DefaultKillGrace}
}

// Run starts the process and waits for it to exit or for the timeout to
// expire. A non-zero exit status is not an error; only failures to start
// the process or cancellation of ctx are.
func (e *Exec) Run(ctx context.Context, inv *Invocation) (*Outcome, error) {
	runCtx := ctx
	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, inv.Path, inv.Args...)
	cmd.Dir = inv.Dir

	// Try graceful shutdown with SIGTERM, then kill after the grace period
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.KillGrace

	var stdout, stderr lockedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := &Outcome{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}

	if err == nil {
		return out, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		out.TimedOut = true
		out.ExitCode = -1
		return out, nil
	}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	return out, err
}

// lockedBuffer guards the buffer so partial output can be read after a
// forced termination while the copy goroutine may still be writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
