package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	units "github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/jandubois/netrics/internal/logging"
)

// Harness drives one task run through the ordered pipeline:
// validate params, require network, run the process, report the result.
// Each step returns early with a typed status when it fails.
type Harness struct {
	name  string
	runID string
	deps  Deps
	log   *slog.Logger

	startedAt time.Time
	elapsed   time.Duration
}

// NewHarness creates a harness for a single run of the named task.
func NewHarness(name string, deps Deps) *Harness {
	deps = deps.withDefaults()
	runID := uuid.New().String()
	return &Harness{
		name:  name,
		runID: runID,
		deps:  deps,
		log:   deps.Logger.With("task", name, "run", runID),
	}
}

// Logger returns the run-scoped logger.
func (h *Harness) Logger() *slog.Logger {
	return h.log
}

// RunID returns the identifier attached to this run's logs and result.
func (h *Harness) RunID() string {
	return h.runID
}

// Prepare decodes raw into params and checks the network precondition.
func (h *Harness) Prepare(ctx context.Context, raw map[string]any, params any) (Status, error) {
	h.state("validating")
	if err := DecodeParams(h.name, raw, params); err != nil {
		h.log.Error("parameter validation failed", "error", err)
		return StatusInvalidParams, err
	}

	h.state("checking-connectivity")
	if h.deps.Network != nil {
		if err := h.deps.Network.Require(ctx); err != nil {
			h.log.Error("network precondition failed", "error", err)
			return StatusNoNetwork, err
		}
	}
	return StatusSuccess, nil
}

// Invoke runs the process. On timeout it logs the attempted command and
// any captured output at critical level and returns StatusTimeout.
func (h *Harness) Invoke(ctx context.Context, inv *Invocation) (*Outcome, Status, error) {
	h.state("running", "cmd", inv.CommandLine(), "timeout", inv.Timeout)

	h.startedAt = time.Now()
	out, err := h.deps.Process.Run(ctx, inv)
	h.elapsed = time.Since(h.startedAt)
	if err != nil {
		h.log.Error("process failed", "cmd", inv.CommandLine(), "error", err)
		return out, StatusError, fmt.Errorf("run %s: %w", inv.Path, err)
	}

	if out.TimedOut {
		h.state("timed-out")
		h.log.Log(ctx, logging.LevelCritical, "process timed out",
			"cmd", inv.CommandLine(),
			"elapsed", inv.Timeout.Seconds(),
			"stdout", out.Stdout,
			"stdout_size", units.HumanSize(float64(len(out.Stdout))),
			"stderr", out.Stderr,
			"status", StatusTimeout,
		)
		return out, StatusTimeout, nil
	}

	h.state("completed", "exit_code", out.ExitCode, "duration_ms", out.Elapsed.Milliseconds())
	if out.ExitCode != 0 {
		h.log.Warn("process exited with non-zero status",
			"cmd", inv.CommandLine(),
			"exit_code", out.ExitCode,
			"stderr", out.Stderr,
		)
	}
	return out, StatusSuccess, nil
}

// Report writes payload to the sink. A nil payload is written as well.
func (h *Harness) Report(ctx context.Context, payload any, opts ResultOptions) (Status, error) {
	rec := &Record{
		RunID:     h.runID,
		Task:      h.name,
		Label:     opts.Label,
		Annotate:  opts.Annotate,
		Extend:    nil,
		Payload:   payload,
		Status:    StatusSuccess,
		StartedAt: h.startedAt,
		Duration:  h.elapsed,
	}

	if h.deps.Sink != nil {
		if err := h.deps.Sink.Write(ctx, rec); err != nil {
			h.log.Error("failed to write result", "error", err)
			return StatusError, fmt.Errorf("write result: %w", err)
		}
	}
	h.state("reported", "label", opts.Label, "annotate", opts.Annotate)
	return StatusSuccess, nil
}

func (h *Harness) state(name string, args ...any) {
	h.log.Debug("task state", append([]any{"state", name}, args...)...)
}
