// Package tslp provides the tslp-bottleneck-finder task, which runs the
// time-series latency probe variant of the bottleneck finder.
package tslp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	units "github.com/docker/go-units"

	"github.com/jandubois/netrics/internal/task"
)

// Name is the task subcommand name.
const Name = "tslp-bottleneck-finder"

// Params configures a tslp-bottleneck-finder run.
type Params struct {
	Exec     string       `json:"exec" default:"tslp-bottleneck-finder" validate:"required,command"`
	Count    string       `json:"count" default:"10" validate:"natstr"`
	MaxTTL   string       `json:"maxTTL" default:"5" validate:"natstr"`
	PingType string       `json:"pingType" default:"icmp"`
	ToolType string       `json:"toolType" default:"ndt"`
	Timeout  task.Timeout `json:"timeout" default:"45"`
	// DataDir is where the binary writes its capture files. When empty a
	// temporary directory is created for the run and removed afterwards.
	DataDir string             `json:"dataDir"`
	Result  task.ResultOptions `json:"result"`
}

// Args returns the command-line arguments for the binary.
func (p *Params) Args(dataDir string) []string {
	return []string{
		"-c", p.Count,
		"-d", dataDir,
		"-m", p.MaxTTL,
		"-p", p.PingType,
		"-t", p.ToolType,
	}
}

// GetDescription returns the task description.
func GetDescription() task.Description {
	return task.Description{
		Name:        Name,
		Description: "Locate the bottlenecked link along a speed test path using TSLP probing",
		Version:     "1.0.0",
		Arguments: task.Arguments{
			Optional: map[string]task.ArgumentSpec{
				"exec": {
					Type:        "string",
					Description: "Executable name on PATH or absolute path",
					Default:     "tslp-bottleneck-finder",
				},
				"count": {
					Type:        "string",
					Description: "Number of packets to capture before stopping",
					Default:     "10",
				},
				"maxTTL": {
					Type:        "string",
					Description: "Maximum TTL to send pings to",
					Default:     "5",
				},
				"pingType": {
					Type:        "string",
					Description: "Type of ping to use",
					Default:     "icmp",
				},
				"toolType": {
					Type:        "string",
					Description: "Speed test tool to run",
					Default:     "ndt",
				},
				"timeout": {
					Type:        "number",
					Description: "Seconds after which the test is canceled (0 or false to disable)",
					Default:     float64(45),
				},
				"dataDir": {
					Type:        "string",
					Description: "Directory for capture output (temporary directory if unset)",
				},
			},
		},
	}
}

// Task runs the tslp-bottleneck-finder binary.
type Task struct {
	deps task.Deps
}

// New creates the task with its collaborators.
func New(deps task.Deps) *Task {
	return &Task{deps: deps}
}

// Describe implements task.Task.
func (t *Task) Describe() task.Description {
	return GetDescription()
}

// Run executes the task and reports a fixed success payload whenever the
// binary ran to completion.
func (t *Task) Run(ctx context.Context, raw map[string]any) (task.Status, error) {
	h := task.NewHarness(Name, t.deps)

	var params Params
	if status, err := h.Prepare(ctx, raw, &params); err != nil {
		return status, err
	}

	dataDir, cleanup, err := prepareDataDir(params.DataDir)
	if err != nil {
		h.Logger().Error("failed to prepare data directory", "error", err)
		return task.StatusError, err
	}
	defer func() {
		if err := cleanup(); err != nil {
			h.Logger().Warn("failed to remove data directory", "dir", dataDir, "error", err)
		}
	}()

	out, status, err := h.Invoke(ctx, &task.Invocation{
		Path:    params.Exec,
		Args:    params.Args(dataDir),
		Timeout: params.Timeout.Duration(),
	})
	if status != task.StatusSuccess {
		return status, err
	}

	return h.Report(ctx, ParseOutput(h.Logger(), out), params.Result)
}

// ParseOutput returns the result payload for a completed run. The binary
// has no stable output schema yet, so the payload is always
// {"Status": "Success"}; the captured output is only logged.
func ParseOutput(logger *slog.Logger, out *task.Outcome) map[string]any {
	logger.Debug("tslp output",
		"stdout_size", units.HumanSize(float64(len(out.Stdout))),
		"stderr_size", units.HumanSize(float64(len(out.Stderr))),
	)
	return map[string]any{"Status": "Success"}
}

// prepareDataDir returns the directory to pass to the binary and a cleanup
// function. A caller-supplied directory is created if needed and kept.
func prepareDataDir(dir string) (string, func() error, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", nil, fmt.Errorf("create data directory: %w", err)
		}
		return dir, func() error { return nil }, nil
	}

	tmp, err := os.MkdirTemp("", Name+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temporary data directory: %w", err)
	}
	return tmp, func() error { return os.RemoveAll(tmp) }, nil
}
