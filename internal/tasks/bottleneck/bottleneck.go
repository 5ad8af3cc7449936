// Package bottleneck provides the bottleneck-finder task, which locates the
// bottlenecked link along the path of an NDT7/Ookla speed test.
package bottleneck

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jandubois/netrics/internal/task"
)

// Name is the task subcommand name.
const Name = "bottleneck-finder"

// Params configures a bottleneck-finder run.
type Params struct {
	Exec     string             `json:"exec" default:"netrics-bottleneck-finder" validate:"required,command"`
	IdleTime string             `json:"idleTime" default:"10" validate:"posintstr"`
	MaxTTL   string             `json:"maxTTL" default:"5" validate:"natstr"`
	PingType string             `json:"pingType" default:"udp"`
	ToolType string             `json:"toolType" default:"ndt"`
	Timeout  task.Timeout       `json:"timeout" default:"300"`
	Result   task.ResultOptions `json:"result"`
}

// Args returns the command-line arguments for the binary.
func (p *Params) Args() []string {
	return []string{
		"-i", p.IdleTime,
		"-m", p.MaxTTL,
		"-p", p.PingType,
		"-t", p.ToolType,
	}
}

// GetDescription returns the task description.
func GetDescription() task.Description {
	return task.Description{
		Name:        Name,
		Description: "Locate the bottlenecked link along the path of an NDT7/Ookla speed test",
		Version:     "1.0.0",
		Arguments: task.Arguments{
			Optional: map[string]task.ArgumentSpec{
				"exec": {
					Type:        "string",
					Description: "Executable name on PATH or absolute path",
					Default:     "netrics-bottleneck-finder",
				},
				"idleTime": {
					Type:        "string",
					Description: "Idle time between probes (milliseconds)",
					Default:     "10",
				},
				"maxTTL": {
					Type:        "string",
					Description: "Maximum TTL to probe",
					Default:     "5",
				},
				"pingType": {
					Type:        "string",
					Description: "Type of ping to use",
					Default:     "udp",
				},
				"toolType": {
					Type:        "string",
					Description: "Speed test tool to run",
					Default:     "ndt",
				},
				"timeout": {
					Type:        "number",
					Description: "Seconds after which the test is canceled (0 or false to disable)",
					Default:     float64(300),
				},
			},
		},
	}
}

// Task runs the bottleneck-finder binary and reports its parsed JSON output.
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

// Run executes the task. It returns StatusSuccess whenever the binary ran to
// completion, even if its output could not be parsed.
func (t *Task) Run(ctx context.Context, raw map[string]any) (task.Status, error) {
	h := task.NewHarness(Name, t.deps)

	var params Params
	if status, err := h.Prepare(ctx, raw, &params); err != nil {
		return status, err
	}

	out, status, err := h.Invoke(ctx, &task.Invocation{
		Path:    params.Exec,
		Args:    params.Args(),
		Timeout: params.Timeout.Duration(),
	})
	if status != task.StatusSuccess {
		return status, err
	}

	result := ParseOutput(h.Logger(), out.Stdout)
	if result != nil {
		if s := Summarize(result); s != nil {
			h.Logger().Info("bottleneck measured", s.LogAttrs()...)
		}
	}

	return h.Report(ctx, result, params.Result)
}

// ParseOutput decodes the binary's JSON document. It logs and returns nil
// when the output is empty or malformed.
func ParseOutput(logger *slog.Logger, output string) any {
	if output == "" {
		logger.Error("Output is none", "error", "None")
		return nil
	}

	var result any
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		logger.Error("output parsing error", "error", err.Error())
		return nil
	}
	return result
}
