// Package task provides the shared framework for measurement tasks: parameter
// decoding, the precondition pipeline, subprocess invocation and result
// reporting.
package task

import (
	"context"
	"log/slog"
	"time"
)

// Status represents the outcome of a task run.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusTimeout       Status = "timeout"
	StatusInvalidParams Status = "invalid-params"
	StatusNoNetwork     Status = "no-network"
	StatusError         Status = "error"
)

// ExitCode maps a status to a process exit code.
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusTimeout:
		return 2
	case StatusInvalidParams:
		return 3
	case StatusNoNetwork:
		return 4
	default:
		return 1
	}
}

// Task is a runnable measurement task.
type Task interface {
	Describe() Description
	Run(ctx context.Context, raw map[string]any) (Status, error)
}

// Description is the self-description format for tasks.
type Description struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	Arguments   Arguments `json:"arguments"`
}

// Arguments describes required and optional task parameters.
type Arguments struct {
	Required map[string]ArgumentSpec `json:"required,omitempty"`
	Optional map[string]ArgumentSpec `json:"optional,omitempty"`
}

// ArgumentSpec describes a single parameter.
type ArgumentSpec struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Record is a task result handed to a Sink.
type Record struct {
	RunID     string
	Task      string
	Label     string
	Annotate  bool
	Extend    map[string]any // always nil for the bottleneck tasks
	Payload   any
	Status    Status
	StartedAt time.Time
	Duration  time.Duration
}

// Sink persists task results.
type Sink interface {
	Write(ctx context.Context, rec *Record) error
}

// NetworkChecker verifies that the network is usable before a measurement.
type NetworkChecker interface {
	Require(ctx context.Context) error
}

// Process runs a single subprocess invocation.
type Process interface {
	Run(ctx context.Context, inv *Invocation) (*Outcome, error)
}

// Deps holds the collaborators injected into every task.
type Deps struct {
	Logger  *slog.Logger
	Network NetworkChecker
	Sink    Sink
	Process Process
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Process == nil {
		d.Process = NewExec()
	}
	return d
}
