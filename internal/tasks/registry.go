// Package tasks provides the built-in task registry.
package tasks

import (
	"fmt"

	"github.com/jandubois/netrics/internal/task"
	"github.com/jandubois/netrics/internal/tasks/bottleneck"
	"github.com/jandubois/netrics/internal/tasks/tslp"
)

// Names returns the names of all built-in tasks.
func Names() []string {
	return []string{bottleneck.Name, tslp.Name}
}

// GetAllDescriptions returns descriptions of all built-in tasks.
func GetAllDescriptions() []task.Description {
	return []task.Description{
		bottleneck.GetDescription(),
		tslp.GetDescription(),
	}
}

// New creates the named task with the given collaborators.
func New(name string, deps task.Deps) (task.Task, error) {
	switch name {
	case bottleneck.Name:
		return bottleneck.New(deps), nil
	case tslp.Name:
		return tslp.New(deps), nil
	default:
		return nil, fmt.Errorf("unknown task %q", name)
	}
}
