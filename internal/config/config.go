// Package config loads run files and environment files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RunFile lists the tasks to run and shared settings.
type RunFile struct {
	Database string        `yaml:"database"`
	LogLevel string        `yaml:"log_level"`
	Network  NetworkConfig `yaml:"network"`
	Tasks    []TaskEntry   `yaml:"tasks"`
}

// NetworkConfig configures the connectivity precondition.
type NetworkConfig struct {
	Skip    bool          `yaml:"skip"`
	Targets []string      `yaml:"targets"`
	Timeout time.Duration `yaml:"timeout"`
}

// TaskEntry is one task invocation in a run file.
type TaskEntry struct {
	Task   string         `yaml:"task"`
	Params map[string]any `yaml:"params"`
}

// LoadRunFile reads a YAML run file. Environment variables referenced as
// $VAR or ${VAR} are expanded before parsing.
func LoadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run file: %w", err)
	}

	var rf RunFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &rf); err != nil {
		return nil, fmt.Errorf("parse run file %s: %w", path, err)
	}

	if len(rf.Tasks) == 0 {
		return nil, fmt.Errorf("run file %s: no tasks configured", path)
	}
	for i, entry := range rf.Tasks {
		if entry.Task == "" {
			return nil, fmt.Errorf("run file %s: task %d: missing task name", path, i+1)
		}
	}
	return &rf, nil
}

// LoadEnv loads environment variables from an env file. Variables already
// set in the environment win. An empty path loads ./.env if it exists.
func LoadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
