package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jandubois/netrics/internal/config"
	"github.com/jandubois/netrics/internal/tasks"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tasks listed in a run file",
	Long: `Run executes every task listed in a YAML run file, in order. Each task
runs independently: a failing task does not stop the ones after it.

Settings in the run file apply unless the matching flag is given.`,
	Args: cobra.NoArgs,
	RunE: runRunFile,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("config", "c", "netrics.yaml", "Run file path")
}

func runRunFile(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	rf, err := config.LoadRunFile(path)
	if err != nil {
		return err
	}

	if rf.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		format, _ := cmd.Flags().GetString("log-format")
		if err := configureLogging(rf.LogLevel, format); err != nil {
			return err
		}
	}

	opts := depsOptionsFromFlags(cmd)
	if opts.databasePath == "" {
		opts.databasePath = rf.Database
	}
	if !cmd.Flags().Changed("skip-net-check") {
		opts.skipNetCheck = rf.Network.Skip
	}
	if !cmd.Flags().Changed("net-target") && len(rf.Network.Targets) > 0 {
		opts.netTargets = rf.Network.Targets
	}
	if !cmd.Flags().Changed("net-timeout") && rf.Network.Timeout > 0 {
		opts.netTimeout = rf.Network.Timeout
	}

	known := make(map[string]bool)
	for _, name := range tasks.Names() {
		known[name] = true
	}
	for _, entry := range rf.Tasks {
		if !known[entry.Task] {
			return fmt.Errorf("%s: unknown task %q", path, entry.Task)
		}
	}

	var worst *statusError
	for i, entry := range rf.Tasks {
		slog.Info("running task", "index", i+1, "task", entry.Task)

		err := runTask(cmd.Context(), opts, entry.Task, entry.Params)
		if err == nil {
			continue
		}

		var se *statusError
		if !errors.As(err, &se) {
			return err
		}
		slog.Warn("task did not succeed", "task", entry.Task, "status", se.status)
		if worst == nil || se.status.ExitCode() > worst.status.ExitCode() {
			worst = se
		}
		if cmd.Context().Err() != nil {
			break
		}
	}

	if worst != nil {
		return worst
	}
	return nil
}
