package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jandubois/netrics/internal/config"
	"github.com/jandubois/netrics/internal/db"
	"github.com/jandubois/netrics/internal/logging"
	"github.com/jandubois/netrics/internal/netcheck"
	"github.com/jandubois/netrics/internal/results"
	"github.com/jandubois/netrics/internal/task"
)

// Version is set at build time via -ldflags "-X github.com/jandubois/netrics/cmd.Version=..."
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "netrics",
	Short: "Network bottleneck measurement tasks",
	Long: `Netrics runs network bottleneck measurements by invoking external
measurement binaries and records their results.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

const taskGroupID = "tasks"

// Execute runs the CLI. SIGINT and SIGTERM cancel the running task.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.status.ExitCode()
	}
	return 1
}

type statusError struct {
	task   string
	status task.Status
	err    error
}

func (e *statusError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.task, e.status, e.err)
	}
	return fmt.Sprintf("%s: %s", e.task, e.status)
}

func (e *statusError) Unwrap() error { return e.err }

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: taskGroupID, Title: "Measurement Tasks:"})
	rootCmd.PersistentFlags().StringP("database", "d", "", "SQLite database path for storing results (or DATABASE_PATH env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error, critical)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().String("env-file", "", "Environment file to load (default ./.env if present)")
	rootCmd.PersistentFlags().Bool("skip-net-check", false, "Skip the network reachability precondition")
	rootCmd.PersistentFlags().StringSlice("net-target", nil, "Connectivity targets (host:port or URL)")
	rootCmd.PersistentFlags().Duration("net-timeout", netcheck.DefaultTimeout, "Timeout for each connectivity target")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Do not print results to stdout")
}

func setup(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}

	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	return configureLogging(levelName, format)
}

func configureLogging(levelName, format string) error {
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func getDatabasePath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("database")
	if path == "" {
		path = os.Getenv("DATABASE_PATH")
	}
	return path
}

// depsOptions are the settings that shape the collaborators of a task run.
type depsOptions struct {
	databasePath string
	quiet        bool
	skipNetCheck bool
	netTargets   []string
	netTimeout   time.Duration
}

func depsOptionsFromFlags(cmd *cobra.Command) depsOptions {
	quiet, _ := cmd.Flags().GetBool("quiet")
	skip, _ := cmd.Flags().GetBool("skip-net-check")
	targets, _ := cmd.Flags().GetStringSlice("net-target")
	timeout, _ := cmd.Flags().GetDuration("net-timeout")
	return depsOptions{
		databasePath: getDatabasePath(cmd),
		quiet:        quiet,
		skipNetCheck: skip,
		netTargets:   targets,
		netTimeout:   timeout,
	}
}

// buildDeps wires the task collaborators. The returned function releases
// the database, if one was opened.
func buildDeps(ctx context.Context, opts depsOptions) (task.Deps, func(), error) {
	var sinks results.Multi
	closeFn := func() {}

	if !opts.quiet {
		sinks = append(sinks, results.NewJSONSink(os.Stdout))
	}
	if opts.databasePath != "" {
		database, err := db.Connect(ctx, opts.databasePath)
		if err != nil {
			return task.Deps{}, closeFn, fmt.Errorf("database connection failed: %w", err)
		}
		sinks = append(sinks, results.NewDBSink(database))
		closeFn = func() { database.Close() }
	}

	logger := slog.Default()

	var network task.NetworkChecker = netcheck.Skip{}
	if !opts.skipNetCheck {
		checker := netcheck.New(opts.netTargets, opts.netTimeout)
		checker.Logger = logger
		network = checker
	}

	return task.Deps{
		Logger:  logger,
		Network: network,
		Sink:    sinks,
		Process: task.NewExec(),
	}, closeFn, nil
}
