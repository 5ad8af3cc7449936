package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/jandubois/netrics/internal/db"
	"github.com/jandubois/netrics/internal/tasks/bottleneck"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored task results",
	Args:  cobra.NoArgs,
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.Flags().String("task", "", "Only show results of this task")
	resultsCmd.Flags().Int("limit", 20, "Maximum number of results (0 for all)")
	resultsCmd.Flags().Bool("json", false, "Output results as JSON lines")
}

func runResults(cmd *cobra.Command, args []string) error {
	path := getDatabasePath(cmd)
	if path == "" {
		return fmt.Errorf("database path required (use --database or DATABASE_PATH env var)")
	}
	taskName, _ := cmd.Flags().GetString("task")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	database, err := db.Connect(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer database.Close()

	stored, err := database.ListResults(cmd.Context(), db.ResultFilter{Task: taskName, Limit: limit})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		for _, r := range stored {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tTASK\tSTATUS\tSTARTED\tDURATION\tSUMMARY")
	for _, r := range stored {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s ago\t%s\t%s\n",
			shortID(r.RunID),
			r.Task,
			r.Status,
			units.HumanDuration(time.Since(r.StartedAt)),
			r.Duration.Round(time.Millisecond),
			summarize(r),
		)
	}
	return w.Flush()
}

func summarize(r *db.TaskResult) string {
	if r.Payload == nil {
		return "(no output)"
	}
	if r.Task == bottleneck.Name {
		if s := bottleneck.Summarize(r.Payload); s != nil {
			return s.String()
		}
	}
	data, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Sprintf("%v", r.Payload)
	}
	return truncate(string(data), 60)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
