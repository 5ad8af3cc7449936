package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jandubois/netrics/internal/task"
	"github.com/jandubois/netrics/internal/tasks"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version and exit")
	rootCmd.Flags().Bool("describe", false, "Output task descriptions as JSON array")

	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("netrics version %s\n", Version)
			return
		}
		if describe, _ := cmd.Flags().GetBool("describe"); describe {
			printDescriptions()
			return
		}
		cmd.Help()
	}

	for _, desc := range tasks.GetAllDescriptions() {
		rootCmd.AddCommand(newTaskCommand(desc))
	}
}

// newTaskCommand builds a subcommand whose flags mirror the task's
// parameters. Only flags set explicitly are passed on, so unset
// parameters keep their task defaults.
func newTaskCommand(desc task.Description) *cobra.Command {
	params := paramNames(desc)

	c := &cobra.Command{
		Use:     desc.Name,
		Short:   desc.Description,
		GroupID: taskGroupID,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := make(map[string]any)
			for _, name := range params {
				if cmd.Flags().Changed(name) {
					v, _ := cmd.Flags().GetString(name)
					raw[name] = v
				}
			}

			result := make(map[string]any)
			if cmd.Flags().Changed("label") {
				result["label"], _ = cmd.Flags().GetString("label")
			}
			if cmd.Flags().Changed("annotate") {
				result["annotate"], _ = cmd.Flags().GetBool("annotate")
			}
			if len(result) > 0 {
				raw["result"] = result
			}

			return runTask(cmd.Context(), depsOptionsFromFlags(cmd), desc.Name, raw)
		},
	}

	for _, name := range params {
		spec := argumentSpec(desc, name)
		def := ""
		if spec.Default != nil {
			def = fmt.Sprint(spec.Default)
		}
		c.Flags().String(name, def, spec.Description)
	}
	c.Flags().String("label", desc.Name, "Result label (empty for none)")
	c.Flags().Bool("annotate", true, "Annotate the result with run metadata")

	return c
}

func runTask(ctx context.Context, opts depsOptions, name string, raw map[string]any) error {
	deps, closeFn, err := buildDeps(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	t, err := tasks.New(name, deps)
	if err != nil {
		return err
	}

	status, err := t.Run(ctx, raw)
	if status != task.StatusSuccess {
		return &statusError{task: name, status: status, err: err}
	}
	return nil
}

func paramNames(desc task.Description) []string {
	var names []string
	for name := range desc.Arguments.Required {
		names = append(names, name)
	}
	for name := range desc.Arguments.Optional {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func argumentSpec(desc task.Description, name string) task.ArgumentSpec {
	if spec, ok := desc.Arguments.Required[name]; ok {
		return spec
	}
	return desc.Arguments.Optional[name]
}

func printDescriptions() {
	descs := tasks.GetAllDescriptions()
	json.NewEncoder(os.Stdout).Encode(descs)
}
