// cmd/tools/registry/main.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lead-orchestrator/pkg/registry"
)

var registryPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "registry",
		Short:        "Inspect and maintain the job-worker activity catalog",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&registryPath, "path", "p", "pkg/registry/activities.json", "path to the activity catalog")

	rootCmd.AddCommand(listCmd(), validateCmd(), checkInputCmd(), updateCmd(), scaffoldCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the activities in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TASK TYPE\tCATEGORY\tVERSION\tTIMEOUT\tRETRIES\tERROR CODES")
			for _, a := range reg.Activities {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					a.TaskType, a.Category, a.Version, a.Timeout, a.Retries, strings.Join(a.ErrorCodes, ","))
			}
			return tw.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
}

// checkInputCmd validates a job-variables document the way the workers do
// before they run.
func checkInputCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-input <task-type> <variables.json>",
		Short: "Validate job variables against a task type's input schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			activity, ok := reg.Find(args[0])
			if !ok {
				return fmt.Errorf("no activity with task type %q", args[0])
			}
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			if err := activity.ValidateInput(raw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Variables are valid for %s.\n", activity.TaskType)
			return nil
		},
	}
}

func updateCmd() *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update one field of an activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := updateActivity(reg, id, field, value); err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("update leaves registry invalid: %w", err)
			}
			reg.LastUpdated = time.Now().Format("2006-01-02")
			if err := reg.Save(registryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "activity id to update")
	cmd.Flags().StringVar(&field, "field", "", "field to update (version, displayName, description, category, timeout, retries)")
	cmd.Flags().StringVar(&value, "value", "", "new value for the field")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func updateActivity(reg *registry.ActivityRegistry, id, field, value string) error {
	for i := range reg.Activities {
		a := &reg.Activities[i]
		if a.ID != id {
			continue
		}
		switch field {
		case "version":
			a.Version = value
		case "displayName":
			a.DisplayName = value
		case "description":
			a.Description = value
		case "category":
			a.Category = value
		case "timeout":
			a.Timeout = value
		case "retries":
			retries, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid retries value: %w", err)
			}
			a.Retries = retries
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		return nil
	}
	return fmt.Errorf("activity with ID %s not found", id)
}
