package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"realestate-crm/backend/internal/automation"
	"realestate-crm/backend/internal/workflows"
)

func newWorkflowsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List the registered workflows and their trigger bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WORKFLOW\tTRIGGERED BY\tDESCRIPTION")
			bound := make(map[automation.WorkflowID][]string)
			for _, t := range a.engine.Triggers() {
				for _, id := range t.Targets {
					bound[id] = append(bound[id], string(t.Name))
				}
			}
			for _, id := range a.engine.Workflows() {
				triggers := strings.Join(bound[id], ",")
				if triggers == "" {
					triggers = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, triggers, workflows.Describe(id))
			}
			return w.Flush()
		},
	}
}

func newScanCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "scan <task>",
		Short:     "Run one scheduled scan task once and exit",
		Long:      "Run one scan task against the configured store. Tasks: " + strings.Join(automation.TaskNames, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: automation.TaskNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			processed, err := a.engine.RunScan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d processed\n", args[0], processed)
			return nil
		},
	}
}
