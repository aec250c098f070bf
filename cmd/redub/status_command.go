package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"redub/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and the run queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			runs, err := client.ListRuns(cmd.Context(), statusFilters...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon: %s (pid %d)\n", runningLabel(status.Running), status.PID)
			if status.Workflow.LastError != "" {
				fmt.Fprintf(out, "Last error: %s\n", status.Workflow.LastError)
			}
			fmt.Fprintln(out, renderStatsLine(status.Workflow.QueueStats))

			if unhealthy := unhealthyStages(status.Workflow.StageHealth); len(unhealthy) > 0 {
				fmt.Fprintf(out, "Unhealthy stages: %s\n", strings.Join(unhealthy, ", "))
			}
			if missing := missingDependencies(status.Dependencies); len(missing) > 0 {
				fmt.Fprintf(out, "Missing dependencies: %s\n", strings.Join(missing, ", "))
			}

			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs queued.")
				return nil
			}
			fmt.Fprintln(out, renderRunTable(runs))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter runs by status (repeatable)")
	return cmd
}

func runningLabel(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

func renderStatsLine(stats map[string]int) string {
	order := []string{"pending", "processing", "completed", "failed", "cancelled"}
	parts := make([]string, 0, len(order)+1)
	parts = append(parts, fmt.Sprintf("%d total", stats["total"]))
	for _, key := range order {
		if stats[key] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", stats[key], key))
		}
	}
	return "Queue: " + strings.Join(parts, ", ")
}

func unhealthyStages(checks []api.StageHealth) []string {
	var out []string
	for _, check := range checks {
		if check.Ready {
			continue
		}
		if check.Detail != "" {
			out = append(out, fmt.Sprintf("%s (%s)", check.Name, check.Detail))
		} else {
			out = append(out, check.Name)
		}
	}
	return out
}

func missingDependencies(checks []api.DependencyStatus) []string {
	var out []string
	for _, dep := range checks {
		if dep.Available || dep.Optional {
			continue
		}
		out = append(out, fmt.Sprintf("%s (%s)", dep.Name, dep.Detail))
	}
	return out
}

func renderRunTable(runs []api.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		progress := run.Progress.Stage
		if run.Progress.Percent > 0 {
			progress = fmt.Sprintf("%s %s%%", run.Progress.Stage, strconv.FormatFloat(run.Progress.Percent, 'f', 0, 64))
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.Status,
			run.TargetLanguage,
			progress,
			truncate(run.SourceURL, 48),
		})
	}
	return renderTable(
		[]column{{name: "Run"}, {name: "Status"}, {name: "Lang"}, {name: "Progress"}, {name: "Source"}},
		rows,
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	if limit <= 1 || len(value) <= limit {
		return value
	}
	return value[:limit-1] + "…"
}
