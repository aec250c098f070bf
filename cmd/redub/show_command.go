package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"redub/internal/api"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN",
		Short: "Show a run's details, stage history, and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			detail, err := client.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			run := detail.Run
			fmt.Fprintf(out, "Run:      %s\n", run.ID)
			fmt.Fprintf(out, "Source:   %s\n", run.SourceURL)
			fmt.Fprintf(out, "Language: %s\n", run.TargetLanguage)
			fmt.Fprintf(out, "Status:   %s\n", run.Status)
			if run.Progress.Stage != "" {
				fmt.Fprintf(out, "Progress: %s %.0f%% %s\n", run.Progress.Stage, run.Progress.Percent, run.Progress.Message)
			}
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
			}

			if len(detail.Stages) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderStageTable(detail.Stages))
			}
			if len(detail.Artifacts) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderArtifactTable(detail.Artifacts))
			}
			return nil
		},
	}
}

func renderStageTable(stages []api.StageResult) string {
	rows := make([][]string, 0, len(stages))
	for _, result := range stages {
		detail := result.ErrorMessage
		rows = append(rows, []string{
			result.Stage,
			result.Status,
			fmt.Sprintf("%d", result.Attempts),
			fmt.Sprintf("%.1fs", result.DurationSeconds),
			detail,
		})
	}
	return renderTable(
		[]column{{name: "Stage"}, {name: "Result"}, {name: "Attempt", right: true}, {name: "Duration", right: true}, {name: "Detail"}},
		rows,
	)
}

func renderArtifactTable(artifacts []api.Artifact) string {
	rows := make([][]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		rows = append(rows, []string{
			artifact.Kind,
			fmt.Sprintf("%d", artifact.Attempt),
			formatSize(artifact.SizeBytes),
			artifact.Path,
		})
	}
	return renderTable(
		[]column{{name: "Artifact"}, {name: "Attempt", right: true}, {name: "Size", right: true}, {name: "Path"}},
		rows,
	)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	value := float64(bytes)
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}
	for _, suffix := range suffixes {
		value /= unit
		if value < unit {
			return fmt.Sprintf("%.1f %s", value, suffix)
		}
	}
	return fmt.Sprintf("%.1f PiB", value/unit)
}
