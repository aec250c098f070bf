package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"redub/internal/api"
	"redub/internal/progress"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var since uint64

	cmd := &cobra.Command{
		Use:   "watch RUN",
		Short: "Follow a run's progress events until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return client.WatchEvents(cmd.Context(), args[0], since, func(event api.Event) error {
				fmt.Fprintln(out, formatEvent(event))
				return nil
			})
		},
	}

	cmd.Flags().Uint64Var(&since, "since", 0, "Replay events after this sequence number")
	return cmd
}

func formatEvent(event api.Event) string {
	stamp := event.Timestamp.Local().Format("15:04:05")
	switch event.Type {
	case progress.EventStageStarted:
		return fmt.Sprintf("%s  %s started (attempt %d)", stamp, event.Stage, event.Attempt)
	case progress.EventStageProgress:
		return fmt.Sprintf("%s  %s %.0f%% %s", stamp, event.Stage, event.Percent, event.Message)
	case progress.EventStageSucceeded:
		return fmt.Sprintf("%s  %s done", stamp, event.Stage)
	case progress.EventStageFailed:
		return fmt.Sprintf("%s  %s failed: %s", stamp, event.Stage, event.Error)
	case progress.EventRetryScheduled:
		return fmt.Sprintf("%s  %s retry: %s", stamp, event.Stage, event.Message)
	case progress.EventWarning:
		return fmt.Sprintf("%s  warning (%s): %s", stamp, event.Stage, event.Message)
	case progress.EventRunCompleted:
		return fmt.Sprintf("%s  run completed: %s", stamp, event.Message)
	case progress.EventRunFailed:
		return fmt.Sprintf("%s  run failed at %s: %s", stamp, event.Stage, event.Error)
	case progress.EventRunCancelled:
		return fmt.Sprintf("%s  run cancelled", stamp)
	default:
		return fmt.Sprintf("%s  %s %s", stamp, event.Type, event.Message)
	}
}
