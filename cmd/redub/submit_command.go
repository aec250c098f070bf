package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"redub/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "submit URL",
		Short: "Queue a video for dubbing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(args[0])
			if source == "" {
				return fmt.Errorf("source URL is required")
			}

			target := lang
			if target == "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				target = cfg.Dubbing.TargetLanguage
			}
			// Validate locally so a typo fails before touching the daemon.
			normalized, err := api.NormalizeLanguage(target)
			if err != nil {
				return err
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Submit(cmd.Context(), source, normalized)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Queued run %s (target language %s)\n", resp.RunID, normalized)
			fmt.Fprintf(out, "Follow progress with `redub watch %s`\n", resp.RunID)
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Target language tag (defaults to the configured language)")
	return cmd
}
