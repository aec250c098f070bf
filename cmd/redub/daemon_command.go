package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"redub/internal/artifacts"
	"redub/internal/daemon"
	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the redub daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			logger, err := logging.New(logging.Options{
				Level:  level,
				Format: cfg.Logging.Format,
				OutputPaths: []string{
					"stderr",
					filepath.Join(cfg.Paths.LogDir, "redub.log"),
				},
			})
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue: %w", err)
			}
			artifactStore := artifacts.NewStore(cfg, store)
			hub := progress.NewHub(0)
			reporter := progress.NewReporter(hub, logger)
			stages := workflow.DefaultStages(cfg, store, artifactStore, reporter, logger)
			manager := workflow.NewManager(cfg, store, reporter, logger, stages)

			d, err := daemon.New(cfg, store, artifactStore, hub, manager, logger)
			if err != nil {
				_ = store.Close()
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := d.Start(signalCtx); err != nil {
				_ = d.Close()
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "redub daemon listening on %s\n", d.Addr())

			<-signalCtx.Done()
			return d.Close()
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}
