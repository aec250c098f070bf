package dubbing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"redub/internal/artifacts"
	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/services"
	"redub/internal/services/ytdlp"
	"redub/internal/stage"
)

// Download fetches the source video into the run's artifact directory.
type Download struct {
	handlerCore
	downloader Downloader
}

// NewDownload constructs the download stage handler using the configured
// yt-dlp binary.
func NewDownload(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger) *Download {
	return NewDownloadWithDependencies(cfg, store, artifactStore, reporter, logger, ytdlp.NewCLI(ytdlp.WithBinary(cfg.YtdlpBinary())))
}

// NewDownloadWithDependencies allows injecting the downloader (used in tests).
func NewDownloadWithDependencies(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger, downloader Downloader) *Download {
	return &Download{
		handlerCore: newHandlerCore("download", cfg, store, artifactStore, reporter, logger),
		downloader:  downloader,
	}
}

func (d *Download) Prepare(ctx context.Context, run *queue.Run) error {
	if strings.TrimSpace(run.SourceURL) == "" {
		return services.Wrap(services.ErrConfiguration, "download", "validate inputs", "run has no source URL", nil)
	}
	run.ErrorMessage = ""
	run.SetProgress("Downloading", "Starting download", 0)
	return nil
}

func (d *Download) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, d.logger)

	attempt, err := d.artifacts.NextAttempt(ctx, run.ID, artifacts.KindRawVideo)
	if err != nil {
		return err
	}
	dest, err := d.artifacts.WorkPath(run.ID, artifacts.KindRawVideo, attempt)
	if err != nil {
		return err
	}

	logger.Info("downloading source video",
		logging.String("source_url", run.SourceURL),
		logging.String("dest", dest),
	)
	if isLocalSource(run.SourceURL) {
		d.setProgress(ctx, run, "Downloading", "Copying local file", 0)
		err = copyLocalSource(run.SourceURL, dest)
	} else {
		err = d.downloader.Download(ctx, run.SourceURL, dest, func(update ytdlp.ProgressUpdate) {
			d.setProgress(ctx, run, "Downloading", fmt.Sprintf("Downloading %.1f%%", update.Percent), update.Percent)
		})
	}
	if err != nil {
		return err
	}

	artifact, err := d.artifacts.Commit(ctx, run.ID, "download", artifacts.KindRawVideo, attempt, dest)
	if err != nil {
		return err
	}
	run.SetProgress("Downloading", "Download complete", 100)
	logger.Info("download complete",
		logging.Int64("size_bytes", artifact.SizeBytes),
		logging.Int(logging.FieldAttempt, attempt),
	)
	return nil
}

func (d *Download) HealthCheck(ctx context.Context) stage.Health {
	return stage.CheckBinary("download", d.cfg.YtdlpBinary())
}

// isLocalSource reports whether the source names a file on disk instead of a
// remote URL.
func isLocalSource(source string) bool {
	return !strings.Contains(source, "://")
}

func copyLocalSource(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return services.Wrap(services.ErrPermanent, "download", "open local source", "local source file is not readable", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrStorage, "download", "stage local source", "cannot create working copy", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return services.Wrap(services.ErrStorage, "download", "stage local source", "copy failed", err)
	}
	if err := out.Close(); err != nil {
		return services.Wrap(services.ErrStorage, "download", "stage local source", "flush failed", err)
	}
	return nil
}
