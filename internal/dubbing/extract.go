package dubbing

import (
	"context"
	"log/slog"

	"redub/internal/artifacts"
	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/services/ffmpeg"
	"redub/internal/stage"
)

// Extract pulls the audio track out of the downloaded video.
type Extract struct {
	handlerCore
	media MediaProcessor
}

// NewExtract constructs the audio extraction stage handler.
func NewExtract(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger) *Extract {
	return NewExtractWithDependencies(cfg, store, artifactStore, reporter, logger, ffmpeg.NewClient(cfg, logger))
}

// NewExtractWithDependencies allows injecting the media processor (used in tests).
func NewExtractWithDependencies(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger, media MediaProcessor) *Extract {
	return &Extract{
		handlerCore: newHandlerCore("extract", cfg, store, artifactStore, reporter, logger),
		media:       media,
	}
}

func (e *Extract) Prepare(ctx context.Context, run *queue.Run) error {
	if _, err := e.artifacts.Get(ctx, run.ID, artifacts.KindRawVideo); err != nil {
		return err
	}
	run.ErrorMessage = ""
	run.SetProgress("Extracting audio", "Preparing audio extraction", 0)
	return nil
}

func (e *Extract) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, e.logger)

	video, err := e.artifacts.Get(ctx, run.ID, artifacts.KindRawVideo)
	if err != nil {
		return err
	}
	attempt, err := e.artifacts.NextAttempt(ctx, run.ID, artifacts.KindExtractedAudio)
	if err != nil {
		return err
	}
	dest, err := e.artifacts.WorkPath(run.ID, artifacts.KindExtractedAudio, attempt)
	if err != nil {
		return err
	}

	e.setProgress(ctx, run, "Extracting audio", "Extracting audio track", 10)
	if err := e.media.ExtractAudio(ctx, video.Path, dest); err != nil {
		return err
	}

	artifact, err := e.artifacts.Commit(ctx, run.ID, "extract", artifacts.KindExtractedAudio, attempt, dest)
	if err != nil {
		return err
	}
	run.SetProgress("Extracting audio", "Audio extracted", 100)
	logger.Info("audio extraction complete", logging.Int64("size_bytes", artifact.SizeBytes))
	return nil
}

func (e *Extract) HealthCheck(ctx context.Context) stage.Health {
	return stage.CheckBinary("extract", e.cfg.FFmpegBinary())
}
