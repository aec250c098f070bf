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

// Strip removes embedded subtitle streams from the downloaded video so the
// generated track is the only one in the final output. A source with no
// subtitles passes through unchanged apart from the remux.
type Strip struct {
	handlerCore
	media MediaProcessor
}

// NewStrip constructs the subtitle stripping stage handler.
func NewStrip(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger) *Strip {
	return NewStripWithDependencies(cfg, store, artifactStore, reporter, logger, ffmpeg.NewClient(cfg, logger))
}

// NewStripWithDependencies allows injecting the media processor (used in tests).
func NewStripWithDependencies(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger, media MediaProcessor) *Strip {
	return &Strip{
		handlerCore: newHandlerCore("strip", cfg, store, artifactStore, reporter, logger),
		media:       media,
	}
}

func (s *Strip) Prepare(ctx context.Context, run *queue.Run) error {
	if _, err := s.artifacts.Get(ctx, run.ID, artifacts.KindRawVideo); err != nil {
		return err
	}
	run.ErrorMessage = ""
	run.SetProgress("Stripping subtitles", "Preparing subtitle removal", 0)
	return nil
}

func (s *Strip) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, s.logger)

	video, err := s.artifacts.Get(ctx, run.ID, artifacts.KindRawVideo)
	if err != nil {
		return err
	}
	attempt, err := s.artifacts.NextAttempt(ctx, run.ID, artifacts.KindStrippedVideo)
	if err != nil {
		return err
	}
	dest, err := s.artifacts.WorkPath(run.ID, artifacts.KindStrippedVideo, attempt)
	if err != nil {
		return err
	}

	s.setProgress(ctx, run, "Stripping subtitles", "Removing embedded subtitle streams", 20)
	if err := s.media.StripSubtitles(ctx, video.Path, dest); err != nil {
		return err
	}
	if _, err := s.artifacts.Commit(ctx, run.ID, "strip", artifacts.KindStrippedVideo, attempt, dest); err != nil {
		return err
	}

	run.SetProgress("Stripping subtitles", "Subtitle streams removed", 100)
	logger.Info("subtitle streams stripped")
	return nil
}

func (s *Strip) HealthCheck(ctx context.Context) stage.Health {
	return stage.CheckBinary("strip", s.cfg.FFmpegBinary())
}
