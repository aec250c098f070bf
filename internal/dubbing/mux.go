package dubbing

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"redub/internal/artifacts"
	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/services/ffmpeg"
	"redub/internal/stage"
)

// Mux assembles the final dubbed MP4 from the stripped video, the dubbed
// audio track, and the generated subtitles. The video duration is
// authoritative; an audio track that runs long or short is reported but never
// stretched or truncated here.
type Mux struct {
	handlerCore
	media MediaProcessor
}

// NewMux constructs the mux stage handler.
func NewMux(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger) *Mux {
	return NewMuxWithDependencies(cfg, store, artifactStore, reporter, logger, ffmpeg.NewClient(cfg, logger))
}

// NewMuxWithDependencies allows injecting the media processor (used in tests).
func NewMuxWithDependencies(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger, media MediaProcessor) *Mux {
	return &Mux{
		handlerCore: newHandlerCore("mux", cfg, store, artifactStore, reporter, logger),
		media:       media,
	}
}

func (m *Mux) Prepare(ctx context.Context, run *queue.Run) error {
	for _, kind := range []string{artifacts.KindStrippedVideo, artifacts.KindDubbedAudio, artifacts.KindSubtitleTrack} {
		if _, err := m.artifacts.Get(ctx, run.ID, kind); err != nil {
			return err
		}
	}
	run.ErrorMessage = ""
	run.SetProgress("Muxing", "Preparing final mux", 0)
	return nil
}

func (m *Mux) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, m.logger)

	video, err := m.artifacts.Get(ctx, run.ID, artifacts.KindStrippedVideo)
	if err != nil {
		return err
	}
	audio, err := m.artifacts.Get(ctx, run.ID, artifacts.KindDubbedAudio)
	if err != nil {
		return err
	}
	subtitles, err := m.artifacts.Get(ctx, run.ID, artifacts.KindSubtitleTrack)
	if err != nil {
		return err
	}

	m.setProgress(ctx, run, "Muxing", "Checking track durations", 10)
	videoDuration, err := m.media.ProbeDuration(ctx, video.Path)
	if err != nil {
		return err
	}
	audioDuration, err := m.media.ProbeDuration(ctx, audio.Path)
	if err != nil {
		return err
	}
	if delta := math.Abs(videoDuration - audioDuration); delta > m.cfg.Dubbing.TimingToleranceSeconds {
		m.reporter.Warning(run, "mux", fmt.Sprintf(
			"dubbed audio runs %.2fs %s than the video; video duration wins",
			delta, longerOrShorter(audioDuration, videoDuration)))
	}

	attempt, err := m.artifacts.NextAttempt(ctx, run.ID, artifacts.KindFinalVideo)
	if err != nil {
		return err
	}
	dest, err := m.artifacts.WorkPath(run.ID, artifacts.KindFinalVideo, attempt)
	if err != nil {
		return err
	}

	m.setProgress(ctx, run, "Muxing", "Muxing final output", 40)
	if err := m.media.Mux(ctx, video.Path, audio.Path, subtitles.Path, dest, run.TargetLanguage); err != nil {
		return err
	}
	artifact, err := m.artifacts.Commit(ctx, run.ID, "mux", artifacts.KindFinalVideo, attempt, dest)
	if err != nil {
		return err
	}

	run.SetProgress("Muxing", fmt.Sprintf("Final output ready: %s", artifact.Path), 100)
	logger.Info("final mux complete",
		logging.String("final_path", artifact.Path),
		logging.Int64("size_bytes", artifact.SizeBytes),
	)
	return nil
}

func longerOrShorter(audio, video float64) string {
	if audio > video {
		return "longer"
	}
	return "shorter"
}

func (m *Mux) HealthCheck(ctx context.Context) stage.Health {
	return stage.CheckBinary("mux", m.cfg.FFmpegBinary())
}
