package dubbing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"redub/internal/artifacts"
	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/segments"
	"redub/internal/services"
	"redub/internal/services/ffmpeg"
	openaisvc "redub/internal/services/openai"
	"redub/internal/stage"
)

// Synthesize voices the translated segments and stitches them into a single
// dubbed audio track. Synthesized audio is never stretched to fit the source
// timing; duration mismatches beyond the configured tolerance are reported as
// warnings and the run continues.
type Synthesize struct {
	handlerCore
	synthesizer Synthesizer
	media       MediaProcessor
}

// NewSynthesize constructs the voice synthesis stage handler.
func NewSynthesize(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger) *Synthesize {
	return NewSynthesizeWithDependencies(cfg, store, artifactStore, reporter, logger, openaisvc.NewClient(cfg, logger), ffmpeg.NewClient(cfg, logger))
}

// NewSynthesizeWithDependencies allows injecting collaborators (used in tests).
func NewSynthesizeWithDependencies(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger, synthesizer Synthesizer, media MediaProcessor) *Synthesize {
	return &Synthesize{
		handlerCore: newHandlerCore("synthesize", cfg, store, artifactStore, reporter, logger),
		synthesizer: synthesizer,
		media:       media,
	}
}

func (s *Synthesize) Prepare(ctx context.Context, run *queue.Run) error {
	if _, err := s.artifacts.Get(ctx, run.ID, artifacts.KindTranslatedTranscript); err != nil {
		return err
	}
	run.ErrorMessage = ""
	run.SetProgress("Synthesizing", "Preparing voice synthesis", 0)
	return nil
}

func (s *Synthesize) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, s.logger)

	translated, err := s.readTranslated(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(translated) == 0 {
		return services.Wrap(services.ErrContractViolation, "synthesize", "validate inputs", "translated transcript has no segments", nil)
	}

	runDir, err := s.artifacts.RunDir(run.ID)
	if err != nil {
		return err
	}
	ttsDir := filepath.Join(runDir, "tts")
	if err := os.MkdirAll(ttsDir, 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "synthesize", "prepare workspace", "create tts directory", err)
	}
	defer os.RemoveAll(ttsDir)

	segmentPaths := make([]string, len(translated))
	durations := make([]float64, len(translated))
	for i, seg := range translated {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrTransient, "synthesize", "synthesize segments", "synthesis interrupted", err)
		}
		path := filepath.Join(ttsDir, fmt.Sprintf("segment-%04d.mp3", seg.Index))
		if err := s.synthesizer.Synthesize(ctx, seg.TargetText, path); err != nil {
			return err
		}
		duration, err := s.media.ProbeDuration(ctx, path)
		if err != nil {
			return err
		}
		segmentPaths[i] = path
		durations[i] = duration

		percent := float64(i+1) / float64(len(translated)) * 90
		s.setProgress(ctx, run, "Synthesizing", fmt.Sprintf("Synthesized segment %d of %d", i+1, len(translated)), percent)
	}

	for _, delta := range segments.ReconcileDurations(translated, durations, s.cfg.Dubbing.TimingToleranceSeconds) {
		s.reporter.Warning(run, "synthesize", fmt.Sprintf(
			"segment %d dubbed audio deviates %.2fs from source timing", delta.Index, delta.Delta))
	}

	listFile := filepath.Join(ttsDir, "concat.txt")
	var list strings.Builder
	for _, path := range segmentPaths {
		fmt.Fprintf(&list, "file '%s'\n", path)
	}
	if err := os.WriteFile(listFile, []byte(list.String()), 0o644); err != nil {
		return services.Wrap(services.ErrStorage, "synthesize", "write concat list", "write concat list", err)
	}

	attempt, err := s.artifacts.NextAttempt(ctx, run.ID, artifacts.KindDubbedAudio)
	if err != nil {
		return err
	}
	dest, err := s.artifacts.WorkPath(run.ID, artifacts.KindDubbedAudio, attempt)
	if err != nil {
		return err
	}
	s.setProgress(ctx, run, "Synthesizing", "Assembling dubbed audio track", 95)
	if err := s.media.ConcatAudio(ctx, listFile, dest); err != nil {
		return err
	}
	if _, err := s.artifacts.Commit(ctx, run.ID, "synthesize", artifacts.KindDubbedAudio, attempt, dest); err != nil {
		return err
	}

	run.SetProgress("Synthesizing", "Voice synthesis complete", 100)
	logger.Info("dubbed audio assembled", logging.Int("segments", len(translated)))
	return nil
}

func (s *Synthesize) HealthCheck(ctx context.Context) stage.Health {
	if s.cfg.OpenAI.APIKey == "" {
		return stage.Unhealthy("synthesize", "speech provider API key not configured")
	}
	return stage.CheckBinary("synthesize", s.cfg.FFmpegBinary())
}
