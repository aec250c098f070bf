package dubbing

import (
	"context"
	"fmt"
	"log/slog"

	"redub/internal/artifacts"
	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/segments"
	"redub/internal/services"
	"redub/internal/stage"
)

// Subtitles renders the translated transcript as an SRT track whose cues
// carry the source timing, so text stays aligned with the picture even when
// the dubbed audio runs long or short.
type Subtitles struct {
	handlerCore
}

// NewSubtitles constructs the subtitle generation stage handler.
func NewSubtitles(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger) *Subtitles {
	return &Subtitles{
		handlerCore: newHandlerCore("subtitles", cfg, store, artifactStore, reporter, logger),
	}
}

func (s *Subtitles) Prepare(ctx context.Context, run *queue.Run) error {
	if _, err := s.artifacts.Get(ctx, run.ID, artifacts.KindTranslatedTranscript); err != nil {
		return err
	}
	run.ErrorMessage = ""
	run.SetProgress("Generating subtitles", "Preparing subtitle generation", 0)
	return nil
}

func (s *Subtitles) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, s.logger)

	translated, err := s.readTranslated(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(translated) == 0 {
		return services.Wrap(services.ErrContractViolation, "subtitles", "validate inputs", "translated transcript has no segments", nil)
	}

	cues := segments.CuesFromTranslated(translated)
	rendered := segments.RenderSRT(cues)

	// The rendered track must survive a parse round trip before it is
	// committed; a malformed cue would otherwise surface as a mux failure.
	parsed, err := segments.ParseSRT(rendered)
	if err != nil {
		return services.Wrap(services.ErrContractViolation, "subtitles", "validate srt", "rendered SRT failed to parse", err)
	}
	if len(parsed) != len(cues) {
		return services.Wrap(services.ErrContractViolation, "subtitles", "validate srt",
			fmt.Sprintf("rendered SRT has %d cues for %d segments", len(parsed), len(cues)), nil)
	}

	attempt, err := s.artifacts.NextAttempt(ctx, run.ID, artifacts.KindSubtitleTrack)
	if err != nil {
		return err
	}
	if _, err := s.artifacts.Put(ctx, run.ID, "subtitles", artifacts.KindSubtitleTrack, attempt, []byte(rendered)); err != nil {
		return err
	}

	run.SetProgress("Generating subtitles", "Subtitle track generated", 100)
	logger.Info("subtitle track generated", logging.Int("cues", len(cues)))
	return nil
}

func (s *Subtitles) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("subtitles")
}
