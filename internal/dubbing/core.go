package dubbing

import (
	"context"
	"encoding/json"
	"log/slog"

	"redub/internal/artifacts"
	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/segments"
	"redub/internal/services"
)

// handlerCore carries the collaborators every stage handler needs.
type handlerCore struct {
	cfg       *config.Config
	store     *queue.Store
	artifacts *artifacts.Store
	reporter  *progress.Reporter
	logger    *slog.Logger
}

func newHandlerCore(component string, cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger) handlerCore {
	if logger == nil {
		logger = logging.NewNop()
	}
	if reporter == nil {
		reporter = progress.NewReporter(nil, logger)
	}
	return handlerCore{
		cfg:       cfg,
		store:     store,
		artifacts: artifactStore,
		reporter:  reporter,
		logger:    logging.NewComponentLogger(logger, component),
	}
}

// setProgress updates the run's progress fields, persists them, and publishes
// a progress event. Persistence failures are logged but never fail the stage.
func (h handlerCore) setProgress(ctx context.Context, run *queue.Run, stage, message string, percent float64) {
	run.SetProgress(stage, message, percent)
	if h.store != nil {
		if err := h.store.Update(ctx, run); err != nil {
			h.logger.Warn("persist progress", logging.Error(err))
		}
	}
	h.reporter.StageProgress(run, stage, message, percent)
}

// readTranscript loads and decodes the newest transcript artifact.
func (h handlerCore) readTranscript(ctx context.Context, runID string) ([]segments.TranscriptSegment, error) {
	data, err := h.artifacts.ReadAll(ctx, runID, artifacts.KindTranscript)
	if err != nil {
		return nil, err
	}
	var transcript []segments.TranscriptSegment
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, services.Wrap(services.ErrStorage, "transcribe", "read transcript", "stored transcript is not valid JSON", err)
	}
	return transcript, nil
}

// readTranslated loads and decodes the newest translated transcript artifact.
func (h handlerCore) readTranslated(ctx context.Context, runID string) ([]segments.TranslatedSegment, error) {
	data, err := h.artifacts.ReadAll(ctx, runID, artifacts.KindTranslatedTranscript)
	if err != nil {
		return nil, err
	}
	var translated []segments.TranslatedSegment
	if err := json.Unmarshal(data, &translated); err != nil {
		return nil, services.Wrap(services.ErrStorage, "translate", "read translated transcript", "stored translation is not valid JSON", err)
	}
	return translated, nil
}
