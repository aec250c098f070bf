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
	openaisvc "redub/internal/services/openai"
	"redub/internal/stage"
)

// Transcribe turns the extracted audio into timestamped transcript segments.
type Transcribe struct {
	handlerCore
	transcriber Transcriber
}

// NewTranscribe constructs the transcription stage handler backed by the
// configured speech provider.
func NewTranscribe(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger) *Transcribe {
	return NewTranscribeWithDependencies(cfg, store, artifactStore, reporter, logger, openaisvc.NewClient(cfg, logger))
}

// NewTranscribeWithDependencies allows injecting the transcriber (used in tests).
func NewTranscribeWithDependencies(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger, transcriber Transcriber) *Transcribe {
	return &Transcribe{
		handlerCore: newHandlerCore("transcribe", cfg, store, artifactStore, reporter, logger),
		transcriber: transcriber,
	}
}

func (t *Transcribe) Prepare(ctx context.Context, run *queue.Run) error {
	if _, err := t.artifacts.Get(ctx, run.ID, artifacts.KindExtractedAudio); err != nil {
		return err
	}
	run.ErrorMessage = ""
	run.SetProgress("Transcribing", "Preparing transcription", 0)
	return nil
}

func (t *Transcribe) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, t.logger)

	audio, err := t.artifacts.Get(ctx, run.ID, artifacts.KindExtractedAudio)
	if err != nil {
		return err
	}

	t.setProgress(ctx, run, "Transcribing", "Sending audio for transcription", 10)
	transcript, err := t.transcriber.Transcribe(ctx, audio.Path)
	if err != nil {
		return err
	}
	if err := segments.ValidateNonEmpty(transcript); err != nil {
		return services.Wrap(services.ErrContractViolation, "transcribe", "validate transcript", "no speech detected in source audio", err)
	}

	payload, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrStorage, "transcribe", "encode transcript", "marshal transcript", err)
	}
	attempt, err := t.artifacts.NextAttempt(ctx, run.ID, artifacts.KindTranscript)
	if err != nil {
		return err
	}
	if _, err := t.artifacts.Put(ctx, run.ID, "transcribe", artifacts.KindTranscript, attempt, payload); err != nil {
		return err
	}

	run.SetProgress("Transcribing", "Transcription complete", 100)
	logger.Info("transcription stored", logging.Int("segments", len(transcript)))
	return nil
}

func (t *Transcribe) HealthCheck(ctx context.Context) stage.Health {
	if t.cfg.OpenAI.APIKey == "" {
		return stage.Unhealthy("transcribe", "speech provider API key not configured")
	}
	return stage.Healthy("transcribe")
}
