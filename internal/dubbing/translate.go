package dubbing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"redub/internal/artifacts"
	"redub/internal/config"
	"redub/internal/logging"
	"redub/internal/progress"
	"redub/internal/queue"
	"redub/internal/services"
	openaisvc "redub/internal/services/openai"
	"redub/internal/stage"
)

// Translate renders the transcript in the run's target language, segment by
// segment, without touching timing.
type Translate struct {
	handlerCore
	translator Translator
}

// NewTranslate constructs the translation stage handler.
func NewTranslate(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger) *Translate {
	return NewTranslateWithDependencies(cfg, store, artifactStore, reporter, logger, openaisvc.NewClient(cfg, logger))
}

// NewTranslateWithDependencies allows injecting the translator (used in tests).
func NewTranslateWithDependencies(cfg *config.Config, store *queue.Store, artifactStore *artifacts.Store, reporter *progress.Reporter, logger *slog.Logger, translator Translator) *Translate {
	return &Translate{
		handlerCore: newHandlerCore("translate", cfg, store, artifactStore, reporter, logger),
		translator:  translator,
	}
}

func (t *Translate) Prepare(ctx context.Context, run *queue.Run) error {
	if _, err := t.artifacts.Get(ctx, run.ID, artifacts.KindTranscript); err != nil {
		return err
	}
	run.ErrorMessage = ""
	run.SetProgress("Translating", "Preparing translation", 0)
	return nil
}

func (t *Translate) Execute(ctx context.Context, run *queue.Run) error {
	logger := logging.WithContext(ctx, t.logger)

	transcript, err := t.readTranscript(ctx, run.ID)
	if err != nil {
		return err
	}

	t.setProgress(ctx, run, "Translating", fmt.Sprintf("Translating %d segments", len(transcript)), 10)
	translated, err := t.translator.TranslateSegments(ctx, transcript, run.TargetLanguage)
	if err != nil {
		return err
	}
	if len(translated) != len(transcript) {
		return services.Wrap(
			services.ErrContractViolation,
			"translate", "validate translation",
			fmt.Sprintf("translation returned %d segments for %d inputs", len(translated), len(transcript)),
			nil,
		)
	}
	for i := range translated {
		if translated[i].Start != transcript[i].Start || translated[i].End != transcript[i].End {
			return services.Wrap(
				services.ErrContractViolation,
				"translate", "validate translation",
				fmt.Sprintf("segment %d timing changed during translation", transcript[i].Index),
				nil,
			)
		}
	}

	payload, err := json.MarshalIndent(translated, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrStorage, "translate", "encode translation", "marshal translated transcript", err)
	}
	attempt, err := t.artifacts.NextAttempt(ctx, run.ID, artifacts.KindTranslatedTranscript)
	if err != nil {
		return err
	}
	if _, err := t.artifacts.Put(ctx, run.ID, "translate", artifacts.KindTranslatedTranscript, attempt, payload); err != nil {
		return err
	}

	run.SetProgress("Translating", "Translation complete", 100)
	logger.Info("translation stored",
		logging.Int("segments", len(translated)),
		logging.String("target_language", run.TargetLanguage),
	)
	return nil
}

func (t *Translate) HealthCheck(ctx context.Context) stage.Health {
	if t.cfg.OpenAI.APIKey == "" {
		return stage.Unhealthy("translate", "translation provider API key not configured")
	}
	return stage.Healthy("translate")
}
